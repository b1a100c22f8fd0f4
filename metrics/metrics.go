// Package metrics exposes the storefront's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "orders_created_total",
		Help:      "Orders accepted by the order service, by payment method.",
	}, []string{"payment_method"})

	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "orders_rejected_total",
		Help:      "Order creations refused, by reason.",
	}, []string{"reason"})

	OrderTotal = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "order_total_amount",
		Help:      "Payable total of created orders.",
		Buckets:   []float64{25, 50, 100, 200, 300, 500, 1000, 2500},
	})

	PaymentRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "payment_requests_total",
		Help:      "Hosted payment initiation calls, by outcome.",
	}, []string{"outcome"})

	PaymentReturns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "payment_returns_total",
		Help:      "Return trips from the payment provider, by outcome.",
	}, []string{"outcome"})

	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "cart_mutations_total",
		Help:      "Cart mutations, by operation.",
	}, []string{"op"})

	CheckoutRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "checkout_validation_failures_total",
		Help:      "Checkout step validations that failed, by step.",
	}, []string{"step"})
)
