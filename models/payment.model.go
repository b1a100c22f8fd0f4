package models

import (
	"github.com/shopspring/decimal"
)

// PaymentMethod is the customer's choice of how to pay
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentOnline         PaymentMethod = "online"
)

// Valid reports whether m is a supported payment method
func (m PaymentMethod) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentOnline
}

// Label is the human-readable name stored on orders
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCashOnDelivery:
		return "Paiement à la livraison"
	case PaymentOnline:
		return "Paiement en ligne"
	}
	return string(m)
}

// PaymentRequest asks the hosted payment provider for a redirect target
type PaymentRequest struct {
	OrderID      string          `json:"orderId"`
	Amount       decimal.Decimal `json:"amount"`
	CustomerInfo CustomerInfo    `json:"customerInfo"`
}

// CustomerInfo is the identity and address snapshot sent to the payment provider
type CustomerInfo struct {
	Customer
	Address Address `json:"address"`
}

// PaymentResponse carries the provider's hosted payment page URL
type PaymentResponse struct {
	PaymentURL string `json:"payment_url"`
}

// Payment outcomes signalled on the return trip from the provider
const (
	PaymentOutcomeSuccess   = "success"
	PaymentOutcomeCancelled = "cancelled"
)
