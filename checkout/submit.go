package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go-storefront/models"

	"github.com/google/uuid"
)

// ErrNoPaymentURL is returned when the payment provider answers without a
// redirect target.
var ErrNoPaymentURL = errors.New("payment provider returned no payment URL")

// GenericFailureMessage is shown when a collaborator fails without a
// structured message.
const GenericFailureMessage = "Something went wrong while placing your order. Please try again."

// OrderCreator persists an order after validating and reserving stock.
type OrderCreator interface {
	CreateOrder(ctx context.Context, order models.Order) (models.Order, error)
}

// PaymentInitiator requests a hosted payment page for an order.
type PaymentInitiator interface {
	InitiatePayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResponse, error)
}

// Result is the outcome of a successful submission. For cash on delivery
// Completed is true and RedirectURL points at the success page; for online
// payment RedirectURL is the provider's page and the cart is left intact.
type Result struct {
	OrderID     string `json:"orderId"`
	Completed   bool   `json:"completed"`
	RedirectURL string `json:"redirectUrl"`
}

// Submitter turns a validated session into an order and hands off payment.
type Submitter struct {
	orders     OrderCreator
	payments   PaymentInitiator
	successURL string
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewSubmitter creates a Submitter. successURL is the page cash-on-delivery
// customers land on; the order id is appended as the orderId parameter.
func NewSubmitter(orders OrderCreator, payments PaymentInitiator, successURL string, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	if successURL == "" {
		successURL = "/checkout/success"
	}
	return &Submitter{
		orders:     orders,
		payments:   payments,
		successURL: successURL,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Submit places the order for s. Validation and collaborator failures leave
// the session on step 4 with its form and cart untouched. If payment
// initiation fails the order already exists as pending; its id is still
// returned in the Result.
func (sb *Submitter) Submit(ctx context.Context, s *Session) (Result, error) {
	if s.completed {
		return Result{OrderID: s.orderID}, ErrCompleted
	}
	if !s.submitting.CompareAndSwap(false, true) {
		return Result{}, ErrSubmitInFlight
	}
	defer s.submitting.Store(false)

	if s.active != StepPayment {
		return Result{}, ErrStepLocked
	}
	for step := StepIdentity; step <= StepPayment; step++ {
		if err := s.validate(step); err != nil {
			return Result{}, err
		}
	}

	order := s.buildOrder(sb.newID(), sb.now())
	created, err := sb.orders.CreateOrder(ctx, order)
	if err != nil {
		sb.logger.Error("Order creation failed", slog.String("order_id", order.ID), slog.String("error", err.Error()))
		return Result{}, fmt.Errorf("create order: %w", err)
	}
	orderID := created.ID
	if orderID == "" {
		orderID = order.ID
	}

	switch s.form.PaymentMethod {
	case models.PaymentOnline:
		resp, err := sb.payments.InitiatePayment(ctx, models.PaymentRequest{
			OrderID: orderID,
			Amount:  order.TotalAmount,
			CustomerInfo: models.CustomerInfo{
				Customer: order.Customer,
				Address:  order.ShippingAddress,
			},
		})
		if err == nil && strings.TrimSpace(resp.PaymentURL) == "" {
			err = ErrNoPaymentURL
		}
		if err != nil {
			sb.logger.Error("Payment initiation failed, order left pending",
				slog.String("order_id", orderID), slog.String("error", err.Error()))
			return Result{OrderID: orderID}, fmt.Errorf("initiate payment: %w", err)
		}
		s.awaitingPayment = orderID
		sb.logger.Info("Redirecting to hosted payment", slog.String("order_id", orderID))
		return Result{OrderID: orderID, RedirectURL: resp.PaymentURL}, nil

	default:
		s.cart.Clear()
		s.complete(orderID)
		sb.logger.Info("Order placed", slog.String("order_id", orderID), slog.String("payment_method", string(s.form.PaymentMethod)))
		return Result{OrderID: orderID, Completed: true, RedirectURL: sb.successLink(orderID)}, nil
	}
}

// ConfirmPayment finishes a hosted-payment checkout after the provider
// reports success for orderID: the cart is cleared and the flow completes.
func (s *Session) ConfirmPayment(orderID string) bool {
	if s.awaitingPayment == "" || s.awaitingPayment != orderID {
		return false
	}
	s.cart.Clear()
	s.complete(orderID)
	return true
}

// CancelPayment forgets the pending hand-off so the customer can retry.
func (s *Session) CancelPayment() {
	s.awaitingPayment = ""
}

func (s *Session) complete(orderID string) {
	s.completed = true
	s.orderID = orderID
	s.awaitingPayment = ""
}

func (sb *Submitter) successLink(orderID string) string {
	sep := "?"
	if strings.Contains(sb.successURL, "?") {
		sep = "&"
	}
	return sb.successURL + sep + url.Values{"orderId": {orderID}}.Encode()
}

func (s *Session) buildOrder(id string, now time.Time) models.Order {
	lines := s.cart.Lines()
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			Kind:      line.Item.Kind,
			ProductID: line.Item.ID(),
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Image:     line.Image,
		})
	}

	q := s.Quote()
	form := s.form
	order := models.Order{
		ID: id,
		Customer: models.Customer{
			Email:     strings.TrimSpace(form.Identity.Email),
			FirstName: strings.TrimSpace(form.Identity.FirstName),
			LastName:  strings.TrimSpace(form.Identity.LastName),
			Phone:     NormalizePhone(form.Address.Phone),
		},
		Items:        items,
		Subtotal:     q.Subtotal,
		ShippingCost: q.Shipping,
		FiscalStamp:  q.FiscalStamp,
		TotalAmount:  q.Total,
		ShippingAddress: models.Address{
			Street:     strings.TrimSpace(form.Address.Street),
			City:       strings.TrimSpace(form.Address.City),
			PostalCode: strings.TrimSpace(form.Address.PostalCode),
		},
		Fulfillment:   s.FulfillmentLabel(),
		PaymentMethod: form.PaymentMethod.Label(),
		Status:        models.OrderStatusPending,
		CreatedAt:     now.UTC(),
	}
	if form.Fulfillment.Method == FulfillmentPickup {
		order.PickupStoreID = form.Fulfillment.StoreID
	}
	return order
}

// UserMessage picks the most specific message to show for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrStepLocked), errors.Is(err, ErrSubmitInFlight),
		errors.Is(err, ErrCompleted), errors.Is(err, ErrInvalidStep):
		return err.Error()
	}
	return GenericFailureMessage
}
