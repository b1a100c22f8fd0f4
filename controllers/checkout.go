package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"go-storefront/checkout"
	"go-storefront/metrics"
	"go-storefront/models"

	"github.com/gorilla/mux"
)

// PaymentReturns applies the provider's verdict to a pending order.
type PaymentReturns interface {
	ApplyPaymentReturn(ctx context.Context, orderID, outcome string) (models.Order, error)
}

// CheckoutController drives the four-step checkout of each session
type CheckoutController struct {
	Sessions  *SessionRegistry
	Submitter *checkout.Submitter
	Orders    PaymentReturns
	logger    *slog.Logger
}

func NewCheckoutController(sessions *SessionRegistry, submitter *checkout.Submitter, orders PaymentReturns, logger *slog.Logger) *CheckoutController {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutController{Sessions: sessions, Submitter: submitter, Orders: orders, logger: logger}
}

type paymentChoice struct {
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	AcceptTerms   bool                 `json:"acceptTerms"`
}

type advanceRequest struct {
	From checkout.Step `json:"from"`
}

// writeCheckoutError reports err with the most specific message available.
// Validation failures stay on the current step and are counted, not logged.
func writeCheckoutError(w http.ResponseWriter, err error, orderID string) {
	body := errorBody{Message: checkout.UserMessage(err), OrderID: orderID}
	var verr *checkout.ValidationError
	var apiErr *models.APIError
	switch {
	case errors.As(err, &verr):
		metrics.CheckoutRejections.WithLabelValues(verr.Step.String()).Inc()
		body.Step = verr.Step.String()
		body.Field = verr.Field
		writeJSON(w, http.StatusUnprocessableEntity, body)
	case errors.Is(err, checkout.ErrInvalidStep):
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, checkout.ErrStepLocked), errors.Is(err, checkout.ErrSubmitInFlight), errors.Is(err, checkout.ErrCompleted):
		writeJSON(w, http.StatusConflict, body)
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		writeJSON(w, apiErr.Status, body)
	default:
		writeJSON(w, http.StatusBadGateway, body)
	}
}

// session runs fn against the caller's checkout session and answers with
// its state. Mutations on a completed checkout start a new one.
func (cc *CheckoutController) session(w http.ResponseWriter, r *http.Request, fresh bool, fn func(*checkout.Session) error) {
	sh, release := cc.Sessions.Acquire(r)
	defer release()
	s, err := cc.Sessions.checkoutFor(r.Context(), sh, fresh)
	if err != nil {
		cc.logger.Error("Failed to start checkout", slog.String("error", err.Error()))
		http.Error(w, "Error starting checkout", http.StatusInternalServerError)
		return
	}
	if fn != nil {
		if err := fn(s); err != nil {
			writeCheckoutError(w, err, "")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.State())
}

func decodeInto[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return v, false
	}
	return v, true
}

// GetCheckout returns the current step, the form and the price breakdown
func (cc *CheckoutController) GetCheckout(w http.ResponseWriter, r *http.Request) {
	cc.session(w, r, false, nil)
}

func (cc *CheckoutController) SetIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeInto[checkout.Identity](w, r)
	if !ok {
		return
	}
	cc.session(w, r, true, func(s *checkout.Session) error {
		s.SetIdentity(id)
		return nil
	})
}

func (cc *CheckoutController) SetAddress(w http.ResponseWriter, r *http.Request) {
	addr, ok := decodeInto[checkout.Address](w, r)
	if !ok {
		return
	}
	cc.session(w, r, true, func(s *checkout.Session) error {
		s.SetAddress(addr)
		return nil
	})
}

func (cc *CheckoutController) SetFulfillment(w http.ResponseWriter, r *http.Request) {
	f, ok := decodeInto[checkout.Fulfillment](w, r)
	if !ok {
		return
	}
	cc.session(w, r, true, func(s *checkout.Session) error {
		return s.SelectFulfillment(f)
	})
}

func (cc *CheckoutController) SetPayment(w http.ResponseWriter, r *http.Request) {
	choice, ok := decodeInto[paymentChoice](w, r)
	if !ok {
		return
	}
	cc.session(w, r, true, func(s *checkout.Session) error {
		s.SetPayment(choice.PaymentMethod, choice.AcceptTerms)
		return nil
	})
}

// Advance validates a step and moves past it. Without a body the active
// step is advanced.
func (cc *CheckoutController) Advance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid input", http.StatusBadRequest)
			return
		}
	}
	cc.session(w, r, true, func(s *checkout.Session) error {
		from := req.From
		if from == 0 {
			from = s.ActiveStep()
		}
		return s.Advance(from)
	})
}

func (cc *CheckoutController) GoTo(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["step"])
	if err != nil {
		writeCheckoutError(w, checkout.ErrInvalidStep, "")
		return
	}
	cc.session(w, r, false, func(s *checkout.Session) error {
		return s.GoTo(checkout.Step(n))
	})
}

// Submit places the order. Cash on delivery completes the checkout; online
// payment answers with the provider's page to redirect to.
func (cc *CheckoutController) Submit(w http.ResponseWriter, r *http.Request) {
	sh, release := cc.Sessions.Acquire(r)
	defer release()
	s, err := cc.Sessions.checkoutFor(r.Context(), sh, false)
	if err != nil {
		http.Error(w, "Error starting checkout", http.StatusInternalServerError)
		return
	}
	res, err := cc.Submitter.Submit(r.Context(), s)
	if err != nil {
		writeCheckoutError(w, err, res.OrderID)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type paymentReturnView struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Completed bool   `json:"completed"`
}

// PaymentReturn handles the customer coming back from the hosted payment
// page. Success marks the order paid and empties the cart; cancellation
// cancels the order and keeps the cart for another attempt.
func (cc *CheckoutController) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	outcome := r.URL.Query().Get("payment")
	orderID := r.URL.Query().Get("orderId")
	if outcome != models.PaymentOutcomeSuccess && outcome != models.PaymentOutcomeCancelled {
		http.Error(w, "Unknown payment outcome", http.StatusBadRequest)
		return
	}
	if orderID == "" {
		http.Error(w, "orderId is required", http.StatusBadRequest)
		return
	}
	metrics.PaymentReturns.WithLabelValues(outcome).Inc()

	order, err := cc.Orders.ApplyPaymentReturn(r.Context(), orderID, outcome)
	if err != nil {
		cc.logger.Error("Failed to apply payment return", slog.String("order_id", orderID), slog.String("error", err.Error()))
		writeError(w, err, "Error updating order")
		return
	}

	sh, release := cc.Sessions.Acquire(r)
	defer release()
	view := paymentReturnView{OrderID: order.ID, Status: order.Status}
	switch {
	case outcome == models.PaymentOutcomeCancelled:
		if sh.Checkout != nil && sh.Checkout.AwaitingPayment() == orderID {
			sh.Checkout.CancelPayment()
		}
	case order.Status != models.OrderStatusPaid:
		// A late success for an order that was already cancelled.
	case sh.Checkout != nil:
		view.Completed = sh.Checkout.ConfirmPayment(orderID)
	default:
		// The checkout session did not survive a restart; the cart did.
		sh.Cart.Clear()
		view.Completed = true
	}
	cc.logger.Info("Payment return applied", slog.String("order_id", orderID), slog.String("status", order.Status))
	writeJSON(w, http.StatusOK, view)
}
