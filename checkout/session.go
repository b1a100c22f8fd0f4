// Package checkout implements the four-step checkout flow: identity,
// address, fulfillment and payment. Forward moves are gated by each step's
// validator and by a furthest-completed watermark; backward moves are free.
package checkout

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go-storefront/cart"
	"go-storefront/models"
)

// Step is a checkout step number, 1 through 4.
type Step int

const (
	StepIdentity Step = iota + 1
	StepAddress
	StepFulfillment
	StepPayment
)

func (s Step) String() string {
	switch s {
	case StepIdentity:
		return "identity"
	case StepAddress:
		return "address"
	case StepFulfillment:
		return "fulfillment"
	case StepPayment:
		return "payment"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) valid() bool {
	return s >= StepIdentity && s <= StepPayment
}

var (
	ErrInvalidStep    = errors.New("invalid checkout step")
	ErrStepLocked     = errors.New("complete the previous steps first")
	ErrSubmitInFlight = errors.New("order submission already in progress")
	ErrCompleted      = errors.New("checkout already completed")
)

// FulfillmentMethod is how the order reaches the customer
type FulfillmentMethod string

const (
	FulfillmentCarrier FulfillmentMethod = "carrier"
	FulfillmentPickup  FulfillmentMethod = "pickup"
)

// Fulfillment is the step 3 selection. StoreID is only set for pickup.
type Fulfillment struct {
	Method  FulfillmentMethod `json:"method"`
	StoreID int               `json:"storeId,omitempty"`
}

// Form is everything the customer has entered so far.
type Form struct {
	Identity      Identity             `json:"identity"`
	Address       Address              `json:"address"`
	Fulfillment   Fulfillment          `json:"fulfillment"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	AcceptTerms   bool                 `json:"acceptTerms"`
}

// Session is one customer's pass through checkout. It is ephemeral and
// reads line items and the subtotal from the cart store it was built with.
type Session struct {
	cart       *cart.Store
	pricing    Pricing
	pickups    map[int]models.Store
	pickupList []models.Store

	active   Step
	furthest Step
	form     Form

	submitting      atomic.Bool
	completed       bool
	orderID         string
	awaitingPayment string
}

// NewSession starts checkout on step 1. Only stores flagged as pickup
// points are offered as pickup options.
func NewSession(c *cart.Store, stores []models.Store, pricing Pricing) *Session {
	s := &Session{
		cart:    c,
		pricing: pricing,
		pickups: make(map[int]models.Store),
		active:  StepIdentity,
	}
	for _, st := range stores {
		if !st.PickupPoint {
			continue
		}
		s.pickups[st.ID] = st
		s.pickupList = append(s.pickupList, st)
	}
	return s
}

func (s *Session) ActiveStep() Step        { return s.active }
func (s *Session) FurthestCompleted() Step { return s.furthest }
func (s *Session) Form() Form              { return s.form }
func (s *Session) Completed() bool         { return s.completed }
func (s *Session) OrderID() string         { return s.orderID }

// AwaitingPayment returns the id of the order handed off to the hosted
// payment page, if any.
func (s *Session) AwaitingPayment() string { return s.awaitingPayment }

// PickupPoints returns the stores offered for in-store pickup.
func (s *Session) PickupPoints() []models.Store {
	out := make([]models.Store, len(s.pickupList))
	copy(out, s.pickupList)
	return out
}

// CanVisit reports whether step may become active.
func (s *Session) CanVisit(step Step) bool {
	return step.valid() && step <= s.furthest+1
}

// GoTo makes step active. Any step up to one past the watermark is reachable.
func (s *Session) GoTo(step Step) error {
	if s.completed {
		return ErrCompleted
	}
	if !step.valid() {
		return ErrInvalidStep
	}
	if !s.CanVisit(step) {
		return ErrStepLocked
	}
	s.active = step
	return nil
}

func (s *Session) SetIdentity(id Identity) { s.form.Identity = id }
func (s *Session) SetAddress(a Address)    { s.form.Address = a }

// SelectFulfillment records the step 3 choice. An unknown method or a store
// that is not a pickup point is rejected and the previous choice is kept.
func (s *Session) SelectFulfillment(f Fulfillment) error {
	if f.Method == FulfillmentCarrier {
		f.StoreID = 0
	}
	if err := validateFulfillment(f, s.pickups); err != nil {
		return err
	}
	s.form.Fulfillment = f
	return nil
}

// SetPayment records the step 4 choices.
func (s *Session) SetPayment(method models.PaymentMethod, acceptTerms bool) {
	s.form.PaymentMethod = method
	s.form.AcceptTerms = acceptTerms
}

// Advance validates from and, on success, moves to the next step and raises
// the watermark. On failure nothing changes. Step 4 is left via Submit.
func (s *Session) Advance(from Step) error {
	if s.completed {
		return ErrCompleted
	}
	if !from.valid() || from == StepPayment {
		return ErrInvalidStep
	}
	if !s.CanVisit(from) {
		return ErrStepLocked
	}
	if err := s.validate(from); err != nil {
		return err
	}
	s.active = from + 1
	if s.furthest < from {
		s.furthest = from
	}
	return nil
}

func (s *Session) validate(step Step) error {
	switch step {
	case StepIdentity:
		return ValidateIdentity(s.form.Identity)
	case StepAddress:
		return ValidateAddress(s.form.Address)
	case StepFulfillment:
		return validateFulfillment(s.form.Fulfillment, s.pickups)
	case StepPayment:
		return validatePayment(s.form.PaymentMethod, s.form.AcceptTerms, s.cart.IsEmpty())
	}
	return ErrInvalidStep
}

// Quote prices the current cart with the current fulfillment choice.
func (s *Session) Quote() Quote {
	return s.pricing.Quote(s.cart.Total(), s.cart.Savings(), s.form.Fulfillment)
}

// FulfillmentLabel describes the selected fulfillment for the order record.
func (s *Session) FulfillmentLabel() string {
	if s.form.Fulfillment.Method == FulfillmentPickup {
		if st, ok := s.pickups[s.form.Fulfillment.StoreID]; ok {
			return "Retrait en magasin : " + st.Name
		}
	}
	return "Livraison à domicile"
}

// State is a read-only snapshot for display.
type State struct {
	ActiveStep        Step           `json:"activeStep"`
	FurthestCompleted Step           `json:"furthestCompleted"`
	Form              Form           `json:"form"`
	Quote             Quote          `json:"quote"`
	PickupPoints      []models.Store `json:"pickupPoints"`
	Completed         bool           `json:"completed"`
	OrderID           string         `json:"orderId,omitempty"`
	AwaitingPayment   string         `json:"awaitingPayment,omitempty"`
}

func (s *Session) State() State {
	return State{
		ActiveStep:        s.active,
		FurthestCompleted: s.furthest,
		Form:              s.form,
		Quote:             s.Quote(),
		PickupPoints:      s.PickupPoints(),
		Completed:         s.completed,
		OrderID:           s.orderID,
		AwaitingPayment:   s.awaitingPayment,
	}
}
