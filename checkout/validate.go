package checkout

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"go-storefront/models"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\d{8}$`)
)

// ErrEmptyCart is the cause of the validation error raised when submitting
// with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// ValidationError describes the first field that failed a step's checks.
type ValidationError struct {
	Step    Step   `json:"step"`
	Field   string `json:"field"`
	Message string `json:"message"`
	cause   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

func invalid(step Step, field, message string) *ValidationError {
	return &ValidationError{Step: step, Field: field, Message: message}
}

// Identity is the step 1 form
type Identity struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Address is the step 2 form
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
}

// ValidateIdentity checks email shape and that both names are present.
func ValidateIdentity(id Identity) error {
	if !emailPattern.MatchString(strings.TrimSpace(id.Email)) {
		return invalid(StepIdentity, "email", "enter a valid email address")
	}
	if blank(id.FirstName) {
		return invalid(StepIdentity, "firstName", "first name is required")
	}
	if blank(id.LastName) {
		return invalid(StepIdentity, "lastName", "last name is required")
	}
	return nil
}

// ValidateAddress checks the delivery fields and that the phone number is
// exactly 8 digits once whitespace is removed.
func ValidateAddress(a Address) error {
	if blank(a.Street) {
		return invalid(StepAddress, "street", "address is required")
	}
	if blank(a.City) {
		return invalid(StepAddress, "city", "city is required")
	}
	if blank(a.PostalCode) {
		return invalid(StepAddress, "postalCode", "postal code is required")
	}
	if !phonePattern.MatchString(NormalizePhone(a.Phone)) {
		return invalid(StepAddress, "phone", "phone number must have exactly 8 digits")
	}
	return nil
}

func validateFulfillment(f Fulfillment, pickups map[int]models.Store) error {
	switch f.Method {
	case FulfillmentCarrier:
		return nil
	case FulfillmentPickup:
		if _, ok := pickups[f.StoreID]; !ok {
			return invalid(StepFulfillment, "storeId", "choose a store that offers pickup")
		}
		return nil
	}
	return invalid(StepFulfillment, "method", "choose a delivery method")
}

func validatePayment(method models.PaymentMethod, acceptTerms, cartEmpty bool) error {
	if !method.Valid() {
		return invalid(StepPayment, "paymentMethod", "choose a payment method")
	}
	if !acceptTerms {
		return invalid(StepPayment, "acceptTerms", "you must accept the terms and conditions")
	}
	if cartEmpty {
		err := invalid(StepPayment, "cart", "your cart is empty")
		err.cause = ErrEmptyCart
		return err
	}
	return nil
}

// NormalizePhone strips all whitespace from a phone number.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
