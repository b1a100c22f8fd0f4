package models

import "fmt"

// APIError is the structured error returned by the order and payment
// collaborators; Message is meant to be shown to the customer as-is.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}
