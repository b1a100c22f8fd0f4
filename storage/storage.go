// Package storage holds errors shared by the storage backends.
package storage

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInsufficientStock is returned when a stock reservation cannot be met.
var ErrInsufficientStock = errors.New("insufficient stock")
