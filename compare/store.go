// Package compare keeps the small set of products a shopper compares side by side.
package compare

import (
	"errors"

	"go-storefront/models"
)

// Capacity is the most products that can be compared at once.
const Capacity = 3

var (
	ErrAlreadyPresent   = errors.New("product is already in the comparison")
	ErrFull             = errors.New("you can compare at most 3 products")
	ErrCategoryMismatch = errors.New("only products from the same category can be compared")
)

// Store is an admission-controlled set of products sharing one category.
// Every check runs before anything is inserted.
type Store struct {
	products []models.Product
}

func New() *Store {
	return &Store{}
}

// Add admits p if it is new, there is room, and it matches the category of
// the products already present.
func (s *Store) Add(p models.Product) error {
	if s.Contains(p.ID) {
		return ErrAlreadyPresent
	}
	if len(s.products) >= Capacity {
		return ErrFull
	}
	if len(s.products) > 0 && s.products[0].Category != p.Category {
		return ErrCategoryMismatch
	}
	s.products = append(s.products, p)
	return nil
}

// Remove drops the product with id and reports whether it was present.
func (s *Store) Remove(id int) bool {
	for i, p := range s.products {
		if p.ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) Clear() {
	s.products = nil
}

func (s *Store) Contains(id int) bool {
	for _, p := range s.products {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Products returns a copy of the compared products in insertion order.
func (s *Store) Products() []models.Product {
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}

func (s *Store) Len() int {
	return len(s.products)
}

// Category returns the category every compared product shares, or "" when empty.
func (s *Store) Category() string {
	if len(s.products) == 0 {
		return ""
	}
	return s.products[0].Category
}
