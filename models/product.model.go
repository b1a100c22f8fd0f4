package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Spec is a single name/value line of a product's technical sheet
type Spec struct {
	Name  string `bson:"name" json:"name"`
	Value string `bson:"value" json:"value"`
}

// Product represents a concrete sellable unit in the catalog
type Product struct {
	ID       int              `bson:"_id" json:"id"`
	Name     string           `bson:"name" json:"name"`
	Brand    string           `bson:"brand" json:"brand"`
	Category string           `bson:"category" json:"category"` // leaf category or sub-category name
	Price    decimal.Decimal  `bson:"price" json:"price"`       // current, post-discount
	OldPrice *decimal.Decimal `bson:"old_price,omitempty" json:"oldPrice,omitempty"`
	Discount *decimal.Decimal `bson:"discount,omitempty" json:"discount,omitempty"` // percentage
	Quantity int              `bson:"quantity" json:"quantity"`                     // units in stock
	Images   []string         `bson:"images" json:"images"`
	Specs    []Spec           `bson:"specs,omitempty" json:"specs,omitempty"`
}

// Purchasable reports whether the product has stock left
func (p Product) Purchasable() bool {
	return p.Quantity > 0
}

// ReferencePrice is the pre-discount price used for bundle pricing and savings
func (p Product) ReferencePrice() decimal.Decimal {
	if p.OldPrice != nil {
		return *p.OldPrice
	}
	return p.Price
}

// Image returns the primary image reference, if any
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Validate checks the invariants catalog management must keep
func (p Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("product name is required")
	}
	if p.Quantity < 0 {
		return fmt.Errorf("product quantity must not be negative")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("product price must not be negative")
	}
	if p.OldPrice != nil && p.Price.GreaterThan(*p.OldPrice) {
		return fmt.Errorf("product price %s exceeds original price %s", p.Price.StringFixed(3), p.OldPrice.StringFixed(3))
	}
	return nil
}
