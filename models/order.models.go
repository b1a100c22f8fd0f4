package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Only fulfillment processes and the payment return change
// an order's status after creation.
const (
	OrderStatusPending   = "En attente"
	OrderStatusPaid      = "Payée"
	OrderStatusShipped   = "Expédiée"
	OrderStatusDelivered = "Livrée"
	OrderStatusCancelled = "Annulée"
)

// ValidOrderStatus reports whether s is a known order status
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Address represents a postal address for delivery
type Address struct {
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postalCode"`
}

// Customer is the identity snapshot captured on an order
type Customer struct {
	Email     string `bson:"email" json:"email"`
	FirstName string `bson:"first_name" json:"firstName"`
	LastName  string `bson:"last_name" json:"lastName"`
	Phone     string `bson:"phone" json:"phone"`
}

// FullName joins first and last name
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// OrderItem is a snapshot of a cart line at order time
type OrderItem struct {
	Kind      ItemKind        `bson:"kind" json:"kind"`
	ProductID int             `bson:"product_id" json:"productId"` // pack id for pack lines
	Name      string          `bson:"name" json:"name"`
	Quantity  int             `bson:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `bson:"unit_price" json:"unitPrice"`
	Image     string          `bson:"image" json:"image"`
}

// StockUnit is a quantity of one product held for an order
type StockUnit struct {
	ProductID int `bson:"product_id" json:"productId"`
	Quantity  int `bson:"quantity" json:"quantity"`
}

// Order represents a placed order. Reserved records the product units taken
// from stock when the order was created, packs already expanded.
type Order struct {
	ID              string          `bson:"_id" json:"id"`
	Customer        Customer        `bson:"customer" json:"customer"`
	Items           []OrderItem     `bson:"items" json:"items"`
	Subtotal        decimal.Decimal `bson:"subtotal" json:"subtotal"`
	ShippingCost    decimal.Decimal `bson:"shipping_cost" json:"shippingCost"`
	FiscalStamp     decimal.Decimal `bson:"fiscal_stamp" json:"fiscalStamp"`
	TotalAmount     decimal.Decimal `bson:"total_amount" json:"totalAmount"`
	ShippingAddress Address         `bson:"shipping_address" json:"shippingAddress"`
	Fulfillment     string          `bson:"fulfillment" json:"fulfillment"`
	PickupStoreID   int             `bson:"pickup_store_id,omitempty" json:"pickupStoreId,omitempty"`
	PaymentMethod   string          `bson:"payment_method" json:"paymentMethod"`
	Status          string          `bson:"status" json:"status"`
	CreatedAt       time.Time       `bson:"created_at" json:"createdAt"`
	Reserved        []StockUnit     `bson:"reserved,omitempty" json:"-"`
}
