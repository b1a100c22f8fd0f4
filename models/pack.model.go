package models

import (
	"github.com/shopspring/decimal"
)

// Pack represents a sellable bundle of products and, optionally, other packs.
// Price and OriginalPrice are derived from membership and Discount; they are
// never authored directly.
type Pack struct {
	ID                 int             `bson:"_id" json:"id"`
	Name               string          `bson:"name" json:"name"`
	Description        string          `bson:"description" json:"description"`
	Image              string          `bson:"image" json:"image"`
	Discount           decimal.Decimal `bson:"discount" json:"discount"` // percentage
	Price              decimal.Decimal `bson:"price" json:"price"`
	OriginalPrice      decimal.Decimal `bson:"original_price" json:"originalPrice"`
	IncludedProductIDs []int           `bson:"included_product_ids" json:"includedProductIds"`
	IncludedPackIDs    []int           `bson:"included_pack_ids,omitempty" json:"includedPackIds,omitempty"`
}
