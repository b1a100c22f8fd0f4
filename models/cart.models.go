package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemKind discriminates the two variants a cart item can hold
type ItemKind string

const (
	ItemKindProduct ItemKind = "product"
	ItemKindPack    ItemKind = "pack"
)

// CartItem is the thing a cart line was created from: exactly one of Product
// or Pack is set, matching Kind.
type CartItem struct {
	Kind    ItemKind `json:"kind"`
	Product *Product `json:"product,omitempty"`
	Pack    *Pack    `json:"pack,omitempty"`
}

// ProductItem wraps a product as a cart item
func ProductItem(p Product) CartItem {
	return CartItem{Kind: ItemKindProduct, Product: &p}
}

// PackItem wraps a pack as a cart item
func PackItem(p Pack) CartItem {
	return CartItem{Kind: ItemKindPack, Pack: &p}
}

// Validate checks that the variant payload matches Kind
func (i CartItem) Validate() error {
	switch i.Kind {
	case ItemKindProduct:
		if i.Product == nil || i.Pack != nil {
			return fmt.Errorf("product item must carry exactly a product")
		}
	case ItemKindPack:
		if i.Pack == nil || i.Product != nil {
			return fmt.Errorf("pack item must carry exactly a pack")
		}
	default:
		return fmt.Errorf("unknown item kind %q", i.Kind)
	}
	return nil
}

// ID returns the identifier of the wrapped product or pack
func (i CartItem) ID() int {
	if i.Kind == ItemKindPack && i.Pack != nil {
		return i.Pack.ID
	}
	if i.Product != nil {
		return i.Product.ID
	}
	return 0
}

// Key returns the cart-line key, "product-<id>" or "pack-<id>"
func (i CartItem) Key() string {
	return LineKey(i.Kind, i.ID())
}

// Name returns the display name of the wrapped item
func (i CartItem) Name() string {
	if i.Kind == ItemKindPack && i.Pack != nil {
		return i.Pack.Name
	}
	if i.Product != nil {
		return i.Product.Name
	}
	return ""
}

// UnitPrice returns the current selling price of the wrapped item
func (i CartItem) UnitPrice() decimal.Decimal {
	if i.Kind == ItemKindPack && i.Pack != nil {
		return i.Pack.Price
	}
	if i.Product != nil {
		return i.Product.Price
	}
	return decimal.Zero
}

// OriginalUnitPrice returns the pre-discount price of the wrapped item
func (i CartItem) OriginalUnitPrice() decimal.Decimal {
	if i.Kind == ItemKindPack && i.Pack != nil {
		if i.Pack.OriginalPrice.IsZero() {
			return i.Pack.Price
		}
		return i.Pack.OriginalPrice
	}
	if i.Product != nil {
		return i.Product.ReferencePrice()
	}
	return decimal.Zero
}

// Image returns the display image of the wrapped item
func (i CartItem) Image() string {
	if i.Kind == ItemKindPack && i.Pack != nil {
		return i.Pack.Image
	}
	if i.Product != nil {
		return i.Product.Image()
	}
	return ""
}

// LineKey builds the synthetic key identifying a cart line
func LineKey(kind ItemKind, id int) string {
	return fmt.Sprintf("%s-%d", kind, id)
}

// CartLine represents one row of the cart with the price captured at add-time
type CartLine struct {
	Key               string          `json:"key"`
	Name              string          `json:"name"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	OriginalUnitPrice decimal.Decimal `json:"originalUnitPrice"`
	Image             string          `json:"image"`
	Quantity          int             `json:"quantity"`
	Item              CartItem        `json:"item"`
}

// LineTotal returns unit price times quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineSavings returns (original - current) * quantity, which may be zero or negative
func (l CartLine) LineSavings() decimal.Decimal {
	return l.OriginalUnitPrice.Sub(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
}
