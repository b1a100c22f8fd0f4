package checkout

import (
	"github.com/shopspring/decimal"
)

// Pricing holds the fees applied on top of the cart subtotal.
type Pricing struct {
	CarrierFee            decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FiscalStamp           decimal.Decimal
}

// DefaultPricing is a 7.000 carrier fee waived from 300.000, and a 1.000 stamp.
func DefaultPricing() Pricing {
	return Pricing{
		CarrierFee:            decimal.NewFromInt(7),
		FreeShippingThreshold: decimal.NewFromInt(300),
		FiscalStamp:           decimal.NewFromInt(1),
	}
}

// ShippingCost is zero for pickup and for carrier delivery at or above the
// threshold, and the carrier fee otherwise. An unselected method is priced
// as carrier delivery.
func (p Pricing) ShippingCost(subtotal decimal.Decimal, f Fulfillment) decimal.Decimal {
	if f.Method == FulfillmentPickup {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.CarrierFee
}

// Quote is the price breakdown shown on the checkout summary.
type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Shipping    decimal.Decimal `json:"shipping"`
	FiscalStamp decimal.Decimal `json:"fiscalStamp"`
	Total       decimal.Decimal `json:"total"`
	Savings     decimal.Decimal `json:"savings"`
	ShowSavings bool            `json:"showSavings"`
}

// Quote computes total = subtotal + shipping + stamp.
func (p Pricing) Quote(subtotal, savings decimal.Decimal, f Fulfillment) Quote {
	shipping := p.ShippingCost(subtotal, f)
	return Quote{
		Subtotal:    subtotal,
		Shipping:    shipping,
		FiscalStamp: p.FiscalStamp,
		Total:       subtotal.Add(shipping).Add(p.FiscalStamp),
		Savings:     savings,
		ShowSavings: savings.IsPositive(),
	}
}
