package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestShippingTierBoundary(t *testing.T) {
	p := DefaultPricing()
	carrier := Fulfillment{Method: FulfillmentCarrier}
	pickup := Fulfillment{Method: FulfillmentPickup, StoreID: 1}

	assert.Equal(t, "7.000", p.ShippingCost(dec("299.999"), carrier).StringFixed(3))
	assert.Equal(t, "0.000", p.ShippingCost(dec("300.000"), carrier).StringFixed(3))
	assert.Equal(t, "0.000", p.ShippingCost(dec("1250"), carrier).StringFixed(3))
	assert.Equal(t, "0.000", p.ShippingCost(dec("10"), pickup).StringFixed(3))
	assert.Equal(t, "0.000", p.ShippingCost(dec("0"), pickup).StringFixed(3))
	assert.Equal(t, "7.000", p.ShippingCost(dec("10"), Fulfillment{}).StringFixed(3))
}

func TestQuote(t *testing.T) {
	p := DefaultPricing()

	q := p.Quote(dec("240"), dec("0"), Fulfillment{Method: FulfillmentCarrier})
	assert.Equal(t, "248.000", q.Total.StringFixed(3))
	assert.False(t, q.ShowSavings)

	q = p.Quote(dec("299.999"), dec("12.5"), Fulfillment{Method: FulfillmentCarrier})
	assert.Equal(t, "307.999", q.Total.StringFixed(3))
	assert.True(t, q.ShowSavings)

	q = p.Quote(dec("300"), dec("-3"), Fulfillment{Method: FulfillmentCarrier})
	assert.Equal(t, "301.000", q.Total.StringFixed(3))
	assert.False(t, q.ShowSavings)

	q = p.Quote(dec("45.250"), dec("0"), Fulfillment{Method: FulfillmentPickup, StoreID: 2})
	assert.Equal(t, "46.250", q.Total.StringFixed(3))
}
