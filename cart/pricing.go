package cart

import (
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/storefront/models"
)

var hundred = decimal.NewFromInt(100)

// PricingPolicy is the flat threshold shipping rule: orders whose subtotal is
// strictly above FreeShippingThreshold ship free, the rest pay FlatShippingFee.
type PricingPolicy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

func DefaultPolicy() PricingPolicy {
	return NewPolicy(500, 50)
}

func NewPolicy(freeShippingThreshold, flatShippingFee float64) PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: decimal.NewFromFloat(freeShippingThreshold),
		FlatShippingFee:       decimal.NewFromFloat(flatShippingFee),
	}
}

// Price computes subtotal, shipping and total for the given items.
func (p PricingPolicy) Price(items []models.LineItem) models.Totals {
	subtotal := decimal.Zero
	count := 0
	for _, item := range items {
		line := decimal.NewFromFloat(item.Product.UnitPrice()).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		count += item.Quantity
	}

	shipping := p.FlatShippingFee
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return models.Totals{
		Subtotal:    subtotal.Round(2).InexactFloat64(),
		ShippingFee: shipping.Round(2).InexactFloat64(),
		Total:       subtotal.Add(shipping).Round(2).InexactFloat64(),
		ItemCount:   count,
	}
}

func minorUnits(total float64) decimal.Decimal {
	return decimal.NewFromFloat(total).Mul(hundred).Round(0)
}

// AmountMinorUnits converts a major-unit total to the integer amount the
// payment gateway charges. ok is false when the amount does not fit in an
// int64.
func AmountMinorUnits(total float64) (amount int64, ok bool) {
	d := minorUnits(total)
	if !d.BigInt().IsInt64() {
		return 0, false
	}
	return d.IntPart(), true
}

// SameAmount reports whether two major-unit totals are equal to the cent.
func SameAmount(a, b float64) bool {
	return minorUnits(a).Equal(minorUnits(b))
}
