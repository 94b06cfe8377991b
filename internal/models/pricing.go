package models

import "github.com/shopspring/decimal"

// Money values keep two decimal places. decimal.Round rounds half away from
// zero, which is half-up for the non-negative amounts used here.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// DiscountedPrice applies the percentage discount, clamped to [0, 100].
func (p Product) DiscountedPrice() decimal.Decimal {
	discount := ClampDiscount(p.DiscountPercent)
	if discount == 0 {
		return p.Price.Round(moneyPlaces)
	}
	factor := decimal.NewFromInt(int64(100 - discount))
	return p.Price.Mul(factor).Div(hundred).Round(moneyPlaces)
}

func (p Product) InStock() bool {
	return p.Stock > 0 && p.IsActive
}

// UnitAmountMinor is the discounted price in minor currency units, as payment
// providers expect it.
func (p Product) UnitAmountMinor() int64 {
	return p.DiscountedPrice().Shift(moneyPlaces).IntPart()
}

func ClampDiscount(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// Subtotal is computed from the product's current price.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Product.DiscountedPrice().Mul(decimal.NewFromInt(int64(i.Quantity))).Round(moneyPlaces)
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(moneyPlaces)
}

func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(moneyPlaces)
}

// FormatMoney renders an amount with exactly two decimals.
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(moneyPlaces)
}
