package pricing

import (
	"github.com/shopspring/decimal"
)

const (
	// TaxRate is the flat sales tax applied after discounts.
	TaxRate = 0.08
	// ShippingCost is charged when the discounted subtotal is under the threshold.
	ShippingCost = 5.99
	// FreeShippingThreshold waives shipping at or above this discounted subtotal.
	FreeShippingThreshold = 50.0
)

// OrderSummary is the five-line price breakdown shown at checkout.
type OrderSummary struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// FreeShipping reports whether the summary qualified for free shipping.
func (s OrderSummary) FreeShipping() bool {
	return s.Shipping == 0
}

// CalculateOrderSummary derives tax, shipping and total from a subtotal and a
// flat discount. Inputs are not validated: negative values or a discount
// larger than the subtotal flow straight through the arithmetic.
func CalculateOrderSummary(subtotal, discount float64) OrderSummary {
	sub := decimal.NewFromFloat(subtotal)
	disc := decimal.NewFromFloat(discount)
	afterDiscount := sub.Sub(disc)

	tax := afterDiscount.Mul(decimal.NewFromFloat(TaxRate))
	shipping := decimal.NewFromFloat(ShippingCost)
	if afterDiscount.GreaterThanOrEqual(decimal.NewFromFloat(FreeShippingThreshold)) {
		shipping = decimal.Zero
	}
	total := afterDiscount.Add(tax).Add(shipping)

	return OrderSummary{
		Subtotal: cents(sub),
		Tax:      cents(tax),
		Shipping: cents(shipping),
		Discount: cents(disc),
		Total:    cents(total),
	}
}

// AmountToFreeShipping returns how much more the shopper must spend before
// shipping is waived, or zero once the threshold is met.
func AmountToFreeShipping(subtotal float64) float64 {
	remaining := decimal.NewFromFloat(FreeShippingThreshold).Sub(decimal.NewFromFloat(subtotal))
	if !remaining.IsPositive() {
		return 0
	}
	return cents(remaining)
}

// LineTotal multiplies a unit price by a quantity and rounds to cents.
func LineTotal(price float64, quantity int) float64 {
	return cents(line(price, quantity))
}

// Line is a single price × quantity pair fed into Subtotal.
type Line struct {
	Price    float64
	Quantity int
}

// Subtotal sums price × quantity across lines and rounds the sum (not each
// line) to cents.
func Subtotal(lines []Line) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(line(l.Price, l.Quantity))
	}
	return cents(sum)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(value float64) float64 {
	return cents(decimal.NewFromFloat(value))
}

// FormatCurrency renders a value as dollars with two decimals, e.g. $12.30.
func FormatCurrency(value float64) string {
	d := decimal.NewFromFloat(value).Round(2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func line(price float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
