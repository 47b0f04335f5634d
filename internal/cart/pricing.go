package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posterminal/pkg/money"
)

// Flow selects which discount convention a collection is priced with.
// The two order-entry flows disagree on the discount base and both are kept as-is.
type Flow int

const (
	// FlowPointOfSale prices at SalePrice and applies the discount to price including GST.
	FlowPointOfSale Flow = iota
	// FlowPurchaseOrder prices at UnitPrice (cost) and applies the discount before GST.
	FlowPurchaseOrder
)

func (f Flow) String() string {
	switch f {
	case FlowPurchaseOrder:
		return "purchase_order"
	default:
		return "point_of_sale"
	}
}

// Totals is the order-level aggregate. Every field is rounded to display precision and
// Total is computed from the rounded components so it matches the figures shown.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Price returns the per-unit price the flow charges for the line.
func (f Flow) Price(l LineItem) decimal.Decimal {
	if f == FlowPurchaseOrder {
		return l.UnitPrice
	}
	return l.SalePrice
}

// PriceLine returns a copy of l with its derived fields recomputed for the flow.
func PriceLine(f Flow, l LineItem) LineItem {
	price := f.Price(l)
	qty := decimal.NewFromInt(int64(l.Quantity))
	base := price.Mul(qty)

	l.TaxAmount = money.Percent(base, l.GSTPercentage)

	discountBase := base
	if f == FlowPointOfSale {
		discountBase = price.Add(money.Percent(price, l.GSTPercentage)).Mul(qty)
	}

	l.DiscountAmount = decimal.Zero
	if l.ApplyDiscount {
		l.DiscountAmount = money.Percent(discountBase, l.DiscountPercent)
	}
	l.TotalPrice = discountBase.Sub(l.DiscountAmount)
	return l
}

// ComputeTotals aggregates the collection. It has no memory of earlier results.
func ComputeTotals(f Flow, items []LineItem) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	discount := decimal.Zero
	for _, item := range items {
		priced := PriceLine(f, item)
		subtotal = subtotal.Add(f.Price(priced).Mul(decimal.NewFromInt(int64(priced.Quantity))))
		tax = tax.Add(priced.TaxAmount)
		discount = discount.Add(priced.DiscountAmount)
	}

	subtotal = money.Round(subtotal)
	tax = money.Round(tax)
	discount = money.Round(discount)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    money.Round(subtotal.Add(tax).Sub(discount)),
	}
}
