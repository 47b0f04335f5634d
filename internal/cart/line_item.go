package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/money"
)

// LineItem is one product entry in a cart or purchase order.
// TaxAmount, DiscountAmount and TotalPrice are derived and rewritten on every mutation.
type LineItem struct {
	ItemID          string          `json:"itemId,omitempty"`
	Barcode         string          `json:"barcode"`
	Name            string          `json:"name"`
	Category        string          `json:"category,omitempty"`
	Quantity        int             `json:"quantity"`
	CurrentQuantity *int            `json:"currentQuantity,omitempty"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	SalePrice       decimal.Decimal `json:"salePrice"`
	GSTPercentage   decimal.Decimal `json:"gstPercentage"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	ApplyDiscount   bool            `json:"applyDiscount"`

	TaxAmount      decimal.Decimal `json:"taxAmount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
}

// IsNew reports whether the line describes an item the backend has not stored yet.
func (l LineItem) IsNew() bool {
	return strings.TrimSpace(l.ItemID) == ""
}

// StockKnown reports whether the backend told us how many units are available.
func (l LineItem) StockKnown() bool {
	return l.CurrentQuantity != nil
}

// Stock returns the available units, or -1 when unknown.
func (l LineItem) Stock() int {
	if l.CurrentQuantity == nil {
		return -1
	}
	return *l.CurrentQuantity
}

// sameIdentity matches on item id when both sides carry one, otherwise on barcode.
func sameIdentity(a, b LineItem) bool {
	if !a.IsNew() && !b.IsNew() {
		return a.ItemID == b.ItemID
	}
	barcode := strings.TrimSpace(a.Barcode)
	return barcode != "" && barcode == strings.TrimSpace(b.Barcode)
}

func (l LineItem) validate() error {
	if l.IsNew() && strings.TrimSpace(l.Barcode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id or barcode is required")
	}
	if l.IsNew() && strings.TrimSpace(l.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "new items need a name")
	}
	if !l.UnitPrice.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be greater than zero")
	}
	if !l.SalePrice.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale price must be greater than zero")
	}
	if l.GSTPercentage.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "gst percentage cannot be negative")
	}
	if !money.ValidRate(l.DiscountPercent) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
	}
	return nil
}

func clone(l LineItem) LineItem {
	if l.CurrentQuantity != nil {
		stock := *l.CurrentQuantity
		l.CurrentQuantity = &stock
	}
	return l
}

// IntPtr is a small helper for building stock-aware line items.
func IntPtr(v int) *int {
	return &v
}
