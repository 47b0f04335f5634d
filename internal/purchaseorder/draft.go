// Package purchaseorder composes purchase orders against a dealer: existing
// catalogue items by id, new items by full descriptor, priced at cost.
package purchaseorder

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posterminal/internal/cart"
	"github.com/angelmondragon/posterminal/pkg/backend"
)

const dateLayout = "2006-01-02"

// Details is the order header entered by the clerk.
type Details struct {
	PONumber      string `json:"poNumber" validate:"max=64"`
	InvoiceNumber string `json:"invoiceNumber" validate:"max=64"`
	OrderDate     string `json:"orderDate" validate:"omitempty,datetime=2006-01-02"`
	Notes         string `json:"notes" validate:"max=1000"`
}

// Draft is the purchase order being composed. It is owned by the caller.
type Draft struct {
	Dealer  *backend.Dealer `json:"dealer,omitempty"`
	Details Details         `json:"details"`
	Cart    *cart.Cart      `json:"-"`
}

func NewDraft(now time.Time) *Draft {
	return &Draft{
		Details: Details{OrderDate: now.Format(dateLayout)},
		Cart:    cart.New(cart.FlowPurchaseOrder),
	}
}

// NewItem describes a product the backend does not know yet.
type NewItem struct {
	Name            string          `json:"name" validate:"required,max=200"`
	Barcode         string          `json:"barcode" validate:"required,max=64"`
	Category        string          `json:"category" validate:"max=100"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	SalePrice       decimal.Decimal `json:"salePrice"`
	GSTPercentage   decimal.Decimal `json:"gstPercentage"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Quantity        int             `json:"quantity" validate:"min=0"`
}

func (n NewItem) line() cart.LineItem {
	return cart.LineItem{
		Barcode:         strings.TrimSpace(n.Barcode),
		Name:            strings.TrimSpace(n.Name),
		Category:        strings.TrimSpace(n.Category),
		UnitPrice:       n.UnitPrice,
		SalePrice:       n.SalePrice,
		GSTPercentage:   n.GSTPercentage,
		DiscountPercent: n.DiscountPercent,
	}
}

// LineFromSuggestion maps a catalogue hit to a purchase-order line. Stock is not
// tracked when buying in.
func LineFromSuggestion(s backend.ItemSuggestion) cart.LineItem {
	return cart.LineItem{
		ItemID:          s.ID,
		Barcode:         s.Barcode,
		Name:            s.Name,
		Category:        s.Category,
		UnitPrice:       s.UnitPrice,
		SalePrice:       s.SalePrice,
		GSTPercentage:   s.GSTPercentage,
		DiscountPercent: s.DiscountPercent,
	}
}
