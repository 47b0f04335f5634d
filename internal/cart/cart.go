package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/money"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a user-facing message produced by a mutation that was applied partially.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

func (n Notice) IsZero() bool {
	return n.Message == ""
}

// Cart owns a line-item collection for one in-progress order. It is not safe for
// concurrent use; callers serialize mutations.
type Cart struct {
	flow  Flow
	items []LineItem
}

func New(flow Flow) *Cart {
	return &Cart{flow: flow}
}

func (c *Cart) Flow() Flow {
	return c.flow
}

// Items returns a copy of the lines in display order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	for i, item := range c.items {
		out[i] = clone(item)
	}
	return out
}

func (c *Cart) Item(index int) (LineItem, error) {
	if err := c.checkIndex(index); err != nil {
		return LineItem{}, err
	}
	return clone(c.items[index]), nil
}

// LineCount is the number of distinct lines after merging.
func (c *Cart) LineCount() int {
	return len(c.items)
}

// UnitCount is the total quantity across lines.
func (c *Cart) UnitCount() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c *Cart) Totals() Totals {
	return ComputeTotals(c.flow, c.items)
}

// AddOrMerge adds qty units (default 1) of item. A line with the same identity is
// incremented instead of duplicated. When stock is known and the resulting quantity
// would exceed it, nothing changes and a conflict error carries the message for the cashier.
func (c *Cart) AddOrMerge(item LineItem, qty int) error {
	if qty < 1 {
		qty = 1
	}
	if err := item.validate(); err != nil {
		return err
	}

	for i := range c.items {
		if !sameIdentity(c.items[i], item) {
			continue
		}
		existing := c.items[i]
		if item.StockKnown() {
			existing.CurrentQuantity = item.CurrentQuantity
		}
		next := existing.Quantity + qty
		if existing.StockKnown() && next > existing.Stock() {
			return stockError(existing, existing.Stock())
		}
		existing.Quantity = next
		c.items[i] = PriceLine(c.flow, clone(existing))
		return nil
	}

	line := clone(item)
	line.Quantity = qty
	line.ApplyDiscount = false
	if line.StockKnown() && line.Quantity > line.Stock() {
		return stockError(line, line.Stock())
	}
	c.items = append(c.items, PriceLine(c.flow, line))
	return nil
}

// SetQuantity replaces the quantity of the line at index. Values below one are ignored.
// Values above known stock are clamped and a warning notice reports the applied value.
func (c *Cart) SetQuantity(index, qty int) (Notice, error) {
	if err := c.checkIndex(index); err != nil {
		return Notice{}, err
	}
	if qty < 1 {
		return Notice{}, nil
	}

	line := c.items[index]
	var notice Notice
	if line.StockKnown() && qty > line.Stock() {
		if line.Stock() < 1 {
			return Notice{}, stockError(line, line.Stock())
		}
		qty = line.Stock()
		notice = Notice{
			Level:   NoticeWarning,
			Message: fmt.Sprintf("Only %d units of %s available; quantity set to %d", line.Stock(), displayName(line), qty),
		}
	}
	line.Quantity = qty
	c.items[index] = PriceLine(c.flow, line)
	return notice, nil
}

// ToggleDiscount flips whether the stored discount rate is applied. The rate itself
// survives toggling off so that re-enabling restores it.
func (c *Cart) ToggleDiscount(index int) (bool, error) {
	if err := c.checkIndex(index); err != nil {
		return false, err
	}
	line := c.items[index]
	line.ApplyDiscount = !line.ApplyDiscount
	c.items[index] = PriceLine(c.flow, line)
	return line.ApplyDiscount, nil
}

// SetDiscountPercent stores a new rate for the line without changing the toggle.
func (c *Cart) SetDiscountPercent(index int, rate decimal.Decimal) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	if !money.ValidRate(rate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
	}
	line := c.items[index]
	line.DiscountPercent = rate
	c.items[index] = PriceLine(c.flow, line)
	return nil
}

// Remove deletes the line permanently.
func (c *Cart) Remove(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.items = nil
}

// Restore replaces the collection with previously captured lines, re-deriving prices
// and clamping quantities to known stock. Invalid lines are dropped.
func (c *Cart) Restore(items []LineItem) int {
	c.items = c.items[:0]
	dropped := 0
	for _, item := range items {
		if item.validate() != nil || item.Quantity < 1 {
			dropped++
			continue
		}
		line := clone(item)
		if line.StockKnown() && line.Quantity > line.Stock() {
			if line.Stock() < 1 {
				dropped++
				continue
			}
			line.Quantity = line.Stock()
		}
		c.items = append(c.items, PriceLine(c.flow, line))
	}
	return dropped
}

func (c *Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.items) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "no line item at index %d", index).WithDetails(map[string]any{"index": index, "lines": len(c.items)})
	}
	return nil
}

func stockError(line LineItem, stock int) error {
	if stock < 1 {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "%s is out of stock", displayName(line)).WithDetails(map[string]any{
			"barcode":         line.Barcode,
			"currentQuantity": stock,
		})
	}
	return pkgerrors.Newf(pkgerrors.CodeConflict, "Only %d units of %s available", stock, displayName(line)).WithDetails(map[string]any{
		"barcode":         line.Barcode,
		"currentQuantity": stock,
		"inCart":          line.Quantity,
	})
}

func displayName(line LineItem) string {
	if line.Name != "" {
		return line.Name
	}
	if line.Barcode != "" {
		return line.Barcode
	}
	return "item"
}
