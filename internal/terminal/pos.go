package terminal

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posterminal/internal/cart"
	"github.com/angelmondragon/posterminal/internal/checkout"
	"github.com/angelmondragon/posterminal/pkg/backend"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
)

// CartView is what the counter display renders.
type CartView struct {
	Items     []cart.LineItem   `json:"items"`
	Totals    cart.Totals       `json:"totals"`
	LineCount int               `json:"lineCount"`
	UnitCount int               `json:"unitCount"`
	Customer  *backend.Customer `json:"customer,omitempty"`
	Sale      *backend.Sale     `json:"sale,omitempty"`
	AmountDue decimal.Decimal   `json:"amountDue"`
	Notice    *cart.Notice      `json:"notice,omitempty"`
}

// DiscountChange selects how a line discount changes. With neither field set the
// discount is toggled.
type DiscountChange struct {
	Percent *decimal.Decimal
	Apply   *bool
}

func (t *Terminal) Cart() CartView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cartViewLocked(cart.Notice{})
}

func (t *Terminal) cartViewLocked(n cart.Notice) CartView {
	o := t.order
	v := CartView{
		Items:     o.Cart.Items(),
		Totals:    o.Cart.Totals(),
		LineCount: o.Cart.LineCount(),
		UnitCount: o.Cart.UnitCount(),
		Customer:  o.Customer,
		Sale:      o.Sale,
		AmountDue: t.checkout.AmountDue(o),
	}
	if !n.IsZero() {
		v.Notice = &n
	}
	return v
}

// AddByBarcode looks the code up in inventory and adds qty units to the cart.
func (t *Terminal) AddByBarcode(ctx context.Context, barcode string, qty int) (CartView, error) {
	ctx = t.ctx(ctx)
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return CartView{}, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	if err := t.editable(); err != nil {
		return CartView{}, err
	}

	item, err := t.backend.LookupBarcode(ctx, barcode)
	if err != nil {
		return CartView{}, err
	}
	return t.AddInventory(ctx, *item, qty)
}

// AddInventory adds an item picked from an inventory search.
func (t *Terminal) AddInventory(ctx context.Context, item backend.InventoryItem, qty int) (CartView, error) {
	ctx = t.ctx(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkout.AddInventoryItem(t.order, item, qty); err != nil {
		return CartView{}, err
	}
	t.saveOrderLocked(ctx)
	return t.cartViewLocked(cart.Notice{}), nil
}

func (t *Terminal) SetQuantity(ctx context.Context, index, qty int) (CartView, error) {
	return t.mutateOrder(ctx, func(o *checkout.Order) (cart.Notice, error) {
		return o.Cart.SetQuantity(index, qty)
	})
}

func (t *Terminal) ChangeDiscount(ctx context.Context, index int, change DiscountChange) (CartView, error) {
	return t.mutateOrder(ctx, func(o *checkout.Order) (cart.Notice, error) {
		return cart.Notice{}, applyDiscount(o.Cart, index, change)
	})
}

func (t *Terminal) RemoveItem(ctx context.Context, index int) (CartView, error) {
	return t.mutateOrder(ctx, func(o *checkout.Order) (cart.Notice, error) {
		return cart.Notice{}, o.Cart.Remove(index)
	})
}

// ClearCart empties the cart and forgets the customer. A pending sale must be cancelled first.
func (t *Terminal) ClearCart(ctx context.Context) (CartView, error) {
	return t.mutateOrder(ctx, func(o *checkout.Order) (cart.Notice, error) {
		o.Cart.Clear()
		t.checkout.ClearCustomer(o)
		return cart.Notice{}, nil
	})
}

func (t *Terminal) SelectCustomer(ctx context.Context, c backend.Customer) (CartView, error) {
	return t.mutateOrder(ctx, func(o *checkout.Order) (cart.Notice, error) {
		return cart.Notice{}, t.checkout.SelectCustomer(o, c)
	})
}

func (t *Terminal) ClearCustomer(ctx context.Context) (CartView, error) {
	return t.mutateOrder(ctx, func(o *checkout.Order) (cart.Notice, error) {
		t.checkout.ClearCustomer(o)
		return cart.Notice{}, nil
	})
}

// mutateOrder applies fn to an editable order and snapshots the result.
func (t *Terminal) mutateOrder(ctx context.Context, fn func(*checkout.Order) (cart.Notice, error)) (CartView, error) {
	ctx = t.ctx(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.order.Editable(); err != nil {
		return CartView{}, err
	}
	notice, err := fn(t.order)
	if err != nil {
		return CartView{}, err
	}
	t.saveOrderLocked(ctx)
	return t.cartViewLocked(notice), nil
}

func (t *Terminal) editable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Editable()
}

func applyDiscount(c *cart.Cart, index int, change DiscountChange) error {
	if change.Percent != nil {
		if err := c.SetDiscountPercent(index, *change.Percent); err != nil {
			return err
		}
	}
	line, err := c.Item(index)
	if err != nil {
		return err
	}
	switch {
	case change.Apply != nil && *change.Apply == line.ApplyDiscount:
		return nil
	case change.Apply == nil && change.Percent != nil:
		return nil
	}
	_, err = c.ToggleDiscount(index)
	return err
}

// CreateOrder opens the pending sale for the current cart.
func (t *Terminal) CreateOrder(ctx context.Context) (CartView, error) {
	ctx = t.ctx(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.checkout.CreateOrder(ctx, t.order); err != nil {
		return CartView{}, err
	}
	t.saveOrderLocked(ctx)
	return t.cartViewLocked(cart.Notice{}), nil
}

// CancelSale abandons the pending sale saleID and unlocks the cart. A different
// or missing pending sale is NOT_FOUND so a stale screen cannot cancel a newer sale.
func (t *Terminal) CancelSale(ctx context.Context, saleID string) (CartView, error) {
	ctx = t.logger.WithSaleID(t.ctx(ctx), saleID)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.order.Sale == nil || t.order.Sale.ID != strings.TrimSpace(saleID) {
		return CartView{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "no pending sale %s at this counter", saleID)
	}
	t.checkout.CancelSale(t.order)
	t.saveOrderLocked(ctx)
	return t.cartViewLocked(cart.Notice{}), nil
}

// CompleteTransaction settles the pending sale identified by saleID. The
// idempotency key is optional; without one the sale's own key is used.
func (t *Terminal) CompleteTransaction(ctx context.Context, saleID string, p checkout.Payment, idempotencyKey string) (*backend.Receipt, error) {
	ctx = t.logger.WithSaleID(t.ctx(ctx), saleID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.order.Sale == nil || t.order.Sale.ID != strings.TrimSpace(saleID) {
		if r, ok := t.receipts[saleID]; ok {
			return &r, nil
		}
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "no pending sale %s at this counter", saleID)
	}

	r, err := t.checkout.CompleteTransaction(ctx, t.order, p, idempotencyKey)
	if err != nil {
		return nil, err
	}
	t.rememberReceipt(*r)
	t.saveOrderLocked(ctx)
	return r, nil
}

func (t *Terminal) Receipt(saleID string) (backend.Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.receipts[saleID]
	if !ok {
		return backend.Receipt{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "receipt %s not found", saleID)
	}
	return r, nil
}
