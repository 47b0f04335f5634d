package terminal

import (
	"context"

	"github.com/angelmondragon/posterminal/internal/cart"
	"github.com/angelmondragon/posterminal/internal/purchaseorder"
	"github.com/angelmondragon/posterminal/pkg/backend"
)

type DraftView struct {
	Dealer    *backend.Dealer       `json:"dealer,omitempty"`
	Details   purchaseorder.Details `json:"details"`
	Items     []cart.LineItem       `json:"items"`
	Totals    cart.Totals           `json:"totals"`
	LineCount int                   `json:"lineCount"`
	UnitCount int                   `json:"unitCount"`
	Notice    *cart.Notice          `json:"notice,omitempty"`
}

func (t *Terminal) Draft() DraftView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draftViewLocked(cart.Notice{})
}

func (t *Terminal) draftViewLocked(n cart.Notice) DraftView {
	d := t.draft
	v := DraftView{
		Dealer:    d.Dealer,
		Details:   d.Details,
		Items:     d.Cart.Items(),
		Totals:    d.Cart.Totals(),
		LineCount: d.Cart.LineCount(),
		UnitCount: d.Cart.UnitCount(),
	}
	if !n.IsZero() {
		v.Notice = &n
	}
	return v
}

func (t *Terminal) SelectDealer(ctx context.Context, dealer backend.Dealer) (DraftView, error) {
	return t.mutateDraft(ctx, func(d *purchaseorder.Draft) (cart.Notice, error) {
		return cart.Notice{}, t.purchase.SelectDealer(d, dealer)
	})
}

func (t *Terminal) ClearDealer(ctx context.Context) (DraftView, error) {
	return t.mutateDraft(ctx, func(d *purchaseorder.Draft) (cart.Notice, error) {
		t.purchase.ClearDealer(d)
		return cart.Notice{}, nil
	})
}

func (t *Terminal) SetDraftDetails(ctx context.Context, details purchaseorder.Details) (DraftView, error) {
	return t.mutateDraft(ctx, func(d *purchaseorder.Draft) (cart.Notice, error) {
		return cart.Notice{}, t.purchase.SetDetails(d, details)
	})
}

func (t *Terminal) AddDraftExisting(ctx context.Context, item backend.ItemSuggestion, qty int) (DraftView, error) {
	return t.mutateDraft(ctx, func(d *purchaseorder.Draft) (cart.Notice, error) {
		return cart.Notice{}, t.purchase.AddExisting(d, item, qty)
	})
}

func (t *Terminal) AddDraftNew(ctx context.Context, item purchaseorder.NewItem) (DraftView, error) {
	return t.mutateDraft(ctx, func(d *purchaseorder.Draft) (cart.Notice, error) {
		return cart.Notice{}, t.purchase.AddNew(d, item)
	})
}

func (t *Terminal) SetDraftQuantity(ctx context.Context, index, qty int) (DraftView, error) {
	return t.mutateDraft(ctx, func(d *purchaseorder.Draft) (cart.Notice, error) {
		return d.Cart.SetQuantity(index, qty)
	})
}

func (t *Terminal) ChangeDraftDiscount(ctx context.Context, index int, change DiscountChange) (DraftView, error) {
	return t.mutateDraft(ctx, func(d *purchaseorder.Draft) (cart.Notice, error) {
		return cart.Notice{}, applyDiscount(d.Cart, index, change)
	})
}

func (t *Terminal) RemoveDraftItem(ctx context.Context, index int) (DraftView, error) {
	return t.mutateDraft(ctx, func(d *purchaseorder.Draft) (cart.Notice, error) {
		return cart.Notice{}, d.Cart.Remove(index)
	})
}

// SubmitDraft sends the purchase order. The draft resets only when the backend accepts it.
func (t *Terminal) SubmitDraft(ctx context.Context) (*backend.PurchaseOrder, error) {
	ctx = t.ctx(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	po, err := t.purchase.Submit(ctx, t.draft)
	if err != nil {
		return nil, err
	}
	t.saveDraftLocked(ctx)
	return po, nil
}

func (t *Terminal) mutateDraft(ctx context.Context, fn func(*purchaseorder.Draft) (cart.Notice, error)) (DraftView, error) {
	ctx = t.ctx(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	notice, err := fn(t.draft)
	if err != nil {
		return DraftView{}, err
	}
	t.saveDraftLocked(ctx)
	return t.draftViewLocked(notice), nil
}
