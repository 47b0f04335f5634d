package terminal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/angelmondragon/posterminal/internal/cart"
	"github.com/angelmondragon/posterminal/internal/purchaseorder"
	"github.com/angelmondragon/posterminal/pkg/backend"
	pkgredis "github.com/angelmondragon/posterminal/pkg/redis"
)

const (
	snapshotOrder = "order"
	snapshotDraft = "purchase_order"
)

type orderSnapshot struct {
	Items      []cart.LineItem   `json:"items"`
	Customer   *backend.Customer `json:"customer,omitempty"`
	Sale       *backend.Sale     `json:"sale,omitempty"`
	PaymentKey string            `json:"paymentKey,omitempty"`
}

type draftSnapshot struct {
	Dealer  *backend.Dealer       `json:"dealer,omitempty"`
	Details purchaseorder.Details `json:"details"`
	Items   []cart.LineItem       `json:"items"`
}

// Restore reloads in-progress state saved before the last shutdown. Missing or
// unreadable snapshots leave the terminal empty.
func (t *Terminal) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	ctx = t.ctx(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()

	var so orderSnapshot
	found, err := t.load(ctx, snapshotOrder, &so)
	if err != nil {
		return err
	}
	if found {
		dropped := t.order.Cart.Restore(so.Items)
		t.order.Customer = so.Customer
		t.order.Sale = so.Sale
		t.order.PaymentKey = so.PaymentKey
		t.logger.Info(t.logger.WithFields(ctx, map[string]any{"lines": t.order.Cart.LineCount(), "dropped": dropped}), "restored counter order")
	}

	var ds draftSnapshot
	found, err = t.load(ctx, snapshotDraft, &ds)
	if err != nil {
		return err
	}
	if found {
		dropped := t.draft.Cart.Restore(ds.Items)
		t.draft.Dealer = ds.Dealer
		if ds.Details.OrderDate != "" {
			t.draft.Details = ds.Details
		}
		t.logger.Info(t.logger.WithFields(ctx, map[string]any{"lines": t.draft.Cart.LineCount(), "dropped": dropped}), "restored purchase order draft")
	}
	return nil
}

func (t *Terminal) load(ctx context.Context, kind string, out any) (bool, error) {
	payload, err := t.store.LoadSnapshot(ctx, t.counter, kind)
	if errors.Is(err, pkgredis.ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		t.logger.Warn(t.logger.WithField(ctx, "kind", kind), "discarding unreadable snapshot: "+err.Error())
		return false, nil
	}
	return true, nil
}

// saveOrderLocked persists the counter order. Snapshots are best effort; a
// failing store never blocks the sale.
func (t *Terminal) saveOrderLocked(ctx context.Context) {
	if t.store == nil {
		return
	}
	o := t.order
	if o.Cart.IsEmpty() && o.Customer == nil && o.Sale == nil {
		t.deleteSnapshot(ctx, snapshotOrder)
		return
	}
	t.save(ctx, snapshotOrder, orderSnapshot{
		Items:      o.Cart.Items(),
		Customer:   o.Customer,
		Sale:       o.Sale,
		PaymentKey: o.PaymentKey,
	})
}

func (t *Terminal) saveDraftLocked(ctx context.Context) {
	if t.store == nil {
		return
	}
	d := t.draft
	if d.Cart.IsEmpty() && d.Dealer == nil {
		t.deleteSnapshot(ctx, snapshotDraft)
		return
	}
	t.save(ctx, snapshotDraft, draftSnapshot{
		Dealer:  d.Dealer,
		Details: d.Details,
		Items:   d.Cart.Items(),
	})
}

func (t *Terminal) save(ctx context.Context, kind string, snapshot any) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		t.logger.Error(ctx, "encoding snapshot", err)
		return
	}
	if err := t.store.SaveSnapshot(ctx, t.counter, kind, payload); err != nil {
		t.logger.Warn(t.logger.WithField(ctx, "kind", kind), "saving snapshot failed: "+err.Error())
	}
}

func (t *Terminal) deleteSnapshot(ctx context.Context, kind string) {
	if err := t.store.DeleteSnapshot(ctx, t.counter, kind); err != nil {
		t.logger.Warn(t.logger.WithField(ctx, "kind", kind), "deleting snapshot failed: "+err.Error())
	}
}
