package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/posterminal/internal/checkout"
	"github.com/angelmondragon/posterminal/internal/purchaseorder"
	"github.com/angelmondragon/posterminal/internal/scanner"
	"github.com/angelmondragon/posterminal/internal/search"
	"github.com/angelmondragon/posterminal/pkg/backend"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	pkgredis "github.com/angelmondragon/posterminal/pkg/redis"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type stubBackend struct {
	mu        sync.Mutex
	inventory map[string]backend.InventoryItem
	items     []backend.ItemSuggestion
	orderReq  *backend.CreateOrderRequest
	poReq     *backend.PurchaseOrderRequest
	payKeys   []string
	payErr    error
}

func newStubBackend() *stubBackend {
	stock := 10
	return &stubBackend{
		inventory: map[string]backend.InventoryItem{
			"890": {ID: "inv-1", Name: "Soap", Barcode: "890", SalePrice: d("100"), GSTPercentage: d("5"), CurrentQuantity: &stock},
		},
		items: []backend.ItemSuggestion{{ID: "item-1", Name: "Rice", Barcode: "111", UnitPrice: d("50"), SalePrice: d("60")}},
	}
}

func (s *stubBackend) LookupBarcode(_ context.Context, barcode string) (*backend.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.inventory[barcode]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return &item, nil
}

func (s *stubBackend) SearchItems(context.Context, string) ([]backend.ItemSuggestion, error) {
	return s.items, nil
}

func (s *stubBackend) SearchDealers(context.Context, string) ([]backend.Dealer, error) {
	return nil, nil
}

func (s *stubBackend) SearchInventory(context.Context, string) ([]backend.InventoryItem, error) {
	return nil, nil
}

func (s *stubBackend) SearchCustomers(context.Context, string) ([]backend.Customer, error) {
	return nil, errors.New("customers offline")
}

func (s *stubBackend) CreateOrder(_ context.Context, req backend.CreateOrderRequest) (*backend.Sale, error) {
	s.orderReq = &req
	return &backend.Sale{ID: "sale-1"}, nil
}

func (s *stubBackend) CompleteTransaction(_ context.Context, saleID, key string, req backend.CompleteTransactionRequest) (*backend.Receipt, error) {
	s.payKeys = append(s.payKeys, key)
	if s.payErr != nil {
		return nil, s.payErr
	}
	return &backend.Receipt{SaleID: saleID, InvoiceNumber: "INV-1", Status: "completed"}, nil
}

func (s *stubBackend) CreatePurchaseOrder(_ context.Context, req backend.PurchaseOrderRequest) (*backend.PurchaseOrder, error) {
	s.poReq = &req
	return &backend.PurchaseOrder{ID: "po-1"}, nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) SaveSnapshot(_ context.Context, counter, kind string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[counter+"/"+kind] = append([]byte(nil), payload...)
	return nil
}

func (m *memoryStore) LoadSnapshot(_ context.Context, counter, kind string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.data[counter+"/"+kind]
	if !ok {
		return nil, pkgredis.ErrNoSnapshot
	}
	return payload, nil
}

func (m *memoryStore) DeleteSnapshot(_ context.Context, counter, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, counter+"/"+kind)
	return nil
}

func (m *memoryStore) has(kind string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data["4/"+kind]
	return ok
}

type fakeScanner struct {
	mu      sync.Mutex
	events  chan scanner.Event
	resets  int
	rescans int
	closed  bool
}

func newFakeScanner() *fakeScanner {
	return &fakeScanner{events: make(chan scanner.Event, 4)}
}

func (f *fakeScanner) Events() <-chan scanner.Event { return f.events }

func (f *fakeScanner) State() scanner.State {
	return scanner.State{Status: scanner.StatusReady, Scanning: true}
}

func (f *fakeScanner) Initialize(context.Context) error      { return nil }
func (f *fakeScanner) RetryPermission(context.Context) error { return nil }
func (f *fakeScanner) SwitchCamera(context.Context) error    { return nil }

func (f *fakeScanner) ToggleTorch(context.Context) (bool, error) {
	return false, pkgerrors.New(pkgerrors.CodeUnsupported, "torch not supported")
}

func (f *fakeScanner) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeScanner) Rescan(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescans++
	return nil
}

func (f *fakeScanner) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeScanner) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

type recordingPrinter struct {
	data []byte
	err  error
}

func (p *recordingPrinter) Print(_ context.Context, data []byte) error {
	p.data = data
	return p.err
}

func (p *recordingPrinter) Ready() bool { return p.err == nil }

var fixedNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newTerminal(t *testing.T, b *stubBackend, opts Options) *Terminal {
	t.Helper()
	opts.Counter = "4"
	opts.Now = func() time.Time { return fixedNow }
	term, err := New(b, opts)
	require.NoError(t, err)
	return term
}

func TestNewRequiresCounter(t *testing.T) {
	if _, err := New(newStubBackend(), Options{}); err == nil {
		t.Fatalf("expected error without counter number")
	}
	if _, err := New(nil, Options{Counter: "1"}); err == nil {
		t.Fatalf("expected error without backend")
	}
}

func TestAddByBarcodeSnapshotsCart(t *testing.T) {
	store := newMemoryStore()
	term := newTerminal(t, newStubBackend(), Options{Store: store})
	ctx := context.Background()

	view, err := term.AddByBarcode(ctx, "890", 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "210.00", view.Totals.Total.StringFixed(2))
	assert.Equal(t, 2, view.UnitCount)
	assert.True(t, store.has(snapshotOrder))

	_, err = term.AddByBarcode(ctx, "999", 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = term.AddByBarcode(ctx, " ", 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	view, err = term.RemoveItem(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.False(t, store.has(snapshotOrder), "empty order should drop its snapshot")
}

func TestSetQuantityReturnsNotice(t *testing.T) {
	term := newTerminal(t, newStubBackend(), Options{})
	ctx := context.Background()
	_, err := term.AddByBarcode(ctx, "890", 1)
	require.NoError(t, err)

	view, err := term.SetQuantity(ctx, 0, 50)
	require.NoError(t, err)
	require.NotNil(t, view.Notice)
	assert.Equal(t, 10, view.Items[0].Quantity)
}

func TestCartFrozenWhileSaleOpen(t *testing.T) {
	b := newStubBackend()
	term := newTerminal(t, b, Options{})
	ctx := context.Background()

	_, err := term.AddByBarcode(ctx, "890", 1)
	require.NoError(t, err)
	view, err := term.CreateOrder(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Sale)
	assert.Equal(t, "105.00", view.AmountDue.StringFixed(2))
	assert.Equal(t, "4", b.orderReq.CounterNumber)

	_, err = term.AddByBarcode(ctx, "890", 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = term.SetQuantity(ctx, 0, 3)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = term.CancelSale(ctx, "sale-other")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.NotNil(t, term.Cart().Sale, "a different sale id must not cancel the pending sale")

	view, err = term.CancelSale(ctx, view.Sale.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Sale)
	_, err = term.SetQuantity(ctx, 0, 3)
	assert.NoError(t, err)
}

func TestCompleteTransactionStoresReceipt(t *testing.T) {
	b := newStubBackend()
	store := newMemoryStore()
	term := newTerminal(t, b, Options{Store: store})
	ctx := context.Background()

	_, err := term.AddByBarcode(ctx, "890", 2)
	require.NoError(t, err)
	_, err = term.CreateOrder(ctx)
	require.NoError(t, err)

	cash := checkout.Payment{Method: checkout.MethodCash, AmountReceived: d("250")}

	_, err = term.CompleteTransaction(ctx, "other", cash, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	r, err := term.CompleteTransaction(ctx, "sale-1", cash, "")
	require.NoError(t, err)
	require.NotNil(t, r.Change)
	assert.Equal(t, "40.00", r.Change.StringFixed(2))
	assert.Empty(t, term.Cart().Items)
	assert.False(t, store.has(snapshotOrder))

	again, err := term.CompleteTransaction(ctx, "sale-1", cash, "")
	require.NoError(t, err)
	assert.Equal(t, "INV-1", again.InvoiceNumber)
	assert.Len(t, b.payKeys, 1, "retry after settlement must not reach the backend")

	page, err := term.ReceiptHTML("sale-1")
	require.NoError(t, err)
	assert.Contains(t, string(page), "INV-1")

	_, err = term.ReceiptHTML("missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCompleteTransactionFailureKeepsSale(t *testing.T) {
	b := newStubBackend()
	b.payErr = pkgerrors.New(pkgerrors.CodeDependency, "gateway timeout")
	term := newTerminal(t, b, Options{})
	ctx := context.Background()

	_, err := term.AddByBarcode(ctx, "890", 1)
	require.NoError(t, err)
	_, err = term.CreateOrder(ctx)
	require.NoError(t, err)

	upi := checkout.Payment{Method: checkout.MethodUPI, TransactionID: "UPI-9"}
	_, err = term.CompleteTransaction(ctx, "sale-1", upi, "")
	require.Error(t, err)
	_, err = term.CompleteTransaction(ctx, "sale-1", upi, "")
	require.Error(t, err)

	view := term.Cart()
	assert.NotNil(t, view.Sale)
	assert.Len(t, view.Items, 1)
	require.Len(t, b.payKeys, 2)
	assert.Equal(t, b.payKeys[0], b.payKeys[1], "retries reuse the sale's payment key")
}

func TestRestoreFromSnapshots(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	first := newTerminal(t, newStubBackend(), Options{Store: store})
	_, err := first.AddByBarcode(ctx, "890", 3)
	require.NoError(t, err)
	_, err = first.SelectCustomer(ctx, backend.Customer{ID: "c-1", Name: "Asha"})
	require.NoError(t, err)
	_, err = first.SelectDealer(ctx, backend.Dealer{ID: "dealer-1", Name: "Wholesale"})
	require.NoError(t, err)

	second := newTerminal(t, newStubBackend(), Options{Store: store})
	require.NoError(t, second.Restore(ctx))

	view := second.Cart()
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	require.NotNil(t, view.Customer)
	assert.Equal(t, "Asha", view.Customer.Name)

	draft := second.Draft()
	require.NotNil(t, draft.Dealer)
	assert.Equal(t, "dealer-1", draft.Dealer.ID)
}

func TestRestoreSkipsUnreadableSnapshot(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.SaveSnapshot(context.Background(), "4", snapshotOrder, []byte("{not json")))

	term := newTerminal(t, newStubBackend(), Options{Store: store})
	require.NoError(t, term.Restore(context.Background()))
	assert.Empty(t, term.Cart().Items)
}

func TestDraftLifecycle(t *testing.T) {
	b := newStubBackend()
	store := newMemoryStore()
	term := newTerminal(t, b, Options{Store: store})
	ctx := context.Background()

	assert.Equal(t, "2026-10-18", term.Draft().Details.OrderDate)

	_, err := term.SubmitDraft(ctx)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = term.SelectDealer(ctx, backend.Dealer{ID: "dealer-1"})
	require.NoError(t, err)
	_, err = term.AddDraftExisting(ctx, b.items[0], 2)
	require.NoError(t, err)
	view, err := term.AddDraftNew(ctx, purchaseorder.NewItem{
		Name: "Oil", Barcode: "222", UnitPrice: d("100"), SalePrice: d("120"), GSTPercentage: d("5"), Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, view.LineCount)
	assert.True(t, store.has(snapshotDraft))

	view, err = term.ChangeDraftDiscount(ctx, 1, DiscountChange{Percent: decPtr("10")})
	require.NoError(t, err)
	assert.False(t, view.Items[1].ApplyDiscount, "setting a percent alone does not apply it")

	po, err := term.SubmitDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, "po-1", po.ID)
	require.NotNil(t, b.poReq)
	assert.Len(t, b.poReq.Items, 2)
	assert.Empty(t, term.Draft().Items)
	assert.False(t, store.has(snapshotDraft))
}

func decPtr(v string) *decimal.Decimal {
	out := d(v)
	return &out
}

func boolPtr(v bool) *bool {
	return &v
}

func TestChangeDiscount(t *testing.T) {
	term := newTerminal(t, newStubBackend(), Options{})
	ctx := context.Background()
	_, err := term.AddByBarcode(ctx, "890", 1)
	require.NoError(t, err)

	view, err := term.ChangeDiscount(ctx, 0, DiscountChange{})
	require.NoError(t, err)
	assert.True(t, view.Items[0].ApplyDiscount)

	view, err = term.ChangeDiscount(ctx, 0, DiscountChange{Apply: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, view.Items[0].ApplyDiscount, "apply=true on an applied discount is a no-op")

	view, err = term.ChangeDiscount(ctx, 0, DiscountChange{Percent: decPtr("10"), Apply: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "10.50", view.Items[0].DiscountAmount.StringFixed(2))

	view, err = term.ChangeDiscount(ctx, 0, DiscountChange{Apply: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, view.Items[0].ApplyDiscount)

	_, err = term.ChangeDiscount(ctx, 0, DiscountChange{Percent: decPtr("120")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRunAddsScannedCodes(t *testing.T) {
	sc := newFakeScanner()
	term := newTerminal(t, newStubBackend(), Options{Scanner: sc})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- term.Run(ctx) }()

	sc.events <- scanner.Event{Code: "890", DeviceID: "/dev/ttyACM0", At: fixedNow}
	require.Eventually(t, func() bool { return sc.resetCount() == 1 }, time.Second, 5*time.Millisecond)

	view := term.Scanner()
	require.NotNil(t, view.LastScan)
	assert.True(t, view.LastScan.Added)
	assert.Equal(t, "Soap", view.LastScan.Item)
	assert.Len(t, term.Cart().Items, 1)

	sc.events <- scanner.Event{Code: "000", DeviceID: "/dev/ttyACM0", At: fixedNow}
	require.Eventually(t, func() bool { return sc.resetCount() == 2 }, time.Second, 5*time.Millisecond)
	last := term.Scanner().LastScan
	assert.False(t, last.Added)
	assert.Equal(t, "item not found", last.Error)

	require.NoError(t, term.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after scanner close")
	}
}

func TestScannerOpsWithoutScanner(t *testing.T) {
	term := newTerminal(t, newStubBackend(), Options{})

	view := term.Scanner()
	assert.Equal(t, scanner.StatusUnavailable, view.State.Status)

	_, err := term.StartScanner(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDeviceUnavailable))
}

func TestToggleTorchPropagatesUnsupported(t *testing.T) {
	term := newTerminal(t, newStubBackend(), Options{Scanner: newFakeScanner()})
	_, err := term.ToggleTorch(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnsupported))
}

func TestResetScannerForgetsLastCode(t *testing.T) {
	sc := newFakeScanner()
	term := newTerminal(t, newStubBackend(), Options{Scanner: sc})

	_, err := term.ResetScanner(context.Background())
	require.NoError(t, err)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	assert.Equal(t, 1, sc.rescans)
	assert.Equal(t, 0, sc.resets, "re-arming after a scan keeps the last code")
}

func TestSearchDispatch(t *testing.T) {
	term := newTerminal(t, newStubBackend(), Options{})
	ctx := context.Background()

	res, err := term.Search(ctx, search.KindItems, "ri")
	require.NoError(t, err)
	assert.False(t, res.Stale)
	items, ok := res.Items.([]backend.ItemSuggestion)
	require.True(t, ok)
	assert.Len(t, items, 1)

	res, err = term.Search(ctx, search.KindDealers, "acme")
	require.NoError(t, err)
	payload, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"items":[]`)

	_, err = term.Search(ctx, search.KindCustomers, "asha")
	assert.Error(t, err)

	_, err = term.Search(ctx, search.Kind("orders"), "x")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPrintReceipt(t *testing.T) {
	p := &recordingPrinter{}
	term := newTerminal(t, newStubBackend(), Options{Printer: p, PrintWidth: 32})
	ctx := context.Background()

	assert.True(t, pkgerrors.IsCode(term.PrintReceipt(ctx, "sale-1"), pkgerrors.CodeNotFound))

	_, err := term.AddByBarcode(ctx, "890", 1)
	require.NoError(t, err)
	_, err = term.CreateOrder(ctx)
	require.NoError(t, err)
	_, err = term.CompleteTransaction(ctx, "sale-1", checkout.Payment{Method: checkout.MethodCash, AmountReceived: d("105")}, "")
	require.NoError(t, err)

	require.NoError(t, term.PrintReceipt(ctx, "sale-1"))
	assert.Contains(t, string(p.data), "INV-1")

	p.err = errors.New("connection refused")
	err = term.PrintReceipt(ctx, "sale-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDeviceUnavailable))
}
