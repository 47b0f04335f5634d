// Package terminal owns the state of one POS counter: the sale being rung up,
// the purchase order being composed, recent receipts and the barcode scanner.
// Every mutation goes through Terminal so state is snapshotted consistently.
package terminal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/posterminal/internal/checkout"
	"github.com/angelmondragon/posterminal/internal/purchaseorder"
	"github.com/angelmondragon/posterminal/internal/receipt"
	"github.com/angelmondragon/posterminal/internal/scanner"
	"github.com/angelmondragon/posterminal/internal/search"
	"github.com/angelmondragon/posterminal/pkg/backend"
	"github.com/angelmondragon/posterminal/pkg/logger"
	"github.com/angelmondragon/posterminal/pkg/printer"
	pkgredis "github.com/angelmondragon/posterminal/pkg/redis"
)

const maxReceipts = 50

// Backend is every remote call the counter makes.
type Backend interface {
	checkout.Backend
	purchaseorder.Backend
	LookupBarcode(ctx context.Context, barcode string) (*backend.InventoryItem, error)
	SearchItems(ctx context.Context, query string) ([]backend.ItemSuggestion, error)
	SearchDealers(ctx context.Context, query string) ([]backend.Dealer, error)
	SearchInventory(ctx context.Context, query string) ([]backend.InventoryItem, error)
	SearchCustomers(ctx context.Context, query string) ([]backend.Customer, error)
}

// Scanner is the capture session driven by the counter. *scanner.Session satisfies it.
type Scanner interface {
	Events() <-chan scanner.Event
	State() scanner.State
	Initialize(ctx context.Context) error
	RetryPermission(ctx context.Context) error
	SwitchCamera(ctx context.Context) error
	ToggleTorch(ctx context.Context) (bool, error)
	Reset(ctx context.Context) error
	Rescan(ctx context.Context) error
	Close() error
}

type Options struct {
	Counter  string
	Debounce time.Duration
	Header   receipt.Header
	// PrintWidth is the thermal paper width in characters.
	PrintWidth int
	// Store persists in-progress state between restarts. Optional.
	Store pkgredis.SessionStore
	// Scanner is optional; counters without a reader use search only.
	Scanner Scanner
	Printer printer.Printer
	Logger  *logger.Logger
	Now     func() time.Time
}

type Terminal struct {
	counter  string
	backend  Backend
	checkout *checkout.Service
	purchase *purchaseorder.Service
	store    pkgredis.SessionStore
	scanner  Scanner
	printer  printer.Printer
	header   receipt.Header
	width    int
	logger   *logger.Logger
	now      func() time.Time

	items     *search.Searcher[backend.ItemSuggestion]
	dealers   *search.Searcher[backend.Dealer]
	inventory *search.Searcher[backend.InventoryItem]
	customers *search.Searcher[backend.Customer]

	mu           sync.Mutex
	order        *checkout.Order
	draft        *purchaseorder.Draft
	receipts     map[string]backend.Receipt
	receiptOrder []string
	lastScan     *ScanOutcome
}

func New(b Backend, opts Options) (*Terminal, error) {
	if b == nil {
		return nil, errors.New("terminal backend required")
	}
	counter := strings.TrimSpace(opts.Counter)
	if counter == "" {
		return nil, errors.New("counter number required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Printer == nil {
		opts.Printer = printer.Null{}
	}

	co, err := checkout.NewService(b, counter, opts.Logger)
	if err != nil {
		return nil, err
	}
	po, err := purchaseorder.NewService(b, opts.Logger)
	if err != nil {
		return nil, err
	}

	t := &Terminal{
		counter:   counter,
		backend:   b,
		checkout:  co,
		purchase:  po,
		store:     opts.Store,
		scanner:   opts.Scanner,
		printer:   opts.Printer,
		header:    opts.Header,
		width:     opts.PrintWidth,
		logger:    opts.Logger,
		now:       opts.Now,
		items:     search.NewSearcher[backend.ItemSuggestion](search.KindItems, opts.Debounce, b.SearchItems, opts.Logger),
		dealers:   search.NewSearcher[backend.Dealer](search.KindDealers, opts.Debounce, b.SearchDealers, opts.Logger),
		inventory: search.NewSearcher[backend.InventoryItem](search.KindInventory, opts.Debounce, b.SearchInventory, opts.Logger),
		customers: search.NewSearcher[backend.Customer](search.KindCustomers, opts.Debounce, b.SearchCustomers, opts.Logger),
		order:     checkout.NewOrder(),
		draft:     purchaseorder.NewDraft(opts.Now()),
		receipts:  make(map[string]backend.Receipt),
	}
	return t, nil
}

func (t *Terminal) Counter() string {
	return t.counter
}

func (t *Terminal) ctx(ctx context.Context) context.Context {
	return t.logger.WithCounter(ctx, t.counter)
}

// Close cancels pending searches and releases the scanner.
func (t *Terminal) Close() error {
	t.items.Cancel()
	t.dealers.Cancel()
	t.inventory.Cancel()
	t.customers.Cancel()
	if t.scanner == nil {
		return nil
	}
	return t.scanner.Close()
}

func (t *Terminal) rememberReceipt(r backend.Receipt) {
	if _, ok := t.receipts[r.SaleID]; !ok {
		t.receiptOrder = append(t.receiptOrder, r.SaleID)
	}
	t.receipts[r.SaleID] = r
	for len(t.receiptOrder) > maxReceipts {
		delete(t.receipts, t.receiptOrder[0])
		t.receiptOrder = t.receiptOrder[1:]
	}
}
