// Package checkout turns a point-of-sale cart into a settled sale: customer
// selection, opening the pending sale and submitting payment.
package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posterminal/internal/cart"
	"github.com/angelmondragon/posterminal/pkg/backend"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/logger"
	"github.com/angelmondragon/posterminal/pkg/money"
)

// Backend is the slice of the remote API checkout needs.
type Backend interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*backend.Sale, error)
	CompleteTransaction(ctx context.Context, saleID, idempotencyKey string, req backend.CompleteTransactionRequest) (*backend.Receipt, error)
}

// Order is the in-progress sale at one counter. It is owned by the caller and
// mutated only through Service.
type Order struct {
	Cart     *cart.Cart        `json:"-"`
	Customer *backend.Customer `json:"customer,omitempty"`
	Sale     *backend.Sale     `json:"sale,omitempty"`
	// PaymentKey identifies settlement attempts for Sale so a retried submit is deduplicated.
	PaymentKey string `json:"paymentKey,omitempty"`
}

func NewOrder() *Order {
	return &Order{Cart: cart.New(cart.FlowPointOfSale)}
}

// Editable reports whether the cart may still change. Once a sale is opened the
// backend has priced it and the cart is frozen until settlement or cancel.
func (o *Order) Editable() error {
	if o.Sale != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "sale already opened; settle or cancel it before changing the cart")
	}
	return nil
}

type Service struct {
	backend Backend
	counter string
	logger  *logger.Logger
}

func NewService(b Backend, counterNumber string, logg *logger.Logger) (*Service, error) {
	if b == nil {
		return nil, errors.New("checkout backend required")
	}
	counter := strings.TrimSpace(counterNumber)
	if counter == "" {
		return nil, errors.New("counter number required")
	}
	return &Service{backend: b, counter: counter, logger: logg}, nil
}

// SelectCustomer attaches c to the order, replacing any previous choice.
func (s *Service) SelectCustomer(o *Order, c backend.Customer) error {
	if strings.TrimSpace(c.ID) == "" && strings.TrimSpace(c.Phone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id or phone is required")
	}
	o.Customer = &c
	return nil
}

func (s *Service) ClearCustomer(o *Order) {
	o.Customer = nil
}

// AddInventoryItem adds qty units of a looked-up item to the cart.
func (s *Service) AddInventoryItem(o *Order, item backend.InventoryItem, qty int) error {
	if err := o.Editable(); err != nil {
		return err
	}
	return o.Cart.AddOrMerge(LineFromInventory(item), qty)
}

// CreateOrder opens a pending sale for the cart contents.
func (s *Service) CreateOrder(ctx context.Context, o *Order) (*backend.Sale, error) {
	if o.Cart.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if o.Sale != nil {
		return o.Sale, nil
	}

	items := o.Cart.Items()
	req := backend.CreateOrderRequest{
		CounterNumber: s.counter,
		Items:         make([]backend.OrderItem, 0, len(items)),
	}
	for _, item := range items {
		req.Items = append(req.Items, backend.OrderItem{Barcode: item.Barcode, Quantity: item.Quantity})
	}
	if c := o.Customer; c != nil {
		req.CustomerDetails = &backend.CustomerDetails{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email}
	}

	sale, err := s.backend.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sale.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend returned a sale without an id")
	}
	if sale.Total.IsZero() {
		totals := o.Cart.Totals()
		sale.Subtotal, sale.Tax, sale.Discount, sale.Total = totals.Subtotal, totals.Tax, totals.Discount, totals.Total
	}
	o.Sale = sale
	o.PaymentKey = uuid.NewString()
	s.logger.Info(s.logger.WithSaleID(ctx, sale.ID), "sale opened")
	return sale, nil
}

// CancelSale drops the pending sale so the cart can be edited again.
func (s *Service) CancelSale(o *Order) {
	o.Sale = nil
	o.PaymentKey = ""
}

// AmountDue is the pending sale total, or the cart total before a sale is opened.
func (s *Service) AmountDue(o *Order) decimal.Decimal {
	if o.Sale != nil {
		return o.Sale.Total
	}
	return o.Cart.Totals().Total
}

// CompleteTransaction settles payment for the pending sale. On success the order is
// cleared and the receipt returned; on failure the order is left untouched.
func (s *Service) CompleteTransaction(ctx context.Context, o *Order, p Payment, idempotencyKey string) (*backend.Receipt, error) {
	if o.Sale == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no pending sale; create the order first")
	}
	total := o.Sale.Total
	if err := p.Validate(total); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		if o.PaymentKey == "" {
			o.PaymentKey = uuid.NewString()
		}
		key = o.PaymentKey
	}

	req := backend.CompleteTransactionRequest{
		PaymentMethod: string(p.Method),
		LastFour:      strings.TrimSpace(p.LastFour),
		TransactionID: strings.TrimSpace(p.TransactionID),
	}
	if p.Method == MethodCash {
		received := p.AmountReceived
		req.AmountReceived = &received
		req.TransactionID = ""
	}

	ctx = s.logger.WithSaleID(ctx, o.Sale.ID)
	receipt, err := s.backend.CompleteTransaction(ctx, o.Sale.ID, key, req)
	if err != nil {
		s.logger.Warn(ctx, "payment failed; order retained")
		return nil, err
	}

	s.enrichReceipt(o, p, receipt)
	s.logger.Info(ctx, "sale settled")

	o.Cart.Clear()
	o.Customer = nil
	o.Sale = nil
	o.PaymentKey = ""
	return receipt, nil
}

func (s *Service) enrichReceipt(o *Order, p Payment, r *backend.Receipt) {
	if r.SaleID == "" {
		r.SaleID = o.Sale.ID
	}
	if r.PaymentMethod == "" {
		r.PaymentMethod = string(p.Method)
	}
	if len(r.PaymentDetails) == 0 {
		r.PaymentDetails = p.details()
	}
	if r.Customer == nil && o.Customer != nil {
		r.Customer = &backend.CustomerDetails{ID: o.Customer.ID, Name: o.Customer.Name, Phone: o.Customer.Phone, Email: o.Customer.Email}
	}
	if r.Total.IsZero() {
		r.Subtotal, r.Tax, r.Discount, r.Total = o.Sale.Subtotal, o.Sale.Tax, o.Sale.Discount, o.Sale.Total
	}
	if len(r.Items) == 0 {
		for _, item := range o.Cart.Items() {
			r.Items = append(r.Items, backend.ReceiptItem{
				Name:           item.Name,
				Barcode:        item.Barcode,
				Quantity:       item.Quantity,
				Price:          item.SalePrice,
				GSTPercentage:  item.GSTPercentage,
				DiscountAmount: money.Round(item.DiscountAmount),
				Total:          money.Round(item.TotalPrice),
			})
		}
	}
	if p.Method == MethodCash {
		change := Change(r.Total, p.AmountReceived)
		r.Change = &change
	}
}

// LineFromInventory maps a counter lookup result to a cart line. Items without a
// cost price carry the sale price as unit price.
func LineFromInventory(item backend.InventoryItem) cart.LineItem {
	unit := item.CostPrice
	if !unit.IsPositive() {
		unit = item.SalePrice
	}
	var stock *int
	if item.CurrentQuantity != nil {
		stock = cart.IntPtr(*item.CurrentQuantity)
	}
	return cart.LineItem{
		ItemID:          item.ID,
		Barcode:         item.Barcode,
		Name:            item.Name,
		Category:        item.Category,
		CurrentQuantity: stock,
		UnitPrice:       unit,
		SalePrice:       item.SalePrice,
		GSTPercentage:   item.GSTPercentage,
		DiscountPercent: item.DiscountPercent,
	}
}
