package purchaseorder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/posterminal/api/validators"
	"github.com/angelmondragon/posterminal/internal/cart"
	"github.com/angelmondragon/posterminal/pkg/backend"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/logger"
)

type Backend interface {
	CreatePurchaseOrder(ctx context.Context, req backend.PurchaseOrderRequest) (*backend.PurchaseOrder, error)
}

type Service struct {
	backend Backend
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(b Backend, logg *logger.Logger) (*Service, error) {
	if b == nil {
		return nil, errors.New("purchase order backend required")
	}
	return &Service{backend: b, logger: logg, now: time.Now}, nil
}

// submission is the validated shape of a purchase order about to be sent.
type submission struct {
	DealerID string                      `json:"dealerId" validate:"required"`
	Items    []backend.PurchaseOrderItem `json:"items" validate:"required,min=1,dive"`
}

func (s *Service) SelectDealer(d *Draft, dealer backend.Dealer) error {
	if strings.TrimSpace(dealer.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "dealer id is required")
	}
	d.Dealer = &dealer
	return nil
}

func (s *Service) ClearDealer(d *Draft) {
	d.Dealer = nil
}

func (s *Service) SetDetails(d *Draft, details Details) error {
	details.PONumber = strings.TrimSpace(details.PONumber)
	details.InvoiceNumber = strings.TrimSpace(details.InvoiceNumber)
	details.OrderDate = strings.TrimSpace(details.OrderDate)
	details.Notes = strings.TrimSpace(details.Notes)
	if err := validators.Struct(details); err != nil {
		return err
	}
	d.Details = details
	return nil
}

// AddExisting adds qty units of a catalogue item.
func (s *Service) AddExisting(d *Draft, item backend.ItemSuggestion, qty int) error {
	if strings.TrimSpace(item.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return d.Cart.AddOrMerge(LineFromSuggestion(item), qty)
}

// AddNew adds a product that will be created with the order.
func (s *Service) AddNew(d *Draft, item NewItem) error {
	if err := validators.Struct(item); err != nil {
		return err
	}
	return d.Cart.AddOrMerge(item.line(), item.Quantity)
}

// Submit sends the draft and resets it on success. On failure the draft is kept.
func (s *Service) Submit(ctx context.Context, d *Draft) (*backend.PurchaseOrder, error) {
	req := s.buildRequest(d)
	if err := validators.Struct(submission{DealerID: req.DealerID, Items: req.Items}); err != nil {
		return nil, err
	}

	po, err := s.backend.CreatePurchaseOrder(ctx, req)
	if err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "dealer_id", req.DealerID), "purchase order submission failed; draft retained")
		return nil, err
	}
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{"dealer_id": req.DealerID, "po_id": po.ID, "lines": len(req.Items)}), "purchase order created")

	*d = *NewDraft(s.now())
	return po, nil
}

func (s *Service) buildRequest(d *Draft) backend.PurchaseOrderRequest {
	totals := d.Cart.Totals()
	req := backend.PurchaseOrderRequest{
		PONumber:      d.Details.PONumber,
		InvoiceNumber: d.Details.InvoiceNumber,
		OrderDate:     d.Details.OrderDate,
		Notes:         d.Details.Notes,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Discount:      totals.Discount,
		Total:         totals.Total,
	}
	if d.Dealer != nil {
		req.DealerID = d.Dealer.ID
	}
	for _, line := range d.Cart.Items() {
		req.Items = append(req.Items, toRequestItem(line))
	}
	return req
}

func toRequestItem(line cart.LineItem) backend.PurchaseOrderItem {
	item := backend.PurchaseOrderItem{
		ItemID:        line.ItemID,
		IsNew:         line.IsNew(),
		UnitPrice:     line.UnitPrice,
		SalePrice:     line.SalePrice,
		GSTPercentage: line.GSTPercentage,
		Quantity:      line.Quantity,
	}
	if line.ApplyDiscount {
		item.DiscountPercent = line.DiscountPercent
	}
	if item.IsNew {
		item.Name = line.Name
		item.Barcode = line.Barcode
		item.Category = line.Category
	}
	return item
}
