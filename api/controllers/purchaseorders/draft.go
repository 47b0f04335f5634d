package purchaseorders

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posterminal/api/responses"
	"github.com/angelmondragon/posterminal/api/validators"
	"github.com/angelmondragon/posterminal/internal/purchaseorder"
	"github.com/angelmondragon/posterminal/internal/terminal"
	"github.com/angelmondragon/posterminal/pkg/backend"
	"github.com/angelmondragon/posterminal/pkg/logger"
)

// DraftService is the purchase order composer held by the counter.
type DraftService interface {
	Draft() terminal.DraftView
	SelectDealer(ctx context.Context, dealer backend.Dealer) (terminal.DraftView, error)
	ClearDealer(ctx context.Context) (terminal.DraftView, error)
	SetDraftDetails(ctx context.Context, details purchaseorder.Details) (terminal.DraftView, error)
	AddDraftExisting(ctx context.Context, item backend.ItemSuggestion, qty int) (terminal.DraftView, error)
	AddDraftNew(ctx context.Context, item purchaseorder.NewItem) (terminal.DraftView, error)
	SetDraftQuantity(ctx context.Context, index, qty int) (terminal.DraftView, error)
	ChangeDraftDiscount(ctx context.Context, index int, change terminal.DiscountChange) (terminal.DraftView, error)
	RemoveDraftItem(ctx context.Context, index int) (terminal.DraftView, error)
	SubmitDraft(ctx context.Context) (*backend.PurchaseOrder, error)
}

type dealerRequest struct {
	ID        string `json:"id" validate:"required,max=64"`
	Name      string `json:"name" validate:"required,max=200"`
	Phone     string `json:"phone" validate:"max=32"`
	Email     string `json:"email" validate:"omitempty,email"`
	GSTNumber string `json:"gstNumber" validate:"max=32"`
	Address   string `json:"address" validate:"max=500"`
}

type addItemRequest struct {
	Item     *backend.ItemSuggestion `json:"item" validate:"required_without=New"`
	New      *purchaseorder.NewItem  `json:"new" validate:"required_without=Item"`
	Quantity int                     `json:"quantity" validate:"omitempty,min=1"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type discountRequest struct {
	Percent *decimal.Decimal `json:"percent"`
	Apply   *bool            `json:"apply"`
}

func GetDraft(svc DraftService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Draft())
	}
}

func SelectDealer(svc DraftService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload dealerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.SelectDealer(ctx, backend.Dealer{
			ID:        validators.SanitizeString(payload.ID, 64),
			Name:      validators.SanitizeString(payload.Name, 200),
			Phone:     validators.SanitizeString(payload.Phone, 32),
			Email:     validators.SanitizeString(payload.Email, 200),
			GSTNumber: validators.SanitizeString(payload.GSTNumber, 32),
			Address:   validators.SanitizeString(payload.Address, 500),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ClearDealer(svc DraftService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := svc.ClearDealer(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func SetDetails(svc DraftService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload purchaseorder.Details
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.SetDraftDetails(ctx, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AddItem takes either an existing catalogue item or a new one described in full.
func AddItem(svc DraftService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var (
			view terminal.DraftView
			err  error
		)
		if payload.New != nil {
			view, err = svc.AddDraftNew(ctx, *payload.New)
		} else {
			view, err = svc.AddDraftExisting(ctx, *payload.Item, payload.Quantity)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func UpdateQuantity(svc DraftService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		index, err := validators.PathIndex(r, "index")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.SetDraftQuantity(ctx, index, *payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ChangeDiscount(svc DraftService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		index, err := validators.PathIndex(r, "index")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload discountRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		view, err := svc.ChangeDraftDiscount(ctx, index, terminal.DiscountChange{Percent: payload.Percent, Apply: payload.Apply})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func RemoveItem(svc DraftService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		index, err := validators.PathIndex(r, "index")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.RemoveDraftItem(ctx, index)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Submit sends the draft to the backend. The route requires an Idempotency-Key.
func Submit(svc DraftService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		po, err := svc.SubmitDraft(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, po)
	}
}
