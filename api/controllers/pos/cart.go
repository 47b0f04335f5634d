package pos

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posterminal/api/responses"
	"github.com/angelmondragon/posterminal/api/validators"
	"github.com/angelmondragon/posterminal/internal/terminal"
	"github.com/angelmondragon/posterminal/pkg/backend"
	"github.com/angelmondragon/posterminal/pkg/logger"
)

// CartService is the slice of the counter the cart screens drive.
type CartService interface {
	Cart() terminal.CartView
	AddByBarcode(ctx context.Context, barcode string, qty int) (terminal.CartView, error)
	AddInventory(ctx context.Context, item backend.InventoryItem, qty int) (terminal.CartView, error)
	SetQuantity(ctx context.Context, index, qty int) (terminal.CartView, error)
	ChangeDiscount(ctx context.Context, index int, change terminal.DiscountChange) (terminal.CartView, error)
	RemoveItem(ctx context.Context, index int) (terminal.CartView, error)
	ClearCart(ctx context.Context) (terminal.CartView, error)
	SelectCustomer(ctx context.Context, c backend.Customer) (terminal.CartView, error)
	ClearCustomer(ctx context.Context) (terminal.CartView, error)
}

type addItemRequest struct {
	Barcode  string                 `json:"barcode" validate:"required_without=Item,max=64"`
	Item     *backend.InventoryItem `json:"item" validate:"required_without=Barcode"`
	Quantity int                    `json:"quantity" validate:"omitempty,min=1"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type discountRequest struct {
	Percent *decimal.Decimal `json:"percent"`
	Apply   *bool            `json:"apply"`
}

func (d discountRequest) change() terminal.DiscountChange {
	return terminal.DiscountChange{Percent: d.Percent, Apply: d.Apply}
}

type customerRequest struct {
	ID            string `json:"id" validate:"required_without=Phone,max=64"`
	Name          string `json:"name" validate:"max=200"`
	Phone         string `json:"phone" validate:"required_without=ID,max=32"`
	Email         string `json:"email" validate:"omitempty,email"`
	LoyaltyPoints int    `json:"loyaltyPoints"`
}

func GetCart(svc CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Cart())
	}
}

// AddItem adds by barcode (looked up in inventory) or by an item picked from search.
func AddItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			view terminal.CartView
			err  error
		)
		if payload.Item != nil {
			view, err = svc.AddInventory(r.Context(), *payload.Item, payload.Quantity)
		} else {
			view, err = svc.AddByBarcode(r.Context(), payload.Barcode, payload.Quantity)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func UpdateQuantity(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := validators.PathIndex(r, "index")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.SetQuantity(r.Context(), index, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ChangeDiscount(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := validators.PathIndex(r, "index")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload discountRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		view, err := svc.ChangeDiscount(r.Context(), index, payload.change())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func RemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := validators.PathIndex(r, "index")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.RemoveItem(r.Context(), index)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ClearCart(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.ClearCart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func SelectCustomer(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload customerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.SelectCustomer(r.Context(), backend.Customer{
			ID:            validators.SanitizeString(payload.ID, 64),
			Name:          validators.SanitizeString(payload.Name, 200),
			Phone:         validators.SanitizeString(payload.Phone, 32),
			Email:         validators.SanitizeString(payload.Email, 200),
			LoyaltyPoints: payload.LoyaltyPoints,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ClearCustomer(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.ClearCustomer(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
