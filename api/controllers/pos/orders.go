package pos

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/posterminal/api/responses"
	"github.com/angelmondragon/posterminal/api/validators"
	"github.com/angelmondragon/posterminal/internal/checkout"
	"github.com/angelmondragon/posterminal/internal/terminal"
	"github.com/angelmondragon/posterminal/pkg/backend"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/logger"
)

const idempotencyHeader = "Idempotency-Key"

type OrderService interface {
	CreateOrder(ctx context.Context) (terminal.CartView, error)
	CancelSale(ctx context.Context, saleID string) (terminal.CartView, error)
	CompleteTransaction(ctx context.Context, saleID string, p checkout.Payment, idempotencyKey string) (*backend.Receipt, error)
}

// CreateOrder opens a pending sale for the current cart and locks it.
func CreateOrder(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := svc.CreateOrder(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func CancelOrder(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		saleID, err := validators.PathString(r, "saleId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.CancelSale(ctx, saleID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CompletePayment settles the sale. The Idempotency-Key header, when sent, is
// forwarded to the backend so a retried request cannot charge twice.
func CompletePayment(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		saleID, err := validators.PathString(r, "saleId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload checkout.Payment
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		receipt, err := svc.CompleteTransaction(ctx, saleID, payload, key)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if receipt == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement returned no receipt"))
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}
