package pos

import (
	"context"
	"net/http"

	"github.com/angelmondragon/posterminal/api/responses"
	"github.com/angelmondragon/posterminal/api/validators"
	"github.com/angelmondragon/posterminal/pkg/logger"
)

type ReceiptService interface {
	ReceiptHTML(saleID string) ([]byte, error)
	PrintReceipt(ctx context.Context, saleID string) error
}

// ReceiptPage serves the printable receipt; the page opens the print dialog on load.
func ReceiptPage(svc ReceiptService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		saleID, err := validators.PathString(r, "saleId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := svc.ReceiptHTML(saleID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteHTML(w, page)
	}
}

func PrintReceipt(svc ReceiptService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		saleID, err := validators.PathString(r, "saleId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.PrintReceipt(ctx, saleID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"saleId": saleID, "printed": true})
	}
}
