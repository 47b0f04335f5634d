package pos

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/posterminal/api/responses"
	"github.com/angelmondragon/posterminal/api/validators"
	"github.com/angelmondragon/posterminal/internal/search"
	"github.com/angelmondragon/posterminal/internal/terminal"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/logger"
)

type SearchService interface {
	Search(ctx context.Context, kind search.Kind, query string) (terminal.SearchResult, error)
}

// Search answers one keystroke of search-as-you-type. Requests replaced by newer
// input come back with stale set instead of an error.
func Search(svc SearchService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		kind, ok := search.ParseKind(chi.URLParam(r, "kind"))
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown search kind").WithDetails(map[string]any{
				"allowed": []search.Kind{search.KindItems, search.KindDealers, search.KindInventory, search.KindCustomers},
			}))
			return
		}

		result, err := svc.Search(ctx, kind, validators.QueryString(r, "q"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
