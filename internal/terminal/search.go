package terminal

import (
	"context"
	"errors"

	"github.com/angelmondragon/posterminal/internal/search"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
)

// SearchResult is one debounced search response. Stale is set when newer input
// replaced the query; the display keeps whatever it shows.
type SearchResult struct {
	Kind  search.Kind `json:"kind"`
	Query string      `json:"query"`
	Seq   uint64      `json:"seq"`
	Items any         `json:"items"`
	Stale bool        `json:"stale"`
}

func (t *Terminal) Search(ctx context.Context, kind search.Kind, query string) (SearchResult, error) {
	ctx = t.ctx(ctx)
	switch kind {
	case search.KindItems:
		return collect(ctx, t.items, query)
	case search.KindDealers:
		return collect(ctx, t.dealers, query)
	case search.KindInventory:
		return collect(ctx, t.inventory, query)
	case search.KindCustomers:
		return collect(ctx, t.customers, query)
	default:
		return SearchResult{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown search kind %q", kind)
	}
}

func collect[T any](ctx context.Context, s *search.Searcher[T], query string) (SearchResult, error) {
	r, err := s.Search(ctx, query)
	out := SearchResult{Kind: s.Kind(), Query: r.Query, Seq: r.Seq, Items: r.Items}
	if r.Items == nil {
		out.Items = []T{}
	}
	if errors.Is(err, search.ErrStale) || errors.Is(err, search.ErrSuperseded) {
		out.Stale = true
		return out, nil
	}
	if err != nil {
		return SearchResult{}, err
	}
	return out, nil
}
