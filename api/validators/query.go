package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
)

const maxQueryLen = 128

// QueryString returns a trimmed query parameter capped at a sane length.
func QueryString(r *http.Request, key string) string {
	return SanitizeString(r.URL.Query().Get(key), maxQueryLen)
}

// PathIndex parses a zero-based line index from the route.
func PathIndex(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter out of range").WithDetails(map[string]any{"field": key, "min": 0})
	}
	return value, nil
}

// PathString returns a required, non-empty route parameter.
func PathString(r *http.Request, key string) (string, error) {
	value := SanitizeString(chi.URLParam(r, key), maxQueryLen)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "path parameter is required").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
