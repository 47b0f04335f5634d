package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/posterminal/api/responses"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/logger"
)

// Recoverer turns a handler panic into an INTERNAL response tagged with the
// counter and the request line, so a crash on one screen does not take the
// terminal down.
func Recoverer(logg *logger.Logger, counter string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := logg.WithFields(r.Context(), map[string]any{
					"panic":   fmt.Sprint(rec),
					"counter": counter,
					"method":  r.Method,
					"path":    r.URL.Path,
				})
				logg.Error(ctx, "handler panic recovered", err)
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
