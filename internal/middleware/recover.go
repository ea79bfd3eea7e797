package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/fretehub/credit-ledger/internal/api/httpx"
	"github.com/fretehub/credit-ledger/internal/metrics"
)

// Recover turns a handler panic into a 500, unless the handler already
// started its response.
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := record(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				route := routePattern(r)
				metrics.HTTPPanics.WithLabelValues(route).Inc()
				log.Error("handler panic",
					"err", v,
					"method", r.Method,
					"route", route,
					"request_id", RequestIDFrom(r.Context()),
					"stack", string(debug.Stack()),
				)
				if !rec.wroteHeader {
					httpx.WriteError(rec, http.StatusInternalServerError, "internal_error", "internal error", nil)
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
