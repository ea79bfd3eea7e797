package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/fretehub/credit-ledger/internal/metrics"
)

func TestRecover_ReturnsInternalError(t *testing.T) {
	var logs bytes.Buffer
	r := chi.NewRouter()
	r.Use(RequestID, Recover(slog.New(slog.NewTextHandler(&logs, nil))), HTTPMetrics)
	r.Get("/boom/{id}", func(http.ResponseWriter, *http.Request) { panic("kaput") })

	before := testutil.ToFloat64(metrics.HTTPPanics.WithLabelValues("/boom/{id}"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom/7", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"internal_error"`)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HTTPPanics.WithLabelValues("/boom/{id}")))
	assert.Contains(t, logs.String(), "kaput")
	assert.Contains(t, logs.String(), "request_id=")
}

func TestRecover_KeepsStartedResponse(t *testing.T) {
	h := Recover(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("late")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}

func TestHTTPMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetrics)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	before := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("/items/{id}", http.MethodGet, "204"))
	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, before+3, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("/items/{id}", http.MethodGet, "204")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("unmatched", http.MethodGet, "404")), 1.0)
}
