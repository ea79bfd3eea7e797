package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fretehub/credit-ledger/internal/api/httpx"
	"github.com/fretehub/credit-ledger/internal/api/validate"
	"github.com/fretehub/credit-ledger/internal/middleware"
	repo "github.com/fretehub/credit-ledger/internal/repository"
	"github.com/fretehub/credit-ledger/internal/services"
)

type errMapping struct {
	target error
	status int
	code   string
}

var errMappings = []errMapping{
	{services.ErrMissingParameter, http.StatusBadRequest, "missing_parameter"},
	{services.ErrInvalidParameter, http.StatusBadRequest, "invalid_parameter"},
	{services.ErrInvalidAmount, http.StatusBadRequest, "invalid_parameter"},
	{services.ErrClientNotFound, http.StatusNotFound, "client_not_found"},
	{services.ErrInvoiceNotFound, http.StatusNotFound, "invoice_not_found"},
	{repo.ErrNotFound, http.StatusNotFound, "not_found"},
	{services.ErrLimitExceeded, http.StatusUnprocessableEntity, "limit_exceeded"},
	{services.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{services.ErrDuplicateReservation, http.StatusConflict, "duplicate_reservation"},
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validate.Errs
	if errors.As(err, &verrs) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_parameter", "validation failed", verrs)
		return
	}
	for _, m := range errMappings {
		if errors.Is(err, m.target) {
			httpx.WriteError(w, m.status, m.code, err.Error(), nil)
			return
		}
	}
	slog.Error("request failed", "err", err, "path", r.URL.Path, "request_id", middleware.RequestIDFrom(r.Context()))
	httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
}

func badRequest(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_parameter", err.Error(), nil)
}
