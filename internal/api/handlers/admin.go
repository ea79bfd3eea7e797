package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/fretehub/credit-ledger/internal/api/httpx"
	"github.com/fretehub/credit-ledger/internal/services"
)

// AdminHandler lets operators trigger the settlement jobs on demand. A run
// started here completes even if the client disconnects.
type AdminHandler struct {
	Sweep    *services.SweepService
	Backfill *services.BackfillService
}

func (h *AdminHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Sweep.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rep)
}

func (h *AdminHandler) RunBackfill(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if v := r.URL.Query().Get("dryRun"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_parameter", "dryRun must be a boolean", nil)
			return
		}
		dryRun = b
	}
	rep, err := h.Backfill.Run(context.WithoutCancel(r.Context()), dryRun)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rep)
}
