package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fretehub/credit-ledger/internal/api/httpx"
	"github.com/fretehub/credit-ledger/internal/api/validate"
	"github.com/fretehub/credit-ledger/internal/middleware"
	"github.com/fretehub/credit-ledger/internal/models"
	"github.com/fretehub/credit-ledger/internal/services"
)

type CreditHandler struct {
	Balance      *services.BalanceService
	Recharge     *services.RechargeService
	Reservations *services.ReservationService
}

type rechargeReq struct {
	ClientID    string          `json:"clienteId"`
	Amount      decimal.Decimal `json:"valor"`
	Description string          `json:"descricao"`
	Reference   string          `json:"referencia"`
}

func (h *CreditHandler) AddCredit(w http.ResponseWriter, r *http.Request) {
	var req rechargeReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := validate.Collect(
		validate.MaxLen("descricao", req.Description, 500),
		validate.MaxLen("referencia", req.Reference, 128),
	); err != nil {
		writeServiceError(w, r, err)
		return
	}
	actor := "api"
	if c, ok := middleware.ClaimsFrom(r.Context()); ok {
		actor = c.Role + ":" + c.Subject
	}
	res, err := h.Recharge.AddCredit(r.Context(), services.RechargeInput{
		ClientID:          req.ClientID,
		Amount:            req.Amount,
		Description:       req.Description,
		ExternalReference: req.Reference,
		Actor:             actor,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Duplicated {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, res)
}

func (h *CreditHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.Balance.Current(r.Context(), r.URL.Query().Get("clienteId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

type reserveReq struct {
	ClientID    string          `json:"clienteId"`
	ShipmentRef string          `json:"shipmentRef"`
	Amount      decimal.Decimal `json:"valor"`
}

type reserveResp struct {
	TransactionID string        `json:"transacaoId"`
	ClientID      string        `json:"clienteId"`
	ShipmentRef   string        `json:"shipmentRef"`
	Amount        models.Number `json:"valor"`
	Status        string        `json:"status"`
	BlockedUntil  time.Time     `json:"blockedUntil"`
}

func (h *CreditHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := validate.Collect(
		validate.UUID("clienteId", req.ClientID),
		validate.Required("shipmentRef", req.ShipmentRef),
		validate.MaxLen("shipmentRef", req.ShipmentRef, 128),
		validate.Positive("valor", req.Amount),
	); err != nil {
		writeServiceError(w, r, err)
		return
	}
	t, err := h.Reservations.ReserveChecked(r.Context(), req.ClientID, req.ShipmentRef, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, reserveResp{
		TransactionID: t.ID,
		ClientID:      t.ClientID,
		ShipmentRef:   *t.ShipmentRef,
		Amount:        models.Number(t.Amount),
		Status:        string(t.Status),
		BlockedUntil:  *t.BlockedUntil,
	})
}

func (h *CreditHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Balance.History(r.Context(), r.URL.Query().Get("clienteId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.CreditTransaction{}
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}

func (h *CreditHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Balance.Transaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}
