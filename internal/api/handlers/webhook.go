package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fretehub/credit-ledger/internal/api/httpx"
	"github.com/fretehub/credit-ledger/internal/services"
)

type WebhookHandler struct {
	Settlement *services.WebhookService
}

type paymentReq struct {
	PaidAmount decimal.Decimal `json:"valorPago"`
	PaidAt     string          `json:"dataPagamento"`
	InvoiceRef string          `json:"referenciaFatura"`
}

type paymentResp struct {
	Received      bool   `json:"recebido"`
	Duplicated    bool   `json:"duplicado"`
	TransactionID string `json:"transacaoId"`
}

// parsePaidAt accepts RFC 3339 timestamps and plain dates.
func parsePaidAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("dataPagamento: unsupported format %q", s)
}

func (h *WebhookHandler) PaymentConfirmed(w http.ResponseWriter, r *http.Request) {
	var req paymentReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	paidAt, err := parsePaidAt(req.PaidAt)
	if err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.Settlement.Settle(r.Context(), services.PaymentNotice{
		PaidAmount: req.PaidAmount,
		PaidAt:     paidAt,
		InvoiceRef: req.InvoiceRef,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, paymentResp{
		Received:      true,
		Duplicated:    res.Duplicated,
		TransactionID: res.TransactionID,
	})
}
