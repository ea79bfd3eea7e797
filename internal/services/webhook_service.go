package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	repo "github.com/fretehub/credit-ledger/internal/repository"
	"github.com/shopspring/decimal"
)

// PaymentNotice is a confirmed payment reported by the payment gateway.
type PaymentNotice struct {
	PaidAmount decimal.Decimal
	PaidAt     time.Time
	InvoiceRef string
}

// WebhookService turns payment confirmations into recharges. The invoice
// reference is the recharge's idempotency key, so a re-delivered callback
// never credits twice.
type WebhookService struct {
	invoices repo.Invoices
	recharge *RechargeService
	clock    Clock
	log      *slog.Logger
}

func NewWebhookService(inv repo.Invoices, r *RechargeService, clock Clock, log *slog.Logger) *WebhookService {
	return &WebhookService{invoices: inv, recharge: r, clock: clock, log: log}
}

func (s *WebhookService) Settle(ctx context.Context, n PaymentNotice) (RechargeResult, error) {
	ref := strings.TrimSpace(n.InvoiceRef)
	if ref == "" {
		return RechargeResult{}, fmt.Errorf("%w: referenciaFatura", ErrMissingParameter)
	}
	if n.PaidAmount.IsZero() {
		return RechargeResult{}, fmt.Errorf("%w: valorPago", ErrMissingParameter)
	}
	if n.PaidAmount.IsNegative() {
		return RechargeResult{}, fmt.Errorf("%w: valorPago must be > 0", ErrInvalidParameter)
	}
	paidAt := n.PaidAt
	if paidAt.IsZero() {
		paidAt = s.clock.now()
	}

	inv, err := s.invoices.GetByReference(ctx, ref)
	if errors.Is(err, repo.ErrNotFound) {
		return RechargeResult{}, fmt.Errorf("%w: %s", ErrInvoiceNotFound, ref)
	}
	if err != nil {
		return RechargeResult{}, err
	}

	res, err := s.recharge.AddCredit(ctx, RechargeInput{
		ClientID:          inv.ClientID,
		Amount:            n.PaidAmount,
		Description:       "Pagamento fatura " + ref,
		ExternalReference: ref,
		Actor:             "webhook",
		SkipCeiling:       true,
	})
	if err != nil {
		return RechargeResult{}, err
	}
	if err := s.invoices.MarkPaid(ctx, inv.ID, paidAt, n.PaidAmount); err != nil {
		// the credit is in; a retried delivery is a duplicate and marks the invoice again
		return res, fmt.Errorf("mark invoice %s paid: %w", ref, err)
	}
	s.log.Info("payment settled", "invoice", ref, "client_id", inv.ClientID,
		"transaction_id", res.TransactionID, "duplicated", res.Duplicated)
	return res, nil
}
