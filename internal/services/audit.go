package services

import (
	"context"
	"log/slog"

	"github.com/fretehub/credit-ledger/internal/models"
	repo "github.com/fretehub/credit-ledger/internal/repository"
)

// auditor writes ledger audit entries. Audit failures never fail the
// operation that triggered them.
type auditor struct {
	logs repo.AuditLogs
	log  *slog.Logger
}

func (a auditor) record(ctx context.Context, t models.CreditTransaction, action, actor string, details map[string]any) {
	if a.logs == nil {
		return
	}
	id, client := t.ID, t.ClientID
	if details == nil {
		details = map[string]any{}
	}
	details["valor"] = t.Amount.String()
	if t.ShipmentRef != nil {
		details["shipmentRef"] = *t.ShipmentRef
	}
	err := a.logs.Create(ctx, models.AuditLog{
		EntityType: "credit_transaction",
		EntityID:   &id,
		ClientID:   &client,
		Action:     action,
		Actor:      actor,
		Details:    details,
	})
	if err != nil {
		a.log.Warn("audit log write failed", "transaction_id", id, "action", action, "err", err)
	}
}
