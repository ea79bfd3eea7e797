package postgres

import (
	"context"

	"github.com/fretehub/credit-ledger/internal/models"
	"github.com/fretehub/credit-ledger/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditLogsRepo struct{ pool *pgxpool.Pool }

func NewAuditLogs(pool *pgxpool.Pool) repository.AuditLogs {
	return &auditLogsRepo{pool: pool}
}

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs(entity_type, entity_id, cliente_id, action, actor, details)
		 VALUES($1, $2, $3, $4, $5, $6)`,
		l.EntityType, l.EntityID, l.ClientID, l.Action, l.Actor, l.Details,
	)
	return err
}
