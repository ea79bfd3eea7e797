package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/fretehub/credit-ledger/internal/models"
	"github.com/fretehub/credit-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type invoicesRepo struct{ pool *pgxpool.Pool }

func NewInvoices(pool *pgxpool.Pool) repository.Invoices {
	return &invoicesRepo{pool: pool}
}

func (r *invoicesRepo) GetByReference(ctx context.Context, ref string) (models.Invoice, error) {
	var inv models.Invoice
	err := r.pool.QueryRow(ctx,
		`SELECT id, referencia, cliente_id, status, pago_em, criado_em
		   FROM faturas
		  WHERE referencia=$1`,
		ref,
	).Scan(&inv.ID, &inv.Reference, &inv.ClientID, &inv.Status, &inv.PaidAt, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return inv, repository.ErrNotFound
	}
	return inv, err
}

// MarkPaid is a no-op for an invoice that is already paid.
func (r *invoicesRepo) MarkPaid(ctx context.Context, id string, paidAt time.Time, amount decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE faturas
		    SET status='paga', pago_em=$2, valor_pago=$3::numeric
		  WHERE id=$1 AND status <> 'paga'`,
		id, paidAt, amount.String(),
	)
	return err
}
