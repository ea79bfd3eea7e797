package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fretehub/credit-ledger/internal/models"
	"github.com/fretehub/credit-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	strictReservationTries = 3
)

type creditTransactionsRepo struct{ pool *pgxpool.Pool }

func NewCreditTransactions(pool *pgxpool.Pool) repository.CreditTransactions {
	return &creditTransactionsRepo{pool: pool}
}

const txColumns = `id, cliente_id, tipo, valor::text, status, blocked_until, referencia_externa, shipment_ref, descricao, criado_em`

const insertTx = `
INSERT INTO transacoes_credito (
  id, cliente_id, tipo, valor, status, blocked_until, referencia_externa, shipment_ref, descricao, criado_em
) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)
RETURNING ` + txColumns

func scanTx(row pgx.Row) (models.CreditTransaction, error) {
	var (
		t      models.CreditTransaction
		amount string
		status *string
	)
	err := row.Scan(&t.ID, &t.ClientID, &t.Kind, &amount, &status, &t.BlockedUntil,
		&t.ExternalReference, &t.ShipmentRef, &t.Description, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, repository.ErrNotFound
		}
		return t, err
	}
	if status != nil {
		t.Status = models.TransactionStatus(*status)
	}
	t.Amount, err = decimal.NewFromString(amount)
	return t, err
}

func insertArgs(t models.CreditTransaction) []any {
	var status *string
	if t.Status != "" {
		s := string(t.Status)
		status = &s
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return []any{t.ID, t.ClientID, t.Kind, t.Amount.String(), status, t.BlockedUntil,
		t.ExternalReference, t.ShipmentRef, t.Description, created}
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func (r *creditTransactionsRepo) Insert(ctx context.Context, t models.CreditTransaction) (models.CreditTransaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	out, err := scanTx(r.pool.QueryRow(ctx, insertTx, insertArgs(t)...))
	return out, translate(err)
}

func (r *creditTransactionsRepo) InsertIfAvailable(ctx context.Context, t models.CreditTransaction) (models.CreditTransaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	var out models.CreditTransaction
	var err error
	for i := 0; i < strictReservationTries; i++ {
		err = r.withTx(ctx, func(tx pgx.Tx) error {
			var available string
			if err := tx.QueryRow(ctx,
				`SELECT COALESCE(SUM(CASE WHEN tipo = 'recarga' THEN valor ELSE -valor END), 0)::text
				   FROM transacoes_credito
				  WHERE cliente_id = $1`,
				t.ClientID,
			).Scan(&available); err != nil {
				return err
			}
			avail, err := decimal.NewFromString(available)
			if err != nil {
				return err
			}
			if avail.LessThan(t.Amount) {
				return repository.ErrInsufficientFunds
			}
			out, err = scanTx(tx.QueryRow(ctx, insertTx, insertArgs(t)...))
			return err
		})
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure {
			continue
		}
		break
	}
	return out, translate(err)
}

// withTx runs fn in a single SERIALIZABLE transaction.
func (r *creditTransactionsRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *creditTransactionsRepo) GetByID(ctx context.Context, id string) (models.CreditTransaction, error) {
	return scanTx(r.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transacoes_credito WHERE id=$1`, id))
}

func (r *creditTransactionsRepo) FindRecharge(ctx context.Context, clientID, externalRef string) (models.CreditTransaction, error) {
	return scanTx(r.pool.QueryRow(ctx,
		`SELECT `+txColumns+`
		   FROM transacoes_credito
		  WHERE cliente_id=$1 AND referencia_externa=$2 AND tipo='recarga'`,
		clientID, externalRef,
	))
}

func (r *creditTransactionsRepo) list(ctx context.Context, q string, args ...any) ([]models.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CreditTransaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *creditTransactionsRepo) ListByClient(ctx context.Context, clientID string) ([]models.CreditTransaction, error) {
	return r.list(ctx,
		`SELECT `+txColumns+`
		   FROM transacoes_credito
		  WHERE cliente_id=$1
		  ORDER BY criado_em DESC`,
		clientID,
	)
}

func (r *creditTransactionsRepo) ListBlocked(ctx context.Context) ([]models.CreditTransaction, error) {
	return r.list(ctx,
		`SELECT `+txColumns+`
		   FROM transacoes_credito
		  WHERE tipo='consumo' AND status='bloqueado'
		  ORDER BY criado_em`,
	)
}

func (r *creditTransactionsRepo) ListConsumedPastHold(ctx context.Context, now time.Time) ([]models.CreditTransaction, error) {
	return r.list(ctx,
		`SELECT `+txColumns+`
		   FROM transacoes_credito
		  WHERE tipo='consumo' AND status='consumido'
		    AND blocked_until IS NOT NULL AND blocked_until < $1
		  ORDER BY criado_em`,
		now,
	)
}

func (r *creditTransactionsRepo) exec(ctx context.Context, q, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *creditTransactionsRepo) MarkConsumed(ctx context.Context, id string) (bool, error) {
	return r.exec(ctx, `UPDATE transacoes_credito SET status='consumido' WHERE id=$1 AND tipo='consumo' AND status='bloqueado'`, id)
}

func (r *creditTransactionsRepo) DeleteBlocked(ctx context.Context, id string) (bool, error) {
	return r.exec(ctx, `DELETE FROM transacoes_credito WHERE id=$1 AND tipo='consumo' AND status='bloqueado'`, id)
}

func (r *creditTransactionsRepo) DeleteConsumed(ctx context.Context, id string) (bool, error) {
	return r.exec(ctx, `DELETE FROM transacoes_credito WHERE id=$1 AND tipo='consumo' AND status='consumido'`, id)
}
