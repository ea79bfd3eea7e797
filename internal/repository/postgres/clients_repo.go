package postgres

import (
	"context"
	"errors"

	"github.com/fretehub/credit-ledger/internal/models"
	"github.com/fretehub/credit-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type clientsRepo struct{ pool *pgxpool.Pool }

func NewClients(pool *pgxpool.Pool) repository.Clients {
	return &clientsRepo{pool: pool}
}

func (r *clientsRepo) GetByID(ctx context.Context, id string) (models.Client, error) {
	var c models.Client
	err := r.pool.QueryRow(ctx,
		`SELECT id, nome, conta_externa, criado_em FROM clientes WHERE id=$1`, id,
	).Scan(&c.ID, &c.Name, &c.ExternalAccountID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, repository.ErrNotFound
	}
	return c, err
}

func (r *clientsRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clientes WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}
