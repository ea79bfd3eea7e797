package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fretehub/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint rejects an insert:
	// a second recharge for the same external reference or a second
	// consumption for the same shipment.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientFunds is returned by InsertIfAvailable.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type CreditTransactions interface {
	// Insert persists t as a single atomic row insert and returns it with
	// ID and CreatedAt filled.
	Insert(ctx context.Context, t models.CreditTransaction) (models.CreditTransaction, error)
	// InsertIfAvailable inserts a consumption only if the client's available
	// balance covers it, with the read and the insert in one serializable
	// transaction.
	InsertIfAvailable(ctx context.Context, t models.CreditTransaction) (models.CreditTransaction, error)
	GetByID(ctx context.Context, id string) (models.CreditTransaction, error)
	FindRecharge(ctx context.Context, clientID, externalRef string) (models.CreditTransaction, error)
	ListByClient(ctx context.Context, clientID string) ([]models.CreditTransaction, error)
	ListBlocked(ctx context.Context) ([]models.CreditTransaction, error)
	// ListConsumedPastHold returns consumed entries whose blocked_until is before now.
	ListConsumedPastHold(ctx context.Context, now time.Time) ([]models.CreditTransaction, error)

	// Conditional transitions. They report false when the row is no longer
	// in the expected state, so a concurrent run cannot apply them twice.
	MarkConsumed(ctx context.Context, id string) (bool, error)
	DeleteBlocked(ctx context.Context, id string) (bool, error)
	DeleteConsumed(ctx context.Context, id string) (bool, error)
}

type Clients interface {
	GetByID(ctx context.Context, id string) (models.Client, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type Invoices interface {
	GetByReference(ctx context.Context, ref string) (models.Invoice, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time, amount decimal.Decimal) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
