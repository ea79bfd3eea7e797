package services

import (
	"context"
	"time"

	"github.com/fretehub/credit-ledger/internal/shipment"
	"github.com/shopspring/decimal"
)

// StatusSource is the read side of the shipment-issuance system.
type StatusSource interface {
	Status(ctx context.Context, shipmentRef string) (shipment.Status, error)
}

// BalanceMirror pushes a client's balance to the shipment-issuance system.
type BalanceMirror interface {
	SyncBalance(ctx context.Context, accountID string, balance decimal.Decimal) error
}

// Submitter runs a task in the background; worker.Pool implements it.
type Submitter interface {
	Submit(f func()) bool
}

type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
