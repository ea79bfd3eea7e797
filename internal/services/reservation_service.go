package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fretehub/credit-ledger/internal/metrics"
	"github.com/fretehub/credit-ledger/internal/models"
	repo "github.com/fretehub/credit-ledger/internal/repository"
	"github.com/shopspring/decimal"
)

type ReservationService struct {
	trx    repo.CreditTransactions
	bal    *BalanceService
	audit  auditor
	clock  Clock
	strict bool
	log    *slog.Logger
}

// NewReservationService builds the issuer. With strict set, ReserveChecked
// runs the balance check and the insert in one serializable transaction
// instead of two independent statements.
func NewReservationService(t repo.CreditTransactions, b *BalanceService, a repo.AuditLogs, clock Clock, strict bool, log *slog.Logger) *ReservationService {
	return &ReservationService{trx: t, bal: b, audit: auditor{logs: a, log: log}, clock: clock, strict: strict, log: log}
}

func (s *ReservationService) build(ctx context.Context, clientID, shipmentRef string, amount decimal.Decimal) (models.CreditTransaction, error) {
	shipmentRef = strings.TrimSpace(shipmentRef)
	if shipmentRef == "" {
		return models.CreditTransaction{}, fmt.Errorf("%w: shipmentRef", ErrMissingParameter)
	}
	if !amount.IsPositive() {
		return models.CreditTransaction{}, ErrInvalidAmount
	}
	if err := s.bal.ensureClient(ctx, clientID); err != nil {
		return models.CreditTransaction{}, err
	}
	now := s.clock.now()
	until := now.Add(models.HoldWindow)
	return models.CreditTransaction{
		CreatedAt:    now,
		ClientID:     clientID,
		Kind:         models.KindConsumption,
		Amount:       amount,
		Status:       models.StatusBlocked,
		BlockedUntil: &until,
		ShipmentRef:  &shipmentRef,
		Description:  "Reserva etiqueta " + shipmentRef,
	}, nil
}

// Reserve blocks amount for shipmentRef for the hold window. It does not
// look at the client's balance.
func (s *ReservationService) Reserve(ctx context.Context, clientID, shipmentRef string, amount decimal.Decimal) (models.CreditTransaction, error) {
	t, err := s.build(ctx, clientID, shipmentRef, amount)
	if err != nil {
		metrics.ReservationsTotal.WithLabelValues("rejected").Inc()
		return models.CreditTransaction{}, err
	}
	return s.insert(ctx, t, s.bal.Record)
}

// ReserveChecked refuses the reservation when the available balance does
// not cover amount. In the default mode the check is advisory: two
// concurrent calls can both pass it and over-reserve.
func (s *ReservationService) ReserveChecked(ctx context.Context, clientID, shipmentRef string, amount decimal.Decimal) (models.CreditTransaction, error) {
	t, err := s.build(ctx, clientID, shipmentRef, amount)
	if err != nil {
		metrics.ReservationsTotal.WithLabelValues("rejected").Inc()
		return models.CreditTransaction{}, err
	}
	if s.strict {
		return s.insert(ctx, t, s.trx.InsertIfAvailable)
	}
	b, err := s.bal.compute(ctx, clientID)
	if err != nil {
		return models.CreditTransaction{}, err
	}
	if b.Available.LessThan(amount) {
		metrics.ReservationsTotal.WithLabelValues("insufficient").Inc()
		return models.CreditTransaction{}, ErrInsufficientBalance
	}
	return s.insert(ctx, t, s.bal.Record)
}

type insertFunc func(context.Context, models.CreditTransaction) (models.CreditTransaction, error)

func (s *ReservationService) insert(ctx context.Context, t models.CreditTransaction, ins insertFunc) (models.CreditTransaction, error) {
	out, err := ins(ctx, t)
	switch {
	case errors.Is(err, repo.ErrConflict):
		metrics.ReservationsTotal.WithLabelValues("duplicated").Inc()
		return models.CreditTransaction{}, fmt.Errorf("%w: %s", ErrDuplicateReservation, *t.ShipmentRef)
	case errors.Is(err, repo.ErrInsufficientFunds):
		metrics.ReservationsTotal.WithLabelValues("insufficient").Inc()
		return models.CreditTransaction{}, ErrInsufficientBalance
	case err != nil:
		return models.CreditTransaction{}, err
	}
	metrics.ReservationsTotal.WithLabelValues("created").Inc()
	s.audit.record(ctx, out, models.AuditReserved, "api", map[string]any{"blockedUntil": out.BlockedUntil})
	s.log.Info("credit reserved", "transaction_id", out.ID, "client_id", out.ClientID,
		"shipment_ref", *out.ShipmentRef, "amount", out.Amount.String(), "blocked_until", out.BlockedUntil)
	return out, nil
}
