package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fretehub/credit-ledger/internal/metrics"
	"github.com/fretehub/credit-ledger/internal/models"
	repo "github.com/fretehub/credit-ledger/internal/repository"
	"github.com/fretehub/credit-ledger/internal/shipment"
)

type sweepOutcome int

const (
	outcomePending sweepOutcome = iota
	outcomeConsumed
	outcomeReleased
	outcomeSkipped
)

// SweepService settles blocked reservations against the shipment system.
type SweepService struct {
	trx    repo.CreditTransactions
	status StatusSource
	sync   *BalanceSyncer
	audit  auditor
	clock  Clock
	log    *slog.Logger
}

func NewSweepService(t repo.CreditTransactions, st StatusSource, sync *BalanceSyncer, a repo.AuditLogs, clock Clock, log *slog.Logger) *SweepService {
	return &SweepService{trx: t, status: st, sync: sync, audit: auditor{logs: a, log: log}, clock: clock, log: log}
}

// Run evaluates every transaction that is blocked at the start of the run.
// A failing item is reported and stays blocked for the next run; only a
// failure to load the snapshot is returned as an error.
func (s *SweepService) Run(ctx context.Context) (SweepReport, error) {
	rep := SweepReport{StartedAt: s.clock.now()}
	// wall time, independent of the injected clock
	began := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues("sweep").Observe(time.Since(began).Seconds())
	}()

	blocked, err := s.trx.ListBlocked(ctx)
	if err != nil {
		return rep, fmt.Errorf("sweep: list blocked: %w", err)
	}
	s.log.Info("sweep started", "blocked", len(blocked))

	affected := map[string]struct{}{}
	for _, t := range blocked {
		rep.Analyzed++
		out, err := s.settle(ctx, t)
		if err != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, itemError(t.ID, t.ShipmentRef, err))
			metrics.SweepItemsTotal.WithLabelValues("failed").Inc()
			s.log.Warn("sweep item failed", "transaction_id", t.ID, "err", err)
			continue
		}
		switch out {
		case outcomeConsumed:
			rep.Consumed++
			affected[t.ClientID] = struct{}{}
			metrics.SweepItemsTotal.WithLabelValues("consumed").Inc()
		case outcomeReleased:
			rep.Released++
			affected[t.ClientID] = struct{}{}
			metrics.SweepItemsTotal.WithLabelValues("released").Inc()
		case outcomeSkipped:
			rep.Skipped++
			metrics.SweepItemsTotal.WithLabelValues("skipped").Inc()
		default:
			rep.Pending++
			metrics.SweepItemsTotal.WithLabelValues("pending").Inc()
		}
	}

	for clientID := range affected {
		s.sync.Sync(ctx, clientID)
	}

	rep.FinishedAt = s.clock.now()
	s.log.Info("sweep finished",
		"analyzed", rep.Analyzed, "consumed", rep.Consumed, "released", rep.Released,
		"pending", rep.Pending, "skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}

func (s *SweepService) settle(ctx context.Context, t models.CreditTransaction) (sweepOutcome, error) {
	now := s.clock.now()

	dispatched := false
	if t.ShipmentRef != nil && *t.ShipmentRef != "" {
		st, err := s.status.Status(ctx, *t.ShipmentRef)
		switch {
		case errors.Is(err, shipment.ErrUnknownShipment):
			// never reached the carrier; only the hold window can resolve it
		case err != nil:
			metrics.ExternalCallFailures.WithLabelValues("status").Inc()
			return outcomePending, err
		default:
			dispatched = st.IsDispatched()
		}
	}

	if dispatched {
		ok, err := s.trx.MarkConsumed(ctx, t.ID)
		if err != nil {
			return outcomePending, err
		}
		if !ok {
			return outcomeSkipped, nil
		}
		s.audit.record(ctx, t, models.AuditConsumed, "sweep", nil)
		s.log.Info("reservation consumed", "transaction_id", t.ID, "client_id", t.ClientID)
		return outcomeConsumed, nil
	}

	if !t.HoldExpired(now) {
		return outcomePending, nil
	}
	ok, err := s.trx.DeleteBlocked(ctx, t.ID)
	if err != nil {
		return outcomePending, err
	}
	if !ok {
		return outcomeSkipped, nil
	}
	s.audit.record(ctx, t, models.AuditReleased, "sweep", map[string]any{"blockedUntil": t.BlockedUntil})
	s.log.Info("reservation released", "transaction_id", t.ID, "client_id", t.ClientID)
	return outcomeReleased, nil
}
