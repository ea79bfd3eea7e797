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
	"github.com/shopspring/decimal"
)

var errNoShipmentRef = errors.New("consumed entry has no shipment reference")

// BackfillService reverses consumptions that were settled while the
// shipment was still pre-posted.
type BackfillService struct {
	trx    repo.CreditTransactions
	status StatusSource
	sync   *BalanceSyncer
	audit  auditor
	clock  Clock
	log    *slog.Logger
}

func NewBackfillService(t repo.CreditTransactions, st StatusSource, sync *BalanceSyncer, a repo.AuditLogs, clock Clock, log *slog.Logger) *BackfillService {
	return &BackfillService{trx: t, status: st, sync: sync, audit: auditor{logs: a, log: log}, clock: clock, log: log}
}

// Run re-checks every consumed entry whose hold window has elapsed and
// deletes the ones whose shipment is still pre-posted. With dryRun nothing
// is written. Per-item errors are collected in the report.
func (s *BackfillService) Run(ctx context.Context, dryRun bool) (BackfillReport, error) {
	rep := BackfillReport{StartedAt: s.clock.now(), DryRun: dryRun, RefundedAmount: decimal.Zero}
	// wall time, independent of the injected clock
	began := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues("backfill").Observe(time.Since(began).Seconds())
	}()

	candidates, err := s.trx.ListConsumedPastHold(ctx, rep.StartedAt)
	if err != nil {
		return rep, fmt.Errorf("backfill: list consumed: %w", err)
	}
	s.log.Info("backfill started", "candidates", len(candidates), "dry_run", dryRun)

	affected := map[string]struct{}{}
	for _, t := range candidates {
		rep.Analyzed++
		corrected, err := s.check(ctx, t, dryRun)
		switch {
		case err != nil:
			rep.Failed++
			rep.Errors = append(rep.Errors, itemError(t.ID, t.ShipmentRef, err))
			metrics.BackfillItemsTotal.WithLabelValues("failed").Inc()
			s.log.Warn("backfill item failed", "transaction_id", t.ID, "err", err)
		case corrected:
			rep.Corrected++
			rep.RefundedAmount = rep.RefundedAmount.Add(t.Amount)
			affected[t.ClientID] = struct{}{}
			metrics.BackfillItemsTotal.WithLabelValues("corrected").Inc()
		default:
			rep.Kept++
			metrics.BackfillItemsTotal.WithLabelValues("kept").Inc()
		}
	}

	if !dryRun {
		for clientID := range affected {
			s.sync.Sync(ctx, clientID)
		}
	}

	rep.FinishedAt = s.clock.now()
	s.log.Info("backfill finished",
		"analyzed", rep.Analyzed, "corrected", rep.Corrected, "kept", rep.Kept,
		"failed", rep.Failed, "refunded", rep.RefundedAmount.String(), "dry_run", dryRun)
	return rep, nil
}

func (s *BackfillService) check(ctx context.Context, t models.CreditTransaction, dryRun bool) (bool, error) {
	if t.ShipmentRef == nil || *t.ShipmentRef == "" {
		return false, errNoShipmentRef
	}
	st, err := s.status.Status(ctx, *t.ShipmentRef)
	if err != nil {
		metrics.ExternalCallFailures.WithLabelValues("status").Inc()
		return false, err
	}
	if !st.IsPrePosted() {
		return false, nil
	}
	if dryRun {
		return true, nil
	}
	ok, err := s.trx.DeleteConsumed(ctx, t.ID)
	if err != nil {
		return false, err
	}
	if !ok {
		// already removed by a concurrent run
		return false, nil
	}
	s.audit.record(ctx, t, models.AuditCorrected, "backfill", map[string]any{"status": st.String()})
	s.log.Info("consumption reversed", "transaction_id", t.ID, "client_id", t.ClientID, "amount", t.Amount.String())
	return true, nil
}
