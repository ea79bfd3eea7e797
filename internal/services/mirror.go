package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/fretehub/credit-ledger/internal/metrics"
	repo "github.com/fretehub/credit-ledger/internal/repository"
)

const mirrorTimeout = 15 * time.Second

// BalanceSyncer mirrors available balances into the shipment-issuance
// system. The local ledger stays authoritative: every failure is logged and
// swallowed.
type BalanceSyncer struct {
	mirror  BalanceMirror
	clients repo.Clients
	bal     *BalanceService
	bg      Submitter
	log     *slog.Logger
}

// NewBalanceSyncer accepts a nil mirror, in which case syncing is disabled.
func NewBalanceSyncer(m BalanceMirror, c repo.Clients, b *BalanceService, bg Submitter, log *slog.Logger) *BalanceSyncer {
	return &BalanceSyncer{mirror: m, clients: c, bal: b, bg: bg, log: log}
}

// Sync pushes clientID's current available balance and reports whether it
// was delivered.
func (s *BalanceSyncer) Sync(ctx context.Context, clientID string) bool {
	if s == nil || s.mirror == nil {
		return false
	}
	c, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		s.log.Warn("mirror: client lookup failed", "client_id", clientID, "err", err)
		return false
	}
	if c.ExternalAccountID == nil || *c.ExternalAccountID == "" {
		return false
	}
	b, err := s.bal.compute(ctx, clientID)
	if err != nil {
		s.log.Warn("mirror: balance failed", "client_id", clientID, "err", err)
		return false
	}
	if err := s.mirror.SyncBalance(ctx, *c.ExternalAccountID, b.Available); err != nil {
		metrics.ExternalCallFailures.WithLabelValues("sync_balance").Inc()
		s.log.Warn("mirror: sync failed", "client_id", clientID, "account", *c.ExternalAccountID, "err", err)
		return false
	}
	s.log.Debug("mirror: balance synced", "client_id", clientID, "available", b.Available.String())
	return true
}

// SyncAsync schedules Sync on the background pool, detached from the
// caller's request context.
func (s *BalanceSyncer) SyncAsync(clientID string) {
	if s == nil || s.mirror == nil {
		return
	}
	task := func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		s.Sync(ctx, clientID)
	}
	if s.bg == nil || !s.bg.Submit(task) {
		s.log.Warn("mirror: not scheduled", "client_id", clientID)
	}
}
