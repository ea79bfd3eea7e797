// Package app wires the ledger services from configuration. Both the HTTP
// server and the operator CLI build their dependencies here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fretehub/credit-ledger/internal/auth"
	"github.com/fretehub/credit-ledger/internal/config"
	"github.com/fretehub/credit-ledger/internal/db"
	"github.com/fretehub/credit-ledger/internal/repository/postgres"
	"github.com/fretehub/credit-ledger/internal/services"
	"github.com/fretehub/credit-ledger/internal/shipment"
	"github.com/fretehub/credit-ledger/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	Cfg    config.Config
	Log    *slog.Logger
	Pool   *pgxpool.Pool
	Repos  postgres.Repositories
	Tokens *auth.TokenManager
	Worker *worker.Pool

	Balance      *services.BalanceService
	Recharge     *services.RechargeService
	Reservations *services.ReservationService
	Webhook      *services.WebhookService
	Sweep        *services.SweepService
	Backfill     *services.BackfillService
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	a := &App{
		Cfg:    cfg,
		Log:    log,
		Pool:   pool,
		Repos:  postgres.NewRepositories(pool),
		Tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer),
		Worker: worker.NewPool(cfg.Workers, 1024, log),
	}

	var (
		status services.StatusSource
		mirror services.BalanceMirror
	)
	if cfg.SettlementConfigured() {
		c := shipment.NewClient(shipment.Config{
			BaseURL: cfg.ShipmentAPIURL,
			Token:   cfg.ShipmentAPIToken,
			Pacing:  cfg.ShipmentPacing,
			Timeout: 10 * time.Second,
		})
		status, mirror = c, c
	} else {
		log.Warn("SHIPMENT_API_URL not set: sweep and backfill are not scheduled, blocked holds stay blocked and the balance mirror is off")
		status = unavailableStatus{}
	}

	clock := services.Clock(time.Now)
	r := a.Repos
	a.Balance = services.NewBalanceService(r.Transactions, r.Clients)
	syncer := services.NewBalanceSyncer(mirror, r.Clients, a.Balance, a.Worker, log)
	a.Recharge = services.NewRechargeService(r.Transactions, a.Balance, syncer, r.AuditLogs, log)
	a.Reservations = services.NewReservationService(r.Transactions, a.Balance, r.AuditLogs, clock, cfg.ReservationStrict, log)
	a.Webhook = services.NewWebhookService(r.Invoices, a.Recharge, clock, log)
	a.Sweep = services.NewSweepService(r.Transactions, status, syncer, r.AuditLogs, clock, log)
	a.Backfill = services.NewBackfillService(r.Transactions, status, syncer, r.AuditLogs, clock, log)

	if cfg.ReservationStrict {
		log.Info("strict reservations enabled: balance check and hold share one serializable transaction")
	}
	return a, nil
}

// Close drains background work and releases the database pool.
func (a *App) Close() {
	a.Worker.Stop()
	a.Pool.Close()
}

type unavailableStatus struct{}

func (unavailableStatus) Status(context.Context, string) (shipment.Status, error) {
	return shipment.Status{}, fmt.Errorf("shipment API not configured")
}
