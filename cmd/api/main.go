package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fretehub/credit-ledger/internal/api"
	"github.com/fretehub/credit-ledger/internal/app"
	"github.com/fretehub/credit-ledger/internal/config"
	"github.com/fretehub/credit-ledger/internal/logger"
	"github.com/fretehub/credit-ledger/internal/metrics"
	"github.com/fretehub/credit-ledger/internal/scheduler"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	metrics.Init()

	// jobs finish their snapshot even after a shutdown signal
	sched := scheduler.New(context.WithoutCancel(ctx), log)
	if cfg.ScheduleSettlement() {
		if err := sched.AddSweep(cfg.SweepCron, a.Sweep); err != nil {
			log.Error("sweep schedule", "spec", cfg.SweepCron, "err", err)
			os.Exit(1)
		}
		if err := sched.AddBackfill(cfg.BackfillCron, a.Backfill); err != nil {
			log.Error("backfill schedule", "spec", cfg.BackfillCron, "err", err)
			os.Exit(1)
		}
		sched.Start()
	}

	r := api.NewRouter(api.RouterDeps{
		Cfg:          cfg,
		Log:          log,
		Tokens:       a.Tokens,
		Balance:      a.Balance,
		Recharge:     a.Recharge,
		Reservations: a.Reservations,
		Webhook:      a.Webhook,
		Sweep:        a.Sweep,
		Backfill:     a.Backfill,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if cfg.ScheduleSettlement() {
		sched.Stop()
	}
}
