// Package scheduler triggers the settlement jobs on cron expressions.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/fretehub/credit-ledger/internal/services"
	"github.com/robfig/cron/v3"
)

type Sweeper interface {
	Run(ctx context.Context) (services.SweepReport, error)
}

type Backfiller interface {
	Run(ctx context.Context, dryRun bool) (services.BackfillReport, error)
}

// Scheduler never overlaps two runs of the same job: a trigger that fires
// while the previous run is still going is skipped.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  *slog.Logger
	// skip reports triggers dropped because the previous run is still going.
	skip cron.Logger
}

func New(ctx context.Context, log *slog.Logger) *Scheduler {
	panics := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelError))
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(panics))),
		ctx:  ctx,
		log:  log,
		skip: cron.VerbosePrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelWarn)),
	}
}

func (s *Scheduler) AddSweep(spec string, job Sweeper) error {
	_, err := s.cron.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(s.skip)).Then(cron.FuncJob(func() {
		if _, err := job.Run(s.ctx); err != nil {
			s.log.Error("scheduled sweep failed", "err", err)
		}
	})))
	if err == nil {
		s.log.Info("sweep scheduled", "spec", spec)
	}
	return err
}

func (s *Scheduler) AddBackfill(spec string, job Backfiller) error {
	_, err := s.cron.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(s.skip)).Then(cron.FuncJob(func() {
		if _, err := job.Run(s.ctx, false); err != nil {
			s.log.Error("scheduled backfill failed", "err", err)
		}
	})))
	if err == nil {
		s.log.Info("backfill scheduled", "spec", spec)
	}
	return err
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running ones to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
