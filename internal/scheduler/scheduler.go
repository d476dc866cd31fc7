// Package scheduler runs the ledger's single background job: the settlement
// sweep that settles confirmed trades once their settlement date arrives.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/arcfin/loanledger/internal/config"
	"github.com/arcfin/loanledger/internal/service"
)

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// sweepInterval is how often due trades are checked. Settlement dates have
// day granularity, so a minute is more than fine.
const sweepInterval = time.Minute

// Scheduler runs the trade settlement sweep. Call Start(ctx) once from
// main(); cancel the context to shut it down gracefully.
type Scheduler struct {
	tradeSvc *service.TradeService
	cfg      *config.Config
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(tradeSvc *service.TradeService, cfg *config.Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		tradeSvc: tradeSvc,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start launches the settlement loop. It returns immediately; the loop runs
// until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.settlementLoop(ctx)
	s.logger.Info("scheduler started")
}

// ──────────────────────────────────────────────────────────────────────────────
// Settlement sweep
// ──────────────────────────────────────────────────────────────────────────────

// settlementLoop sweeps for due trades on a fixed interval. Each trade
// settles in its own transaction, so one bad trade never wedges the loop.
func (s *Scheduler) settlementLoop(ctx context.Context) {
	defer s.recoverAndLog("settlementLoop")

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settlementLoop: shutting down")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one pass of the settlement sweep.
func (s *Scheduler) sweep(ctx context.Context) {
	settled, err := s.tradeSvc.SettleDueTrades(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("settlementLoop: sweep failed", "settled", settled, "err", err)
		return
	}
	if settled > 0 {
		s.logger.Info("settlement sweep complete", "settled", settled)
	}
}

// recoverAndLog is deferred inside the goroutine to catch unexpected panics,
// log them, and let the server keep running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
