// Package main is the entry point for the syndicated facility ledger API
// server. It wires repositories and services together, applies migrations
// and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/arcfin/loanledger/internal/api"
	"github.com/arcfin/loanledger/internal/config"
	"github.com/arcfin/loanledger/internal/repository"
	"github.com/arcfin/loanledger/internal/scheduler"
	"github.com/arcfin/loanledger/internal/service"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting loanledger server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Database ───────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── 3. Migrations ─────────────────────────────────────────────────────────
	if err = runMigrations(db, "migrations"); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Repositories ───────────────────────────────────────────────────────
	agreementRepo := repository.NewAgreementRepository(db)
	facilityRepo := repository.NewFacilityRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	// ── 5. Services ───────────────────────────────────────────────────────────
	// Without a directory URL the stub verifier answers KYC checks (dev only);
	// config validation requires the URL in production.
	var verifier service.Verifier
	if cfg.Directory.BaseURL != "" {
		verifier = service.NewKYCService(cfg)
	} else {
		verifier = service.NewStubVerifier()
		logger.Warn("no DIRECTORY_BASE_URL configured, using stub KYC verifier")
	}

	facilitySvc := service.NewFacilityService(db, agreementRepo, facilityRepo, positionRepo, loanRepo, historyRepo)
	positionSvc := service.NewPositionService(db, facilityRepo, positionRepo, loanRepo, historyRepo)
	loanSvc := service.NewLoanService(db, facilityRepo, loanRepo, positionRepo, historyRepo)
	paydownSvc := service.NewPaydownService(db, facilityRepo, loanRepo, positionRepo, historyRepo)
	tradeSvc := service.NewTradeService(db, verifier, facilityRepo, positionRepo, tradeRepo, historyRepo)
	historySvc := service.NewHistoryService(cfg, historyRepo)

	// ── 6. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 7. Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(tradeSvc, cfg, logger)
	sched.Start(ctx)

	// ── 8. HTTP Router ────────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		FacilitySvc: facilitySvc,
		PositionSvc: positionSvc,
		LoanSvc:     loanSvc,
		PaydownSvc:  paydownSvc,
		TradeSvc:    tradeSvc,
		HistorySvc:  historySvc,
		Cfg:         cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 9. Start server ───────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 10. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	db.Close()
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially.  Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
