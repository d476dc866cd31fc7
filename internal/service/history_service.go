package service

import (
	"context"
	"fmt"

	"github.com/arcfin/loanledger/internal/config"
	"github.com/arcfin/loanledger/internal/domain"
	"github.com/arcfin/loanledger/internal/repository"
	"github.com/google/uuid"
)

// HistoryService serves the read-only audit queries, newest first, with
// page sizes clamped to the configured ceiling.
type HistoryService struct {
	cfg         *config.LedgerConfig
	historyRepo *repository.HistoryRepository
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(cfg *config.Config, historyRepo *repository.HistoryRepository) *HistoryService {
	return &HistoryService{cfg: &cfg.Ledger, historyRepo: historyRepo}
}

// clamp normalizes limit/offset: zero limit takes the configured default,
// anything above the ceiling is cut down to it.
func (s *HistoryService) clamp(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.HistoryPageSize
	}
	if limit > s.cfg.MaxHistoryPageSize {
		limit = s.cfg.MaxHistoryPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// PositionHistory returns a facility's position snapshots, newest first.
func (s *HistoryService) PositionHistory(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*domain.FacilityPositionHistory, error) {
	limit, offset = s.clamp(limit, offset)
	hs, err := s.historyRepo.ListPositionHistory(ctx, facilityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("history_service.PositionHistory: %w", err)
	}
	return hs, nil
}

// Transactions returns a facility's transaction records, newest first.
func (s *HistoryService) Transactions(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*domain.TransactionHistory, error) {
	limit, offset = s.clamp(limit, offset)
	ths, err := s.historyRepo.ListTransactions(ctx, facilityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("history_service.Transactions: %w", err)
	}
	return ths, nil
}
