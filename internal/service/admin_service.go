package service

import (
	"context"
	"fmt"
	"time"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/arcfin/loanledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AdminService backs the back-office surface: destructive facility resets
// and manual position adjustments. Both are operator actions that bypass
// the normal ledger flow, so every adjustment demands a reason and lands in
// the audit history.
type AdminService struct {
	db           *sqlx.DB
	facilityRepo *repository.FacilityRepository
	positionRepo *repository.PositionRepository
	loanRepo     *repository.LoanRepository
	tradeRepo    *repository.TradeRepository
	historyRepo  *repository.HistoryRepository
}

// NewAdminService creates an AdminService.
func NewAdminService(
	db *sqlx.DB,
	facilityRepo *repository.FacilityRepository,
	positionRepo *repository.PositionRepository,
	loanRepo *repository.LoanRepository,
	tradeRepo *repository.TradeRepository,
	historyRepo *repository.HistoryRepository,
) *AdminService {
	return &AdminService{
		db:           db,
		facilityRepo: facilityRepo,
		positionRepo: positionRepo,
		loanRepo:     loanRepo,
		tradeRepo:    tradeRepo,
		historyRepo:  historyRepo,
	}
}

// ResetFacility deletes a facility and everything hanging off it: trades,
// history, loans and positions, in dependency order, atomically. This is
// the only delete path in the system.
func (s *AdminService) ResetFacility(ctx context.Context, facilityID uuid.UUID) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("admin_service.ResetFacility: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Lock the row first so in-flight mutations drain before the purge.
	if _, err = s.facilityRepo.GetByIDForUpdate(ctx, tx, facilityID); err != nil {
		return fmt.Errorf("admin_service.ResetFacility: get facility: %w", err)
	}

	if err = s.tradeRepo.DeleteByFacility(ctx, tx, facilityID); err != nil {
		return fmt.Errorf("admin_service.ResetFacility: delete trades: %w", err)
	}
	if err = s.historyRepo.PurgeFacility(ctx, tx, facilityID); err != nil {
		return fmt.Errorf("admin_service.ResetFacility: purge history: %w", err)
	}
	if err = s.loanRepo.DeleteByFacility(ctx, tx, facilityID); err != nil {
		return fmt.Errorf("admin_service.ResetFacility: delete loans: %w", err)
	}
	if err = s.positionRepo.DeleteByFacility(ctx, tx, facilityID); err != nil {
		return fmt.Errorf("admin_service.ResetFacility: delete positions: %w", err)
	}
	if err = s.facilityRepo.Delete(ctx, tx, facilityID); err != nil {
		return fmt.Errorf("admin_service.ResetFacility: delete facility: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("admin_service.ResetFacility: commit: %w", err)
	}
	return nil
}

// AdjustPosition applies a signed delta to a position's commitment (and
// undrawn capacity) outside the normal flow, re-validating the facility
// invariants before committing. The reason is mandatory and recorded.
func (s *AdminService) AdjustPosition(ctx context.Context, positionID uuid.UUID, req domain.AdjustPositionRequest) (_ *domain.Position, err error) {
	if req.Reason == "" {
		return nil, domain.Validationf("adjustment reason is required")
	}
	if req.Delta.IsZero() {
		return nil, domain.Validationf("adjustment delta must be non-zero")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("admin_service.AdjustPosition: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	p, err := s.positionRepo.GetByIDTx(ctx, tx, positionID)
	if err != nil {
		return nil, fmt.Errorf("admin_service.AdjustPosition: get position: %w", err)
	}
	facility, err := s.facilityRepo.GetByIDForUpdate(ctx, tx, p.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("admin_service.AdjustPosition: get facility: %w", err)
	}
	// Re-read under the facility lock.
	if p, err = s.positionRepo.GetByIDTx(ctx, tx, positionID); err != nil {
		return nil, fmt.Errorf("admin_service.AdjustPosition: get position: %w", err)
	}

	newAmount := p.CommitmentAmount.Add(req.Delta)
	if !newAmount.IsPositive() {
		return nil, domain.Validationf("adjusted position amount must be positive")
	}
	if newAmount.LessThan(p.DrawnAmount) {
		return nil, domain.Validationf("position amount cannot be reduced below its drawn amount")
	}

	otherAmounts, otherShares, err := s.positionRepo.SumSiblings(ctx, tx, facility.ID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("admin_service.AdjustPosition: sum siblings: %w", err)
	}
	outstanding, err := s.loanRepo.SumOutstanding(ctx, tx, facility.ID)
	if err != nil {
		return nil, fmt.Errorf("admin_service.AdjustPosition: sum outstanding: %w", err)
	}
	if err = domain.ValidatePositionChange(facility, otherAmounts, otherShares, outstanding, newAmount, p.Share); err != nil {
		return nil, err
	}

	prev := p.CommitmentAmount
	p.CommitmentAmount = newAmount
	p.UndrawnAmount = newAmount.Sub(p.DrawnAmount)
	if err = s.positionRepo.UpdateAmounts(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("admin_service.AdjustPosition: update position: %w", err)
	}

	now := time.Now().UTC()
	h := &domain.FacilityPositionHistory{
		ID:             uuid.New(),
		FacilityID:     facility.ID,
		PositionID:     p.ID,
		LenderID:       p.LenderID,
		ActivityType:   domain.ActivityAdjustment,
		PreviousAmount: prev,
		NewAmount:      newAmount,
		ChangeAmount:   req.Delta,
		ActorID:        req.ActorID,
		CreatedAt:      now,
	}
	if err = s.historyRepo.AppendPositionHistory(ctx, tx, h); err != nil {
		return nil, fmt.Errorf("admin_service.AdjustPosition: history: %w", err)
	}
	th := &domain.TransactionHistory{
		ID:           uuid.New(),
		FacilityID:   facility.ID,
		ActivityType: domain.ActivityAdjustment,
		Amount:       req.Delta,
		Description:  fmt.Sprintf("Manual adjustment: %s", req.Reason),
		ActorID:      req.ActorID,
		CreatedAt:    now,
	}
	if err = s.historyRepo.AppendTransaction(ctx, tx, th); err != nil {
		return nil, fmt.Errorf("admin_service.AdjustPosition: transaction history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("admin_service.AdjustPosition: commit: %w", err)
	}
	return p, nil
}
