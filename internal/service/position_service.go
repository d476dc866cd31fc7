package service

import (
	"context"
	"fmt"
	"time"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/arcfin/loanledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// PositionService handles lender position creation and amendment. Every
// check reads the facility's sibling positions and active loans inside the
// same transaction as the write, under the facility row lock, so two
// concurrent position changes on one facility cannot both pass the ceiling
// checks against a stale snapshot.
type PositionService struct {
	db           *sqlx.DB
	facilityRepo *repository.FacilityRepository
	positionRepo *repository.PositionRepository
	loanRepo     *repository.LoanRepository
	historyRepo  *repository.HistoryRepository
}

// NewPositionService creates a PositionService.
func NewPositionService(
	db *sqlx.DB,
	facilityRepo *repository.FacilityRepository,
	positionRepo *repository.PositionRepository,
	loanRepo *repository.LoanRepository,
	historyRepo *repository.HistoryRepository,
) *PositionService {
	return &PositionService{
		db:           db,
		facilityRepo: facilityRepo,
		positionRepo: positionRepo,
		loanRepo:     loanRepo,
		historyRepo:  historyRepo,
	}
}

// CreatePosition adds a lender to a facility, subject to the amount ceiling,
// the 100% share ceiling and pro-rata coverage of outstanding loans.
func (s *PositionService) CreatePosition(ctx context.Context, req domain.CreatePositionRequest) (_ *domain.Position, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("position_service.CreatePosition: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	facility, err := s.facilityRepo.GetByIDForUpdate(ctx, tx, req.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("position_service.CreatePosition: get facility: %w", err)
	}
	if !facility.IsActive() {
		return nil, domain.Validationf("facility is not active")
	}
	if _, err = s.positionRepo.GetByFacilityAndLender(ctx, tx, req.FacilityID, req.LenderID); err == nil {
		return nil, domain.Validationf("lender already holds a position in this facility")
	} else if !domain.IsNotFound(err) {
		return nil, fmt.Errorf("position_service.CreatePosition: lookup lender: %w", err)
	}

	amountSum, shareSum, err := s.positionRepo.SumSiblings(ctx, tx, req.FacilityID, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("position_service.CreatePosition: sum siblings: %w", err)
	}
	outstanding, err := s.loanRepo.SumOutstanding(ctx, tx, req.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("position_service.CreatePosition: sum outstanding: %w", err)
	}
	if err = domain.ValidatePositionChange(facility, amountSum, shareSum, outstanding, req.Amount, req.Share); err != nil {
		return nil, err
	}

	// The joiner starts fully undrawn, exactly like a facility's initial
	// position: existing loans stay funded by the incumbent positions, so
	// the book's total drawn amount keeps matching the loans outstanding.
	now := time.Now().UTC()
	p := domain.JoinPosition(req.FacilityID, req.LenderID, req.Amount, req.Share, now)
	if err = s.positionRepo.Create(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("position_service.CreatePosition: create: %w", err)
	}

	h := &domain.FacilityPositionHistory{
		ID:             uuid.New(),
		FacilityID:     req.FacilityID,
		PositionID:     p.ID,
		LenderID:       p.LenderID,
		ActivityType:   domain.ActivityPositionCreated,
		PreviousAmount: decimal.Zero,
		NewAmount:      p.CommitmentAmount,
		ChangeAmount:   p.CommitmentAmount,
		ActorID:        req.ActorID,
		CreatedAt:      now,
	}
	if err = s.historyRepo.AppendPositionHistory(ctx, tx, h); err != nil {
		return nil, fmt.Errorf("position_service.CreatePosition: history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("position_service.CreatePosition: commit: %w", err)
	}
	return p, nil
}

// UpdatePosition changes a position's amount, share or status. The checks
// run in a fixed order: sibling amount ceiling, share ceiling, pro-rata
// coverage, then status legality (COMPLETED is one-way).
func (s *PositionService) UpdatePosition(ctx context.Context, id uuid.UUID, req domain.UpdatePositionRequest) (_ *domain.Position, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("position_service.UpdatePosition: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	p, err := s.positionRepo.GetByIDTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("position_service.UpdatePosition: get position: %w", err)
	}
	facility, err := s.facilityRepo.GetByIDForUpdate(ctx, tx, p.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("position_service.UpdatePosition: get facility: %w", err)
	}
	// Re-read under the facility lock: the row may have moved between the
	// unlocked read and lock acquisition.
	if p, err = s.positionRepo.GetByIDTx(ctx, tx, id); err != nil {
		return nil, fmt.Errorf("position_service.UpdatePosition: reread position: %w", err)
	}

	previousAmount := p.CommitmentAmount
	newAmount := p.CommitmentAmount
	newShare := p.Share
	if req.Amount != nil {
		newAmount = *req.Amount
	}
	if req.Share != nil {
		newShare = *req.Share
	}

	amountSum, shareSum, err := s.positionRepo.SumSiblings(ctx, tx, p.FacilityID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("position_service.UpdatePosition: sum siblings: %w", err)
	}
	outstanding, err := s.loanRepo.SumOutstanding(ctx, tx, p.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("position_service.UpdatePosition: sum outstanding: %w", err)
	}
	if err = domain.ValidatePositionChange(facility, amountSum, shareSum, outstanding, newAmount, newShare); err != nil {
		return nil, err
	}

	if req.Status != nil && *req.Status != p.Status {
		if !p.Status.CanTransitionTo(*req.Status) {
			return nil, &domain.StateTransitionError{
				Entity: "position", From: string(p.Status), To: string(*req.Status),
			}
		}
		p.Status = *req.Status
	}

	p.CommitmentAmount = newAmount
	p.Share = newShare
	if p.DrawnAmount.GreaterThan(p.CommitmentAmount) {
		return nil, domain.Validationf("position amount cannot be reduced below its drawn amount")
	}
	p.UndrawnAmount = p.CommitmentAmount.Sub(p.DrawnAmount)

	if err = s.positionRepo.UpdateAmounts(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("position_service.UpdatePosition: update: %w", err)
	}

	if !previousAmount.Equal(p.CommitmentAmount) {
		h := &domain.FacilityPositionHistory{
			ID:             uuid.New(),
			FacilityID:     p.FacilityID,
			PositionID:     p.ID,
			LenderID:       p.LenderID,
			ActivityType:   domain.ActivityAdjustment,
			PreviousAmount: previousAmount,
			NewAmount:      p.CommitmentAmount,
			ChangeAmount:   p.CommitmentAmount.Sub(previousAmount),
			ActorID:        req.ActorID,
			CreatedAt:      time.Now().UTC(),
		}
		if err = s.historyRepo.AppendPositionHistory(ctx, tx, h); err != nil {
			return nil, fmt.Errorf("position_service.UpdatePosition: history: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("position_service.UpdatePosition: commit: %w", err)
	}
	return p, nil
}

// GetPosition returns a position by ID.
func (s *PositionService) GetPosition(ctx context.Context, id uuid.UUID) (*domain.Position, error) {
	return s.positionRepo.GetByID(ctx, id)
}

// ListPositions returns all positions of a facility.
func (s *PositionService) ListPositions(ctx context.Context, facilityID uuid.UUID) ([]*domain.Position, error) {
	ps, err := s.positionRepo.ListByFacility(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("position_service.ListPositions: %w", err)
	}
	return ps, nil
}
