// Package service holds the transactional ledger operations. Every
// mutating operation runs as one read-validate-write sequence on a single
// PostgreSQL transaction: the facility (or agreement) row is locked first,
// sibling rows are read inside the transaction, the pure domain checks run
// against those reads, and the mutation set plus its history rows commit
// together or not at all.
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

// FacilityService handles credit agreement and facility lifecycle: creation
// and amendments under the agreement/facility commitment ceilings.
type FacilityService struct {
	db            *sqlx.DB
	agreementRepo *repository.AgreementRepository
	facilityRepo  *repository.FacilityRepository
	positionRepo  *repository.PositionRepository
	loanRepo      *repository.LoanRepository
	historyRepo   *repository.HistoryRepository
}

// NewFacilityService creates a FacilityService.
func NewFacilityService(
	db *sqlx.DB,
	agreementRepo *repository.AgreementRepository,
	facilityRepo *repository.FacilityRepository,
	positionRepo *repository.PositionRepository,
	loanRepo *repository.LoanRepository,
	historyRepo *repository.HistoryRepository,
) *FacilityService {
	return &FacilityService{
		db:            db,
		agreementRepo: agreementRepo,
		facilityRepo:  facilityRepo,
		positionRepo:  positionRepo,
		loanRepo:      loanRepo,
		historyRepo:   historyRepo,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Credit agreements
// ──────────────────────────────────────────────────────────────────────────────

// CreateAgreement validates and inserts a new credit agreement.
func (s *FacilityService) CreateAgreement(ctx context.Context, req domain.CreateAgreementRequest) (*domain.CreditAgreement, error) {
	now := time.Now().UTC()
	a := &domain.CreditAgreement{
		ID:           uuid.New(),
		BorrowerID:   req.BorrowerID,
		LenderID:     req.LenderID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		StartDate:    req.StartDate,
		MaturityDate: req.MaturityDate,
		InterestRate: req.InterestRate,
		Status:       domain.AgreementActive,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.agreementRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("facility_service.CreateAgreement: %w", err)
	}
	return a, nil
}

// GetAgreement returns an agreement by ID.
func (s *FacilityService) GetAgreement(ctx context.Context, id uuid.UUID) (*domain.CreditAgreement, error) {
	return s.agreementRepo.GetByID(ctx, id)
}

// AmendAgreement changes an agreement's amount, currency or maturity.
// Currency is frozen once any facility references the agreement, and the
// amount can never drop below the sum of facility commitments.
func (s *FacilityService) AmendAgreement(ctx context.Context, id uuid.UUID, req domain.AmendAgreementRequest) (_ *domain.CreditAgreement, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("facility_service.AmendAgreement: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	a, err := s.agreementRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("facility_service.AmendAgreement: get agreement: %w", err)
	}

	facilityCount, err := s.agreementRepo.CountFacilities(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("facility_service.AmendAgreement: count facilities: %w", err)
	}
	if req.Currency != nil && *req.Currency != a.Currency {
		if facilityCount > 0 {
			return nil, domain.Validationf("credit agreement currency cannot change while facilities reference it")
		}
		a.Currency = *req.Currency
	}
	if req.Amount != nil {
		a.Amount = *req.Amount
	}
	if req.MaturityDate != nil {
		a.MaturityDate = *req.MaturityDate
	}
	if err = a.Validate(); err != nil {
		return nil, err
	}

	committed, err := s.agreementRepo.SumFacilityCommitments(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("facility_service.AmendAgreement: sum commitments: %w", err)
	}
	if a.Amount.LessThan(committed) {
		return nil, domain.Validationf("credit agreement amount cannot be reduced below total facility commitments")
	}

	if err = s.agreementRepo.Update(ctx, tx, a); err != nil {
		return nil, fmt.Errorf("facility_service.AmendAgreement: update: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("facility_service.AmendAgreement: commit: %w", err)
	}
	return a, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Facilities
// ──────────────────────────────────────────────────────────────────────────────

// CreateFacility validates a new tranche against its parent agreement and
// sibling facilities, inserts it, and — when an initial lender is given —
// creates that lender's position at 100% share with nothing drawn, all in
// one transaction. The agreement row lock serializes concurrent facility
// creations so the commitment ceiling cannot be breached by a stale sum.
func (s *FacilityService) CreateFacility(ctx context.Context, req domain.CreateFacilityRequest) (_ *domain.Facility, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("facility_service.CreateFacility: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	agreement, err := s.agreementRepo.GetByIDForUpdate(ctx, tx, req.CreditAgreementID)
	if err != nil {
		return nil, fmt.Errorf("facility_service.CreateFacility: get agreement: %w", err)
	}
	if !agreement.IsActive() {
		return nil, domain.Validationf("credit agreement is not active")
	}

	siblings, err := s.agreementRepo.SumFacilityCommitments(ctx, tx, req.CreditAgreementID)
	if err != nil {
		return nil, fmt.Errorf("facility_service.CreateFacility: sum siblings: %w", err)
	}

	now := time.Now().UTC()
	f := &domain.Facility{
		ID:                uuid.New(),
		CreditAgreementID: req.CreditAgreementID,
		FacilityName:      req.FacilityName,
		FacilityType:      req.FacilityType,
		CommitmentAmount:  req.CommitmentAmount,
		AvailableAmount:   req.CommitmentAmount, // nothing drawn yet
		Currency:          req.Currency,
		StartDate:         req.StartDate,
		MaturityDate:      req.MaturityDate,
		InterestType:      req.InterestType,
		BaseRate:          req.BaseRate,
		Margin:            req.Margin,
		Status:            domain.FacilityActive,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err = domain.ValidateFacilityTerms(agreement, siblings, f); err != nil {
		return nil, err
	}
	if err = s.facilityRepo.Create(ctx, tx, f); err != nil {
		return nil, fmt.Errorf("facility_service.CreateFacility: create: %w", err)
	}

	if req.InitialLenderID != nil {
		p := &domain.Position{
			ID:               uuid.New(),
			FacilityID:       f.ID,
			LenderID:         *req.InitialLenderID,
			CommitmentAmount: f.CommitmentAmount,
			DrawnAmount:      decimal.Zero,
			UndrawnAmount:    f.CommitmentAmount,
			Share:            decimal.NewFromInt(100),
			Status:           domain.PositionActive,
			Version:          1,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err = s.positionRepo.Create(ctx, tx, p); err != nil {
			return nil, fmt.Errorf("facility_service.CreateFacility: initial position: %w", err)
		}
		h := &domain.FacilityPositionHistory{
			ID:             uuid.New(),
			FacilityID:     f.ID,
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
			return nil, fmt.Errorf("facility_service.CreateFacility: history: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("facility_service.CreateFacility: commit: %w", err)
	}
	return f, nil
}

// GetFacility returns a facility by ID.
func (s *FacilityService) GetFacility(ctx context.Context, id uuid.UUID) (*domain.Facility, error) {
	return s.facilityRepo.GetByID(ctx, id)
}

// UpdateFacility amends facility terms. Currency is frozen once any loan
// exists; the commitment can never shrink below the outstanding loan
// balance; a closed facility cannot be reactivated. The stored available
// amount is recomputed from the new commitment inside the same transaction.
func (s *FacilityService) UpdateFacility(ctx context.Context, id uuid.UUID, req domain.UpdateFacilityRequest) (_ *domain.Facility, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("facility_service.UpdateFacility: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	f, err := s.facilityRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("facility_service.UpdateFacility: get facility: %w", err)
	}

	originalCommitment := f.CommitmentAmount

	outstanding, err := s.loanRepo.SumOutstanding(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("facility_service.UpdateFacility: sum outstanding: %w", err)
	}
	loanCount, err := s.loanRepo.CountByFacility(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("facility_service.UpdateFacility: count loans: %w", err)
	}

	if req.Status != nil && *req.Status != f.Status {
		if f.Status == domain.FacilityClosed {
			return nil, &domain.StateTransitionError{
				Entity: "facility", From: string(f.Status), To: string(*req.Status),
			}
		}
		f.Status = *req.Status
	}
	if req.FacilityName != nil {
		f.FacilityName = *req.FacilityName
	}
	if req.Currency != nil && *req.Currency != f.Currency {
		if loanCount > 0 {
			return nil, domain.Validationf("facility currency cannot change once loans exist")
		}
		f.Currency = *req.Currency
	}
	if req.CommitmentAmount != nil && !req.CommitmentAmount.Equal(f.CommitmentAmount) {
		if err = domain.ValidateFacilityReduction(*req.CommitmentAmount, outstanding); err != nil {
			return nil, err
		}
		f.CommitmentAmount = *req.CommitmentAmount
		f.AvailableAmount = f.CommitmentAmount.Sub(outstanding)
	}
	if req.MaturityDate != nil {
		f.MaturityDate = *req.MaturityDate
	}
	if req.BaseRate != nil {
		f.BaseRate = *req.BaseRate
	}
	if req.Margin != nil {
		f.Margin = *req.Margin
	}

	// Re-validate the amended terms against the parent and siblings.
	agreement, err := s.agreementRepo.GetByIDForUpdate(ctx, tx, f.CreditAgreementID)
	if err != nil {
		return nil, fmt.Errorf("facility_service.UpdateFacility: get agreement: %w", err)
	}
	total, err := s.agreementRepo.SumFacilityCommitments(ctx, tx, f.CreditAgreementID)
	if err != nil {
		return nil, fmt.Errorf("facility_service.UpdateFacility: sum siblings: %w", err)
	}
	// total still reflects the stored commitment; remove our old value to
	// get the sibling sum.
	siblings := total.Sub(originalCommitment)
	if err = domain.ValidateFacilityTerms(agreement, siblings, f); err != nil {
		return nil, err
	}

	if err = s.facilityRepo.Update(ctx, tx, f); err != nil {
		return nil, fmt.Errorf("facility_service.UpdateFacility: update: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("facility_service.UpdateFacility: commit: %w", err)
	}
	return f, nil
}

// ListFacilities returns every facility under an agreement.
func (s *FacilityService) ListFacilities(ctx context.Context, agreementID uuid.UUID) ([]*domain.Facility, error) {
	fs, err := s.facilityRepo.ListByAgreement(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("facility_service.ListFacilities: %w", err)
	}
	return fs, nil
}
