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

// LoanService handles drawdowns against a facility and loan status
// transitions along the loan state machine.
type LoanService struct {
	db           *sqlx.DB
	facilityRepo *repository.FacilityRepository
	loanRepo     *repository.LoanRepository
	positionRepo *repository.PositionRepository
	historyRepo  *repository.HistoryRepository
}

// NewLoanService creates a LoanService.
func NewLoanService(
	db *sqlx.DB,
	facilityRepo *repository.FacilityRepository,
	loanRepo *repository.LoanRepository,
	positionRepo *repository.PositionRepository,
	historyRepo *repository.HistoryRepository,
) *LoanService {
	return &LoanService{
		db:           db,
		facilityRepo: facilityRepo,
		loanRepo:     loanRepo,
		positionRepo: positionRepo,
		historyRepo:  historyRepo,
	}
}

// CreateDrawdown draws a new loan against a facility. Inside one
// transaction it locks the facility, checks currency and available amount,
// inserts the loan, reduces the facility's available amount, and moves each
// active position's pro-rata slice from undrawn to drawn, with one history
// row per position and one transaction record for the draw as a whole.
func (s *LoanService) CreateDrawdown(ctx context.Context, req domain.CreateDrawdownRequest) (_ *domain.Loan, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("loan_service.CreateDrawdown: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	facility, err := s.facilityRepo.GetByIDForUpdate(ctx, tx, req.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("loan_service.CreateDrawdown: get facility: %w", err)
	}
	if err = domain.ValidateDrawdown(facility, req.Amount, req.Currency); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	loan := &domain.Loan{
		ID:                uuid.New(),
		FacilityID:        req.FacilityID,
		Amount:            req.Amount,
		OutstandingAmount: req.Amount,
		Currency:          req.Currency,
		Status:            domain.LoanActive,
		DrawDate:          req.DrawDate,
		BaseRate:          facility.BaseRate,
		EffectiveRate:     facility.EffectiveRate(),
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err = s.loanRepo.Create(ctx, tx, loan); err != nil {
		return nil, fmt.Errorf("loan_service.CreateDrawdown: create loan: %w", err)
	}

	facility.AvailableAmount = facility.AvailableAmount.Sub(req.Amount)
	if err = s.facilityRepo.Update(ctx, tx, facility); err != nil {
		return nil, fmt.Errorf("loan_service.CreateDrawdown: update facility: %w", err)
	}

	// Fund the draw across positions in proportion to undrawn capacity, so
	// no position is ever pushed past its own commitment.
	positions, err := s.positionRepo.ListActiveByFacility(ctx, tx, req.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("loan_service.CreateDrawdown: list positions: %w", err)
	}
	weights := make([]decimal.Decimal, len(positions))
	capacity := decimal.Zero
	for i, p := range positions {
		weights[i] = p.UndrawnAmount
		capacity = capacity.Add(p.UndrawnAmount)
	}
	if len(positions) > 0 && capacity.IsPositive() {
		// Positions may jointly commit less than the facility; fund what
		// they can cover and leave the rest on the facility's own book.
		funded := decimal.Min(req.Amount, capacity)
		changes, aerr := domain.AllocateProRata(funded, weights)
		if aerr != nil {
			return nil, aerr
		}
		// funded <= capacity, so every change fits inside its position's
		// undrawn headroom.
		for i, p := range positions {
			if changes[i].IsZero() {
				continue
			}
			prev := p.DrawnAmount
			p.DrawnAmount = p.DrawnAmount.Add(changes[i])
			p.UndrawnAmount = p.UndrawnAmount.Sub(changes[i])
			if err = s.positionRepo.UpdateAmounts(ctx, tx, p); err != nil {
				return nil, fmt.Errorf("loan_service.CreateDrawdown: update position: %w", err)
			}
			loanID := loan.ID
			h := &domain.FacilityPositionHistory{
				ID:             uuid.New(),
				FacilityID:     req.FacilityID,
				PositionID:     p.ID,
				LenderID:       p.LenderID,
				ActivityType:   domain.ActivityDrawdown,
				PreviousAmount: prev,
				NewAmount:      p.DrawnAmount,
				ChangeAmount:   changes[i],
				RefID:          &loanID,
				ActorID:        req.ActorID,
				CreatedAt:      now,
			}
			if err = s.historyRepo.AppendPositionHistory(ctx, tx, h); err != nil {
				return nil, fmt.Errorf("loan_service.CreateDrawdown: history: %w", err)
			}
		}
	}

	loanID := loan.ID
	th := &domain.TransactionHistory{
		ID:           uuid.New(),
		FacilityID:   req.FacilityID,
		LoanID:       &loanID,
		ActivityType: domain.ActivityDrawdown,
		Amount:       req.Amount,
		Description:  fmt.Sprintf("Drawdown of %s %s", req.Amount.StringFixed(2), req.Currency),
		ActorID:      req.ActorID,
		CreatedAt:    now,
	}
	if err = s.historyRepo.AppendTransaction(ctx, tx, th); err != nil {
		return nil, fmt.Errorf("loan_service.CreateDrawdown: transaction history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("loan_service.CreateDrawdown: commit: %w", err)
	}
	return loan, nil
}

// UpdateLoan moves a loan along its status state machine. A closed loan is
// frozen; any illegal edge yields a StateTransitionError.
func (s *LoanService) UpdateLoan(ctx context.Context, id uuid.UUID, req domain.UpdateLoanRequest) (_ *domain.Loan, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("loan_service.UpdateLoan: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	loan, err := s.loanRepo.GetByIDTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("loan_service.UpdateLoan: get loan: %w", err)
	}
	if !loan.Status.CanTransitionTo(req.Status) {
		return nil, &domain.StateTransitionError{
			Entity: "loan", From: string(loan.Status), To: string(req.Status),
		}
	}
	loan.Status = req.Status
	if err = s.loanRepo.UpdateStatus(ctx, tx, loan); err != nil {
		return nil, fmt.Errorf("loan_service.UpdateLoan: update: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("loan_service.UpdateLoan: commit: %w", err)
	}
	return loan, nil
}

// GetLoan returns a loan by ID.
func (s *LoanService) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return s.loanRepo.GetByID(ctx, id)
}

// ListLoans returns every loan drawn against a facility.
func (s *LoanService) ListLoans(ctx context.Context, facilityID uuid.UUID) ([]*domain.Loan, error) {
	ls, err := s.loanRepo.ListByFacility(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("loan_service.ListLoans: %w", err)
	}
	return ls, nil
}
