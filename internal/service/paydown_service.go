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

// PaydownService applies principal repayments to a loan and distributes them
// across lender positions pro-rata by current drawn exposure. The whole
// operation runs inside one transaction anchored on the facility row lock, so
// concurrent paydowns against the same facility serialize.
type PaydownService struct {
	db           *sqlx.DB
	facilityRepo *repository.FacilityRepository
	loanRepo     *repository.LoanRepository
	positionRepo *repository.PositionRepository
	historyRepo  *repository.HistoryRepository
}

// NewPaydownService creates a PaydownService.
func NewPaydownService(
	db *sqlx.DB,
	facilityRepo *repository.FacilityRepository,
	loanRepo *repository.LoanRepository,
	positionRepo *repository.PositionRepository,
	historyRepo *repository.HistoryRepository,
) *PaydownService {
	return &PaydownService{
		db:           db,
		facilityRepo: facilityRepo,
		loanRepo:     loanRepo,
		positionRepo: positionRepo,
		historyRepo:  historyRepo,
	}
}

// paydownDescription renders the transaction-history line for a paydown.
// The effective payment date is part of the audit record; it can lag the
// booking timestamp when a payment is entered after the fact.
func paydownDescription(amount decimal.Decimal, currency string, effective time.Time) string {
	return fmt.Sprintf("Paydown of %s %s effective %s",
		amount.StringFixed(2), currency, effective.Format("2006-01-02"))
}

// ProcessPaydown repays principal on a loan. It reduces the loan's
// outstanding balance, moves each active position's pro-rata slice from
// drawn back to undrawn, adjusts the facility's balances by type (a revolver
// regains availability, an amortizing facility reduces its commitment) and
// appends history rows — all atomically. Either every change lands or none
// does.
func (s *PaydownService) ProcessPaydown(ctx context.Context, req domain.PaydownRequest) (_ *domain.PaydownResult, err error) {
	if !req.Amount.IsPositive() {
		return nil, domain.Validationf("Paydown amount must be positive")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("paydown_service.ProcessPaydown: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	facility, err := s.facilityRepo.GetByIDForUpdate(ctx, tx, req.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("paydown_service.ProcessPaydown: get facility: %w", err)
	}

	loan, err := s.loanRepo.GetByIDTx(ctx, tx, req.LoanID)
	if err != nil {
		return nil, fmt.Errorf("paydown_service.ProcessPaydown: get loan: %w", err)
	}
	if loan.FacilityID != facility.ID {
		return nil, domain.ErrLoanNotFound
	}
	if !loan.Status.Outstanding() {
		return nil, &domain.StateTransitionError{
			Entity: "loan", From: string(loan.Status), To: string(domain.LoanPartiallyPaid),
		}
	}
	if req.Amount.GreaterThan(loan.OutstandingAmount) {
		return nil, domain.Validationf("Paydown exceeds outstanding balance")
	}

	outstandingBefore := loan.OutstandingAmount
	availableBefore := facility.AvailableAmount

	positions, err := s.positionRepo.ListActiveByFacility(ctx, tx, facility.ID)
	if err != nil {
		return nil, fmt.Errorf("paydown_service.ProcessPaydown: list positions: %w", err)
	}

	var deltas []domain.PositionDelta
	now := time.Now().UTC()
	effective := req.PaymentDate
	if effective.IsZero() {
		effective = now
	}

	weights := make([]decimal.Decimal, len(positions))
	exposure := decimal.Zero
	for i, p := range positions {
		weights[i] = p.DrawnAmount
		exposure = exposure.Add(p.DrawnAmount)
	}
	if len(positions) > 0 && exposure.IsPositive() {
		repaid := decimal.Min(req.Amount, exposure)
		var shares []decimal.Decimal
		shares, err = domain.AllocateProRata(repaid, weights)
		if err != nil {
			return nil, err
		}
		deltas = make([]domain.PositionDelta, 0, len(positions))
		// repaid <= exposure, so every share fits inside its position's drawn
		// balance and the deltas sum exactly to the repaid amount.
		for i, p := range positions {
			if shares[i].IsZero() {
				continue
			}
			prev := p.DrawnAmount
			p.DrawnAmount = p.DrawnAmount.Sub(shares[i])
			if facility.FacilityType.IsRevolving() {
				// Repaid principal becomes drawable again.
				p.UndrawnAmount = p.UndrawnAmount.Add(shares[i])
			} else {
				// Amortizing tranche: the commitment shrinks with the repayment.
				p.CommitmentAmount = p.CommitmentAmount.Sub(shares[i])
			}
			if err = s.positionRepo.UpdateAmounts(ctx, tx, p); err != nil {
				return nil, fmt.Errorf("paydown_service.ProcessPaydown: update position: %w", err)
			}
			loanID := loan.ID
			h := &domain.FacilityPositionHistory{
				ID:             uuid.New(),
				FacilityID:     facility.ID,
				PositionID:     p.ID,
				LenderID:       p.LenderID,
				ActivityType:   domain.ActivityPaydown,
				PreviousAmount: prev,
				NewAmount:      p.DrawnAmount,
				ChangeAmount:   shares[i].Neg(),
				RefID:          &loanID,
				ActorID:        req.ActorID,
				CreatedAt:      now,
			}
			if err = s.historyRepo.AppendPositionHistory(ctx, tx, h); err != nil {
				return nil, fmt.Errorf("paydown_service.ProcessPaydown: history: %w", err)
			}
			deltas = append(deltas, domain.PositionDelta{
				PositionID:     p.ID,
				LenderID:       p.LenderID,
				PreviousAmount: prev,
				ChangeAmount:   shares[i].Neg(),
				NewAmount:      p.DrawnAmount,
			})
		}
	}

	newOutstanding := loan.OutstandingAmount.Sub(req.Amount)
	loan.OutstandingAmount = newOutstanding
	loan.Status = loan.StatusAfterPaydown(newOutstanding)
	if err = s.loanRepo.UpdateBalance(ctx, tx, loan); err != nil {
		return nil, fmt.Errorf("paydown_service.ProcessPaydown: update loan: %w", err)
	}

	if facility.FacilityType.IsRevolving() {
		facility.AvailableAmount = facility.AvailableAmount.Add(req.Amount)
	} else {
		facility.CommitmentAmount = facility.CommitmentAmount.Sub(req.Amount)
	}
	if err = s.facilityRepo.Update(ctx, tx, facility); err != nil {
		return nil, fmt.Errorf("paydown_service.ProcessPaydown: update facility: %w", err)
	}

	loanID := loan.ID
	th := &domain.TransactionHistory{
		ID:           uuid.New(),
		FacilityID:   facility.ID,
		LoanID:       &loanID,
		ActivityType: domain.ActivityPaydown,
		Amount:       req.Amount,
		Description:  paydownDescription(req.Amount, loan.Currency, effective),
		ActorID:      req.ActorID,
		CreatedAt:    now,
	}
	if err = s.historyRepo.AppendTransaction(ctx, tx, th); err != nil {
		return nil, fmt.Errorf("paydown_service.ProcessPaydown: transaction history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("paydown_service.ProcessPaydown: commit: %w", err)
	}

	return &domain.PaydownResult{
		Loan:                    loan,
		OutstandingBefore:       outstandingBefore,
		OutstandingAfter:        newOutstanding,
		FacilityAvailableBefore: availableBefore,
		FacilityAvailableAfter:  facility.AvailableAmount,
		Positions:               deltas,
	}, nil
}
