package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// LoanRepository handles all database operations for loans (drawdowns).
type LoanRepository struct {
	db *sqlx.DB
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(db *sqlx.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create inserts a new loan inside an existing transaction.
func (r *LoanRepository) Create(ctx context.Context, tx *sqlx.Tx, l *domain.Loan) error {
	query := `
		INSERT INTO loans
			(id, facility_id, amount, outstanding_amount, currency, status, draw_date,
			 base_rate, effective_rate, version, created_at, updated_at)
		VALUES
			(:id, :facility_id, :amount, :outstanding_amount, :currency, :status, :draw_date,
			 :base_rate, :effective_rate, :version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("loan_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a loan by its primary key (no lock).
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	var l domain.Loan
	err := r.db.GetContext(ctx, &l, `SELECT * FROM loans WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("loan_repo.GetByID: %w", err)
	}
	return &l, nil
}

// GetByIDTx fetches a loan inside a transaction. The caller is expected to
// already hold the facility row lock.
func (r *LoanRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Loan, error) {
	var l domain.Loan
	err := tx.GetContext(ctx, &l, `SELECT * FROM loans WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("loan_repo.GetByIDTx: %w", err)
	}
	return &l, nil
}

// ListByFacility returns every loan drawn against a facility.
func (r *LoanRepository) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]*domain.Loan, error) {
	var ls []*domain.Loan
	err := r.db.SelectContext(ctx, &ls,
		`SELECT * FROM loans WHERE facility_id = $1 ORDER BY draw_date ASC`,
		facilityID)
	if err != nil {
		return nil, fmt.Errorf("loan_repo.ListByFacility: %w", err)
	}
	return ls, nil
}

// SumOutstanding returns the facility's total outstanding loan balance,
// read inside the transaction immediately before a dependent write.
func (r *LoanRepository) SumOutstanding(ctx context.Context, tx *sqlx.Tx, facilityID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(outstanding_amount), 0)
		FROM loans
		WHERE facility_id = $1
		  AND status IN ('ACTIVE', 'PARTIALLY_PAID', 'DEFAULTED')`,
		facilityID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loan_repo.SumOutstanding: %w", err)
	}
	return total, nil
}

// CountByFacility returns how many loans exist under a facility, read inside
// the transaction. Used to guard facility currency changes.
func (r *LoanRepository) CountByFacility(ctx context.Context, tx *sqlx.Tx, facilityID uuid.UUID) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM loans WHERE facility_id = $1`, facilityID)
	if err != nil {
		return 0, fmt.Errorf("loan_repo.CountByFacility: %w", err)
	}
	return n, nil
}

// UpdateBalance writes a loan's outstanding amount and status inside a
// transaction, guarded by the version counter.
func (r *LoanRepository) UpdateBalance(ctx context.Context, tx *sqlx.Tx, l *domain.Loan) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET outstanding_amount = $1,
		    status             = $2,
		    version            = version + 1,
		    updated_at         = now()
		WHERE id = $3 AND version = $4`,
		l.OutstandingAmount, l.Status, l.ID, l.Version)
	if err != nil {
		return fmt.Errorf("loan_repo.UpdateBalance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrVersionConflict
	}
	l.Version++
	return nil
}

// UpdateStatus writes only the loan's status inside a transaction, guarded
// by the version counter. Transition legality is checked by the service
// before calling.
func (r *LoanRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, l *domain.Loan) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET status     = $1,
		    version    = version + 1,
		    updated_at = now()
		WHERE id = $2 AND version = $3`,
		l.Status, l.ID, l.Version)
	if err != nil {
		return fmt.Errorf("loan_repo.UpdateStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrVersionConflict
	}
	l.Version++
	return nil
}

// DeleteByFacility removes every loan of a facility. Administrative
// facility reset only.
func (r *LoanRepository) DeleteByFacility(ctx context.Context, tx *sqlx.Tx, facilityID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE facility_id = $1`, facilityID); err != nil {
		return fmt.Errorf("loan_repo.DeleteByFacility: %w", err)
	}
	return nil
}
