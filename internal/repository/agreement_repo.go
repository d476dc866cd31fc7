// Package repository holds the sqlx persistence layer: one repository per
// aggregate. Methods that participate in a multi-row mutation take an
// explicit *sqlx.Tx so every read-validate-write sequence runs on a single
// transaction handle; repositories never open transactions themselves.
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

// AgreementRepository handles all database operations for credit agreements.
type AgreementRepository struct {
	db *sqlx.DB
}

// NewAgreementRepository creates a new AgreementRepository.
func NewAgreementRepository(db *sqlx.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

// Create inserts a new credit agreement.
func (r *AgreementRepository) Create(ctx context.Context, a *domain.CreditAgreement) error {
	query := `
		INSERT INTO credit_agreements
			(id, borrower_id, lender_id, amount, currency, start_date, maturity_date,
			 interest_rate, status, version, created_at, updated_at)
		VALUES
			(:id, :borrower_id, :lender_id, :amount, :currency, :start_date, :maturity_date,
			 :interest_rate, :status, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("agreement_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches an agreement by its primary key.
func (r *AgreementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CreditAgreement, error) {
	var a domain.CreditAgreement
	err := r.db.GetContext(ctx, &a, `SELECT * FROM credit_agreements WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAgreementNotFound
		}
		return nil, fmt.Errorf("agreement_repo.GetByID: %w", err)
	}
	return &a, nil
}

// GetByIDForUpdate fetches and row-locks an agreement inside a transaction.
// Serializes facility creation and agreement amendments against each other.
func (r *AgreementRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.CreditAgreement, error) {
	var a domain.CreditAgreement
	err := tx.GetContext(ctx, &a, `SELECT * FROM credit_agreements WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAgreementNotFound
		}
		return nil, fmt.Errorf("agreement_repo.GetByIDForUpdate: %w", err)
	}
	return &a, nil
}

// Update writes amended terms inside a transaction, guarded by the version
// counter. Returns ErrVersionConflict when another writer got there first.
func (r *AgreementRepository) Update(ctx context.Context, tx *sqlx.Tx, a *domain.CreditAgreement) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE credit_agreements
		SET amount        = $1,
		    currency      = $2,
		    maturity_date = $3,
		    status        = $4,
		    version       = version + 1,
		    updated_at    = now()
		WHERE id = $5 AND version = $6`,
		a.Amount, a.Currency, a.MaturityDate, a.Status, a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("agreement_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrVersionConflict
	}
	a.Version++
	return nil
}

// SumFacilityCommitments returns the total commitment of all facilities
// under an agreement, read inside the transaction.
func (r *AgreementRepository) SumFacilityCommitments(ctx context.Context, tx *sqlx.Tx, agreementID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(commitment_amount), 0)
		FROM facilities
		WHERE credit_agreement_id = $1`,
		agreementID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("agreement_repo.SumFacilityCommitments: %w", err)
	}
	return total, nil
}

// CountFacilities returns how many facilities reference an agreement,
// read inside the transaction. Used to guard currency amendments.
func (r *AgreementRepository) CountFacilities(ctx context.Context, tx *sqlx.Tx, agreementID uuid.UUID) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM facilities WHERE credit_agreement_id = $1`, agreementID)
	if err != nil {
		return 0, fmt.Errorf("agreement_repo.CountFacilities: %w", err)
	}
	return n, nil
}
