package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// FacilityRepository handles all database operations for facilities.
// The facility row is the concurrency anchor: every multi-row mutation of a
// facility's position set starts by locking it via GetByIDForUpdate, which
// linearizes paydowns, trades and position changes per facility while
// leaving different facilities fully parallel.
type FacilityRepository struct {
	db *sqlx.DB
}

// NewFacilityRepository creates a new FacilityRepository.
func NewFacilityRepository(db *sqlx.DB) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// Create inserts a new facility inside an existing transaction.
func (r *FacilityRepository) Create(ctx context.Context, tx *sqlx.Tx, f *domain.Facility) error {
	query := `
		INSERT INTO facilities
			(id, credit_agreement_id, facility_name, facility_type, commitment_amount,
			 available_amount, currency, start_date, maturity_date, interest_type,
			 base_rate, margin, status, version, created_at, updated_at)
		VALUES
			(:id, :credit_agreement_id, :facility_name, :facility_type, :commitment_amount,
			 :available_amount, :currency, :start_date, :maturity_date, :interest_type,
			 :base_rate, :margin, :status, :version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, f); err != nil {
		return fmt.Errorf("facility_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a facility by its primary key (no lock).
func (r *FacilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Facility, error) {
	var f domain.Facility
	err := r.db.GetContext(ctx, &f, `SELECT * FROM facilities WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFacilityNotFound
		}
		return nil, fmt.Errorf("facility_repo.GetByID: %w", err)
	}
	return &f, nil
}

// GetByIDForUpdate fetches and row-locks a facility inside a transaction.
func (r *FacilityRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Facility, error) {
	var f domain.Facility
	err := tx.GetContext(ctx, &f, `SELECT * FROM facilities WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFacilityNotFound
		}
		return nil, fmt.Errorf("facility_repo.GetByIDForUpdate: %w", err)
	}
	return &f, nil
}

// ListByAgreement returns every facility under an agreement.
func (r *FacilityRepository) ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]*domain.Facility, error) {
	var fs []*domain.Facility
	err := r.db.SelectContext(ctx, &fs,
		`SELECT * FROM facilities WHERE credit_agreement_id = $1 ORDER BY created_at ASC`,
		agreementID)
	if err != nil {
		return nil, fmt.Errorf("facility_repo.ListByAgreement: %w", err)
	}
	return fs, nil
}

// Update writes the facility's mutable columns inside a transaction, guarded
// by the version counter.
func (r *FacilityRepository) Update(ctx context.Context, tx *sqlx.Tx, f *domain.Facility) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE facilities
		SET facility_name     = $1,
		    commitment_amount = $2,
		    available_amount  = $3,
		    currency          = $4,
		    maturity_date     = $5,
		    base_rate         = $6,
		    margin            = $7,
		    status            = $8,
		    version           = version + 1,
		    updated_at        = now()
		WHERE id = $9 AND version = $10`,
		f.FacilityName, f.CommitmentAmount, f.AvailableAmount, f.Currency,
		f.MaturityDate, f.BaseRate, f.Margin, f.Status, f.ID, f.Version)
	if err != nil {
		return fmt.Errorf("facility_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrVersionConflict
	}
	f.Version++
	return nil
}

// Delete removes a facility row. Only the administrative facility reset may
// call this, after every dependent row has been purged.
func (r *FacilityRepository) Delete(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM facilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("facility_repo.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrFacilityNotFound
	}
	return nil
}
