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

// PositionRepository handles all database operations for lender positions.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new position inside an existing transaction.
func (r *PositionRepository) Create(ctx context.Context, tx *sqlx.Tx, p *domain.Position) error {
	query := `
		INSERT INTO positions
			(id, facility_id, lender_id, commitment_amount, drawn_amount, undrawn_amount,
			 share, status, version, created_at, updated_at)
		VALUES
			(:id, :facility_id, :lender_id, :commitment_amount, :drawn_amount, :undrawn_amount,
			 :share, :status, :version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("position_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a position by its primary key (no lock).
func (r *PositionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Position, error) {
	var p domain.Position
	err := r.db.GetContext(ctx, &p, `SELECT * FROM positions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.GetByID: %w", err)
	}
	return &p, nil
}

// GetByIDTx fetches a position inside a transaction. The caller is expected
// to already hold the facility row lock.
func (r *PositionRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Position, error) {
	var p domain.Position
	err := tx.GetContext(ctx, &p, `SELECT * FROM positions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.GetByIDTx: %w", err)
	}
	return &p, nil
}

// GetByFacilityAndLender fetches a lender's position in a facility inside a
// transaction. Returns ErrPositionNotFound when the lender holds none.
func (r *PositionRepository) GetByFacilityAndLender(ctx context.Context, tx *sqlx.Tx, facilityID, lenderID uuid.UUID) (*domain.Position, error) {
	var p domain.Position
	err := tx.GetContext(ctx, &p,
		`SELECT * FROM positions WHERE facility_id = $1 AND lender_id = $2`,
		facilityID, lenderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.GetByFacilityAndLender: %w", err)
	}
	return &p, nil
}

// ListActiveByFacility returns the facility's active positions inside a
// transaction, ordered by ID so that allocation remainder assignment is
// deterministic across runs.
func (r *PositionRepository) ListActiveByFacility(ctx context.Context, tx *sqlx.Tx, facilityID uuid.UUID) ([]*domain.Position, error) {
	var ps []*domain.Position
	err := tx.SelectContext(ctx, &ps,
		`SELECT * FROM positions WHERE facility_id = $1 AND status = 'ACTIVE' ORDER BY id ASC`,
		facilityID)
	if err != nil {
		return nil, fmt.Errorf("position_repo.ListActiveByFacility: %w", err)
	}
	return ps, nil
}

// ListByFacility returns all positions of a facility (read-only path).
func (r *PositionRepository) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]*domain.Position, error) {
	var ps []*domain.Position
	err := r.db.SelectContext(ctx, &ps,
		`SELECT * FROM positions WHERE facility_id = $1 ORDER BY id ASC`,
		facilityID)
	if err != nil {
		return nil, fmt.Errorf("position_repo.ListByFacility: %w", err)
	}
	return ps, nil
}

// siblingSums carries the aggregates over a position's siblings.
type siblingSums struct {
	AmountSum decimal.Decimal `db:"amount_sum"`
	ShareSum  decimal.Decimal `db:"share_sum"`
}

// SumSiblings returns the total commitment amount and share of all *other*
// positions of the facility, read inside the transaction immediately before
// the write. excludeID may be uuid.Nil when creating a new position.
func (r *PositionRepository) SumSiblings(ctx context.Context, tx *sqlx.Tx, facilityID, excludeID uuid.UUID) (amountSum, shareSum decimal.Decimal, err error) {
	var s siblingSums
	err = tx.GetContext(ctx, &s, `
		SELECT COALESCE(SUM(commitment_amount), 0) AS amount_sum,
		       COALESCE(SUM(share), 0)             AS share_sum
		FROM positions
		WHERE facility_id = $1 AND id <> $2 AND status = 'ACTIVE'`,
		facilityID, excludeID)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("position_repo.SumSiblings: %w", err)
	}
	return s.AmountSum, s.ShareSum, nil
}

// UpdateAmounts writes a position's amounts, share and status inside a
// transaction, guarded by the version counter.
func (r *PositionRepository) UpdateAmounts(ctx context.Context, tx *sqlx.Tx, p *domain.Position) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE positions
		SET commitment_amount = $1,
		    drawn_amount      = $2,
		    undrawn_amount    = $3,
		    share             = $4,
		    status            = $5,
		    version           = version + 1,
		    updated_at        = now()
		WHERE id = $6 AND version = $7`,
		p.CommitmentAmount, p.DrawnAmount, p.UndrawnAmount, p.Share, p.Status,
		p.ID, p.Version)
	if err != nil {
		return fmt.Errorf("position_repo.UpdateAmounts: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrVersionConflict
	}
	p.Version++
	return nil
}

// DeleteByFacility removes every position of a facility. Administrative
// facility reset only.
func (r *PositionRepository) DeleteByFacility(ctx context.Context, tx *sqlx.Tx, facilityID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE facility_id = $1`, facilityID); err != nil {
		return fmt.Errorf("position_repo.DeleteByFacility: %w", err)
	}
	return nil
}
