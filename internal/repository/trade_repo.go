package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TradeRepository handles all database operations for secondary trades.
type TradeRepository struct {
	db *sqlx.DB
}

// NewTradeRepository creates a new TradeRepository.
func NewTradeRepository(db *sqlx.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a new trade inside an existing transaction.
func (r *TradeRepository) Create(ctx context.Context, tx *sqlx.Tx, t *domain.Trade) error {
	query := `
		INSERT INTO trades
			(id, facility_id, seller_lender_id, buyer_lender_id, trade_date, settlement_date,
			 par_amount, price, settlement_amount, status, settled_at, version, created_at, updated_at)
		VALUES
			(:id, :facility_id, :seller_lender_id, :buyer_lender_id, :trade_date, :settlement_date,
			 :par_amount, :price, :settlement_amount, :status, :settled_at, :version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("trade_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a trade by its primary key (no lock).
func (r *TradeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trade, error) {
	var t domain.Trade
	err := r.db.GetContext(ctx, &t, `SELECT * FROM trades WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTradeNotFound
		}
		return nil, fmt.Errorf("trade_repo.GetByID: %w", err)
	}
	return &t, nil
}

// GetByIDTx fetches a trade inside a transaction.
func (r *TradeRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Trade, error) {
	var t domain.Trade
	err := tx.GetContext(ctx, &t, `SELECT * FROM trades WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTradeNotFound
		}
		return nil, fmt.Errorf("trade_repo.GetByIDTx: %w", err)
	}
	return &t, nil
}

// ListByFacility returns every trade booked against a facility.
func (r *TradeRepository) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]*domain.Trade, error) {
	var ts []*domain.Trade
	err := r.db.SelectContext(ctx, &ts,
		`SELECT * FROM trades WHERE facility_id = $1 ORDER BY trade_date ASC`,
		facilityID)
	if err != nil {
		return nil, fmt.Errorf("trade_repo.ListByFacility: %w", err)
	}
	return ts, nil
}

// ListDueForSettlement returns confirmed trades whose settlement date has
// arrived, oldest first. Used by the settlement sweep.
func (r *TradeRepository) ListDueForSettlement(ctx context.Context, asOf time.Time, limit int) ([]*domain.Trade, error) {
	var ts []*domain.Trade
	err := r.db.SelectContext(ctx, &ts, `
		SELECT * FROM trades
		WHERE status = $1 AND settlement_date <= $2
		ORDER BY settlement_date ASC
		LIMIT $3`,
		domain.TradeConfirmed, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("trade_repo.ListDueForSettlement: %w", err)
	}
	return ts, nil
}

// Transition moves a trade from one status to another inside a transaction.
// The WHERE status = from guard makes the transition idempotent under
// concurrent callers: only one of them observes a row change, the others
// get ErrVersionConflict (or ErrTradeNotFound if the trade vanished).
func (r *TradeRepository) Transition(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to domain.TradeStatus, settledAt *time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE trades
		SET status     = $1,
		    settled_at = COALESCE($2, settled_at),
		    version    = version + 1,
		    updated_at = now()
		WHERE id = $3 AND status = $4`,
		to, settledAt, id, from)
	if err != nil {
		return fmt.Errorf("trade_repo.Transition: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM trades WHERE id = $1)`, id); err != nil {
			return fmt.Errorf("trade_repo.Transition exists: %w", err)
		}
		if !exists {
			return domain.ErrTradeNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}

// DeleteByFacility removes every trade of a facility. Administrative
// facility reset only.
func (r *TradeRepository) DeleteByFacility(ctx context.Context, tx *sqlx.Tx, facilityID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE facility_id = $1`, facilityID); err != nil {
		return fmt.Errorf("trade_repo.DeleteByFacility: %w", err)
	}
	return nil
}
