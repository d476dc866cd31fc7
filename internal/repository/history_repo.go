package repository

import (
	"context"
	"fmt"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// HistoryRepository handles the append-only audit tables. There is no
// update path: rows are inserted in the same transaction as the mutation
// they describe and never touched again. The only delete is PurgeFacility,
// reserved for the administrative facility reset.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AppendPositionHistory inserts a position before/after snapshot inside the
// mutation's transaction.
func (r *HistoryRepository) AppendPositionHistory(ctx context.Context, tx *sqlx.Tx, h *domain.FacilityPositionHistory) error {
	query := `
		INSERT INTO facility_position_history
			(id, facility_id, position_id, lender_id, activity_type, previous_amount,
			 new_amount, change_amount, ref_id, actor_id, created_at)
		VALUES
			(:id, :facility_id, :position_id, :lender_id, :activity_type, :previous_amount,
			 :new_amount, :change_amount, :ref_id, :actor_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, h); err != nil {
		return fmt.Errorf("history_repo.AppendPositionHistory: %w", err)
	}
	return nil
}

// AppendTransaction inserts an operation-level audit record inside the
// mutation's transaction.
func (r *HistoryRepository) AppendTransaction(ctx context.Context, tx *sqlx.Tx, th *domain.TransactionHistory) error {
	query := `
		INSERT INTO transaction_history
			(id, facility_id, loan_id, trade_id, activity_type, amount, description,
			 actor_id, created_at)
		VALUES
			(:id, :facility_id, :loan_id, :trade_id, :activity_type, :amount, :description,
			 :actor_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, th); err != nil {
		return fmt.Errorf("history_repo.AppendTransaction: %w", err)
	}
	return nil
}

// ListPositionHistory returns paginated position snapshots for a facility,
// newest first.
func (r *HistoryRepository) ListPositionHistory(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*domain.FacilityPositionHistory, error) {
	var hs []*domain.FacilityPositionHistory
	err := r.db.SelectContext(ctx, &hs, `
		SELECT * FROM facility_position_history
		WHERE facility_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		facilityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("history_repo.ListPositionHistory: %w", err)
	}
	return hs, nil
}

// ListTransactions returns paginated operation records for a facility,
// newest first.
func (r *HistoryRepository) ListTransactions(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*domain.TransactionHistory, error) {
	var ths []*domain.TransactionHistory
	err := r.db.SelectContext(ctx, &ths, `
		SELECT * FROM transaction_history
		WHERE facility_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		facilityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("history_repo.ListTransactions: %w", err)
	}
	return ths, nil
}

// CountByFacility returns the number of position-history rows for a
// facility. The count is monotonic during normal operation.
func (r *HistoryRepository) CountByFacility(ctx context.Context, facilityID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM facility_position_history WHERE facility_id = $1`, facilityID)
	if err != nil {
		return 0, fmt.Errorf("history_repo.CountByFacility: %w", err)
	}
	return n, nil
}

// PurgeFacility removes the full audit trail of a facility. Administrative
// facility reset only — never part of the ledger's normal lifecycle.
func (r *HistoryRepository) PurgeFacility(ctx context.Context, tx *sqlx.Tx, facilityID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM facility_position_history WHERE facility_id = $1`, facilityID); err != nil {
		return fmt.Errorf("history_repo.PurgeFacility positions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transaction_history WHERE facility_id = $1`, facilityID); err != nil {
		return fmt.Errorf("history_repo.PurgeFacility transactions: %w", err)
	}
	return nil
}
