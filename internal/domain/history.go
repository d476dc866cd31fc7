package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActivityType names the operation that produced a history record.
type ActivityType string

const (
	ActivityDrawdown        ActivityType = "DRAWDOWN"
	ActivityPaydown         ActivityType = "PAYDOWN"
	ActivityTradeCreated    ActivityType = "TRADE_CREATED"
	ActivityTradeSettled    ActivityType = "TRADE_SETTLED"
	ActivityPositionCreated ActivityType = "POSITION_CREATED"
	ActivityAdjustment      ActivityType = "ADJUSTMENT"
)

// FacilityPositionHistory is one immutable before/after snapshot of a single
// position's amounts, written in the same transaction as the mutation it
// describes. Rows are append-only: no update or delete path exists during
// normal operation.
type FacilityPositionHistory struct {
	ID             uuid.UUID       `json:"id"              db:"id"`
	FacilityID     uuid.UUID       `json:"facility_id"     db:"facility_id"`
	PositionID     uuid.UUID       `json:"position_id"     db:"position_id"`
	LenderID       uuid.UUID       `json:"lender_id"       db:"lender_id"`
	ActivityType   ActivityType    `json:"activity_type"   db:"activity_type"`
	PreviousAmount decimal.Decimal `json:"previous_amount" db:"previous_amount"`
	NewAmount      decimal.Decimal `json:"new_amount"      db:"new_amount"`
	ChangeAmount   decimal.Decimal `json:"change_amount"   db:"change_amount"`
	RefID          *uuid.UUID      `json:"ref_id"          db:"ref_id"` // originating loan/trade
	ActorID        uuid.UUID       `json:"actor_id"        db:"actor_id"`
	CreatedAt      time.Time       `json:"created_at"      db:"created_at"`
}

// TransactionHistory is one immutable record of a balance-changing operation
// as a whole (one row per drawdown, paydown, trade booking or settlement),
// written in the same transaction as the mutation.
type TransactionHistory struct {
	ID           uuid.UUID       `json:"id"            db:"id"`
	FacilityID   uuid.UUID       `json:"facility_id"   db:"facility_id"`
	LoanID       *uuid.UUID      `json:"loan_id"       db:"loan_id"`
	TradeID      *uuid.UUID      `json:"trade_id"      db:"trade_id"`
	ActivityType ActivityType    `json:"activity_type" db:"activity_type"`
	Amount       decimal.Decimal `json:"amount"        db:"amount"`
	Description  string          `json:"description"   db:"description"`
	ActorID      uuid.UUID       `json:"actor_id"      db:"actor_id"`
	CreatedAt    time.Time       `json:"created_at"    db:"created_at"`
}
