package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeStatus is the state machine of a secondary trade:
//
//	PENDING → CONFIRMED → SETTLED → CLOSED
//
// Any non-closed state may move directly to CLOSED as the terminal
// cancel/complete; there are no backward transitions.
type TradeStatus string

const (
	TradePending   TradeStatus = "PENDING"
	TradeConfirmed TradeStatus = "CONFIRMED"
	TradeSettled   TradeStatus = "SETTLED"
	TradeClosed    TradeStatus = "CLOSED"
)

// tradeTransitions is the explicit transition table for TradeStatus.
var tradeTransitions = map[TradeStatus][]TradeStatus{
	TradePending:   {TradeConfirmed, TradeClosed},
	TradeConfirmed: {TradeSettled, TradeClosed},
	TradeSettled:   {TradeClosed},
	TradeClosed:    {},
}

// CanTransitionTo reports whether a trade status change is legal.
func (s TradeStatus) CanTransitionTo(to TradeStatus) bool {
	for _, allowed := range tradeTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Trade is a secondary transfer of position ownership: the seller assigns
// parAmount of its commitment to the buyer at a price quoted as a
// percentage of par. Booking creates the trade PENDING; the position
// amounts only move at settlement.
type Trade struct {
	ID               uuid.UUID       `json:"id"                db:"id"`
	FacilityID       uuid.UUID       `json:"facility_id"       db:"facility_id"`
	SellerLenderID   uuid.UUID       `json:"seller_lender_id"  db:"seller_lender_id"`
	BuyerLenderID    uuid.UUID       `json:"buyer_lender_id"   db:"buyer_lender_id"`
	TradeDate        time.Time       `json:"trade_date"        db:"trade_date"`
	SettlementDate   time.Time       `json:"settlement_date"   db:"settlement_date"`
	ParAmount        decimal.Decimal `json:"par_amount"        db:"par_amount"`
	Price            decimal.Decimal `json:"price"             db:"price"` // percent of par
	SettlementAmount decimal.Decimal `json:"settlement_amount" db:"settlement_amount"`
	Status           TradeStatus     `json:"status"            db:"status"`
	SettledAt        *time.Time      `json:"settled_at"        db:"settled_at"`
	Version          int             `json:"version"           db:"version"`
	CreatedAt        time.Time       `json:"created_at"        db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"        db:"updated_at"`
}

// SettlementAmountFor returns the cash that changes hands for a trade of
// parAmount at the given price: parAmount × price / 100, rounded to cents.
func SettlementAmountFor(parAmount, price decimal.Decimal) decimal.Decimal {
	return parAmount.Mul(price).Div(decimal.NewFromInt(100)).Round(2)
}

// VerificationStatus is the entity directory's KYC verdict for a party.
type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationPending  VerificationStatus = "PENDING"
	VerificationRejected VerificationStatus = "REJECTED"
)

// KYCResult is what the external entity/KYC directory reports for one
// legal party. Both trade counterparties must be fully verified before a
// trade may be booked.
type KYCResult struct {
	EntityID             uuid.UUID          `json:"entity_id"`
	Status               VerificationStatus `json:"status"`
	LenderVerified       bool               `json:"lender_verified"`
	CounterpartyVerified bool               `json:"counterparty_verified"`
}

// Passes returns true when the party may act as a trade counterparty.
func (k *KYCResult) Passes() bool {
	return k != nil && k.Status == VerificationVerified && k.CounterpartyVerified
}
