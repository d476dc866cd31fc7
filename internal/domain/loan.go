package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus is the state machine of a drawdown:
//
//	ACTIVE → {PARTIALLY_PAID, PAID, DEFAULTED} → CLOSED
//
// PAID may only move to CLOSED; CLOSED is frozen — no field of a closed
// loan may change.
type LoanStatus string

const (
	LoanActive        LoanStatus = "ACTIVE"
	LoanPartiallyPaid LoanStatus = "PARTIALLY_PAID"
	LoanPaid          LoanStatus = "PAID"
	LoanDefaulted     LoanStatus = "DEFAULTED"
	LoanClosed        LoanStatus = "CLOSED"
)

// loanTransitions is the explicit transition table for LoanStatus.
var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanActive:        {LoanPartiallyPaid, LoanPaid, LoanDefaulted, LoanClosed},
	LoanPartiallyPaid: {LoanPartiallyPaid, LoanPaid, LoanDefaulted, LoanClosed},
	LoanPaid:          {LoanClosed},
	LoanDefaulted:     {LoanClosed},
	LoanClosed:        {},
}

// CanTransitionTo reports whether a loan status change is legal.
func (s LoanStatus) CanTransitionTo(to LoanStatus) bool {
	for _, allowed := range loanTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true when the loan accepts no further mutation.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanClosed
}

// Outstanding reports whether the status still carries balance to repay.
func (s LoanStatus) Outstanding() bool {
	return s == LoanActive || s == LoanPartiallyPaid || s == LoanDefaulted
}

// Loan is an amount actually drawn against a facility. OutstandingAmount
// shrinks with paydowns and is tracked separately from the original Amount;
// it can never exceed it and never go negative.
type Loan struct {
	ID                uuid.UUID       `json:"id"                 db:"id"`
	FacilityID        uuid.UUID       `json:"facility_id"        db:"facility_id"`
	Amount            decimal.Decimal `json:"amount"             db:"amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount" db:"outstanding_amount"`
	Currency          string          `json:"currency"           db:"currency"`
	Status            LoanStatus      `json:"status"             db:"status"`
	DrawDate          time.Time       `json:"draw_date"          db:"draw_date"`
	BaseRate          decimal.Decimal `json:"base_rate"          db:"base_rate"`
	EffectiveRate     decimal.Decimal `json:"effective_rate"     db:"effective_rate"`
	Version           int             `json:"version"            db:"version"`
	CreatedAt         time.Time       `json:"created_at"         db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"         db:"updated_at"`
}

// StatusAfterPaydown returns the status a loan carries once its outstanding
// balance reaches the given value. A defaulted loan stays DEFAULTED through
// recovery payments, even a full one; its transition table only permits an
// explicit close.
func (l *Loan) StatusAfterPaydown(newOutstanding decimal.Decimal) LoanStatus {
	if l.Status == LoanDefaulted {
		return LoanDefaulted
	}
	if newOutstanding.IsZero() {
		return LoanPaid
	}
	return LoanPartiallyPaid
}
