// Package domain defines the core business entities and invariants of the
// syndicated facility ledger: credit agreements, facilities, lender
// positions, loans (drawdowns), secondary trades and the append-only
// history records every mutation produces.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgreementStatus represents the lifecycle state of a credit agreement.
type AgreementStatus string

const (
	AgreementDraft      AgreementStatus = "DRAFT"
	AgreementActive     AgreementStatus = "ACTIVE"
	AgreementTerminated AgreementStatus = "TERMINATED"
)

// CreditAgreement is the root aggregate: one legal contract between one
// borrower and one lender/agent, setting a total amount ceiling in a single
// currency and a maturity window that caps every facility under it.
type CreditAgreement struct {
	ID           uuid.UUID       `json:"id"            db:"id"`
	BorrowerID   uuid.UUID       `json:"borrower_id"   db:"borrower_id"`
	LenderID     uuid.UUID       `json:"lender_id"     db:"lender_id"`
	Amount       decimal.Decimal `json:"amount"        db:"amount"`
	Currency     string          `json:"currency"      db:"currency"`
	StartDate    time.Time       `json:"start_date"    db:"start_date"`
	MaturityDate time.Time       `json:"maturity_date" db:"maturity_date"`
	InterestRate decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	Status       AgreementStatus `json:"status"        db:"status"`
	Version      int             `json:"version"       db:"version"`
	CreatedAt    time.Time       `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"    db:"updated_at"`
}

// IsActive returns true while facilities may be created under the agreement.
func (a *CreditAgreement) IsActive() bool {
	return a.Status == AgreementActive
}

// Validate checks the agreement's intrinsic invariants: a positive amount
// and a maturity date strictly after the start date.
func (a *CreditAgreement) Validate() error {
	if !a.Amount.IsPositive() {
		return Validationf("credit agreement amount must be positive")
	}
	if a.Currency == "" {
		return Validationf("credit agreement currency must be set")
	}
	if !a.MaturityDate.After(a.StartDate) {
		return Validationf("credit agreement maturity date must be after start date")
	}
	return nil
}
