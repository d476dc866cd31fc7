package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FacilityType distinguishes revolving from amortizing tranches. Paydowns on
// a revolver restore undrawn capacity (commitment stays fixed); on the other
// types the commitment amortizes with each principal repayment.
type FacilityType string

const (
	FacilityTermLoan    FacilityType = "TERM_LOAN"
	FacilityRevolver    FacilityType = "REVOLVER"
	FacilityDelayedDraw FacilityType = "DELAYED_DRAW"
)

// IsValid returns true if t is a recognised facility type.
func (t FacilityType) IsValid() bool {
	return t == FacilityTermLoan || t == FacilityRevolver || t == FacilityDelayedDraw
}

// IsRevolving reports whether paydowns restore drawable capacity.
func (t FacilityType) IsRevolving() bool {
	return t == FacilityRevolver
}

// FacilityStatus represents the lifecycle state of a facility.
type FacilityStatus string

const (
	FacilityActive    FacilityStatus = "ACTIVE"
	FacilitySuspended FacilityStatus = "SUSPENDED"
	FacilityClosed    FacilityStatus = "CLOSED"
)

// InterestType distinguishes fixed-rate from floating-rate tranches.
type InterestType string

const (
	InterestFixed    InterestType = "FIXED"
	InterestFloating InterestType = "FLOATING"
)

// Facility is a drawable tranche under a credit agreement with its own
// commitment ceiling. It owns zero or more Positions (lender stakes) and
// zero or more Loans (drawdowns). AvailableAmount is a stored column kept
// equal to commitment minus the sum of outstanding loans, maintained inside
// the same transaction as every draw and paydown.
type Facility struct {
	ID                uuid.UUID       `json:"id"                  db:"id"`
	CreditAgreementID uuid.UUID       `json:"credit_agreement_id" db:"credit_agreement_id"`
	FacilityName      string          `json:"facility_name"       db:"facility_name"`
	FacilityType      FacilityType    `json:"facility_type"       db:"facility_type"`
	CommitmentAmount  decimal.Decimal `json:"commitment_amount"   db:"commitment_amount"`
	AvailableAmount   decimal.Decimal `json:"available_amount"    db:"available_amount"`
	Currency          string          `json:"currency"            db:"currency"`
	StartDate         time.Time       `json:"start_date"          db:"start_date"`
	MaturityDate      time.Time       `json:"maturity_date"       db:"maturity_date"`
	InterestType      InterestType    `json:"interest_type"       db:"interest_type"`
	BaseRate          decimal.Decimal `json:"base_rate"           db:"base_rate"`
	Margin            decimal.Decimal `json:"margin"              db:"margin"`
	Status            FacilityStatus  `json:"status"              db:"status"`
	Version           int             `json:"version"             db:"version"`
	CreatedAt         time.Time       `json:"created_at"          db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"          db:"updated_at"`
}

// IsActive returns true while the facility accepts draws, position changes
// and trades.
func (f *Facility) IsActive() bool {
	return f.Status == FacilityActive
}

// EffectiveRate is the all-in rate a new drawdown carries: base plus margin.
func (f *Facility) EffectiveRate() decimal.Decimal {
	return f.BaseRate.Add(f.Margin)
}

// DrawnAmount returns the committed capital currently deployed.
func (f *Facility) DrawnAmount() decimal.Decimal {
	return f.CommitmentAmount.Sub(f.AvailableAmount)
}
