package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionStatus represents the lifecycle state of a lender position.
// COMPLETED is terminal: a completed position can never return to ACTIVE.
type PositionStatus string

const (
	PositionActive    PositionStatus = "ACTIVE"
	PositionCompleted PositionStatus = "COMPLETED"
)

// CanTransitionTo reports whether a position status change is legal.
func (s PositionStatus) CanTransitionTo(to PositionStatus) bool {
	switch s {
	case PositionActive:
		return to == PositionCompleted || to == PositionActive
	case PositionCompleted:
		return false
	}
	return false
}

// Position is one lender's ownership stake inside a facility: a commitment
// split into drawn and undrawn parts plus a percentage share of the
// facility. The invariant DrawnAmount + UndrawnAmount == CommitmentAmount
// holds after every mutation.
type Position struct {
	ID               uuid.UUID       `json:"id"                db:"id"`
	FacilityID       uuid.UUID       `json:"facility_id"       db:"facility_id"`
	LenderID         uuid.UUID       `json:"lender_id"         db:"lender_id"`
	CommitmentAmount decimal.Decimal `json:"commitment_amount" db:"commitment_amount"`
	DrawnAmount      decimal.Decimal `json:"drawn_amount"      db:"drawn_amount"`
	UndrawnAmount    decimal.Decimal `json:"undrawn_amount"    db:"undrawn_amount"`
	Share            decimal.Decimal `json:"share"             db:"share"` // 0–100
	Status           PositionStatus  `json:"status"            db:"status"`
	Version          int             `json:"version"           db:"version"`
	CreatedAt        time.Time       `json:"created_at"        db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"        db:"updated_at"`
}

// JoinPosition builds the position a lender takes when joining a facility
// that already exists. It starts fully undrawn: outstanding loans remain
// funded by the incumbent positions, so the facility-wide sum of drawn
// amounts keeps matching the loans outstanding. The new commitment
// participates from the next draw onward.
func JoinPosition(facilityID, lenderID uuid.UUID, amount, share decimal.Decimal, now time.Time) *Position {
	return &Position{
		ID:               uuid.New(),
		FacilityID:       facilityID,
		LenderID:         lenderID,
		CommitmentAmount: amount,
		DrawnAmount:      decimal.Zero,
		UndrawnAmount:    amount,
		Share:            share,
		Status:           PositionActive,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsActive returns true while the position participates in allocations.
func (p *Position) IsActive() bool {
	return p.Status == PositionActive
}

// Balanced reports whether drawn + undrawn equals the stated commitment.
func (p *Position) Balanced() bool {
	return p.DrawnAmount.Add(p.UndrawnAmount).Equal(p.CommitmentAmount)
}
