package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Typed request/response contracts for the ledger operations. The API layer
// parses and validates raw input into these before invoking a service;
// pointer fields on update requests mean "leave unchanged".

// CreateAgreementRequest creates a new credit agreement.
type CreateAgreementRequest struct {
	BorrowerID   uuid.UUID
	LenderID     uuid.UUID
	Amount       decimal.Decimal
	Currency     string
	StartDate    time.Time
	MaturityDate time.Time
	InterestRate decimal.Decimal
	ActorID      uuid.UUID
}

// AmendAgreementRequest amends amount, currency or maturity of an agreement.
type AmendAgreementRequest struct {
	Amount       *decimal.Decimal
	Currency     *string
	MaturityDate *time.Time
	ActorID      uuid.UUID
}

// CreateFacilityRequest creates a facility under an agreement. When
// InitialLenderID is set, one position at 100% share with zero drawn amount
// is created in the same transaction.
type CreateFacilityRequest struct {
	CreditAgreementID uuid.UUID
	FacilityName      string
	FacilityType      FacilityType
	CommitmentAmount  decimal.Decimal
	Currency          string
	StartDate         time.Time
	MaturityDate      time.Time
	InterestType      InterestType
	BaseRate          decimal.Decimal
	Margin            decimal.Decimal
	InitialLenderID   *uuid.UUID
	ActorID           uuid.UUID
}

// UpdateFacilityRequest amends facility terms.
type UpdateFacilityRequest struct {
	FacilityName     *string
	CommitmentAmount *decimal.Decimal
	Currency         *string
	MaturityDate     *time.Time
	BaseRate         *decimal.Decimal
	Margin           *decimal.Decimal
	Status           *FacilityStatus
	ActorID          uuid.UUID
}

// CreatePositionRequest adds a lender position to a facility.
type CreatePositionRequest struct {
	FacilityID uuid.UUID
	LenderID   uuid.UUID
	Amount     decimal.Decimal
	Share      decimal.Decimal
	ActorID    uuid.UUID
}

// UpdatePositionRequest changes a position's amount, share or status.
type UpdatePositionRequest struct {
	Amount  *decimal.Decimal
	Share   *decimal.Decimal
	Status  *PositionStatus
	ActorID uuid.UUID
}

// CreateDrawdownRequest draws a loan against a facility.
type CreateDrawdownRequest struct {
	FacilityID uuid.UUID
	Amount     decimal.Decimal
	Currency   string
	DrawDate   time.Time
	ActorID    uuid.UUID
}

// UpdateLoanRequest changes a loan's status along the transition table.
type UpdateLoanRequest struct {
	Status  LoanStatus
	ActorID uuid.UUID
}

// PaydownRequest repays principal on a loan.
type PaydownRequest struct {
	LoanID      uuid.UUID
	FacilityID  uuid.UUID
	Amount      decimal.Decimal
	PaymentDate time.Time
	ActorID     uuid.UUID
}

// PositionDelta is one lender's slice of a paydown allocation.
type PositionDelta struct {
	PositionID     uuid.UUID       `json:"position_id"`
	LenderID       uuid.UUID       `json:"lender_id"`
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	ChangeAmount   decimal.Decimal `json:"change_amount"`
	NewAmount      decimal.Decimal `json:"new_amount"`
}

// PaydownResult is the snapshot a successful paydown returns: the loan and
// facility balances before and after, plus every lender's delta.
type PaydownResult struct {
	Loan                    *Loan           `json:"loan"`
	OutstandingBefore       decimal.Decimal `json:"outstanding_before"`
	OutstandingAfter        decimal.Decimal `json:"outstanding_after"`
	FacilityAvailableBefore decimal.Decimal `json:"facility_available_before"`
	FacilityAvailableAfter  decimal.Decimal `json:"facility_available_after"`
	Positions               []PositionDelta `json:"positions"`
}

// TradeRequest books (or validates) a secondary trade.
type TradeRequest struct {
	FacilityID     uuid.UUID
	SellerLenderID uuid.UUID
	BuyerLenderID  uuid.UUID
	TradeDate      time.Time
	SettlementDate time.Time
	ParAmount      decimal.Decimal
	Price          decimal.Decimal // percent of par, e.g. 99.5
	ActorID        uuid.UUID
}

// AdjustPositionRequest is the backoffice manual adjustment: a signed delta
// applied to a position's commitment with a mandatory reason.
type AdjustPositionRequest struct {
	Delta   decimal.Decimal
	Reason  string
	ActorID uuid.UUID
}
