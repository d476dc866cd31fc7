package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// This file holds the aggregate-spanning invariant checks as pure functions.
// Services load the sibling rows inside their transaction and call these
// with the loaded values, so every rule is testable without a database.

var hundred = decimal.NewFromInt(100)

// ValidateFacilityTerms checks a new or amended facility against its parent
// agreement and the commitments of its sibling facilities.
// siblingCommitments is the sum over all other facilities of the agreement,
// read inside the caller's transaction.
func ValidateFacilityTerms(agreement *CreditAgreement, siblingCommitments decimal.Decimal, f *Facility) error {
	if !f.CommitmentAmount.IsPositive() {
		return Validationf("facility commitment must be positive")
	}
	if !f.FacilityType.IsValid() {
		return Validationf("unknown facility type %q", f.FacilityType)
	}
	if !f.MaturityDate.After(f.StartDate) {
		return Validationf("facility maturity date must be after start date")
	}
	if f.Currency != agreement.Currency {
		return Validationf("facility currency %s must match credit agreement currency %s",
			f.Currency, agreement.Currency)
	}
	if f.MaturityDate.After(agreement.MaturityDate) {
		return Validationf("facility maturity date cannot be after credit agreement maturity date")
	}
	if siblingCommitments.Add(f.CommitmentAmount).GreaterThan(agreement.Amount) {
		return Validationf("total facility commitments would exceed credit agreement amount")
	}
	return nil
}

// ValidateFacilityReduction rejects a commitment below the facility's drawn
// exposure. outstandingTotal is the sum of outstanding loan amounts, read
// inside the caller's transaction.
func ValidateFacilityReduction(newCommitment, outstandingTotal decimal.Decimal) error {
	if newCommitment.LessThan(outstandingTotal) {
		return Validationf("facility commitment cannot be reduced below outstanding loan balance")
	}
	return nil
}

// ValidatePositionChange enforces the position invariants against the
// facility ceiling and the position's siblings, in the fixed order the
// tracker requires:
//
//	(b) amount ceiling, (c) share ceiling, (d) pro-rata coverage.
//
// otherAmounts and otherShares are sums over all *other* positions of the
// facility; outstandingTotal is the sum of outstanding loan balances. All
// three must be read inside the caller's transaction.
func ValidatePositionChange(facility *Facility, otherAmounts, otherShares, outstandingTotal, amount, share decimal.Decimal) error {
	if !amount.IsPositive() {
		return Validationf("position amount must be positive")
	}
	if !share.IsPositive() || share.GreaterThan(hundred) {
		return Validationf("position share must be between 0 and 100")
	}
	if otherAmounts.Add(amount).GreaterThan(facility.CommitmentAmount) {
		return Validationf("Total positions would exceed facility commitment")
	}
	if otherShares.Add(share).GreaterThan(hundred) {
		return Validationf("Total position shares would exceed 100%%")
	}
	required := share.Div(hundred).Mul(outstandingTotal)
	if amount.LessThan(required) {
		return Validationf("Position amount must cover pro-rata share of outstanding loans")
	}
	return nil
}

// ValidateDrawdown checks a new loan against its facility at draw time.
func ValidateDrawdown(facility *Facility, amount decimal.Decimal, currency string) error {
	if !facility.IsActive() {
		return Validationf("facility is not active")
	}
	if !amount.IsPositive() {
		return Validationf("drawdown amount must be positive")
	}
	if currency != facility.Currency {
		return Validationf("drawdown currency %s must match facility currency %s",
			currency, facility.Currency)
	}
	if amount.GreaterThan(facility.AvailableAmount) {
		return Validationf("drawdown exceeds facility available amount")
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Trade validation
// ──────────────────────────────────────────────────────────────────────────────

// TradeValidation is the verdict of the read-only trade validation phase.
// Failures are reported here rather than thrown, so a caller can surface
// the specific reason without aborting a larger batch. With unchanged
// inputs the verdict is deterministic.
type TradeValidation struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
}

func tradeInvalid(msg string) TradeValidation {
	return TradeValidation{IsValid: false, Message: msg}
}

// ValidateTrade runs the full read-only validation phase for a trade:
// KYC on both counterparties, facility state, par amount against the
// facility ceiling and the seller's position, and the settlement window
// [today, facility maturity]. sellerPos may be nil when the seller holds
// no position in the facility.
func ValidateTrade(
	seller, buyer *KYCResult,
	facility *Facility,
	sellerPos *Position,
	parAmount decimal.Decimal,
	settlementDate, today time.Time,
) TradeValidation {
	if !seller.Passes() {
		return tradeInvalid("seller has not passed counterparty verification")
	}
	if !buyer.Passes() {
		return tradeInvalid("buyer has not passed counterparty verification")
	}
	if !facility.IsActive() {
		return tradeInvalid("facility is not active")
	}
	if !parAmount.IsPositive() {
		return tradeInvalid("par amount must be positive")
	}
	if parAmount.GreaterThan(facility.CommitmentAmount) {
		return tradeInvalid("par amount exceeds facility commitment")
	}
	if sellerPos == nil || !sellerPos.IsActive() {
		return tradeInvalid("seller holds no active position in this facility")
	}
	if sellerPos.CommitmentAmount.LessThan(parAmount) {
		return tradeInvalid("insufficient position: par amount exceeds seller commitment")
	}
	if dateOnly(settlementDate).Before(dateOnly(today)) {
		return tradeInvalid("settlement date cannot be in the past")
	}
	if dateOnly(settlementDate).After(dateOnly(facility.MaturityDate)) {
		return tradeInvalid("settlement date cannot be after facility maturity")
	}
	return TradeValidation{IsValid: true, Message: "trade is valid"}
}

// dateOnly truncates a timestamp to its calendar day in UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
