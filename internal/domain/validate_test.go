package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testAgreement() *domain.CreditAgreement {
	now := time.Now().UTC()
	return &domain.CreditAgreement{
		ID:           uuid.New(),
		BorrowerID:   uuid.New(),
		LenderID:     uuid.New(),
		Amount:       decimal.NewFromInt(1000000),
		Currency:     "USD",
		StartDate:    now,
		MaturityDate: now.AddDate(5, 0, 0),
		Status:       domain.AgreementActive,
	}
}

func testFacility(agreement *domain.CreditAgreement, commitment int64) *domain.Facility {
	return &domain.Facility{
		ID:                uuid.New(),
		CreditAgreementID: agreement.ID,
		FacilityName:      "Term Loan B",
		FacilityType:      domain.FacilityTermLoan,
		CommitmentAmount:  decimal.NewFromInt(commitment),
		AvailableAmount:   decimal.NewFromInt(commitment),
		Currency:          agreement.Currency,
		StartDate:         agreement.StartDate,
		MaturityDate:      agreement.MaturityDate,
		Status:            domain.FacilityActive,
	}
}

// ── Facility vs agreement ─────────────────────────────────────────────────────

// Agreement of 1,000,000 USD; a 1,200,000 facility must be rejected with a
// reason naming the agreement ceiling.
func TestValidateFacilityTerms_ExceedsAgreementAmount(t *testing.T) {
	agreement := testAgreement()
	f := testFacility(agreement, 1200000)

	err := domain.ValidateFacilityTerms(agreement, decimal.Zero, f)
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "exceed credit agreement amount") {
		t.Errorf("reason %q should name the agreement ceiling", err.Error())
	}
}

func TestValidateFacilityTerms_SiblingsCountTowardCeiling(t *testing.T) {
	agreement := testAgreement()
	f := testFacility(agreement, 400000)

	// 700,000 already committed to siblings: 400,000 more breaches 1,000,000.
	err := domain.ValidateFacilityTerms(agreement, decimal.NewFromInt(700000), f)
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}

	// 600,000 of siblings leaves exactly enough room.
	if err := domain.ValidateFacilityTerms(agreement, decimal.NewFromInt(600000), f); err != nil {
		t.Errorf("commitment exactly at the ceiling should pass, got %v", err)
	}
}

func TestValidateFacilityTerms_CurrencyAndDates(t *testing.T) {
	agreement := testAgreement()

	f := testFacility(agreement, 500000)
	f.Currency = "EUR"
	if err := domain.ValidateFacilityTerms(agreement, decimal.Zero, f); !domain.IsValidation(err) {
		t.Errorf("currency mismatch: err = %v, want validation error", err)
	}

	f = testFacility(agreement, 500000)
	f.MaturityDate = agreement.MaturityDate.AddDate(1, 0, 0)
	if err := domain.ValidateFacilityTerms(agreement, decimal.Zero, f); !domain.IsValidation(err) {
		t.Errorf("maturity past agreement: err = %v, want validation error", err)
	}

	f = testFacility(agreement, 500000)
	f.MaturityDate = f.StartDate
	if err := domain.ValidateFacilityTerms(agreement, decimal.Zero, f); !domain.IsValidation(err) {
		t.Errorf("maturity == start: err = %v, want validation error", err)
	}

	f = testFacility(agreement, 0)
	if err := domain.ValidateFacilityTerms(agreement, decimal.Zero, f); !domain.IsValidation(err) {
		t.Errorf("zero commitment: err = %v, want validation error", err)
	}
}

func TestValidateFacilityReduction(t *testing.T) {
	outstanding := decimal.NewFromInt(300000)
	if err := domain.ValidateFacilityReduction(decimal.NewFromInt(250000), outstanding); !domain.IsValidation(err) {
		t.Errorf("reduction below drawn exposure: err = %v, want validation error", err)
	}
	if err := domain.ValidateFacilityReduction(decimal.NewFromInt(300000), outstanding); err != nil {
		t.Errorf("reduction to exactly outstanding should pass, got %v", err)
	}
}

// ── Position invariants ───────────────────────────────────────────────────────

// Facility commitment 500,000; position A holds 300,000 at 60%. A second
// 300,000/60% position breaches both ceilings; the amount check fires first.
func TestValidatePositionChange_ExceedsFacilityCommitment(t *testing.T) {
	agreement := testAgreement()
	facility := testFacility(agreement, 500000)

	err := domain.ValidatePositionChange(
		facility,
		decimal.NewFromInt(300000), // sibling amounts
		decimal.NewFromInt(60),     // sibling shares
		decimal.Zero,               // nothing outstanding
		decimal.NewFromInt(300000),
		decimal.NewFromInt(60),
	)
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if err.Error() != "Total positions would exceed facility commitment" {
		t.Errorf("reason = %q", err.Error())
	}
}

func TestValidatePositionChange_ExceedsShareCeiling(t *testing.T) {
	agreement := testAgreement()
	facility := testFacility(agreement, 1000000)

	err := domain.ValidatePositionChange(
		facility,
		decimal.NewFromInt(300000),
		decimal.NewFromInt(60),
		decimal.Zero,
		decimal.NewFromInt(300000),
		decimal.NewFromInt(60),
	)
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if err.Error() != "Total position shares would exceed 100%" {
		t.Errorf("reason = %q", err.Error())
	}
}

func TestValidatePositionChange_ProRataCoverage(t *testing.T) {
	agreement := testAgreement()
	facility := testFacility(agreement, 1000000)
	outstanding := decimal.NewFromInt(800000)

	// 40% of 800,000 = 320,000 required; 300,000 is short.
	err := domain.ValidatePositionChange(
		facility,
		decimal.NewFromInt(600000),
		decimal.NewFromInt(60),
		outstanding,
		decimal.NewFromInt(300000),
		decimal.NewFromInt(40),
	)
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if err.Error() != "Position amount must cover pro-rata share of outstanding loans" {
		t.Errorf("reason = %q", err.Error())
	}

	// 320,000 covers its slice exactly.
	err = domain.ValidatePositionChange(
		facility,
		decimal.NewFromInt(600000),
		decimal.NewFromInt(60),
		outstanding,
		decimal.NewFromInt(320000),
		decimal.NewFromInt(40),
	)
	if err != nil {
		t.Errorf("exact pro-rata coverage should pass, got %v", err)
	}
}

// ── Drawdown checks ───────────────────────────────────────────────────────────

func TestValidateDrawdown(t *testing.T) {
	agreement := testAgreement()
	facility := testFacility(agreement, 500000)
	facility.AvailableAmount = decimal.NewFromInt(200000)

	if err := domain.ValidateDrawdown(facility, decimal.NewFromInt(250000), "USD"); !domain.IsValidation(err) {
		t.Errorf("draw above available: err = %v, want validation error", err)
	}
	if err := domain.ValidateDrawdown(facility, decimal.NewFromInt(100000), "EUR"); !domain.IsValidation(err) {
		t.Errorf("currency mismatch: err = %v, want validation error", err)
	}
	facility.Status = domain.FacilitySuspended
	if err := domain.ValidateDrawdown(facility, decimal.NewFromInt(100000), "USD"); !domain.IsValidation(err) {
		t.Errorf("suspended facility: err = %v, want validation error", err)
	}
	facility.Status = domain.FacilityActive
	if err := domain.ValidateDrawdown(facility, decimal.NewFromInt(200000), "USD"); err != nil {
		t.Errorf("draw of full available amount should pass, got %v", err)
	}
}

// ── Trade validation phase ────────────────────────────────────────────────────

func verifiedParty() *domain.KYCResult {
	return &domain.KYCResult{
		EntityID:             uuid.New(),
		Status:               domain.VerificationVerified,
		LenderVerified:       true,
		CounterpartyVerified: true,
	}
}

// Trade of 300,000 par against a 200,000 seller position must be rejected
// with an "insufficient position" reason.
func TestValidateTrade_InsufficientPosition(t *testing.T) {
	agreement := testAgreement()
	facility := testFacility(agreement, 1000000)
	sellerPos := &domain.Position{
		ID:               uuid.New(),
		FacilityID:       facility.ID,
		CommitmentAmount: decimal.NewFromInt(200000),
		Status:           domain.PositionActive,
	}
	now := time.Now().UTC()

	v := domain.ValidateTrade(
		verifiedParty(), verifiedParty(),
		facility, sellerPos,
		decimal.NewFromInt(300000),
		now.AddDate(0, 0, 3), now,
	)
	if v.IsValid {
		t.Fatal("trade above seller position should be invalid")
	}
	if !strings.Contains(v.Message, "insufficient position") {
		t.Errorf("message = %q, should name insufficient position", v.Message)
	}
}

func TestValidateTrade_KYCAndWindow(t *testing.T) {
	agreement := testAgreement()
	facility := testFacility(agreement, 1000000)
	sellerPos := &domain.Position{
		CommitmentAmount: decimal.NewFromInt(500000),
		Status:           domain.PositionActive,
	}
	now := time.Now().UTC()
	par := decimal.NewFromInt(200000)

	unverified := &domain.KYCResult{Status: domain.VerificationPending}
	if v := domain.ValidateTrade(unverified, verifiedParty(), facility, sellerPos, par, now, now); v.IsValid {
		t.Error("unverified seller should fail validation")
	}
	if v := domain.ValidateTrade(verifiedParty(), unverified, facility, sellerPos, par, now, now); v.IsValid {
		t.Error("unverified buyer should fail validation")
	}

	if v := domain.ValidateTrade(verifiedParty(), verifiedParty(), facility, sellerPos, par, now.AddDate(0, 0, -2), now); v.IsValid {
		t.Error("settlement in the past should fail validation")
	}
	late := facility.MaturityDate.AddDate(0, 0, 1)
	if v := domain.ValidateTrade(verifiedParty(), verifiedParty(), facility, sellerPos, par, late, now); v.IsValid {
		t.Error("settlement after facility maturity should fail validation")
	}

	// Settlement on today and on maturity day are both inside the window.
	if v := domain.ValidateTrade(verifiedParty(), verifiedParty(), facility, sellerPos, par, now, now); !v.IsValid {
		t.Errorf("same-day settlement should be valid, got %q", v.Message)
	}
	if v := domain.ValidateTrade(verifiedParty(), verifiedParty(), facility, sellerPos, par, facility.MaturityDate, now); !v.IsValid {
		t.Errorf("settlement on maturity date should be valid, got %q", v.Message)
	}
}

// TestValidateTrade_Idempotent runs the validation phase twice with
// unchanged state and demands the identical verdict and message.
func TestValidateTrade_Idempotent(t *testing.T) {
	agreement := testAgreement()
	facility := testFacility(agreement, 1000000)
	sellerPos := &domain.Position{
		CommitmentAmount: decimal.NewFromInt(200000),
		Status:           domain.PositionActive,
	}
	now := time.Now().UTC()
	par := decimal.NewFromInt(300000)

	first := domain.ValidateTrade(verifiedParty(), verifiedParty(), facility, sellerPos, par, now, now)
	second := domain.ValidateTrade(verifiedParty(), verifiedParty(), facility, sellerPos, par, now, now)
	if first.IsValid != second.IsValid || first.Message != second.Message {
		t.Errorf("validation not idempotent: %+v vs %+v", first, second)
	}
}

// ── Agreement intrinsics ──────────────────────────────────────────────────────

func TestCreditAgreement_Validate(t *testing.T) {
	a := testAgreement()
	if err := a.Validate(); err != nil {
		t.Errorf("valid agreement rejected: %v", err)
	}

	a = testAgreement()
	a.Amount = decimal.Zero
	if err := a.Validate(); !domain.IsValidation(err) {
		t.Errorf("zero amount: err = %v, want validation error", err)
	}

	a = testAgreement()
	a.MaturityDate = a.StartDate
	if err := a.Validate(); !domain.IsValidation(err) {
		t.Errorf("maturity == start: err = %v, want validation error", err)
	}
}
