package domain_test

import (
	"testing"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/shopspring/decimal"
)

// ── Loan state machine ────────────────────────────────────────────────────────

func TestLoanStatus_TransitionTable(t *testing.T) {
	cases := []struct {
		from, to domain.LoanStatus
		want     bool
	}{
		{domain.LoanActive, domain.LoanPartiallyPaid, true},
		{domain.LoanActive, domain.LoanPaid, true},
		{domain.LoanActive, domain.LoanDefaulted, true},
		{domain.LoanActive, domain.LoanClosed, true},
		{domain.LoanPartiallyPaid, domain.LoanPaid, true},
		{domain.LoanPartiallyPaid, domain.LoanPartiallyPaid, true},
		{domain.LoanPaid, domain.LoanClosed, true},
		{domain.LoanDefaulted, domain.LoanClosed, true},

		// PAID may only move to CLOSED.
		{domain.LoanPaid, domain.LoanActive, false},
		{domain.LoanPaid, domain.LoanDefaulted, false},
		// CLOSED is frozen.
		{domain.LoanClosed, domain.LoanActive, false},
		{domain.LoanClosed, domain.LoanPaid, false},
		{domain.LoanClosed, domain.LoanClosed, false},
		// No re-opening.
		{domain.LoanPartiallyPaid, domain.LoanActive, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestLoan_StatusAfterPaydown(t *testing.T) {
	l := &domain.Loan{Status: domain.LoanActive}
	if got := l.StatusAfterPaydown(decimal.Zero); got != domain.LoanPaid {
		t.Errorf("full repayment should yield PAID, got %s", got)
	}
	if got := l.StatusAfterPaydown(decimal.NewFromInt(1)); got != domain.LoanPartiallyPaid {
		t.Errorf("partial repayment should yield PARTIALLY_PAID, got %s", got)
	}

	// Recovery payments never rehabilitate a defaulted loan; every resulting
	// status would otherwise be an edge the transition table forbids.
	d := &domain.Loan{Status: domain.LoanDefaulted}
	if got := d.StatusAfterPaydown(decimal.NewFromInt(1)); got != domain.LoanDefaulted {
		t.Errorf("partial recovery on DEFAULTED should stay DEFAULTED, got %s", got)
	}
	if got := d.StatusAfterPaydown(decimal.Zero); got != domain.LoanDefaulted {
		t.Errorf("full recovery on DEFAULTED should stay DEFAULTED, got %s", got)
	}
}

// ── Trade state machine ───────────────────────────────────────────────────────

func TestTradeStatus_TransitionTable(t *testing.T) {
	cases := []struct {
		from, to domain.TradeStatus
		want     bool
	}{
		{domain.TradePending, domain.TradeConfirmed, true},
		{domain.TradeConfirmed, domain.TradeSettled, true},
		{domain.TradeSettled, domain.TradeClosed, true},
		// Any non-closed state may be closed.
		{domain.TradePending, domain.TradeClosed, true},
		{domain.TradeConfirmed, domain.TradeClosed, true},

		// Settlement requires prior confirmation.
		{domain.TradePending, domain.TradeSettled, false},
		// No backward edges.
		{domain.TradeConfirmed, domain.TradePending, false},
		{domain.TradeSettled, domain.TradeConfirmed, false},
		{domain.TradeClosed, domain.TradePending, false},
		{domain.TradeClosed, domain.TradeSettled, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

// ── Position status ───────────────────────────────────────────────────────────

func TestPositionStatus_CompletedIsTerminal(t *testing.T) {
	if !domain.PositionActive.CanTransitionTo(domain.PositionCompleted) {
		t.Error("ACTIVE -> COMPLETED should be allowed")
	}
	if domain.PositionCompleted.CanTransitionTo(domain.PositionActive) {
		t.Error("COMPLETED -> ACTIVE must be rejected")
	}
}

// ── Settlement amount ─────────────────────────────────────────────────────────

func TestSettlementAmountFor(t *testing.T) {
	// 300,000 par at 99.5 → 298,500.00
	got := domain.SettlementAmountFor(decimal.NewFromInt(300000), decimal.RequireFromString("99.5"))
	want := decimal.RequireFromString("298500.00")
	if !got.Equal(want) {
		t.Errorf("SettlementAmountFor = %s, want %s", got, want)
	}

	// Sub-cent products round to cents.
	got = domain.SettlementAmountFor(decimal.RequireFromString("100.01"), decimal.RequireFromString("99.995"))
	if got.Exponent() < -2 {
		t.Errorf("settlement amount should be cent-scaled, got %s", got)
	}
}

// ── KYC verdict ───────────────────────────────────────────────────────────────

func TestKYCResult_Passes(t *testing.T) {
	ok := &domain.KYCResult{Status: domain.VerificationVerified, CounterpartyVerified: true}
	if !ok.Passes() {
		t.Error("verified counterparty should pass")
	}

	pending := &domain.KYCResult{Status: domain.VerificationPending, CounterpartyVerified: true}
	if pending.Passes() {
		t.Error("pending verification must not pass")
	}

	unflagged := &domain.KYCResult{Status: domain.VerificationVerified, CounterpartyVerified: false}
	if unflagged.Passes() {
		t.Error("counterparty_verified=false must not pass")
	}

	var missing *domain.KYCResult
	if missing.Passes() {
		t.Error("nil result must not pass")
	}
}
