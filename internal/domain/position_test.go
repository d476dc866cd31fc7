package domain_test

import (
	"testing"
	"time"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Joining lender ────────────────────────────────────────────────────────────

// TestJoinPosition_StartsFullyUndrawn pins the shape of a joining lender's
// position: zero drawn, full undrawn, balanced.
func TestJoinPosition_StartsFullyUndrawn(t *testing.T) {
	p := domain.JoinPosition(uuid.New(), uuid.New(),
		decimal.NewFromInt(500000), decimal.RequireFromString("20"), time.Now().UTC())

	if !p.DrawnAmount.IsZero() {
		t.Errorf("joiner drawn = %s, want 0", p.DrawnAmount)
	}
	if !p.UndrawnAmount.Equal(decimal.NewFromInt(500000)) {
		t.Errorf("joiner undrawn = %s, want 500000", p.UndrawnAmount)
	}
	if !p.Balanced() {
		t.Error("joiner position must satisfy drawn + undrawn == commitment")
	}
	if p.Status != domain.PositionActive {
		t.Errorf("joiner status = %s, want ACTIVE", p.Status)
	}
}

// TestJoinPosition_DrawnBookStaysBalanced walks the full cycle: a lender
// joins a facility with loans outstanding, then the loans are repaid in
// full. The sum of drawn amounts must track the outstanding balance at every
// step and end at zero for every position, the joiner included.
func TestJoinPosition_DrawnBookStaysBalanced(t *testing.T) {
	outstanding := decimal.NewFromInt(1000000)
	incumbents := []*domain.Position{
		{CommitmentAmount: decimal.NewFromInt(600000), DrawnAmount: decimal.NewFromInt(600000), UndrawnAmount: decimal.Zero},
		{CommitmentAmount: decimal.NewFromInt(400000), DrawnAmount: decimal.NewFromInt(400000), UndrawnAmount: decimal.Zero},
	}

	joiner := domain.JoinPosition(uuid.New(), uuid.New(),
		decimal.NewFromInt(500000), decimal.RequireFromString("25"), time.Now().UTC())
	book := append(incumbents, joiner)

	drawnSum := decimal.Zero
	for _, p := range book {
		drawnSum = drawnSum.Add(p.DrawnAmount)
	}
	if !drawnSum.Equal(outstanding) {
		t.Fatalf("after join: sum(drawn) = %s, want outstanding %s", drawnSum, outstanding)
	}

	// Full repayment, allocated over drawn exposure like the paydown engine.
	weights := make([]decimal.Decimal, len(book))
	for i, p := range book {
		weights[i] = p.DrawnAmount
	}
	shares, err := domain.AllocateProRata(outstanding, weights)
	if err != nil {
		t.Fatalf("AllocateProRata: %v", err)
	}
	for i, p := range book {
		p.DrawnAmount = p.DrawnAmount.Sub(shares[i])
	}

	for i, p := range book {
		if !p.DrawnAmount.IsZero() {
			t.Errorf("position %d retains %s drawn after full repayment", i, p.DrawnAmount)
		}
	}
	if !shares[2].IsZero() {
		t.Errorf("joiner allocated %s of a repayment it never funded", shares[2])
	}
}
