package domain_test

import (
	"testing"

	"github.com/arcfin/loanledger/internal/domain"
	"github.com/shopspring/decimal"
)

// ── Pro-rata allocation ───────────────────────────────────────────────────────

// TestAllocateProRata_TwoLenders mirrors the canonical agency-servicing case:
// a 200,000 paydown across positions of 600,000 and 400,000 must land as
// 120,000 / 80,000 with the loan outstanding dropping by exactly 200,000.
func TestAllocateProRata_TwoLenders(t *testing.T) {
	weights := []decimal.Decimal{
		decimal.NewFromInt(600000),
		decimal.NewFromInt(400000),
	}
	total := decimal.NewFromInt(200000)

	got, err := domain.AllocateProRata(total, weights)
	if err != nil {
		t.Fatalf("AllocateProRata: %v", err)
	}

	wantA := decimal.NewFromInt(120000)
	wantB := decimal.NewFromInt(80000)
	if !got[0].Equal(wantA) {
		t.Errorf("position A change = %s, want %s", got[0], wantA)
	}
	if !got[1].Equal(wantB) {
		t.Errorf("position B change = %s, want %s", got[1], wantB)
	}
}

// TestAllocateProRata_ExactConservation drives repeating-decimal splits
// (1/3, 1/7 shares) and checks that the allocated parts always sum exactly
// to the paydown amount — the rounding residue must never leak.
func TestAllocateProRata_ExactConservation(t *testing.T) {
	cases := []struct {
		name    string
		total   string
		weights []string
	}{
		{"thirds", "100.00", []string{"1", "1", "1"}},
		{"sevenths", "1000.00", []string{"1", "1", "1", "1", "1", "1", "1"}},
		{"skewed", "333.33", []string{"999999.99", "0.01"}},
		{"tiny total", "0.01", []string{"700000", "300000"}},
		{"mixed cents", "250.07", []string{"123.45", "678.90", "0.65"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			total := decimal.RequireFromString(tc.total)
			weights := make([]decimal.Decimal, len(tc.weights))
			for i, w := range tc.weights {
				weights[i] = decimal.RequireFromString(w)
			}

			got, err := domain.AllocateProRata(total, weights)
			if err != nil {
				t.Fatalf("AllocateProRata: %v", err)
			}

			sum := decimal.Zero
			for _, g := range got {
				sum = sum.Add(g)
			}
			if !sum.Equal(total) {
				t.Errorf("sum(allocations) = %s, want exactly %s", sum, total)
			}
		})
	}
}

// TestAllocateProRata_CapacityBound drives allocations whose residue would
// overflow a single position and checks both halves of the contract: the
// parts still sum exactly to the total, and no part exceeds its weight, so a
// paydown can never reduce a position below zero drawn.
func TestAllocateProRata_CapacityBound(t *testing.T) {
	// 100 equal positions of 10.00 drawn, paydown 999.99. Each floor share is
	// 9.99, leaving a 0.99 residue that no single position can absorb.
	weights := make([]decimal.Decimal, 100)
	for i := range weights {
		weights[i] = decimal.RequireFromString("10.00")
	}
	total := decimal.RequireFromString("999.99")

	got, err := domain.AllocateProRata(total, weights)
	if err != nil {
		t.Fatalf("AllocateProRata: %v", err)
	}
	sum := decimal.Zero
	for i, g := range got {
		if g.GreaterThan(weights[i]) {
			t.Errorf("position %d allocated %s, exceeds its %s drawn", i, g, weights[i])
		}
		sum = sum.Add(g)
	}
	if !sum.Equal(total) {
		t.Errorf("sum(allocations) = %s, want exactly %s", sum, total)
	}

	// Degenerate book: three positions of 0.01 drawn, paydown 0.02. Every
	// floor share is zero and the whole amount is residue.
	weights = []decimal.Decimal{
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("0.01"),
	}
	got, err = domain.AllocateProRata(decimal.RequireFromString("0.02"), weights)
	if err != nil {
		t.Fatalf("AllocateProRata: %v", err)
	}
	sum = decimal.Zero
	for i, g := range got {
		if g.GreaterThan(weights[i]) {
			t.Errorf("position %d allocated %s, exceeds its 0.01 drawn", i, g)
		}
		sum = sum.Add(g)
	}
	if !sum.Equal(decimal.RequireFromString("0.02")) {
		t.Errorf("sum(allocations) = %s, want exactly 0.02", sum)
	}
}

// TestAllocateProRata_ResidueToLargest verifies the remainder ordering: the
// residue goes to the largest position first (first of the tied positions on
// ties); with ratio-style weights smaller than the total, where no position
// has headroom, the largest still absorbs it.
func TestAllocateProRata_ResidueToLargest(t *testing.T) {
	// 100.00 over weights 1:1:1 → 33.33 each rounded down, residue 0.01.
	weights := []decimal.Decimal{
		decimal.NewFromInt(1),
		decimal.NewFromInt(1),
		decimal.NewFromInt(1),
	}
	got, err := domain.AllocateProRata(decimal.RequireFromString("100.00"), weights)
	if err != nil {
		t.Fatalf("AllocateProRata: %v", err)
	}
	if !got[0].Equal(decimal.RequireFromString("33.34")) {
		t.Errorf("first tied position should absorb residue, got %s", got[0])
	}
	if !got[1].Equal(decimal.RequireFromString("33.33")) || !got[2].Equal(decimal.RequireFromString("33.33")) {
		t.Errorf("remaining positions = %s, %s, want 33.33 each", got[1], got[2])
	}

	// Distinct weights: residue must land on the strictly largest one.
	weights = []decimal.Decimal{
		decimal.NewFromInt(100),
		decimal.NewFromInt(500),
		decimal.NewFromInt(400),
	}
	got, err = domain.AllocateProRata(decimal.RequireFromString("0.04"), weights)
	if err != nil {
		t.Fatalf("AllocateProRata: %v", err)
	}
	// Exact shares: 0.004 / 0.02 / 0.016 → rounded down 0.00 each, residue
	// 0.04 → all to index 1.
	if !got[1].Equal(decimal.RequireFromString("0.04")) {
		t.Errorf("largest position change = %s, want 0.04", got[1])
	}
	if !got[0].IsZero() || !got[2].IsZero() {
		t.Errorf("smaller positions should get nothing, got %s and %s", got[0], got[2])
	}
}

// TestAllocateProRata_Deterministic re-runs the same allocation and demands
// identical output — the remainder rule may not depend on map order or time.
func TestAllocateProRata_Deterministic(t *testing.T) {
	weights := []decimal.Decimal{
		decimal.RequireFromString("333.33"),
		decimal.RequireFromString("333.33"),
		decimal.RequireFromString("333.34"),
	}
	total := decimal.RequireFromString("100.01")

	first, err := domain.AllocateProRata(total, weights)
	if err != nil {
		t.Fatalf("AllocateProRata: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := domain.AllocateProRata(total, weights)
		if err != nil {
			t.Fatalf("AllocateProRata: %v", err)
		}
		for j := range first {
			if !first[j].Equal(again[j]) {
				t.Fatalf("run %d index %d = %s, first run had %s", i, j, again[j], first[j])
			}
		}
	}
}

// TestAllocateProRata_Rejections covers the failure modes: negative totals,
// no positions, negative weights and zero total exposure.
func TestAllocateProRata_Rejections(t *testing.T) {
	one := []decimal.Decimal{decimal.NewFromInt(1)}

	if _, err := domain.AllocateProRata(decimal.NewFromInt(-5), one); !domain.IsValidation(err) {
		t.Errorf("negative total: err = %v, want validation error", err)
	}
	if _, err := domain.AllocateProRata(decimal.NewFromInt(5), nil); !domain.IsValidation(err) {
		t.Errorf("no weights: err = %v, want validation error", err)
	}
	neg := []decimal.Decimal{decimal.NewFromInt(10), decimal.NewFromInt(-1)}
	if _, err := domain.AllocateProRata(decimal.NewFromInt(5), neg); !domain.IsValidation(err) {
		t.Errorf("negative weight: err = %v, want validation error", err)
	}
	zeros := []decimal.Decimal{decimal.Zero, decimal.Zero}
	if _, err := domain.AllocateProRata(decimal.NewFromInt(5), zeros); !domain.IsValidation(err) {
		t.Errorf("zero exposure: err = %v, want validation error", err)
	}
}
