package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// moneyScale is the number of decimal places every allocated monetary amount
// is held to (cents).
const moneyScale = 2

// AllocateProRata splits total across the given weights in proportion to
// each weight's fraction of their sum, conserving total exactly.
//
// Each slice element is total × weight/sum(weights) rounded down to cents.
// The accumulated rounding residue is then distributed over the positions in
// descending weight order (first occurrence on ties, so callers that pass
// positions ordered by ID get a fully deterministic result), with each
// position taking no more than its headroom weight − share. Whenever
// total <= sum(weights) the combined headroom covers the residue, so
//
//	sum(result) == total   and   result[i] <= weights[i]
//
// both hold exactly — the properties the paydown and drawdown engines rely
// on: no position is ever reduced below zero drawn or pushed past its
// undrawn capacity. When the weights are pure ratios instead of capacities
// (total above their sum) the leftover residue falls to the largest weight.
//
// Weights are the positions' current exposure (drawn amounts), never the
// stated share percentages, so a stale share field cannot skew allocation.
func AllocateProRata(total decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	if total.IsNegative() {
		return nil, Validationf("allocation amount cannot be negative")
	}
	if len(weights) == 0 {
		return nil, Validationf("allocation requires at least one position")
	}

	sum := decimal.Zero
	largest := 0
	for i, w := range weights {
		if w.IsNegative() {
			return nil, Validationf("allocation weight cannot be negative")
		}
		sum = sum.Add(w)
		if w.GreaterThan(weights[largest]) {
			largest = i
		}
	}
	if !sum.IsPositive() {
		return nil, Validationf("allocation requires positive total exposure")
	}

	result := make([]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	for i, w := range weights {
		share := total.Mul(w).Div(sum).RoundDown(moneyScale)
		result[i] = share
		allocated = allocated.Add(share)
	}

	// Remainder rule: hand the residue to positions that still have headroom,
	// biggest holders first, so no share ever exceeds its weight.
	residue := total.Sub(allocated)
	if residue.IsPositive() {
		order := make([]int, len(weights))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return weights[order[a]].GreaterThan(weights[order[b]])
		})
		for _, i := range order {
			headroom := weights[i].Sub(result[i])
			if !headroom.IsPositive() {
				continue
			}
			take := decimal.Min(headroom, residue)
			result[i] = result[i].Add(take)
			residue = residue.Sub(take)
			if residue.IsZero() {
				break
			}
		}
		if residue.IsPositive() {
			// Ratio-style weights with total above their sum: no position has
			// headroom, so the largest absorbs the leftover.
			result[largest] = result[largest].Add(residue)
		}
	}
	return result, nil
}
