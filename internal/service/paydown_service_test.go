package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// TestPaydownDescription pins the audit line format: the effective payment
// date supplied on the request must appear in the transaction record, not
// just the booking timestamp.
func TestPaydownDescription(t *testing.T) {
	effective := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	got := paydownDescription(decimal.RequireFromString("2500.5"), "USD", effective)
	want := "Paydown of 2500.50 USD effective 2026-03-15"
	if got != want {
		t.Errorf("paydownDescription = %q, want %q", got, want)
	}
}
