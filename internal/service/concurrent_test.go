package service_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
)

// TestConcurrentDrawdownGuard simulates 50 goroutines simultaneously drawing
// a fixed amount against a shared facility availability — protected by a
// mutex. This verifies the guard pattern compiles and passes -race.
//
// In the real LoanService the facility row's FOR UPDATE lock provides this
// guarantee; here the same guard is replicated with sync primitives so the
// race detector can confirm the pattern is sound.
func TestConcurrentDrawdownGuard(t *testing.T) {
	const workers = 50
	const drawEach = 10_000

	available := decimal.NewFromInt(int64(workers * drawEach)) // exact total
	var mu sync.Mutex
	var rejected int64 // draws over the ceiling (zero is expected here)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			draw := decimal.NewFromInt(drawEach)

			mu.Lock()
			defer mu.Unlock()

			if available.LessThan(draw) {
				atomic.AddInt64(&rejected, 1)
				return
			}
			available = available.Sub(draw)
		}()
	}
	wg.Wait()

	// Every draw fits exactly: no rejections expected.
	if rejected > 0 {
		t.Errorf("expected 0 rejected draws, got %d", rejected)
	}
	// Availability should be exactly 0 after exactly 50 × 10000 draws.
	if !available.IsZero() {
		t.Errorf("final availability should be 0, got %s", available)
	}
}

// TestConcurrentSettlementGuard verifies the status-guarded transition under
// concurrent access: only one of N goroutines settles a confirmed trade.
func TestConcurrentSettlementGuard(t *testing.T) {
	const workers = 20
	type tradeState struct {
		mu      sync.Mutex
		settled bool
	}

	var (
		tr       tradeState
		settled  int64
		rejected int64
		wg       sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			tr.mu.Lock()
			defer tr.mu.Unlock()

			if tr.settled {
				// Second+ call: rejected by the WHERE status = from guard.
				atomic.AddInt64(&rejected, 1)
				return
			}
			tr.settled = true
			atomic.AddInt64(&settled, 1)
		}()
	}
	wg.Wait()

	if settled != 1 {
		t.Errorf("exactly 1 goroutine should have settled the trade, got %d", settled)
	}
	if rejected != workers-1 {
		t.Errorf("expected %d rejections, got %d", workers-1, rejected)
	}
}
