package workflow

import (
	"sync"
	"testing"
)

// NOTE: These tests are intentionally DB-free. They validate the
// intended allocation semantics:
// - two orders racing for the last unit produce exactly one winner
// - an order either gets every unit it asked for or none
// - duplicate submissions with the same token collapse to one order
//
// Full DB integration tests belong in an environment that can run
// MySQL (see the INTEGRATION_TESTS-gated suites).

type fakeLedger struct {
	mu        sync.Mutex
	available map[int]int
	reserved  map[int]int
	tokens    map[string]bool
	orders    int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		available: map[int]int{},
		reserved:  map[int]int{},
		tokens:    map[string]bool{},
	}
}

// placeOrder mirrors the engine's flow: per-product serialization, a
// token dedup check, then all-or-nothing allocation.
func (l *fakeLedger) placeOrder(token string, productId, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if token != "" {
		if l.tokens[token] {
			return nil
		}
		l.tokens[token] = true
	}

	if l.available[productId] < quantity {
		return &InsufficientStockError{
			ProductId: productId,
			Requested: quantity,
			Available: l.available[productId],
		}
	}
	l.available[productId] -= quantity
	l.reserved[productId] += quantity
	l.orders++
	return nil
}

func TestAllocation_LastUnitRace(t *testing.T) {
	for run := 0; run < 200; run++ {
		l := newFakeLedger()
		l.available[1] = 1

		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = l.placeOrder("", 1, 1)
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range results {
			if err == nil {
				winners++
				continue
			}
			if _, ok := err.(*InsufficientStockError); !ok {
				t.Fatalf("run=%d unexpected error type %T", run, err)
			}
		}
		if winners != 1 {
			t.Fatalf("run=%d expected exactly 1 winner, got %d", run, winners)
		}
		if l.available[1] != 0 {
			t.Fatalf("run=%d expected 0 available after the race, got %d", run, l.available[1])
		}
	}
}

func TestAllocation_AllOrNothing(t *testing.T) {
	l := newFakeLedger()
	l.available[1] = 3

	err := l.placeOrder("", 1, 5)
	if err == nil {
		t.Fatal("expected InsufficientStockError")
	}
	if l.available[1] != 3 || l.reserved[1] != 0 {
		t.Fatalf("failed allocation mutated the ledger: available=%d reserved=%d",
			l.available[1], l.reserved[1])
	}
}

func TestAllocation_ConservationUnderConcurrency(t *testing.T) {
	for run := 0; run < 100; run++ {
		l := newFakeLedger()
		l.available[1] = 10

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = l.placeOrder("", 1, 1)
			}()
		}
		wg.Wait()

		if l.available[1]+l.reserved[1] != 10 {
			t.Fatalf("run=%d units leaked: available=%d reserved=%d",
				run, l.available[1], l.reserved[1])
		}
		if l.reserved[1] != 10 {
			t.Fatalf("run=%d expected all 10 units reserved, got %d", run, l.reserved[1])
		}
	}
}

func TestAllocation_DuplicateToken_OneOrder(t *testing.T) {
	l := newFakeLedger()
	l.available[1] = 100

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.placeOrder("token-1", 1, 1)
		}()
	}
	wg.Wait()

	if l.orders != 1 {
		t.Fatalf("expected exactly 1 order for the duplicated token, got %d", l.orders)
	}
	if l.available[1] != 99 {
		t.Fatalf("expected 99 available, got %d", l.available[1])
	}
}
