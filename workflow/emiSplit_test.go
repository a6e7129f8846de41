package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSplitEMI_RemainderOnLastInstallment(t *testing.T) {
	amounts := SplitEMI(dec("10000.00"), 3)

	want := []string{"3333.33", "3333.33", "3333.34"}
	if len(amounts) != len(want) {
		t.Fatalf("got %d installments, want %d", len(amounts), len(want))
	}
	for i, w := range want {
		if !amounts[i].Equal(dec(w)) {
			t.Fatalf("installment %d = %s, want %s", i+1, amounts[i], w)
		}
	}
}

func TestSplitEMI_SumsExactly(t *testing.T) {
	cases := []struct {
		balance string
		n       int
	}{
		{"10000.00", 3},
		{"99999.99", 7},
		{"0.01", 2},
		{"146824.50", 12},
		{"1.00", 3},
	}
	for _, c := range cases {
		balance := dec(c.balance)
		amounts := SplitEMI(balance, c.n)

		sum := decimal.Zero
		for _, a := range amounts {
			sum = sum.Add(a)
		}
		if !sum.Equal(balance) {
			t.Fatalf("split of %s over %d sums to %s", c.balance, c.n, sum)
		}
		// Every installment but the last is the same even share.
		for i := 1; i < len(amounts)-1; i++ {
			if !amounts[i].Equal(amounts[0]) {
				t.Fatalf("installment %d of %s/%d is uneven: %s", i+1, c.balance, c.n, amounts[i])
			}
		}
	}
}

func TestSplitEMI_SingleInstallment(t *testing.T) {
	amounts := SplitEMI(dec("123.45"), 1)
	if len(amounts) != 1 || !amounts[0].Equal(dec("123.45")) {
		t.Fatalf("single installment = %v, want [123.45]", amounts)
	}
}

func TestSplitEMI_InvalidCount(t *testing.T) {
	if got := SplitEMI(dec("100"), 0); got != nil {
		t.Fatalf("expected nil for 0 installments, got %v", got)
	}
}
