package workflow

import (
	"testing"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/shopspring/decimal"
)

func TestPaymentStatusFor(t *testing.T) {
	cases := []struct {
		paid  string
		total string
		want  models.PaymentStatus
	}{
		{"0", "1000", models.PaymentStatusPending},
		{"500", "1000", models.PaymentStatusPartial},
		{"1000", "1000", models.PaymentStatusPaid},
		{"1000.01", "1000", models.PaymentStatusPaid},
		{"0", "0", models.PaymentStatusPaid},
	}
	for _, c := range cases {
		got := paymentStatusFor(dec(c.paid), dec(c.total))
		if got != c.want {
			t.Fatalf("paymentStatusFor(%s, %s) = %s, want %s", c.paid, c.total, got, c.want)
		}
	}
}

func TestNewPayment_Validate(t *testing.T) {
	p := &NewPayment{Amount: decimal.Zero, PaymentMode: models.PaymentModeCash}
	if err := p.validate(); err == nil {
		t.Fatal("expected zero amount to be rejected")
	}
	p.Amount = dec("-10")
	if err := p.validate(); err == nil {
		t.Fatal("expected negative amount to be rejected")
	}
	p.Amount = dec("10")
	if err := p.validate(); err != nil {
		t.Fatalf("expected positive amount to pass, got %v", err)
	}
}

func TestOverpaymentError_Message(t *testing.T) {
	err := &OverpaymentError{
		DocumentType: "order",
		DocumentId:   42,
		Outstanding:  dec("100.50"),
		Attempted:    dec("200"),
	}
	want := "payment of 200.00 exceeds outstanding balance 100.50 on order 42"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestNextPaymentDue_AdvancesPastSettledInstallments(t *testing.T) {
	due := func(month int) time.Time {
		return time.Date(2026, time.Month(month), 15, 0, 0, 0, 0, time.UTC)
	}
	schedule := []*models.EMIScheduleEntry{
		{InstallmentNo: 1, DueDate: due(10), Status: models.EMIStatusCompleted},
		{InstallmentNo: 2, DueDate: due(11), Status: models.EMIStatusPartiallyPaid},
		{InstallmentNo: 3, DueDate: due(12), Status: models.EMIStatusPending},
	}

	next := NextPaymentDue(schedule)
	if next == nil || !next.Equal(due(11)) {
		t.Fatalf("next payment due = %v, want %s", next, due(11))
	}

	// A partially paid installment still holds the date until settled.
	schedule[1].Status = models.EMIStatusCompleted
	next = NextPaymentDue(schedule)
	if next == nil || !next.Equal(due(12)) {
		t.Fatalf("next payment due = %v, want %s", next, due(12))
	}

	// A settled plan has no next payment.
	schedule[2].Status = models.EMIStatusCompleted
	if next = NextPaymentDue(schedule); next != nil {
		t.Fatalf("next payment due = %v, want nil", *next)
	}
}

func TestReversingModes_SkipOverpaymentGuard(t *testing.T) {
	if !models.PaymentModeRefund.IsReversing() {
		t.Fatal("Refund must be a reversing mode")
	}
	if !models.PaymentModeAdjustment.IsReversing() {
		t.Fatal("Adjustment must be a reversing mode")
	}
	if models.PaymentModeCash.IsReversing() {
		t.Fatal("Cash must not be a reversing mode")
	}
}
