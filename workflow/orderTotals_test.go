package workflow

import (
	"testing"

	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/shopspring/decimal"
)

func detail(unitPrice string, qty int) models.OrderDetail {
	price := dec(unitPrice)
	return models.OrderDetail{
		Quantity:   qty,
		UnitPrice:  price,
		TotalPrice: LineTotal(price, qty),
	}
}

func TestComputeOrderTotals_Law(t *testing.T) {
	// Two lines (1000 x 2, 500 x 1) with a 200 discount.
	totals := ComputeOrderTotals([]models.OrderDetail{
		detail("1000", 2),
		detail("500", 1),
	}, dec("-200"))

	if totals.TotalItems != 3 {
		t.Fatalf("TotalItems = %d, want 3", totals.TotalItems)
	}
	if !totals.TotalAmount.Equal(dec("2500")) {
		t.Fatalf("TotalAmount = %s, want 2500", totals.TotalAmount)
	}
	if !totals.PriceBeforeTax.Equal(dec("2300")) {
		t.Fatalf("PriceBeforeTax = %s, want 2300", totals.PriceBeforeTax)
	}
	if !totals.GrandTotal.Equal(dec("2369.00")) {
		t.Fatalf("GrandTotal = %s, want 2369.00", totals.GrandTotal)
	}
	if !totals.PriceBeforeTax.Add(totals.TaxAmount).Equal(totals.GrandTotal) {
		t.Fatalf("PriceBeforeTax %s + TaxAmount %s != GrandTotal %s",
			totals.PriceBeforeTax, totals.TaxAmount, totals.GrandTotal)
	}
}

func TestComputeOrderTotals_DiscountNeverBelowZero(t *testing.T) {
	// A discount larger than the order clamps at zero instead of going
	// negative.
	totals := ComputeOrderTotals([]models.OrderDetail{
		detail("100", 1),
	}, dec("-500"))

	if !totals.PriceBeforeTax.IsZero() {
		t.Fatalf("PriceBeforeTax = %s, want 0", totals.PriceBeforeTax)
	}
	if !totals.GrandTotal.IsZero() {
		t.Fatalf("GrandTotal = %s, want 0", totals.GrandTotal)
	}
}

func TestComputeOrderTotals_Surcharge(t *testing.T) {
	totals := ComputeOrderTotals([]models.OrderDetail{
		detail("1000", 1),
	}, dec("50"))

	if !totals.PriceBeforeTax.Equal(dec("1050")) {
		t.Fatalf("PriceBeforeTax = %s, want 1050", totals.PriceBeforeTax)
	}
	if !totals.GrandTotal.Equal(dec("1081.50")) {
		t.Fatalf("GrandTotal = %s, want 1081.50", totals.GrandTotal)
	}
}

func TestComputeOrderTotals_EmptyOrder(t *testing.T) {
	totals := ComputeOrderTotals(nil, decimal.Zero)
	if !totals.GrandTotal.IsZero() {
		t.Fatalf("GrandTotal = %s, want 0", totals.GrandTotal)
	}
	if totals.TotalItems != 0 {
		t.Fatalf("TotalItems = %d, want 0", totals.TotalItems)
	}
}

func TestLineTotal_Rounds(t *testing.T) {
	if got := LineTotal(dec("33.335"), 3); !got.Equal(dec("100.01")) {
		t.Fatalf("LineTotal = %s, want 100.01", got)
	}
}
