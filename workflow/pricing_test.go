package workflow

import (
	"testing"
	"time"

	"github.com/SaravananKiruba/boolapos-sub001/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputePrice_CounterFixture(t *testing.T) {
	// 23.450g at 3.5% wastage, rate 6000/gram, making charge 1200.
	b := ComputePrice(dec("23.450"), dec("3.5"), dec("6000"), dec("1200.00"))

	if !b.EffectiveWeight.Equal(dec("24.270750")) {
		t.Fatalf("effective weight = %s, want 24.270750", b.EffectiveWeight)
	}
	if !b.MetalValue.Equal(dec("145624.50")) {
		t.Fatalf("metal value = %s, want 145624.50", b.MetalValue)
	}
	if !b.Total.Equal(dec("146824.50")) {
		t.Fatalf("price = %s, want 146824.50", b.Total)
	}
}

func TestComputePrice_Deterministic(t *testing.T) {
	// Same inputs must give the same price on every call; the formula
	// reads no clock and no database.
	first := ComputePrice(dec("11.234"), dec("7.25"), dec("9150.50"), dec("850"))
	for i := 0; i < 1000; i++ {
		again := ComputePrice(dec("11.234"), dec("7.25"), dec("9150.50"), dec("850"))
		if !again.Total.Equal(first.Total) {
			t.Fatalf("run %d: price drifted from %s to %s", i, first.Total, again.Total)
		}
	}
}

func TestComputePrice_ZeroWastage(t *testing.T) {
	b := ComputePrice(dec("10"), decimal.Zero, dec("6000"), decimal.Zero)
	if !b.EffectiveWeight.Equal(dec("10")) {
		t.Fatalf("effective weight = %s, want 10", b.EffectiveWeight)
	}
	if !b.Total.Equal(dec("60000.00")) {
		t.Fatalf("price = %s, want 60000.00", b.Total)
	}
}

func TestBreakdownForRate_StampsRateAudit(t *testing.T) {
	product := &models.Product{
		NetWeight:         dec("10"),
		WastagePercentage: dec("3.5"),
		MakingCharge:      dec("1200"),
	}
	rate := &models.RateMaster{ID: 17, RatePerGram: dec("6000")}
	at := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)

	b := breakdownForRate(product, rate, at)
	if b.RateId != 17 {
		t.Fatalf("RateId = %d, want 17", b.RateId)
	}
	if !b.ComputedAt.Equal(at) {
		t.Fatalf("ComputedAt = %s, want %s", b.ComputedAt, at)
	}
	want := ComputePrice(product.NetWeight, product.WastagePercentage, rate.RatePerGram, product.MakingCharge)
	if !b.Total.Equal(want.Total) {
		t.Fatalf("Total = %s, want %s", b.Total, want.Total)
	}
}

func TestComputePrice_RoundsToTwoPlaces(t *testing.T) {
	b := ComputePrice(dec("1.111"), dec("1"), dec("3333.33"), dec("0.005"))
	if b.Total.Exponent() < -2 {
		t.Fatalf("price %s has more than 2 decimal places", b.Total)
	}
}
