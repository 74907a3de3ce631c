package finance

import (
	"testing"
	"time"
)

func TestMonthlyDepreciation(t *testing.T) {
	asset := Asset{PurchaseCost: 12000000, DepreciationMonths: 24}
	if got := MonthlyDepreciation(asset); got != 500000 {
		t.Fatalf("MonthlyDepreciation = %d, want 500000", got)
	}

	// 10000000 / 36 = 277777.78 rounds to 277778.
	asset = Asset{PurchaseCost: 10000000, DepreciationMonths: 36}
	if got := MonthlyDepreciation(asset); got != 277778 {
		t.Fatalf("MonthlyDepreciation = %d, want 277778", got)
	}

	if got := MonthlyDepreciation(Asset{PurchaseCost: 12000000}); got != 0 {
		t.Fatalf("MonthlyDepreciation with no useful life = %d, want 0", got)
	}
}

func TestMonthsElapsed_CalendarMonthGranularity(t *testing.T) {
	from := time.Date(2024, time.March, 28, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		to   time.Time
		want int64
	}{
		{time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), 12},
		{time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), 22},
		{time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 0},
	}

	for _, c := range cases {
		if got := MonthsElapsed(from, c.to); got != c.want {
			t.Fatalf("MonthsElapsed(%s, %s) = %d, want %d", from.Format("2006-01-02"), c.to.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestCurrentValue_StraightLine(t *testing.T) {
	purchase := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	asset := Asset{PurchaseCost: 12000000, PurchaseDate: purchase, DepreciationMonths: 24}

	atTwelve := purchase.AddDate(1, 0, 0)
	if got := CurrentValue(asset, atTwelve); got != 6000000 {
		t.Fatalf("CurrentValue at 12 months = %d, want 6000000", got)
	}

	atTwentyFour := purchase.AddDate(2, 0, 0)
	if got := CurrentValue(asset, atTwentyFour); got != 0 {
		t.Fatalf("CurrentValue at 24 months = %d, want 0", got)
	}

	wellPast := purchase.AddDate(5, 0, 0)
	if got := CurrentValue(asset, wellPast); got != 0 {
		t.Fatalf("CurrentValue past useful life = %d, want 0 (never negative)", got)
	}

	atPurchase := purchase.AddDate(0, 0, 5)
	if got := CurrentValue(asset, atPurchase); got != 12000000 {
		t.Fatalf("CurrentValue in purchase month = %d, want full cost", got)
	}
}
