package finance

import (
	"reflect"
	"testing"
)

func sampleConfig() ProjectionConfig {
	return ProjectionConfig{
		DaysPerMonth:    22,
		PricePerServing: 8000,
		FixedItems: []FixedCostItem{
			{ItemBase: ItemBase{Name: "Sewa lokasi", Value: 1000000}},
		},
		COGSItems: []VariableCostItem{
			{BaseUnitCost: 20000, BaseUnitQuantity: 1000, UsagePerServing: 15, Unit: UnitMilliliter},
		},
		Bonus: BonusScheme{Target: 1000, PerServingBonus: 500, BaristaCount: 2},
	}
}

func TestGenerateProjections_SweepShape(t *testing.T) {
	rows := GenerateProjections(sampleConfig())

	// Inclusive 10..200 in steps of 10: (200-10)/10 + 1 = 20 rows.
	if len(rows) != 20 {
		t.Fatalf("expected 20 rows, got %d", len(rows))
	}
	if rows[0].ServingsPerDay != 10 || rows[len(rows)-1].ServingsPerDay != 200 {
		t.Fatalf("sweep bounds = %d..%d, want 10..200", rows[0].ServingsPerDay, rows[len(rows)-1].ServingsPerDay)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].ServingsPerDay-rows[i-1].ServingsPerDay != 10 {
			t.Fatalf("sweep step broken at row %d: %+v", i, rows[i])
		}
	}
}

func TestGenerateProjections_ReferenceScenario(t *testing.T) {
	rows := GenerateProjections(sampleConfig())

	// servingsPerDay = 50 is the fifth row.
	row := rows[4]
	if row.ServingsPerDay != 50 {
		t.Fatalf("row 4 ServingsPerDay = %d, want 50", row.ServingsPerDay)
	}

	want := ProjectionRow{
		ServingsPerDay:  50,
		MonthlyServings: 1100,
		Revenue:         8800000,
		VariableCost:    330000,
		GrossProfit:     8470000,
		Bonus:           100000,
		NetProfit:       7370000,
	}
	if row != want {
		t.Fatalf("row = %+v, want %+v", row, want)
	}
}

func TestGenerateProjections_NetProfitIdentityHolds(t *testing.T) {
	cfg := sampleConfig()
	fixedTotal := FixedCostsTotal(cfg.FixedItems)

	for _, row := range GenerateProjections(cfg) {
		if row.NetProfit != row.GrossProfit-fixedTotal-row.Bonus {
			t.Fatalf("net profit identity broken: %+v", row)
		}
		if row.GrossProfit != row.Revenue-row.VariableCost {
			t.Fatalf("gross profit identity broken: %+v", row)
		}
	}
}

func TestBonusThresholdIsStrict(t *testing.T) {
	scheme := BonusScheme{Target: 1000, PerServingBonus: 500, BaristaCount: 2}

	if got := bonusFor(scheme, 1000); got != 0 {
		t.Fatalf("bonus at exactly the target = %d, want 0", got)
	}
	if got := bonusFor(scheme, 1001); got != 1000 {
		t.Fatalf("bonus one serving above target = %d, want perServingBonus*baristaCount = 1000", got)
	}
	if got := bonusFor(scheme, 900); got != 0 {
		t.Fatalf("bonus below target = %d, want 0", got)
	}
}

func TestGenerateProjections_NegativeInputsPropagate(t *testing.T) {
	cfg := sampleConfig()
	cfg.PricePerServing = 0

	rows := GenerateProjections(cfg)
	for _, row := range rows {
		if row.Revenue != 0 {
			t.Fatalf("zero price produced revenue: %+v", row)
		}
		if row.NetProfit >= 0 {
			t.Fatalf("zero price with fixed costs must project a loss: %+v", row)
		}
	}
}

func TestGenerateProjections_Idempotent(t *testing.T) {
	cfg := sampleConfig()

	first := GenerateProjections(cfg)
	second := GenerateProjections(cfg)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs produced different projections")
	}
}

func TestProjectAt_MatchesSweepRow(t *testing.T) {
	cfg := sampleConfig()

	at := ProjectAt(cfg, 50)
	sweep := GenerateProjections(cfg)[4]
	if at != sweep {
		t.Fatalf("ProjectAt(50) = %+v, sweep row = %+v", at, sweep)
	}

	// Off-sweep volumes work the same way.
	odd := ProjectAt(cfg, 37)
	if odd.MonthlyServings != 37*22 {
		t.Fatalf("MonthlyServings = %d, want %d", odd.MonthlyServings, 37*22)
	}
}
