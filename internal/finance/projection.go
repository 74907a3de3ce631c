package finance

// BonusScheme pays staff extra once monthly volume exceeds a target. The
// per-serving rate applies to every serving above Target and is multiplied by
// the number of baristas sharing it. Exactly one scheme is active at a time;
// updates replace it wholesale.
type BonusScheme struct {
	Target          int64
	PerServingBonus int64
	BaristaCount    int64
	Note            string
}

// ProjectionConfig bundles the inputs of one projection sweep.
type ProjectionConfig struct {
	DaysPerMonth    int64
	PricePerServing int64
	FixedItems      []FixedCostItem
	COGSItems       []VariableCostItem
	Bonus           BonusScheme
}

// ProjectionRow is one derived row of the volume sweep. NetProfit is always
// exactly GrossProfit - fixed costs - Bonus; negative values are valid results.
type ProjectionRow struct {
	ServingsPerDay  int64
	MonthlyServings int64
	Revenue         int64
	VariableCost    int64
	GrossProfit     int64
	Bonus           int64
	NetProfit       int64
}

// The sweep covers 10 through 200 servings per day in steps of 10. The range
// is a display decision, not a tunable.
const (
	sweepMin  = 10
	sweepMax  = 200
	sweepStep = 10
)

// GenerateProjections sweeps daily volume over the fixed display range and
// derives one row per volume. Pure: identical inputs yield identical rows.
func GenerateProjections(cfg ProjectionConfig) []ProjectionRow {
	fixedTotal := FixedCostsTotal(cfg.FixedItems)
	perServing := TotalCostPerServing(cfg.COGSItems)

	rows := make([]ProjectionRow, 0, (sweepMax-sweepMin)/sweepStep+1)
	for perDay := int64(sweepMin); perDay <= sweepMax; perDay += sweepStep {
		rows = append(rows, projectRow(cfg, perDay, fixedTotal, perServing))
	}
	return rows
}

// ProjectAt derives the single row for an arbitrary daily volume, outside the
// display sweep. The dashboard uses it for the configured daily target.
func ProjectAt(cfg ProjectionConfig, servingsPerDay int64) ProjectionRow {
	return projectRow(cfg, servingsPerDay, FixedCostsTotal(cfg.FixedItems), TotalCostPerServing(cfg.COGSItems))
}

func projectRow(cfg ProjectionConfig, servingsPerDay, fixedTotal, costPerServing int64) ProjectionRow {
	row := ProjectionRow{
		ServingsPerDay:  servingsPerDay,
		MonthlyServings: servingsPerDay * cfg.DaysPerMonth,
	}
	row.Revenue = row.MonthlyServings * cfg.PricePerServing
	row.VariableCost = row.MonthlyServings * costPerServing
	row.GrossProfit = row.Revenue - row.VariableCost
	row.Bonus = bonusFor(cfg.Bonus, row.MonthlyServings)
	row.NetProfit = row.GrossProfit - fixedTotal - row.Bonus
	return row
}

// bonusFor is zero at or below the target; the threshold is strict.
func bonusFor(b BonusScheme, monthlyServings int64) int64 {
	if monthlyServings <= b.Target {
		return 0
	}
	return (monthlyServings - b.Target) * b.PerServingBonus * b.BaristaCount
}
