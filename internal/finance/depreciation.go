package finance

import (
	"math"
	"time"
)

// Asset is a capital purchase expensed straight-line over its useful life.
// Each asset owns exactly one generated fixed-cost item carrying its monthly
// depreciation; keeping the two in lockstep is the store's responsibility.
type Asset struct {
	ID                 string
	Name               string
	PurchaseCost       int64
	PurchaseDate       time.Time
	DepreciationMonths int64
	Note               string
}

// MonthlyDepreciation is the fixed-cost charge the asset generates each month,
// rounded to the nearest whole currency unit.
func MonthlyDepreciation(a Asset) int64 {
	if a.DepreciationMonths <= 0 {
		return 0
	}
	return int64(math.Round(float64(a.PurchaseCost) / float64(a.DepreciationMonths)))
}

// MonthsElapsed counts whole calendar months between two dates. Days within
// the month are ignored; a later from than to counts as zero.
func MonthsElapsed(from, to time.Time) int64 {
	months := int64(to.Year()-from.Year())*12 + int64(to.Month()) - int64(from.Month())
	if months < 0 {
		return 0
	}
	return months
}

// CurrentValue is the asset's remaining book value at now. It reaches exactly
// zero once the useful life has elapsed and never goes negative.
func CurrentValue(a Asset, now time.Time) int64 {
	if a.DepreciationMonths <= 0 {
		return 0
	}

	elapsed := MonthsElapsed(a.PurchaseDate, now)
	if elapsed >= a.DepreciationMonths {
		return 0
	}

	perMonth := float64(a.PurchaseCost) / float64(a.DepreciationMonths)
	remaining := float64(a.PurchaseCost) - perMonth*float64(elapsed)
	if remaining < 0 {
		return 0
	}
	return int64(math.Round(remaining))
}
