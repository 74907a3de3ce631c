package finance

import (
	"math"
	"sort"
)

// ShoppingEntry is one derived line of the shopping list.
type ShoppingEntry struct {
	Name             string
	Unit             Unit
	RequiredQuantity float64
	UnitCost         float64
	TotalCost        int64
	// Packages rounds the requirement up to whole purchasing units; an
	// ingredient bought per 1000 ml with 1500 ml required needs 2 packages.
	Packages    int64
	PackageCost int64
}

// ShoppingList is the derived purchasing summary for one day of sales.
// GrandTotal sums the raw per-quantity costs; PurchaseTotal sums the cost of
// the whole packages actually bought.
type ShoppingList struct {
	Entries       []ShoppingEntry
	TotalItems    int
	GrandTotal    int64
	PurchaseTotal int64
}

// GenerateShoppingList expands the COGS items into required quantities and
// costs for dailyTarget servings. Items missing any purchasing field or the
// unit are dropped silently. Entries are sorted by descending total cost, so
// the first entry is always the most expensive ingredient. A non-positive
// target still lists every complete item, with zero quantities and costs.
func GenerateShoppingList(items []VariableCostItem, dailyTarget float64) ShoppingList {
	list := ShoppingList{Entries: make([]ShoppingEntry, 0, len(items))}

	for _, it := range items {
		if !it.HasCompleteCOGS() || it.Unit == "" {
			continue
		}

		var required float64
		if dailyTarget > 0 {
			required = it.UsagePerServing * dailyTarget
		}

		unitCost := float64(it.BaseUnitCost) / it.BaseUnitQuantity
		entry := ShoppingEntry{
			Name:             it.Name,
			Unit:             it.Unit,
			RequiredQuantity: required,
			UnitCost:         unitCost,
			TotalCost:        int64(math.Round(required * unitCost)),
		}
		if required > 0 {
			entry.Packages = int64(math.Ceil(required / it.BaseUnitQuantity))
			entry.PackageCost = entry.Packages * it.BaseUnitCost
		}

		list.Entries = append(list.Entries, entry)
		list.GrandTotal += entry.TotalCost
		list.PurchaseTotal += entry.PackageCost
	}

	sort.SliceStable(list.Entries, func(i, j int) bool {
		return list.Entries[i].TotalCost > list.Entries[j].TotalCost
	})
	list.TotalItems = len(list.Entries)

	return list
}
