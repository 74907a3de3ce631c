package finance

import "math"

// Category identifies which cost list an item belongs to.
type Category string

const (
	CategoryCapital Category = "capital"
	CategoryFixed   Category = "fixed"
	CategoryCOGS    Category = "cogs"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryCapital || c == CategoryFixed || c == CategoryCOGS
}

// ItemBase holds the fields shared by every cost item category. Value is an
// integer amount in whole currency units; its meaning depends on the category
// (flat monthly cost, purchase cost, or derived cost per serving).
type ItemBase struct {
	ID    string
	Name  string
	Value int64
	Note  string
}

// CapitalItem is a one-off startup purchase. When IsFixedAsset is set the
// purchase is depreciated instead of expensed immediately.
type CapitalItem struct {
	ItemBase
	IsFixedAsset    bool
	UsefulLifeYears int64
}

// FixedCostItem is a monthly expense independent of sales volume. When the
// item was generated from a fixed asset's depreciation, SourceAssetID points
// back at that asset.
type FixedCostItem struct {
	ItemBase
	SourceAssetID string
}

// VariableCostItem is a cost-of-goods ingredient consumed per serving. The
// three purchasing fields describe how the ingredient is bought: BaseUnitCost
// buys BaseUnitQuantity of the ingredient, measured in Unit, and each serving
// consumes UsagePerServing of it.
type VariableCostItem struct {
	ItemBase
	BaseUnitCost     int64
	BaseUnitQuantity float64
	UsagePerServing  float64
	Unit             Unit
}

// HasCompleteCOGS reports whether the purchasing fields are all present.
// Zero counts as absent; a non-positive purchasing quantity is never usable.
func (it VariableCostItem) HasCompleteCOGS() bool {
	return it.BaseUnitCost != 0 && it.BaseUnitQuantity > 0 && it.UsagePerServing != 0
}

// CostPerServing derives the cost contribution of one serving from the
// purchasing fields, rounded to the nearest whole currency unit. Incomplete
// data contributes zero; it is not an error.
func CostPerServing(it VariableCostItem) int64 {
	if !it.HasCompleteCOGS() {
		return 0
	}
	return int64(math.Round(float64(it.BaseUnitCost) / it.BaseUnitQuantity * it.UsagePerServing))
}

// UpdateCalculatedValue recomputes Value from the purchasing fields. Call it
// after any edit to BaseUnitCost, BaseUnitQuantity, or UsagePerServing.
func (it *VariableCostItem) UpdateCalculatedValue() {
	it.Value = CostPerServing(*it)
}

// TotalCostPerServing sums the per-serving cost over all items. Items with
// incomplete purchasing data contribute zero.
func TotalCostPerServing(items []VariableCostItem) int64 {
	var total int64
	for _, it := range items {
		total += CostPerServing(it)
	}
	return total
}

// FixedCostsTotal sums the monthly value of all fixed-cost items.
func FixedCostsTotal(items []FixedCostItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Value
	}
	return total
}
