package report

import (
	"bytes"
	"testing"

	"github.com/kopiplan/kopiplan/internal/finance"
)

func TestProjectionPDFProducesDocument(t *testing.T) {
	cfg := finance.ProjectionConfig{
		DaysPerMonth:    22,
		PricePerServing: 8000,
		FixedItems:      []finance.FixedCostItem{{ItemBase: finance.ItemBase{Name: "Sewa", Value: 1000000}}},
		COGSItems: []finance.VariableCostItem{
			{ItemBase: finance.ItemBase{Name: "Susu"}, BaseUnitCost: 20000, BaseUnitQuantity: 1000, UsagePerServing: 150, Unit: finance.UnitMilliliter},
		},
		Bonus: finance.BonusScheme{Target: 1000, PerServingBonus: 500, BaristaCount: 2},
	}

	data, err := ProjectionPDF("Gerobak Kopi", cfg, finance.GenerateProjections(cfg))
	if err != nil {
		t.Fatalf("ProjectionPDF returned error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF document (starts with %q)", data[:8])
	}
}

func TestShoppingListPDFProducesDocument(t *testing.T) {
	items := []finance.VariableCostItem{
		{ItemBase: finance.ItemBase{Name: "Biji kopi"}, BaseUnitCost: 90000, BaseUnitQuantity: 1000, UsagePerServing: 18, Unit: finance.UnitGram},
	}
	list := finance.GenerateShoppingList(items, 40)

	data, err := ShoppingListPDF("Gerobak Kopi", 40, list)
	if err != nil {
		t.Fatalf("ShoppingListPDF returned error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF document (starts with %q)", data[:8])
	}
}
