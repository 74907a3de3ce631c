package finance

import (
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func shoppingItems() []VariableCostItem {
	return []VariableCostItem{
		{
			ItemBase:         ItemBase{Name: "Biji kopi"},
			BaseUnitCost:     90000,
			BaseUnitQuantity: 1000,
			UsagePerServing:  18,
			Unit:             UnitGram,
		},
		{
			ItemBase:         ItemBase{Name: "Susu"},
			BaseUnitCost:     20000,
			BaseUnitQuantity: 1000,
			UsagePerServing:  150,
			Unit:             UnitMilliliter,
		},
		{
			ItemBase:         ItemBase{Name: "Cup"},
			BaseUnitCost:     25000,
			BaseUnitQuantity: 50,
			UsagePerServing:  1,
			Unit:             UnitPiece,
		},
	}
}

func TestGenerateShoppingList_QuantitiesAndCosts(t *testing.T) {
	list := GenerateShoppingList(shoppingItems(), 40)

	if list.TotalItems != 3 {
		t.Fatalf("TotalItems = %d, want 3", list.TotalItems)
	}

	// Sorted descending by total cost: susu 120000, cup 20000, kopi 64800.
	if list.Entries[0].Name != "Susu" || list.Entries[1].Name != "Biji kopi" || list.Entries[2].Name != "Cup" {
		t.Fatalf("entries not sorted by descending total cost: %+v", list.Entries)
	}

	susu := list.Entries[0]
	nearlyEqual(t, "susu required quantity", susu.RequiredQuantity, 6000)
	nearlyEqual(t, "susu unit cost", susu.UnitCost, 20)
	if susu.TotalCost != 120000 {
		t.Fatalf("susu TotalCost = %d, want 120000", susu.TotalCost)
	}

	var sum int64
	for _, e := range list.Entries {
		sum += e.TotalCost
	}
	if list.GrandTotal != sum {
		t.Fatalf("GrandTotal = %d, want sum of entries %d", list.GrandTotal, sum)
	}
	if list.GrandTotal != 204800 {
		t.Fatalf("GrandTotal = %d, want 204800", list.GrandTotal)
	}
}

func TestGenerateShoppingList_PackageRounding(t *testing.T) {
	list := GenerateShoppingList(shoppingItems(), 40)

	for _, e := range list.Entries {
		switch e.Name {
		case "Susu":
			// 6000 ml / 1000 ml per carton = 6 cartons.
			if e.Packages != 6 || e.PackageCost != 120000 {
				t.Fatalf("susu packages = %d cost %d, want 6 / 120000", e.Packages, e.PackageCost)
			}
		case "Biji kopi":
			// 720 g needs a whole 1 kg bag.
			if e.Packages != 1 || e.PackageCost != 90000 {
				t.Fatalf("kopi packages = %d cost %d, want 1 / 90000", e.Packages, e.PackageCost)
			}
		case "Cup":
			// 40 cups round up to one sleeve of 50.
			if e.Packages != 1 || e.PackageCost != 25000 {
				t.Fatalf("cup packages = %d cost %d, want 1 / 25000", e.Packages, e.PackageCost)
			}
		}
	}

	if list.PurchaseTotal != 235000 {
		t.Fatalf("PurchaseTotal = %d, want 235000", list.PurchaseTotal)
	}
	if list.PurchaseTotal < list.GrandTotal {
		t.Fatalf("PurchaseTotal %d must never be below GrandTotal %d", list.PurchaseTotal, list.GrandTotal)
	}
}

func TestGenerateShoppingList_DropsIncompleteItems(t *testing.T) {
	items := append(shoppingItems(),
		VariableCostItem{ItemBase: ItemBase{Name: "Gula"}, BaseUnitCost: 15000, Unit: UnitGram},
		VariableCostItem{ItemBase: ItemBase{Name: "Es batu"}, BaseUnitCost: 5000, BaseUnitQuantity: 1000, UsagePerServing: 80},
	)

	list := GenerateShoppingList(items, 40)

	if list.TotalItems != 3 {
		t.Fatalf("TotalItems = %d, want 3 (incomplete items excluded, not zero-filled)", list.TotalItems)
	}
	for _, e := range list.Entries {
		if e.Name == "Gula" || e.Name == "Es batu" {
			t.Fatalf("incomplete item %q leaked into the list", e.Name)
		}
	}
}

func TestGenerateShoppingList_ZeroTargetKeepsItemsWithZeroCosts(t *testing.T) {
	for _, target := range []float64{0, -5} {
		list := GenerateShoppingList(shoppingItems(), target)

		if list.TotalItems != 3 {
			t.Fatalf("target %v: TotalItems = %d, want 3", target, list.TotalItems)
		}
		if list.GrandTotal != 0 || list.PurchaseTotal != 0 {
			t.Fatalf("target %v: totals = %d / %d, want 0 / 0", target, list.GrandTotal, list.PurchaseTotal)
		}
		for _, e := range list.Entries {
			if e.RequiredQuantity != 0 || e.TotalCost != 0 || e.Packages != 0 {
				t.Fatalf("target %v: entry %q not zeroed: %+v", target, e.Name, e)
			}
		}
	}
}
