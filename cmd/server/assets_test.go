package main

import (
	"testing"
	"time"

	"github.com/kopiplan/kopiplan/internal/finance"
)

func testAsset(id string) finance.Asset {
	return finance.Asset{
		ID:                 id,
		Name:               "Mesin espresso",
		PurchaseCost:       12000000,
		PurchaseDate:       time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
		DepreciationMonths: 24,
	}
}

func depreciationLine(t *testing.T, srv *server, assetID string) (name string, value int64, found bool) {
	t.Helper()

	err := srv.db.QueryRow(`
		SELECT name, value FROM cost_items
		WHERE source_asset_id = ? AND business_id = ? AND category = 'fixed'
	`, assetID, testBusinessID).Scan(&name, &value)
	if err != nil {
		return "", 0, false
	}
	return name, value, true
}

func TestInsertAsset_CreatesDepreciationLine(t *testing.T) {
	srv := newTestServer(t)

	if err := srv.insertAsset(testBusinessID, testAsset("asset-1")); err != nil {
		t.Fatalf("insertAsset: %v", err)
	}

	name, value, found := depreciationLine(t, srv, "asset-1")
	if !found {
		t.Fatal("expected a fixed cost line linked to the asset")
	}
	if name != "Mesin espresso (depreciation)" {
		t.Fatalf("line name = %q", name)
	}
	// 12,000,000 over 24 months.
	if value != 500000 {
		t.Fatalf("line value = %d, want 500000", value)
	}
}

func TestUpdateAsset_KeepsDepreciationLineInLockstep(t *testing.T) {
	srv := newTestServer(t)

	if err := srv.insertAsset(testBusinessID, testAsset("asset-1")); err != nil {
		t.Fatalf("insertAsset: %v", err)
	}

	edited := testAsset("asset-1")
	edited.Name = "Mesin espresso bekas"
	edited.PurchaseCost = 6000000
	edited.DepreciationMonths = 12
	if err := srv.updateAsset(testBusinessID, edited); err != nil {
		t.Fatalf("updateAsset: %v", err)
	}

	name, value, found := depreciationLine(t, srv, "asset-1")
	if !found {
		t.Fatal("line must survive the edit")
	}
	if name != "Mesin espresso bekas (depreciation)" {
		t.Fatalf("line name = %q, want renamed line", name)
	}
	if value != 500000 {
		t.Fatalf("line value = %d, want 500000 (6M over 12 months)", value)
	}
}

func TestDeleteAsset_RemovesDepreciationLine(t *testing.T) {
	srv := newTestServer(t)

	if err := srv.insertAsset(testBusinessID, testAsset("asset-1")); err != nil {
		t.Fatalf("insertAsset: %v", err)
	}
	if err := srv.deleteAsset(testBusinessID, "asset-1"); err != nil {
		t.Fatalf("deleteAsset: %v", err)
	}

	if _, _, found := depreciationLine(t, srv, "asset-1"); found {
		t.Fatal("line must go with the asset")
	}
	if _, err := srv.assetByID(testBusinessID, "asset-1"); err != errAssetNotFound {
		t.Fatalf("assetByID after delete = %v, want errAssetNotFound", err)
	}
}

func TestUpdateAsset_UnknownAssetLeavesNothingBehind(t *testing.T) {
	srv := newTestServer(t)

	if err := srv.updateAsset(testBusinessID, testAsset("ghost")); err != errAssetNotFound {
		t.Fatalf("updateAsset = %v, want errAssetNotFound", err)
	}

	var count int
	if err := srv.db.QueryRow(`SELECT COUNT(*) FROM cost_items`).Scan(&count); err != nil {
		t.Fatalf("count cost items: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no cost items, got %d", count)
	}
}
