package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kopiplan/kopiplan/internal/finance"
)

func costRouter(srv *server) http.Handler {
	r := chi.NewRouter()
	r.Post("/costs/{category}", srv.handleCostsCreate)
	r.Post("/costs/{category}/{id}", srv.handleCostsUpdate)
	r.Post("/costs/{category}/{id}/delete", srv.handleCostsDelete)
	return r
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: businessCookieName, Value: testBusinessID})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCostsCreate_RecomputesCOGSValue(t *testing.T) {
	srv := newTestServer(t)

	w := postForm(t, costRouter(srv), "/costs/cogs", url.Values{
		"name":               {"Biji kopi"},
		"base_unit_cost":     {"90000"},
		"base_unit_quantity": {"1000"},
		"usage_per_serving":  {"18"},
		"unit":               {"g"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; location %q", w.Code, w.Header().Get("Location"))
	}

	items, err := srv.listVariableItems(testBusinessID)
	if err != nil {
		t.Fatalf("listVariableItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	// 90000 / 1000 * 18 = 1620 per cup.
	if items[0].Value != 1620 {
		t.Fatalf("Value = %d, want 1620", items[0].Value)
	}
}

func TestCostsUpdate_RecomputesValueFromNewInputs(t *testing.T) {
	srv := newTestServer(t)

	item := costItemView{ID: "item-1", Name: "Susu UHT", BaseUnitCost: 20000, BaseUnitQuantity: 1000, UsagePerServing: 150, Unit: finance.UnitMilliliter, Value: 3000}
	if err := srv.insertCostItem(testBusinessID, finance.CategoryCOGS, item); err != nil {
		t.Fatalf("insertCostItem: %v", err)
	}

	w := postForm(t, costRouter(srv), "/costs/cogs/item-1", url.Values{
		"name":               {"Susu UHT"},
		"base_unit_cost":     {"22000"},
		"base_unit_quantity": {"1000"},
		"usage_per_serving":  {"150"},
		"unit":               {"ml"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}

	items, err := srv.listVariableItems(testBusinessID)
	if err != nil {
		t.Fatalf("listVariableItems: %v", err)
	}
	// 22000 / 1000 * 150 = 3300.
	if items[0].Value != 3300 {
		t.Fatalf("Value = %d, want 3300 after edit", items[0].Value)
	}
}

func TestCostsCreate_IncompleteCOGSKeepsZeroValue(t *testing.T) {
	srv := newTestServer(t)

	// Missing usage_per_serving: the item is stored but contributes nothing.
	w := postForm(t, costRouter(srv), "/costs/cogs", url.Values{
		"name":               {"Gula"},
		"base_unit_cost":     {"15000"},
		"base_unit_quantity": {"1000"},
		"unit":               {"g"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}

	items, err := srv.listVariableItems(testBusinessID)
	if err != nil {
		t.Fatalf("listVariableItems: %v", err)
	}
	if len(items) != 1 || items[0].Value != 0 {
		t.Fatalf("incomplete item must persist with zero value, got %+v", items)
	}
	if got := finance.TotalCostPerServing(items); got != 0 {
		t.Fatalf("TotalCostPerServing = %d, want 0", got)
	}
}

func TestCostsUpdateAndDelete_RejectAssetManagedItems(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.db.Exec(`
		INSERT INTO cost_items (id, business_id, category, name, value, note, source_asset_id)
		VALUES ('dep-1', ?, 'fixed', 'Mesin espresso (depreciation)', 500000, '', 'asset-1')
	`, testBusinessID)
	if err != nil {
		t.Fatalf("insert managed item: %v", err)
	}

	router := costRouter(srv)

	w := postForm(t, router, "/costs/fixed/dep-1", url.Values{"name": {"Hijack"}, "value": {"1"}})
	if w.Code != http.StatusSeeOther || !strings.Contains(w.Header().Get("Location"), "error=") {
		t.Fatalf("update of managed item must redirect with error, got %d %q", w.Code, w.Header().Get("Location"))
	}

	w = postForm(t, router, "/costs/fixed/dep-1/delete", url.Values{})
	if w.Code != http.StatusSeeOther || !strings.Contains(w.Header().Get("Location"), "error=") {
		t.Fatalf("delete of managed item must redirect with error, got %d %q", w.Code, w.Header().Get("Location"))
	}

	var count int
	if err := srv.db.QueryRow(`SELECT COUNT(*) FROM cost_items WHERE id = 'dep-1' AND name != 'Hijack'`).Scan(&count); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 1 {
		t.Fatal("managed item must survive unchanged")
	}
}

func TestCostsCreate_UnknownCategoryIs404(t *testing.T) {
	srv := newTestServer(t)

	w := postForm(t, costRouter(srv), "/costs/misc", url.Values{"name": {"x"}, "value": {"1"}})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
