package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kopiplan/kopiplan/internal/bus"
	"github.com/kopiplan/kopiplan/internal/finance"
)

// costItemView carries every cost_items column for the category pages. The
// calculation loaders below scan the same rows into the tagged finance types.
type costItemView struct {
	ID               string
	Name             string
	Value            int64
	Note             string
	BaseUnitCost     int64
	BaseUnitQuantity float64
	UsagePerServing  float64
	Unit             finance.Unit
	IsFixedAsset     bool
	UsefulLifeYears  int64
	SourceAssetID    string
}

type costsViewData struct {
	baseViewData
	Category  finance.Category
	Title     string
	Items     []costItemView
	Total     int64
	Units     []finance.Unit
	IsCOGS    bool
	IsCapital bool
}

func categoryTitle(category finance.Category) string {
	switch category {
	case finance.CategoryCapital:
		return "Initial Capital"
	case finance.CategoryFixed:
		return "Fixed Monthly Costs"
	case finance.CategoryCOGS:
		return "Cost of Goods per Cup"
	}
	return string(category)
}

func parseCategory(r *http.Request) (finance.Category, error) {
	category := finance.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		return "", fmt.Errorf("unknown cost category %q", category)
	}
	return category, nil
}

func (s *server) handleCostsList(w http.ResponseWriter, r *http.Request) {
	category, err := parseCategory(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	items, err := s.listCostItems(businessID, category)
	if err != nil {
		s.serverError(w, "failed to load cost items", err)
		return
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	var total int64
	for _, it := range items {
		total += it.Value
	}

	s.renderTemplate(w, "costs.html", costsViewData{
		baseViewData: baseViewData{
			ErrorMessage:   r.URL.Query().Get("error"),
			SuccessMessage: r.URL.Query().Get("success"),
			BusinessName:   name,
		},
		Category:  category,
		Title:     categoryTitle(category),
		Items:     items,
		Total:     total,
		Units:     finance.Units(),
		IsCOGS:    category == finance.CategoryCOGS,
		IsCapital: category == finance.CategoryCapital,
	})
}

func (s *server) handleCostsCreate(w http.ResponseWriter, r *http.Request) {
	category, err := parseCategory(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	item, err := parseCostItemForm(r, category)
	if err != nil {
		s.redirectCosts(w, r, category, "error", err.Error())
		return
	}
	item.ID = uuid.NewString()

	if err := s.insertCostItem(businessID, category, item); err != nil {
		s.serverError(w, "failed to create cost item", err)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicCostItemsChanged, BusinessID: businessID, EntityID: item.ID})
	s.redirectCosts(w, r, category, "success", "Item created")
}

func (s *server) handleCostsUpdate(w http.ResponseWriter, r *http.Request) {
	category, err := parseCategory(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	id := chi.URLParam(r, "id")

	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	managed, err := s.isAssetManaged(businessID, id)
	if err != nil {
		s.serverError(w, "failed to update cost item", err)
		return
	}
	if managed {
		s.redirectCosts(w, r, category, "error", "This item is managed by a fixed asset; edit the asset instead")
		return
	}

	item, err := parseCostItemForm(r, category)
	if err != nil {
		s.redirectCosts(w, r, category, "error", err.Error())
		return
	}

	found, err := s.updateCostItem(businessID, category, id, item)
	if err != nil {
		s.serverError(w, "failed to update cost item", err)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicCostItemsChanged, BusinessID: businessID, EntityID: id})
	s.redirectCosts(w, r, category, "success", "Item updated")
}

func (s *server) handleCostsDelete(w http.ResponseWriter, r *http.Request) {
	category, err := parseCategory(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	id := chi.URLParam(r, "id")

	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	managed, err := s.isAssetManaged(businessID, id)
	if err != nil {
		s.serverError(w, "failed to delete cost item", err)
		return
	}
	if managed {
		s.redirectCosts(w, r, category, "error", "This item is managed by a fixed asset; delete the asset instead")
		return
	}

	result, err := s.db.Exec(`
		DELETE FROM cost_items
		WHERE id = ? AND business_id = ? AND category = ?
	`, id, businessID, string(category))
	if err != nil {
		s.serverError(w, "failed to delete cost item", err)
		return
	}
	affected, err := result.RowsAffected()
	if err != nil {
		s.serverError(w, "failed to delete cost item", err)
		return
	}
	if affected == 0 {
		http.NotFound(w, r)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicCostItemsChanged, BusinessID: businessID, EntityID: id})
	s.redirectCosts(w, r, category, "success", "Item deleted")
}

func (s *server) redirectCosts(w http.ResponseWriter, r *http.Request, category finance.Category, kind, message string) {
	http.Redirect(w, r, "/costs/"+string(category)+"?"+kind+"="+url.QueryEscape(message), http.StatusSeeOther)
}

// parseCostItemForm validates the submitted fields for one category and
// derives Value: entered directly for capital and fixed items, recomputed from
// the purchasing fields for COGS items.
func parseCostItemForm(r *http.Request, category finance.Category) (costItemView, error) {
	item := costItemView{
		Name: strings.TrimSpace(r.FormValue("name")),
		Note: strings.TrimSpace(r.FormValue("note")),
	}
	if item.Name == "" {
		return item, fmt.Errorf("name is required")
	}

	var err error
	switch category {
	case finance.CategoryCapital:
		if item.Value, err = parseNonNegativeInt(r.FormValue("value"), "value"); err != nil {
			return item, err
		}
		item.IsFixedAsset = r.FormValue("is_fixed_asset") == "1"
		if item.IsFixedAsset {
			if item.UsefulLifeYears, err = parsePositiveInt(r.FormValue("useful_life_years"), "useful_life_years"); err != nil {
				return item, err
			}
		}

	case finance.CategoryFixed:
		if item.Value, err = parseNonNegativeInt(r.FormValue("value"), "value"); err != nil {
			return item, err
		}

	case finance.CategoryCOGS:
		if item.BaseUnitCost, err = parseOptionalInt(r.FormValue("base_unit_cost"), "base_unit_cost"); err != nil {
			return item, err
		}
		if item.BaseUnitQuantity, err = parseOptionalFloat(r.FormValue("base_unit_quantity"), "base_unit_quantity"); err != nil {
			return item, err
		}
		if item.UsagePerServing, err = parseOptionalFloat(r.FormValue("usage_per_serving"), "usage_per_serving"); err != nil {
			return item, err
		}
		unit := finance.Unit(strings.TrimSpace(r.FormValue("unit")))
		if unit != "" && !unit.Valid() {
			return item, fmt.Errorf("unit must be one of the recognized units")
		}
		item.Unit = unit

		variable := finance.VariableCostItem{
			BaseUnitCost:     item.BaseUnitCost,
			BaseUnitQuantity: item.BaseUnitQuantity,
			UsagePerServing:  item.UsagePerServing,
			Unit:             item.Unit,
		}
		variable.UpdateCalculatedValue()
		item.Value = variable.Value
	}

	return item, nil
}

func (s *server) insertCostItem(businessID string, category finance.Category, item costItemView) error {
	_, err := s.db.Exec(`
		INSERT INTO cost_items (
			id, business_id, category, name, value, note,
			base_unit_cost, base_unit_quantity, usage_per_serving, unit,
			is_fixed_asset, useful_life_years
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, businessID, string(category), item.Name, item.Value, item.Note,
		item.BaseUnitCost, item.BaseUnitQuantity, item.UsagePerServing, string(item.Unit),
		item.IsFixedAsset, item.UsefulLifeYears)
	if err != nil {
		return fmt.Errorf("insert cost item: %w", err)
	}
	return nil
}

func (s *server) updateCostItem(businessID string, category finance.Category, id string, item costItemView) (bool, error) {
	result, err := s.db.Exec(`
		UPDATE cost_items
		SET
			name = ?,
			value = ?,
			note = ?,
			base_unit_cost = ?,
			base_unit_quantity = ?,
			usage_per_serving = ?,
			unit = ?,
			is_fixed_asset = ?,
			useful_life_years = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND business_id = ? AND category = ?
	`, item.Name, item.Value, item.Note,
		item.BaseUnitCost, item.BaseUnitQuantity, item.UsagePerServing, string(item.Unit),
		item.IsFixedAsset, item.UsefulLifeYears,
		id, businessID, string(category))
	if err != nil {
		return false, fmt.Errorf("update cost item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update cost item: %w", err)
	}
	return affected > 0, nil
}

// isAssetManaged reports whether the item is the generated depreciation entry
// of a fixed asset; those are edited through the asset, never directly.
func (s *server) isAssetManaged(businessID, id string) (bool, error) {
	var managed bool
	err := s.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM cost_items
			WHERE id = ? AND business_id = ? AND source_asset_id IS NOT NULL
		)
	`, id, businessID).Scan(&managed)
	if err != nil {
		return false, fmt.Errorf("check asset-managed item: %w", err)
	}
	return managed, nil
}

func (s *server) listCostItems(businessID string, category finance.Category) ([]costItemView, error) {
	rows, err := s.db.Query(`
		SELECT
			id, name, value, COALESCE(note, ''),
			base_unit_cost, base_unit_quantity, usage_per_serving, unit,
			is_fixed_asset, useful_life_years, COALESCE(source_asset_id, '')
		FROM cost_items
		WHERE business_id = ? AND category = ?
		ORDER BY datetime(created_at) ASC, id ASC
	`, businessID, string(category))
	if err != nil {
		return nil, fmt.Errorf("query cost items: %w", err)
	}
	defer rows.Close()

	items := make([]costItemView, 0)
	for rows.Next() {
		var it costItemView
		var unit string
		if err := rows.Scan(&it.ID, &it.Name, &it.Value, &it.Note,
			&it.BaseUnitCost, &it.BaseUnitQuantity, &it.UsagePerServing, &unit,
			&it.IsFixedAsset, &it.UsefulLifeYears, &it.SourceAssetID); err != nil {
			return nil, fmt.Errorf("scan cost item: %w", err)
		}
		it.Unit = finance.Unit(unit)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cost items: %w", err)
	}
	return items, nil
}

func (s *server) listVariableItems(businessID string) ([]finance.VariableCostItem, error) {
	views, err := s.listCostItems(businessID, finance.CategoryCOGS)
	if err != nil {
		return nil, err
	}

	items := make([]finance.VariableCostItem, 0, len(views))
	for _, v := range views {
		items = append(items, finance.VariableCostItem{
			ItemBase:         finance.ItemBase{ID: v.ID, Name: v.Name, Value: v.Value, Note: v.Note},
			BaseUnitCost:     v.BaseUnitCost,
			BaseUnitQuantity: v.BaseUnitQuantity,
			UsagePerServing:  v.UsagePerServing,
			Unit:             v.Unit,
		})
	}
	return items, nil
}

func (s *server) listFixedItems(businessID string) ([]finance.FixedCostItem, error) {
	views, err := s.listCostItems(businessID, finance.CategoryFixed)
	if err != nil {
		return nil, err
	}

	items := make([]finance.FixedCostItem, 0, len(views))
	for _, v := range views {
		items = append(items, finance.FixedCostItem{
			ItemBase:      finance.ItemBase{ID: v.ID, Name: v.Name, Value: v.Value, Note: v.Note},
			SourceAssetID: v.SourceAssetID,
		})
	}
	return items, nil
}

func (s *server) listCapitalItems(businessID string) ([]finance.CapitalItem, error) {
	views, err := s.listCostItems(businessID, finance.CategoryCapital)
	if err != nil {
		return nil, err
	}

	items := make([]finance.CapitalItem, 0, len(views))
	for _, v := range views {
		items = append(items, finance.CapitalItem{
			ItemBase:        finance.ItemBase{ID: v.ID, Name: v.Name, Value: v.Value, Note: v.Note},
			IsFixedAsset:    v.IsFixedAsset,
			UsefulLifeYears: v.UsefulLifeYears,
		})
	}
	return items, nil
}
