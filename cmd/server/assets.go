package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kopiplan/kopiplan/internal/bus"
	"github.com/kopiplan/kopiplan/internal/finance"
)

const assetDateLayout = "2006-01-02"

type assetView struct {
	Asset        finance.Asset
	Monthly      int64
	CurrentValue int64
	PurchaseDate string
}

type assetsViewData struct {
	baseViewData
	Assets       []assetView
	MonthlyTotal int64
}

func (s *server) handleAssetsList(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	assets, err := s.listAssets(businessID)
	if err != nil {
		s.serverError(w, "failed to load assets", err)
		return
	}

	now := time.Now()
	views := make([]assetView, 0, len(assets))
	var monthlyTotal int64
	for _, a := range assets {
		monthly := finance.MonthlyDepreciation(a)
		monthlyTotal += monthly
		views = append(views, assetView{
			Asset:        a,
			Monthly:      monthly,
			CurrentValue: finance.CurrentValue(a, now),
			PurchaseDate: a.PurchaseDate.Format(assetDateLayout),
		})
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	s.renderTemplate(w, "assets.html", assetsViewData{
		baseViewData: baseViewData{
			ErrorMessage:   r.URL.Query().Get("error"),
			SuccessMessage: r.URL.Query().Get("success"),
			BusinessName:   name,
		},
		Assets:       views,
		MonthlyTotal: monthlyTotal,
	})
}

func (s *server) handleAssetsCreate(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	asset, validationErr := parseAssetForm(r)
	if validationErr != nil {
		redirectAssets(w, r, "error", validationErr.Error())
		return
	}
	asset.ID = uuid.NewString()

	if err := s.insertAsset(businessID, asset); err != nil {
		s.serverError(w, "failed to create asset", err)
		return
	}

	s.publishAssetChange(businessID, asset.ID)
	redirectAssets(w, r, "success", "Asset added")
}

func (s *server) handleAssetsUpdate(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	asset, validationErr := parseAssetForm(r)
	if validationErr != nil {
		redirectAssets(w, r, "error", validationErr.Error())
		return
	}
	asset.ID = chi.URLParam(r, "id")

	if err := s.updateAsset(businessID, asset); err != nil {
		if err == errAssetNotFound {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, "failed to update asset", err)
		return
	}

	s.publishAssetChange(businessID, asset.ID)
	redirectAssets(w, r, "success", "Asset updated")
}

func (s *server) handleAssetsDelete(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.deleteAsset(businessID, id); err != nil {
		if err == errAssetNotFound {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, "failed to delete asset", err)
		return
	}

	s.publishAssetChange(businessID, id)
	redirectAssets(w, r, "success", "Asset deleted")
}

func (s *server) publishAssetChange(businessID, assetID string) {
	s.events.Publish(bus.Event{Topic: bus.TopicAssetsChanged, BusinessID: businessID, EntityID: assetID})
	// Every asset drives a fixed cost line, so the cost set changed too.
	s.events.Publish(bus.Event{Topic: bus.TopicCostItemsChanged, BusinessID: businessID, EntityID: assetID})
}

func redirectAssets(w http.ResponseWriter, r *http.Request, kind, message string) {
	http.Redirect(w, r, "/assets?"+kind+"="+url.QueryEscape(message), http.StatusSeeOther)
}

func parseAssetForm(r *http.Request) (finance.Asset, error) {
	asset := finance.Asset{
		Name: strings.TrimSpace(r.FormValue("name")),
		Note: strings.TrimSpace(r.FormValue("note")),
	}
	if asset.Name == "" {
		return asset, fmt.Errorf("name is required")
	}

	var err error
	if asset.PurchaseCost, err = parseNonNegativeInt(r.FormValue("purchase_cost"), "purchase_cost"); err != nil {
		return asset, err
	}
	if asset.DepreciationMonths, err = parsePositiveInt(r.FormValue("depreciation_months"), "depreciation_months"); err != nil {
		return asset, err
	}
	if asset.PurchaseDate, err = time.Parse(assetDateLayout, strings.TrimSpace(r.FormValue("purchase_date"))); err != nil {
		return asset, fmt.Errorf("purchase_date must be YYYY-MM-DD")
	}

	return asset, nil
}

var errAssetNotFound = fmt.Errorf("asset not found")

func (s *server) listAssets(businessID string) ([]finance.Asset, error) {
	rows, err := s.db.Query(`
		SELECT id, name, purchase_cost, purchase_date, depreciation_months, COALESCE(note, '')
		FROM fixed_assets
		WHERE business_id = ?
		ORDER BY datetime(created_at) ASC, id ASC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("query fixed assets: %w", err)
	}
	defer rows.Close()

	assets := make([]finance.Asset, 0)
	for rows.Next() {
		var a finance.Asset
		var date string
		if err := rows.Scan(&a.ID, &a.Name, &a.PurchaseCost, &date, &a.DepreciationMonths, &a.Note); err != nil {
			return nil, fmt.Errorf("scan fixed asset: %w", err)
		}
		if a.PurchaseDate, err = time.Parse(assetDateLayout, date); err != nil {
			return nil, fmt.Errorf("parse purchase date %q: %w", date, err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixed assets: %w", err)
	}
	return assets, nil
}

// insertAsset writes the asset and its depreciation cost line in one
// transaction so the two never drift apart.
func (s *server) insertAsset(businessID string, asset finance.Asset) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO fixed_assets (id, business_id, name, purchase_cost, purchase_date, depreciation_months, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, asset.ID, businessID, asset.Name, asset.PurchaseCost, asset.PurchaseDate.Format(assetDateLayout), asset.DepreciationMonths, asset.Note)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert fixed asset: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO cost_items (id, business_id, category, name, value, note, source_asset_id)
		VALUES (?, ?, 'fixed', ?, ?, '', ?)
	`, uuid.NewString(), businessID, depreciationLineName(asset.Name), finance.MonthlyDepreciation(asset), asset.ID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert depreciation cost line: %w", err)
	}

	return tx.Commit()
}

func (s *server) updateAsset(businessID string, asset finance.Asset) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	res, err := tx.Exec(`
		UPDATE fixed_assets
		SET
			name = ?,
			purchase_cost = ?,
			purchase_date = ?,
			depreciation_months = ?,
			note = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND business_id = ?
	`, asset.Name, asset.PurchaseCost, asset.PurchaseDate.Format(assetDateLayout), asset.DepreciationMonths, asset.Note, asset.ID, businessID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update fixed asset: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		_ = tx.Rollback()
		return errAssetNotFound
	}

	_, err = tx.Exec(`
		UPDATE cost_items
		SET
			name = ?,
			value = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE source_asset_id = ? AND business_id = ?
	`, depreciationLineName(asset.Name), finance.MonthlyDepreciation(asset), asset.ID, businessID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update depreciation cost line: %w", err)
	}

	return tx.Commit()
}

func (s *server) deleteAsset(businessID, assetID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM fixed_assets WHERE id = ? AND business_id = ?`, assetID, businessID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete fixed asset: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		_ = tx.Rollback()
		return errAssetNotFound
	}

	if _, err := tx.Exec(`DELETE FROM cost_items WHERE source_asset_id = ? AND business_id = ?`, assetID, businessID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete depreciation cost line: %w", err)
	}

	return tx.Commit()
}

func depreciationLineName(assetName string) string {
	return assetName + " (depreciation)"
}

// assetByID is used by handlers and tests that need a single asset back.
func (s *server) assetByID(businessID, assetID string) (finance.Asset, error) {
	var a finance.Asset
	var date string
	err := s.db.QueryRow(`
		SELECT id, name, purchase_cost, purchase_date, depreciation_months, COALESCE(note, '')
		FROM fixed_assets
		WHERE id = ? AND business_id = ?
	`, assetID, businessID).Scan(&a.ID, &a.Name, &a.PurchaseCost, &date, &a.DepreciationMonths, &a.Note)
	if err == sql.ErrNoRows {
		return finance.Asset{}, errAssetNotFound
	}
	if err != nil {
		return finance.Asset{}, fmt.Errorf("query fixed asset: %w", err)
	}
	if a.PurchaseDate, err = time.Parse(assetDateLayout, date); err != nil {
		return finance.Asset{}, fmt.Errorf("parse purchase date %q: %w", date, err)
	}
	return a, nil
}
