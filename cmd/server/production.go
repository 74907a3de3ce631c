package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kopiplan/kopiplan/internal/editstate"
	"github.com/kopiplan/kopiplan/internal/finance"
)

type batchStatus string

const (
	statusPlanned   batchStatus = "planned"
	statusBrewing   batchStatus = "brewing"
	statusDone      batchStatus = "done"
	statusCancelled batchStatus = "cancelled"
)

func (st batchStatus) valid() bool {
	switch st {
	case statusPlanned, statusBrewing, statusDone, statusCancelled:
		return true
	}
	return false
}

// canTransition encodes the batch lifecycle; done and cancelled are terminal.
func canTransition(from, to batchStatus) bool {
	switch from {
	case statusPlanned:
		return to == statusBrewing || to == statusCancelled
	case statusBrewing:
		return to == statusDone || to == statusCancelled
	}
	return false
}

type productionBatch struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int64
	Status      batchStatus
	Reserved    bool
}

type stockRow struct {
	ID       string
	Name     string
	Unit     finance.Unit
	Quantity float64
}

type productionViewData struct {
	baseViewData
	Batches  []productionBatch
	Stock    []stockRow
	Products []product
	Units    []finance.Unit
}

func (s *server) handleProductionList(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	batches, err := s.listBatches(businessID)
	if err != nil {
		s.serverError(w, "failed to load production batches", err)
		return
	}
	stock, err := s.listStock(businessID)
	if err != nil {
		s.serverError(w, "failed to load stock", err)
		return
	}
	products, err := s.listProducts(businessID)
	if err != nil {
		s.serverError(w, "failed to load products", err)
		return
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	s.renderTemplate(w, "production.html", productionViewData{
		baseViewData: baseViewData{
			ErrorMessage:   r.URL.Query().Get("error"),
			SuccessMessage: r.URL.Query().Get("success"),
			BusinessName:   name,
		},
		Batches:  batches,
		Stock:    stock,
		Products: products,
		Units:    finance.Units(),
	})
}

func (s *server) handleProductionCreate(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	productID := strings.TrimSpace(r.FormValue("product_id"))
	if _, err := s.productByID(businessID, productID); err != nil {
		if err == errProductNotFound {
			redirectProduction(w, r, "error", "product not found")
			return
		}
		s.serverError(w, "failed to load product", err)
		return
	}

	quantity, validationErr := parsePositiveInt(r.FormValue("quantity"), "quantity")
	if validationErr != nil {
		redirectProduction(w, r, "error", validationErr.Error())
		return
	}

	_, err = s.db.Exec(`
		INSERT INTO production_batches (id, business_id, product_id, quantity, status)
		VALUES (?, ?, ?, ?, 'planned')
	`, uuid.NewString(), businessID, productID, quantity)
	if err != nil {
		s.serverError(w, "failed to create batch", err)
		return
	}

	redirectProduction(w, r, "success", "Batch planned")
}

// handleProductionStatus moves a batch through its lifecycle. The edit is
// staged in a tracker first; if persistence fails the tracker rolls back and
// is reconciled against what the database still holds.
func (s *server) handleProductionStatus(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	batchID := chi.URLParam(r, "id")
	next := batchStatus(r.FormValue("status"))
	if !next.valid() {
		redirectProduction(w, r, "error", "unknown status")
		return
	}

	batch, err := s.batchByID(businessID, batchID)
	if err != nil {
		if err == errBatchNotFound {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, "failed to load batch", err)
		return
	}

	if !canTransition(batch.Status, next) {
		redirectProduction(w, r, "error", fmt.Sprintf("cannot move batch from %s to %s", batch.Status, next))
		return
	}

	tracker := editstate.NewTracker(batch.Status)
	if err := tracker.Begin(next); err != nil {
		s.serverError(w, "failed to stage status change", err)
		return
	}

	res, execErr := s.db.Exec(`
		UPDATE production_batches
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND business_id = ? AND status = ?
	`, string(next), batchID, businessID, string(batch.Status))
	affected := int64(0)
	if execErr == nil {
		affected, _ = res.RowsAffected()
	}
	if execErr != nil || affected == 0 {
		_, _ = tracker.Rollback()
		if persisted, err := s.batchByID(businessID, batchID); err == nil {
			tracker.Reconcile(persisted.Status)
		}
		if execErr != nil {
			s.serverError(w, "failed to update batch status", execErr)
			return
		}
		redirectProduction(w, r, "error", "batch changed underneath you, try again")
		return
	}

	if err := tracker.Commit(); err != nil {
		s.serverError(w, "failed to commit status change", err)
		return
	}

	redirectProduction(w, r, "success", "Batch moved to "+string(tracker.Value()))
}

// handleProductionReserve claims stock for a batch all-or-nothing: the
// requirement for every ingredient is checked first and nothing is reserved
// when any of them falls short.
func (s *server) handleProductionReserve(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	batchID := chi.URLParam(r, "id")
	batch, err := s.batchByID(businessID, batchID)
	if err != nil {
		if err == errBatchNotFound {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, "failed to load batch", err)
		return
	}
	if batch.Status != statusPlanned && batch.Status != statusBrewing {
		redirectProduction(w, r, "error", "only planned or brewing batches can reserve stock")
		return
	}
	if batch.Reserved {
		redirectProduction(w, r, "error", "batch already holds a reservation")
		return
	}

	ingredients, err := s.listProductIngredients(batch.ProductID)
	if err != nil {
		s.serverError(w, "failed to load ingredients", err)
		return
	}
	if len(ingredients) == 0 {
		redirectProduction(w, r, "error", "product has no ingredients")
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		s.serverError(w, "failed to reserve stock", err)
		return
	}

	type claim struct {
		stockID  string
		quantity float64
	}
	claims := make([]claim, 0, len(ingredients))
	shortfalls := make([]string, 0)

	for _, ing := range ingredients {
		required := ing.UsagePerServing * float64(batch.Quantity)

		var stockID string
		var available float64
		err := tx.QueryRow(`
			SELECT id, quantity FROM ingredient_stock
			WHERE business_id = ? AND name = ?
		`, businessID, ing.Name).Scan(&stockID, &available)
		if err == sql.ErrNoRows {
			shortfalls = append(shortfalls, fmt.Sprintf("%s: need %s, have none", ing.Name, finance.FormatQuantity(required, ing.Unit)))
			continue
		}
		if err != nil {
			_ = tx.Rollback()
			s.serverError(w, "failed to reserve stock", err)
			return
		}
		if available < required {
			shortfalls = append(shortfalls, fmt.Sprintf("%s: need %s, have %s",
				ing.Name, finance.FormatQuantity(required, ing.Unit), finance.FormatQuantity(available, ing.Unit)))
			continue
		}
		claims = append(claims, claim{stockID: stockID, quantity: required})
	}

	if len(shortfalls) > 0 {
		_ = tx.Rollback()
		redirectProduction(w, r, "error", "insufficient stock: "+strings.Join(shortfalls, "; "))
		return
	}

	for _, c := range claims {
		if _, err := tx.Exec(`
			UPDATE ingredient_stock SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
		`, c.quantity, c.stockID); err != nil {
			_ = tx.Rollback()
			s.serverError(w, "failed to reserve stock", err)
			return
		}
		if _, err := tx.Exec(`
			INSERT INTO stock_reservations (id, batch_id, stock_id, quantity)
			VALUES (?, ?, ?, ?)
		`, uuid.NewString(), batchID, c.stockID, c.quantity); err != nil {
			_ = tx.Rollback()
			s.serverError(w, "failed to reserve stock", err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		s.serverError(w, "failed to reserve stock", err)
		return
	}

	redirectProduction(w, r, "success", "Stock reserved")
}

// handleProductionRelease puts a batch's reserved stock back.
func (s *server) handleProductionRelease(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	batchID := chi.URLParam(r, "id")
	if _, err := s.batchByID(businessID, batchID); err != nil {
		if err == errBatchNotFound {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, "failed to load batch", err)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		s.serverError(w, "failed to release stock", err)
		return
	}

	rows, err := tx.Query(`SELECT stock_id, quantity FROM stock_reservations WHERE batch_id = ?`, batchID)
	if err != nil {
		_ = tx.Rollback()
		s.serverError(w, "failed to release stock", err)
		return
	}
	type held struct {
		stockID  string
		quantity float64
	}
	holds := make([]held, 0)
	for rows.Next() {
		var h held
		if err := rows.Scan(&h.stockID, &h.quantity); err != nil {
			rows.Close()
			_ = tx.Rollback()
			s.serverError(w, "failed to release stock", err)
			return
		}
		holds = append(holds, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		_ = tx.Rollback()
		s.serverError(w, "failed to release stock", err)
		return
	}

	if len(holds) == 0 {
		_ = tx.Rollback()
		redirectProduction(w, r, "error", "batch holds no reservation")
		return
	}

	for _, h := range holds {
		if _, err := tx.Exec(`
			UPDATE ingredient_stock SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
		`, h.quantity, h.stockID); err != nil {
			_ = tx.Rollback()
			s.serverError(w, "failed to release stock", err)
			return
		}
	}
	if _, err := tx.Exec(`DELETE FROM stock_reservations WHERE batch_id = ?`, batchID); err != nil {
		_ = tx.Rollback()
		s.serverError(w, "failed to release stock", err)
		return
	}

	if err := tx.Commit(); err != nil {
		s.serverError(w, "failed to release stock", err)
		return
	}

	redirectProduction(w, r, "success", "Stock released")
}

func (s *server) handleStockUpsert(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		redirectProduction(w, r, "error", "name is required")
		return
	}
	unit := finance.Unit(r.FormValue("unit"))
	if !unit.Valid() {
		redirectProduction(w, r, "error", "unit must be one of g, kg, ml, l, pcs")
		return
	}
	quantity, validationErr := parseNonNegativeFloat(r.FormValue("quantity"), "quantity")
	if validationErr != nil {
		redirectProduction(w, r, "error", validationErr.Error())
		return
	}

	_, err = s.db.Exec(`
		INSERT INTO ingredient_stock (id, business_id, name, unit, quantity)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(business_id, name) DO UPDATE SET
			unit = excluded.unit,
			quantity = excluded.quantity,
			updated_at = CURRENT_TIMESTAMP
	`, uuid.NewString(), businessID, name, string(unit), quantity)
	if err != nil {
		s.serverError(w, "failed to save stock", err)
		return
	}

	redirectProduction(w, r, "success", "Stock saved")
}

func redirectProduction(w http.ResponseWriter, r *http.Request, kind, message string) {
	http.Redirect(w, r, "/production?"+kind+"="+url.QueryEscape(message), http.StatusSeeOther)
}

var errBatchNotFound = fmt.Errorf("batch not found")

func (s *server) batchByID(businessID, batchID string) (productionBatch, error) {
	var b productionBatch
	var status string
	err := s.db.QueryRow(`
		SELECT b.id, b.product_id, COALESCE(p.name, ''), b.quantity, b.status,
			EXISTS(SELECT 1 FROM stock_reservations sr WHERE sr.batch_id = b.id)
		FROM production_batches b
		LEFT JOIN products p ON p.id = b.product_id
		WHERE b.id = ? AND b.business_id = ?
	`, batchID, businessID).Scan(&b.ID, &b.ProductID, &b.ProductName, &b.Quantity, &status, &b.Reserved)
	if err == sql.ErrNoRows {
		return productionBatch{}, errBatchNotFound
	}
	if err != nil {
		return productionBatch{}, fmt.Errorf("query batch: %w", err)
	}
	b.Status = batchStatus(status)
	return b, nil
}

func (s *server) listBatches(businessID string) ([]productionBatch, error) {
	rows, err := s.db.Query(`
		SELECT b.id, b.product_id, COALESCE(p.name, ''), b.quantity, b.status,
			EXISTS(SELECT 1 FROM stock_reservations sr WHERE sr.batch_id = b.id)
		FROM production_batches b
		LEFT JOIN products p ON p.id = b.product_id
		WHERE b.business_id = ?
		ORDER BY datetime(b.created_at) DESC, b.id ASC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := make([]productionBatch, 0)
	for rows.Next() {
		var b productionBatch
		var status string
		if err := rows.Scan(&b.ID, &b.ProductID, &b.ProductName, &b.Quantity, &status, &b.Reserved); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.Status = batchStatus(status)
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

func (s *server) listStock(businessID string) ([]stockRow, error) {
	rows, err := s.db.Query(`
		SELECT id, name, unit, quantity
		FROM ingredient_stock
		WHERE business_id = ?
		ORDER BY name ASC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	stock := make([]stockRow, 0)
	for rows.Next() {
		var row stockRow
		var unit string
		if err := rows.Scan(&row.ID, &row.Name, &unit, &row.Quantity); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		row.Unit = finance.Unit(unit)
		stock = append(stock, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock: %w", err)
	}
	return stock, nil
}
