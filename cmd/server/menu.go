package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kopiplan/kopiplan/internal/bus"
	"github.com/kopiplan/kopiplan/internal/finance"
)

type product struct {
	ID    string
	Name  string
	Price int64
	Note  string
}

type productIngredient struct {
	ID        string
	ProductID string
	finance.VariableCostItem
}

type productView struct {
	Product        product
	Ingredients    []productIngredient
	CostPerServing int64
	Margin         int64
}

type menuViewData struct {
	baseViewData
	Products []productView
	Units    []finance.Unit
}

func (s *server) handleMenuList(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	products, err := s.listProducts(businessID)
	if err != nil {
		s.serverError(w, "failed to load menu", err)
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		ingredients, err := s.listProductIngredients(p.ID)
		if err != nil {
			s.serverError(w, "failed to load ingredients", err)
			return
		}
		items := make([]finance.VariableCostItem, 0, len(ingredients))
		for _, ing := range ingredients {
			items = append(items, ing.VariableCostItem)
		}
		cost := finance.TotalCostPerServing(items)
		views = append(views, productView{
			Product:        p,
			Ingredients:    ingredients,
			CostPerServing: cost,
			Margin:         p.Price - cost,
		})
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	s.renderTemplate(w, "menu.html", menuViewData{
		baseViewData: baseViewData{
			ErrorMessage:   r.URL.Query().Get("error"),
			SuccessMessage: r.URL.Query().Get("success"),
			BusinessName:   name,
		},
		Products: views,
		Units:    finance.Units(),
	})
}

func (s *server) handleMenuCreate(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	p, validationErr := parseProductForm(r)
	if validationErr != nil {
		redirectMenu(w, r, "error", validationErr.Error())
		return
	}
	p.ID = uuid.NewString()

	_, err = s.db.Exec(`
		INSERT INTO products (id, business_id, name, price, note)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, businessID, p.Name, p.Price, p.Note)
	if err != nil {
		s.serverError(w, "failed to create product", err)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicMenuChanged, BusinessID: businessID, EntityID: p.ID})
	redirectMenu(w, r, "success", "Product added")
}

func (s *server) handleMenuUpdate(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	p, validationErr := parseProductForm(r)
	if validationErr != nil {
		redirectMenu(w, r, "error", validationErr.Error())
		return
	}
	p.ID = chi.URLParam(r, "id")

	res, err := s.db.Exec(`
		UPDATE products
		SET name = ?, price = ?, note = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND business_id = ?
	`, p.Name, p.Price, p.Note, p.ID, businessID)
	if err != nil {
		s.serverError(w, "failed to update product", err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		http.NotFound(w, r)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicMenuChanged, BusinessID: businessID, EntityID: p.ID})
	redirectMenu(w, r, "success", "Product updated")
}

func (s *server) handleMenuDelete(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	id := chi.URLParam(r, "id")
	res, err := s.db.Exec(`DELETE FROM products WHERE id = ? AND business_id = ?`, id, businessID)
	if err != nil {
		s.serverError(w, "failed to delete product", err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		http.NotFound(w, r)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicMenuChanged, BusinessID: businessID, EntityID: id})
	redirectMenu(w, r, "success", "Product deleted")
}

// handleMenuExpand copies a product's ingredients into the business-wide COGS
// list so the projection sweep prices them in.
func (s *server) handleMenuExpand(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	productID := chi.URLParam(r, "id")
	p, err := s.productByID(businessID, productID)
	if err != nil {
		if err == errProductNotFound {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, "failed to load product", err)
		return
	}

	ingredients, err := s.listProductIngredients(productID)
	if err != nil {
		s.serverError(w, "failed to load ingredients", err)
		return
	}
	if len(ingredients) == 0 {
		redirectMenu(w, r, "error", "product has no ingredients to expand")
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		s.serverError(w, "failed to expand product", err)
		return
	}
	for _, ing := range ingredients {
		item := ing.VariableCostItem
		item.UpdateCalculatedValue()
		_, err := tx.Exec(`
			INSERT INTO cost_items (
				id, business_id, category, name, value, note,
				base_unit_cost, base_unit_quantity, usage_per_serving, unit
			)
			VALUES (?, ?, 'cogs', ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), businessID, item.Name, item.Value, "from menu: "+p.Name,
			item.BaseUnitCost, item.BaseUnitQuantity, item.UsagePerServing, string(item.Unit))
		if err != nil {
			_ = tx.Rollback()
			s.serverError(w, "failed to expand product", err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		s.serverError(w, "failed to expand product", err)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicCostItemsChanged, BusinessID: businessID, EntityID: productID})
	redirectMenu(w, r, "success", fmt.Sprintf("Expanded %d ingredients into COGS", len(ingredients)))
}

func (s *server) handleMenuIngredientCreate(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	productID := chi.URLParam(r, "id")
	if _, err := s.productByID(businessID, productID); err != nil {
		if err == errProductNotFound {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, "failed to load product", err)
		return
	}

	ing, validationErr := parseIngredientForm(r)
	if validationErr != nil {
		redirectMenu(w, r, "error", validationErr.Error())
		return
	}

	_, err = s.db.Exec(`
		INSERT INTO product_ingredients (id, product_id, name, unit, base_unit_cost, base_unit_quantity, usage_per_serving)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), productID, ing.Name, string(ing.Unit), ing.BaseUnitCost, ing.BaseUnitQuantity, ing.UsagePerServing)
	if err != nil {
		s.serverError(w, "failed to add ingredient", err)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicMenuChanged, BusinessID: businessID, EntityID: productID})
	redirectMenu(w, r, "success", "Ingredient added")
}

func (s *server) handleMenuIngredientDelete(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	productID := chi.URLParam(r, "id")
	if _, err := s.productByID(businessID, productID); err != nil {
		if err == errProductNotFound {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, "failed to load product", err)
		return
	}

	res, err := s.db.Exec(`
		DELETE FROM product_ingredients WHERE id = ? AND product_id = ?
	`, chi.URLParam(r, "ingredientID"), productID)
	if err != nil {
		s.serverError(w, "failed to delete ingredient", err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		http.NotFound(w, r)
		return
	}

	s.events.Publish(bus.Event{Topic: bus.TopicMenuChanged, BusinessID: businessID, EntityID: productID})
	redirectMenu(w, r, "success", "Ingredient removed")
}

func redirectMenu(w http.ResponseWriter, r *http.Request, kind, message string) {
	http.Redirect(w, r, "/menu?"+kind+"="+url.QueryEscape(message), http.StatusSeeOther)
}

func parseProductForm(r *http.Request) (product, error) {
	p := product{
		Name: strings.TrimSpace(r.FormValue("name")),
		Note: strings.TrimSpace(r.FormValue("note")),
	}
	if p.Name == "" {
		return p, fmt.Errorf("name is required")
	}

	var err error
	if p.Price, err = parseNonNegativeInt(r.FormValue("price"), "price"); err != nil {
		return p, err
	}
	return p, nil
}

func parseIngredientForm(r *http.Request) (finance.VariableCostItem, error) {
	item := finance.VariableCostItem{
		ItemBase: finance.ItemBase{Name: strings.TrimSpace(r.FormValue("name"))},
		Unit:     finance.Unit(r.FormValue("unit")),
	}
	if item.Name == "" {
		return item, fmt.Errorf("name is required")
	}
	if !item.Unit.Valid() {
		return item, fmt.Errorf("unit must be one of g, kg, ml, l, pcs")
	}

	var err error
	if item.BaseUnitCost, err = parsePositiveInt(r.FormValue("base_unit_cost"), "base_unit_cost"); err != nil {
		return item, err
	}
	if item.BaseUnitQuantity, err = parsePositiveFloat(r.FormValue("base_unit_quantity"), "base_unit_quantity"); err != nil {
		return item, err
	}
	if item.UsagePerServing, err = parsePositiveFloat(r.FormValue("usage_per_serving"), "usage_per_serving"); err != nil {
		return item, err
	}
	item.UpdateCalculatedValue()

	return item, nil
}

var errProductNotFound = fmt.Errorf("product not found")

func (s *server) listProducts(businessID string) ([]product, error) {
	rows, err := s.db.Query(`
		SELECT id, name, price, COALESCE(note, '')
		FROM products
		WHERE business_id = ?
		ORDER BY datetime(created_at) ASC, id ASC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]product, 0)
	for rows.Next() {
		var p product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Note); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (s *server) productByID(businessID, productID string) (product, error) {
	var p product
	err := s.db.QueryRow(`
		SELECT id, name, price, COALESCE(note, '')
		FROM products
		WHERE id = ? AND business_id = ?
	`, productID, businessID).Scan(&p.ID, &p.Name, &p.Price, &p.Note)
	if err == sql.ErrNoRows {
		return product{}, errProductNotFound
	}
	if err != nil {
		return product{}, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (s *server) listProductIngredients(productID string) ([]productIngredient, error) {
	rows, err := s.db.Query(`
		SELECT id, product_id, name, unit, base_unit_cost, base_unit_quantity, usage_per_serving
		FROM product_ingredients
		WHERE product_id = ?
		ORDER BY name ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query product ingredients: %w", err)
	}
	defer rows.Close()

	ingredients := make([]productIngredient, 0)
	for rows.Next() {
		var ing productIngredient
		var unit string
		if err := rows.Scan(&ing.ID, &ing.ProductID, &ing.Name, &unit, &ing.BaseUnitCost, &ing.BaseUnitQuantity, &ing.UsagePerServing); err != nil {
			return nil, fmt.Errorf("scan product ingredient: %w", err)
		}
		ing.Unit = finance.Unit(unit)
		ing.UpdateCalculatedValue()
		ingredients = append(ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product ingredients: %w", err)
	}
	return ingredients, nil
}
