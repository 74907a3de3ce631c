package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type recurringExpense struct {
	ID         string
	Name       string
	Amount     int64
	DayOfMonth int64
	Note       string
	Active     bool
	LastPosted string
}

type recurringViewData struct {
	baseViewData
	Expenses     []recurringExpense
	MonthlyTotal int64
}

func (s *server) handleRecurringList(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	expenses, err := s.listRecurringExpenses(businessID)
	if err != nil {
		s.serverError(w, "failed to load recurring expenses", err)
		return
	}

	var monthlyTotal int64
	for _, e := range expenses {
		if e.Active {
			monthlyTotal += e.Amount
		}
	}

	name, err := s.businessName(businessID)
	if err != nil {
		s.serverError(w, "failed to load business", err)
		return
	}

	s.renderTemplate(w, "recurring.html", recurringViewData{
		baseViewData: baseViewData{
			ErrorMessage:   r.URL.Query().Get("error"),
			SuccessMessage: r.URL.Query().Get("success"),
			BusinessName:   name,
		},
		Expenses:     expenses,
		MonthlyTotal: monthlyTotal,
	})
}

func (s *server) handleRecurringCreate(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	expense, validationErr := parseRecurringForm(r)
	if validationErr != nil {
		redirectRecurring(w, r, "error", validationErr.Error())
		return
	}

	_, err = s.db.Exec(`
		INSERT INTO recurring_expenses (id, business_id, name, amount, day_of_month, note, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), businessID, expense.Name, expense.Amount, expense.DayOfMonth, expense.Note, boolToInt(expense.Active))
	if err != nil {
		s.serverError(w, "failed to create recurring expense", err)
		return
	}

	redirectRecurring(w, r, "success", "Recurring expense added")
}

func (s *server) handleRecurringUpdate(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	expense, validationErr := parseRecurringForm(r)
	if validationErr != nil {
		redirectRecurring(w, r, "error", validationErr.Error())
		return
	}

	res, err := s.db.Exec(`
		UPDATE recurring_expenses
		SET
			name = ?,
			amount = ?,
			day_of_month = ?,
			note = ?,
			active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND business_id = ?
	`, expense.Name, expense.Amount, expense.DayOfMonth, expense.Note, boolToInt(expense.Active), chi.URLParam(r, "id"), businessID)
	if err != nil {
		s.serverError(w, "failed to update recurring expense", err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		http.NotFound(w, r)
		return
	}

	redirectRecurring(w, r, "success", "Recurring expense updated")
}

func (s *server) handleRecurringDelete(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	res, err := s.db.Exec(`
		DELETE FROM recurring_expenses WHERE id = ? AND business_id = ?
	`, chi.URLParam(r, "id"), businessID)
	if err != nil {
		s.serverError(w, "failed to delete recurring expense", err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		http.NotFound(w, r)
		return
	}

	redirectRecurring(w, r, "success", "Recurring expense deleted")
}

func (s *server) handleRecurringPostNow(w http.ResponseWriter, r *http.Request) {
	businessID, err := s.currentBusinessID(r)
	if err != nil {
		s.serverError(w, "failed to resolve business", err)
		return
	}

	if err := s.poster.PostNow(businessID, chi.URLParam(r, "id"), time.Now()); err != nil {
		redirectRecurring(w, r, "error", err.Error())
		return
	}

	redirectRecurring(w, r, "success", "Expense posted")
}

func redirectRecurring(w http.ResponseWriter, r *http.Request, kind, message string) {
	http.Redirect(w, r, "/recurring?"+kind+"="+url.QueryEscape(message), http.StatusSeeOther)
}

func parseRecurringForm(r *http.Request) (recurringExpense, error) {
	expense := recurringExpense{
		Name:   strings.TrimSpace(r.FormValue("name")),
		Note:   strings.TrimSpace(r.FormValue("note")),
		Active: r.FormValue("active") != "",
	}
	if expense.Name == "" {
		return expense, fmt.Errorf("name is required")
	}

	var err error
	if expense.Amount, err = parsePositiveInt(r.FormValue("amount"), "amount"); err != nil {
		return expense, err
	}
	if expense.DayOfMonth, err = parsePositiveInt(r.FormValue("day_of_month"), "day_of_month"); err != nil {
		return expense, err
	}
	if expense.DayOfMonth > 28 {
		return expense, fmt.Errorf("day_of_month must be at most 28 so it exists in every month")
	}

	return expense, nil
}

func (s *server) listRecurringExpenses(businessID string) ([]recurringExpense, error) {
	rows, err := s.db.Query(`
		SELECT id, name, amount, day_of_month, COALESCE(note, ''), active, COALESCE(last_posted, '')
		FROM recurring_expenses
		WHERE business_id = ?
		ORDER BY day_of_month ASC, name ASC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("query recurring expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]recurringExpense, 0)
	for rows.Next() {
		var e recurringExpense
		var active int64
		if err := rows.Scan(&e.ID, &e.Name, &e.Amount, &e.DayOfMonth, &e.Note, &active, &e.LastPosted); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		e.Active = active != 0
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring expenses: %w", err)
	}
	return expenses, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
