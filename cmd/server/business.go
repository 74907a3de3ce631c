package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const businessCookieName = "kopiplan_business"

type business struct {
	ID        string
	Name      string
	Note      string
	CreatedAt string
}

type businessesViewData struct {
	baseViewData
	Businesses []business
	CurrentID  string
}

// currentBusinessID resolves the business a request operates on: the selection
// cookie when it points at an existing business, otherwise the oldest one.
// Every store method takes the resolved ID explicitly.
func (s *server) currentBusinessID(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(businessCookieName); err == nil && cookie.Value != "" {
		var exists bool
		if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM businesses WHERE id = ?)`, cookie.Value).Scan(&exists); err != nil {
			return "", fmt.Errorf("check business existence: %w", err)
		}
		if exists {
			return cookie.Value, nil
		}
	}

	var id string
	err := s.db.QueryRow(`SELECT id FROM businesses ORDER BY datetime(created_at) ASC, id ASC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no business configured")
	}
	if err != nil {
		return "", fmt.Errorf("query default business: %w", err)
	}
	return id, nil
}

func (s *server) businessName(businessID string) (string, error) {
	var name string
	err := s.db.QueryRow(`SELECT name FROM businesses WHERE id = ?`, businessID).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("query business name: %w", err)
	}
	return name, nil
}

func (s *server) listBusinesses() ([]business, error) {
	rows, err := s.db.Query(`
		SELECT id, name, COALESCE(note, ''), created_at
		FROM businesses
		ORDER BY datetime(created_at) ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query businesses: %w", err)
	}
	defer rows.Close()

	businesses := make([]business, 0)
	for rows.Next() {
		var b business
		if err := rows.Scan(&b.ID, &b.Name, &b.Note, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate businesses: %w", err)
	}
	return businesses, nil
}

func (s *server) handleBusinessesList(w http.ResponseWriter, r *http.Request) {
	businesses, err := s.listBusinesses()
	if err != nil {
		s.serverError(w, "failed to load businesses", err)
		return
	}

	currentID, _ := s.currentBusinessID(r)
	s.renderTemplate(w, "businesses.html", businessesViewData{
		baseViewData: baseViewData{
			ErrorMessage:   r.URL.Query().Get("error"),
			SuccessMessage: r.URL.Query().Get("success"),
		},
		Businesses: businesses,
		CurrentID:  currentID,
	})
}

func (s *server) handleBusinessesCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	note := strings.TrimSpace(r.FormValue("note"))
	if name == "" {
		http.Redirect(w, r, "/businesses?error=name+is+required", http.StatusSeeOther)
		return
	}

	id := uuid.NewString()
	tx, err := s.db.Begin()
	if err != nil {
		s.serverError(w, "failed to create business", err)
		return
	}
	if _, err := tx.Exec(`INSERT INTO businesses (id, name, note) VALUES (?, ?, ?)`, id, name, note); err != nil {
		_ = tx.Rollback()
		s.serverError(w, "failed to create business", err)
		return
	}
	// Every business carries its plan and bonus singletons from birth.
	if _, err := tx.Exec(`INSERT INTO plan_config (business_id) VALUES (?)`, id); err != nil {
		_ = tx.Rollback()
		s.serverError(w, "failed to create business", err)
		return
	}
	if _, err := tx.Exec(`INSERT INTO bonus_schemes (business_id, note) VALUES (?, '')`, id); err != nil {
		_ = tx.Rollback()
		s.serverError(w, "failed to create business", err)
		return
	}
	if err := tx.Commit(); err != nil {
		s.serverError(w, "failed to create business", err)
		return
	}

	http.Redirect(w, r, "/businesses?success="+url.QueryEscape("Business created"), http.StatusSeeOther)
}

func (s *server) handleBusinessSelect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM businesses WHERE id = ?)`, id).Scan(&exists); err != nil {
		s.serverError(w, "failed to switch business", err)
		return
	}
	if !exists {
		http.NotFound(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     businessCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/businesses", http.StatusSeeOther)
}

func (s *server) serverError(w http.ResponseWriter, message string, err error) {
	s.logger.Error(message, zap.Error(err))
	http.Error(w, message, http.StatusInternalServerError)
}
