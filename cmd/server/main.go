package main

import (
	"database/sql"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kopiplan/kopiplan/internal/bus"
	"github.com/kopiplan/kopiplan/internal/config"
	"github.com/kopiplan/kopiplan/internal/db"
	"github.com/kopiplan/kopiplan/internal/finance"
	"github.com/kopiplan/kopiplan/internal/migrations"
	"github.com/kopiplan/kopiplan/internal/recurring"
	"github.com/kopiplan/kopiplan/internal/seed"
	"github.com/kopiplan/kopiplan/pkg/logger"
)

type server struct {
	auth   *authService
	db     *sql.DB
	events *bus.Bus
	logger *zap.Logger
	memo   *projectionMemo
	poster *recurring.Poster
}

type baseViewData struct {
	ErrorMessage   string
	SuccessMessage string
	BusinessName   string
}

type loginViewData struct {
	baseViewData
}

func main() {
	cfg := config.Load()
	log := logger.Must(logger.New())
	defer func() { _ = log.Sync() }()

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Warn("ADMIN_EMAIL / ADMIN_PASSWORD not set; no admin user will be created")
	}
	if cfg.SessionSecret == "" {
		log.Warn("SESSION_SECRET is not set; sessions will not survive restarts safely")
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
		if version, err := migrations.Version(database); err == nil {
			log.Info("database migrated", zap.Int64("version", version))
		}
	}

	stats, err := seed.Run(database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		log.Fatal("failed to run startup seed", zap.Error(err))
	}
	if stats.Inserts > 0 {
		log.Info("startup seed applied", zap.Int("inserts", stats.Inserts))
	}

	events := bus.New()
	srv := &server{
		auth:   newAuthService(database, cfg.SessionSecret),
		db:     database,
		events: events,
		logger: logger.Named(log, "server"),
		memo:   newProjectionMemo(events),
		poster: recurring.NewPoster(database, events, logger.Named(log, "recurring")),
	}

	sched := recurring.NewScheduler(srv.poster, cfg.RecurringCron, logger.Named(log, "scheduler"))
	sched.Start()
	defer sched.Stop()

	r := chi.NewRouter()
	r.Use(srv.authMiddleware)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	r.Get("/", srv.handleHome)
	r.Get("/login", srv.handleLoginForm)
	r.Post("/login", srv.handleLoginSubmit)
	r.Post("/logout", srv.handleLogout)

	r.Get("/plan", srv.handlePlanForm)
	r.Post("/plan", srv.handlePlanSubmit)
	r.Get("/bonus", srv.handleBonusForm)
	r.Post("/bonus", srv.handleBonusSubmit)

	r.Get("/costs/{category}", srv.handleCostsList)
	r.Post("/costs/{category}", srv.handleCostsCreate)
	r.Post("/costs/{category}/{id}", srv.handleCostsUpdate)
	r.Post("/costs/{category}/{id}/delete", srv.handleCostsDelete)

	r.Get("/projections", srv.handleProjections)
	r.Get("/projections/pdf", srv.handleProjectionsPDF)
	r.Get("/shopping-list", srv.handleShoppingList)
	r.Get("/shopping-list/pdf", srv.handleShoppingListPDF)

	r.Get("/assets", srv.handleAssetsList)
	r.Post("/assets", srv.handleAssetsCreate)
	r.Post("/assets/{id}", srv.handleAssetsUpdate)
	r.Post("/assets/{id}/delete", srv.handleAssetsDelete)

	r.Get("/recurring", srv.handleRecurringList)
	r.Post("/recurring", srv.handleRecurringCreate)
	r.Post("/recurring/{id}", srv.handleRecurringUpdate)
	r.Post("/recurring/{id}/delete", srv.handleRecurringDelete)
	r.Post("/recurring/{id}/post-now", srv.handleRecurringPostNow)

	r.Get("/businesses", srv.handleBusinessesList)
	r.Post("/businesses", srv.handleBusinessesCreate)
	r.Post("/businesses/{id}/select", srv.handleBusinessSelect)

	r.Get("/menu", srv.handleMenuList)
	r.Post("/menu", srv.handleMenuCreate)
	r.Post("/menu/{id}", srv.handleMenuUpdate)
	r.Post("/menu/{id}/delete", srv.handleMenuDelete)
	r.Post("/menu/{id}/expand", srv.handleMenuExpand)
	r.Post("/menu/{id}/ingredients", srv.handleMenuIngredientCreate)
	r.Post("/menu/{id}/ingredients/{ingredientID}/delete", srv.handleMenuIngredientDelete)

	r.Get("/production", srv.handleProductionList)
	r.Post("/production", srv.handleProductionCreate)
	r.Post("/production/{id}/status", srv.handleProductionStatus)
	r.Post("/production/{id}/reserve", srv.handleProductionReserve)
	r.Post("/production/{id}/release", srv.handleProductionRelease)
	r.Post("/stock", srv.handleStockUpsert)

	addr := ":" + cfg.Port
	log.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r, s.auth) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, "login.html", loginViewData{})
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	valid, err := s.auth.validateCredentials(email, password)
	if err != nil {
		s.logger.Error("credential validation failed", zap.Error(err))
		http.Error(w, "authentication error", http.StatusInternalServerError)
		return
	}
	if !valid {
		w.WriteHeader(http.StatusUnauthorized)
		s.renderTemplate(w, "login.html", loginViewData{baseViewData: baseViewData{ErrorMessage: "Invalid credentials. Try again."}})
		return
	}

	s.auth.setSessionCookie(w, email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

var templateFuncs = template.FuncMap{
	"money": func(amount int64) string {
		return "Rp " + humanize.Comma(amount)
	},
	"quantity": finance.FormatQuantity,
}

func (s *server) renderTemplate(w http.ResponseWriter, page string, data any) {
	templates, err := template.New("layout.html").Funcs(templateFuncs).ParseFiles(
		"web/templates/layout.html",
		"web/templates/"+page,
	)
	if err != nil {
		s.logger.Error("template parse failed", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.logger.Error("template render failed", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" || r.URL.Path == "/static" || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		if !isAuthenticated(r, s.auth) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isAuthenticated(r *http.Request, auth *authService) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}

	_, ok := auth.verifySessionValue(cookie.Value)
	return ok
}

func parseNonNegativeInt(raw, field string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", field)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must be zero or greater", field)
	}
	return value, nil
}

func parsePositiveInt(raw, field string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", field)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

func parseNonNegativeFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be numeric", field)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must be zero or greater", field)
	}
	return value, nil
}

func parsePositiveFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be numeric", field)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

// parseOptionalInt treats an empty field as zero (absent).
func parseOptionalInt(raw, field string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return parseNonNegativeInt(raw, field)
}

// parseOptionalFloat treats an empty field as zero (absent).
func parseOptionalFloat(raw, field string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return parseNonNegativeFloat(raw, field)
}
