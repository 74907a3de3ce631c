package seed

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/kopiplan/kopiplan/internal/finance"
)

const defaultBusinessName = "Gerobak Kopi"

// Starter plan values for a fresh install: 8000 per cup over 22 selling days,
// aiming at 50 cups a day.
const (
	defaultPricePerServing = 8000
	defaultDaysPerMonth    = 22
	defaultDailyTarget     = 50
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way: admin user, the default
// business with its plan and bonus singletons, and starter COGS presets when
// the business has no cost items yet.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	businessID, err := ensureDefaultBusiness(tx, &stats)
	if err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensurePlanConfig(tx, businessID, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureBonusScheme(tx, businessID, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureStarterCOGS(tx, businessID, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedAdmin(tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, hashPassword(password)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

// hashPassword must stay in sync with the login path's hashing.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func ensureDefaultBusiness(tx *sql.Tx, stats *Stats) (string, error) {
	var id string
	err := tx.QueryRow(`SELECT id FROM businesses WHERE name = ? LIMIT 1`, defaultBusinessName).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("check default business existence: %w", err)
	}

	id = uuid.NewString()
	if _, err := tx.Exec(`
		INSERT INTO businesses (id, name, note)
		VALUES (?, ?, ?)
	`, id, defaultBusinessName, ""); err != nil {
		return "", fmt.Errorf("insert default business: %w", err)
	}
	stats.Inserts++
	return id, nil
}

func ensurePlanConfig(tx *sql.Tx, businessID string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM plan_config WHERE business_id = ?)`, businessID).Scan(&exists); err != nil {
		return fmt.Errorf("check plan config existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO plan_config (business_id, price_per_serving, days_per_month, daily_target)
		VALUES (?, ?, ?, ?)
	`, businessID, defaultPricePerServing, defaultDaysPerMonth, defaultDailyTarget); err != nil {
		return fmt.Errorf("insert plan config singleton: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureBonusScheme(tx *sql.Tx, businessID string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM bonus_schemes WHERE business_id = ?)`, businessID).Scan(&exists); err != nil {
		return fmt.Errorf("check bonus scheme existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO bonus_schemes (business_id, target, per_serving_bonus, barista_count, note)
		VALUES (?, 0, 0, 1, '')
	`, businessID); err != nil {
		return fmt.Errorf("insert bonus scheme singleton: %w", err)
	}
	stats.Inserts++
	return nil
}

// ensureStarterCOGS inserts a few presets a coffee cart always needs, but only
// into a business that has no cost items at all.
func ensureStarterCOGS(tx *sql.Tx, businessID string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM cost_items WHERE business_id = ? LIMIT 1)`, businessID).Scan(&exists); err != nil {
		return fmt.Errorf("check cost items existence: %w", err)
	}
	if exists {
		return nil
	}

	presets := []finance.VariableCostItem{
		{ItemBase: finance.ItemBase{Name: "Biji kopi"}, BaseUnitCost: 90000, BaseUnitQuantity: 1000, UsagePerServing: 18, Unit: finance.UnitGram},
		{ItemBase: finance.ItemBase{Name: "Susu UHT"}, BaseUnitCost: 20000, BaseUnitQuantity: 1000, UsagePerServing: 150, Unit: finance.UnitMilliliter},
		{ItemBase: finance.ItemBase{Name: "Cup + tutup"}, BaseUnitCost: 25000, BaseUnitQuantity: 50, UsagePerServing: 1, Unit: finance.UnitPiece},
	}

	for _, preset := range presets {
		preset.UpdateCalculatedValue()
		if _, err := tx.Exec(`
			INSERT INTO cost_items (id, business_id, category, name, value, note, base_unit_cost, base_unit_quantity, usage_per_serving, unit)
			VALUES (?, ?, ?, ?, ?, '', ?, ?, ?, ?)
		`, uuid.NewString(), businessID, string(finance.CategoryCOGS), preset.Name, preset.Value,
			preset.BaseUnitCost, preset.BaseUnitQuantity, preset.UsagePerServing, string(preset.Unit)); err != nil {
			return fmt.Errorf("insert starter cost item %q: %w", preset.Name, err)
		}
		stats.Inserts++
	}

	return nil
}
