package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath        = "./kopiplan.db"
	defaultPort          = "8080"
	defaultRecurringCron = "0 3 * * *"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	DBPath        string
	Port          string
	RecurringCron string
	Env           string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: a missing .env file is fine, production injects real env.
	_ = godotenv.Load()

	return Config{
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		DBPath:        getenvWithDefault("DB_PATH", defaultDBPath),
		Port:          getenvWithDefault("PORT", defaultPort),
		RecurringCron: getenvWithDefault("RECURRING_CRON", defaultRecurringCron),
		Env:           getenvWithDefault("APP_ENV", "dev"),
	}
}

// IsDev reports whether the app runs in development mode, which enables
// startup migrations.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
