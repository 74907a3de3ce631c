package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_PATH", "PORT", "RECURRING_CRON", "APP_ENV"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.DBPath != defaultDBPath {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.Port != defaultPort {
		t.Fatalf("Port = %q, want %q", cfg.Port, defaultPort)
	}
	if cfg.RecurringCron != defaultRecurringCron {
		t.Fatalf("RecurringCron = %q, want %q", cfg.RecurringCron, defaultRecurringCron)
	}
	if !cfg.IsDev() {
		t.Fatal("empty APP_ENV must default to dev")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADMIN_EMAIL", "owner@example.com")

	cfg := Load()

	if cfg.DBPath != "/tmp/test.db" || cfg.Port != "9090" {
		t.Fatalf("env values not picked up: %+v", cfg)
	}
	if cfg.AdminEmail != "owner@example.com" {
		t.Fatalf("AdminEmail = %q", cfg.AdminEmail)
	}
	if cfg.IsDev() {
		t.Fatal("production env must not report dev")
	}
}
