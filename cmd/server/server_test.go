package main

import (
	"database/sql"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kopiplan/kopiplan/internal/bus"
	"github.com/kopiplan/kopiplan/internal/db"
	"github.com/kopiplan/kopiplan/internal/migrations"
	"github.com/kopiplan/kopiplan/internal/recurring"
)

const testBusinessID = "biz-1"

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "server-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	if _, err := database.Exec(`INSERT INTO businesses (id, name, note) VALUES (?, 'Gerobak Kopi', '')`, testBusinessID); err != nil {
		t.Fatalf("insert business: %v", err)
	}
	if _, err := database.Exec(`INSERT INTO bonus_schemes (business_id, note) VALUES (?, '')`, testBusinessID); err != nil {
		t.Fatalf("insert bonus scheme: %v", err)
	}

	return database
}

func newTestServer(t *testing.T) *server {
	t.Helper()

	database := newTestDB(t)
	events := bus.New()
	return &server{
		auth:   newAuthService(database, "test-secret"),
		db:     database,
		events: events,
		logger: zap.NewNop(),
		memo:   newProjectionMemo(events),
		poster: recurring.NewPoster(database, events, nil),
	}
}
