package recurring

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/kopiplan/kopiplan/internal/bus"
	"github.com/kopiplan/kopiplan/internal/db"
	"github.com/kopiplan/kopiplan/internal/migrations"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "recurring-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	if _, err := database.Exec(`INSERT INTO businesses (id, name, note) VALUES ('biz-1', 'Gerobak Kopi', '')`); err != nil {
		t.Fatalf("insert business: %v", err)
	}

	return database
}

func seedExpense(t *testing.T, database *sql.DB, id string, dayOfMonth int, active int, lastPosted string) {
	t.Helper()

	_, err := database.Exec(`
		INSERT INTO recurring_expenses (id, business_id, name, amount, day_of_month, note, active, last_posted)
		VALUES (?, 'biz-1', 'Listrik', 150000, ?, '', ?, ?)
	`, id, dayOfMonth, active, lastPosted)
	if err != nil {
		t.Fatalf("insert recurring expense: %v", err)
	}
}

func countFixedItems(t *testing.T, database *sql.DB) int {
	t.Helper()

	var count int
	if err := database.QueryRow(`SELECT COUNT(*) FROM cost_items WHERE category = 'fixed'`).Scan(&count); err != nil {
		t.Fatalf("count fixed items: %v", err)
	}
	return count
}

func TestPostDue_PostsOncePerMonth(t *testing.T) {
	database := newTestDB(t)
	events := bus.New()

	invalidations := 0
	events.Subscribe(bus.TopicCostItemsChanged, func(bus.Event) { invalidations++ })

	seedExpense(t, database, "exp-1", 5, 1, "")
	poster := NewPoster(database, events, nil)

	now := time.Date(2026, time.August, 10, 3, 0, 0, 0, time.UTC)

	posted, err := poster.PostDue(now)
	if err != nil {
		t.Fatalf("PostDue returned error: %v", err)
	}
	if posted != 1 || countFixedItems(t, database) != 1 {
		t.Fatalf("expected 1 posted item, got posted=%d items=%d", posted, countFixedItems(t, database))
	}
	if invalidations != 1 {
		t.Fatalf("expected 1 bus event, got %d", invalidations)
	}

	// A second pass the same month posts nothing.
	posted, err = poster.PostDue(now.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("second PostDue returned error: %v", err)
	}
	if posted != 0 || countFixedItems(t, database) != 1 {
		t.Fatalf("repeat pass must be idempotent, got posted=%d items=%d", posted, countFixedItems(t, database))
	}

	// The next month it posts again.
	posted, err = poster.PostDue(now.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("next-month PostDue returned error: %v", err)
	}
	if posted != 1 || countFixedItems(t, database) != 2 {
		t.Fatalf("expected a new posting next month, got posted=%d items=%d", posted, countFixedItems(t, database))
	}
}

func TestPostDue_SkipsNotYetDueAndInactive(t *testing.T) {
	database := newTestDB(t)
	poster := NewPoster(database, bus.New(), nil)

	seedExpense(t, database, "exp-late", 25, 1, "")
	seedExpense(t, database, "exp-off", 1, 0, "")

	posted, err := poster.PostDue(time.Date(2026, time.August, 10, 3, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PostDue returned error: %v", err)
	}
	if posted != 0 || countFixedItems(t, database) != 0 {
		t.Fatalf("expected nothing posted, got posted=%d items=%d", posted, countFixedItems(t, database))
	}
}

func TestPostNow_IgnoresDayButRejectsDoublePosting(t *testing.T) {
	database := newTestDB(t)
	poster := NewPoster(database, bus.New(), nil)

	seedExpense(t, database, "exp-1", 25, 1, "")

	now := time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC)
	if err := poster.PostNow("biz-1", "exp-1", now); err != nil {
		t.Fatalf("PostNow returned error: %v", err)
	}
	if countFixedItems(t, database) != 1 {
		t.Fatalf("expected 1 posted item, got %d", countFixedItems(t, database))
	}

	if err := poster.PostNow("biz-1", "exp-1", now); err == nil {
		t.Fatal("posting the same expense twice in a month must fail")
	}

	var name string
	if err := database.QueryRow(`SELECT name FROM cost_items WHERE category = 'fixed'`).Scan(&name); err != nil {
		t.Fatalf("read posted item: %v", err)
	}
	if name != "Listrik (2026-08)" {
		t.Fatalf("posted item name = %q, want month-stamped name", name)
	}
}

func TestPostNow_RejectsExpenseOfAnotherBusiness(t *testing.T) {
	database := newTestDB(t)
	poster := NewPoster(database, bus.New(), nil)

	if _, err := database.Exec(`INSERT INTO businesses (id, name, note) VALUES ('biz-2', 'Kedai Teh', '')`); err != nil {
		t.Fatalf("insert second business: %v", err)
	}
	seedExpense(t, database, "exp-1", 5, 1, "")

	now := time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC)
	if err := poster.PostNow("biz-2", "exp-1", now); err == nil {
		t.Fatal("posting another business's expense must fail")
	}
	if countFixedItems(t, database) != 0 {
		t.Fatalf("expected no posted items, got %d", countFixedItems(t, database))
	}

	// The owning business can still post it.
	if err := poster.PostNow("biz-1", "exp-1", now); err != nil {
		t.Fatalf("PostNow for the owning business returned error: %v", err)
	}
	if countFixedItems(t, database) != 1 {
		t.Fatalf("expected 1 posted item, got %d", countFixedItems(t, database))
	}
}
