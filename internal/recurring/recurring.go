// Package recurring posts due recurring expenses into the fixed-cost list,
// once per month per expense.
package recurring

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kopiplan/kopiplan/internal/bus"
	"github.com/kopiplan/kopiplan/internal/finance"
)

const monthLayout = "2006-01"

// Poster inserts a fixed-cost item for every active recurring expense whose
// posting day has been reached this month and that has not been posted for
// this month yet.
type Poster struct {
	db     *sql.DB
	events *bus.Bus
	logger *zap.Logger
}

// NewPoster wires a poster to the database and the event bus.
func NewPoster(db *sql.DB, events *bus.Bus, logger *zap.Logger) *Poster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poster{db: db, events: events, logger: logger}
}

type dueExpense struct {
	ID         string
	BusinessID string
	Name       string
	Amount     int64
	Note       string
}

// PostDue posts every due expense across all businesses and returns how many
// items were created. Each expense posts at most once per calendar month.
func (p *Poster) PostDue(now time.Time) (int, error) {
	month := now.Format(monthLayout)

	rows, err := p.db.Query(`
		SELECT id, business_id, name, amount, COALESCE(note, '')
		FROM recurring_expenses
		WHERE active = 1 AND day_of_month <= ? AND last_posted != ?
	`, now.Day(), month)
	if err != nil {
		return 0, fmt.Errorf("query due recurring expenses: %w", err)
	}
	defer rows.Close()

	due := make([]dueExpense, 0)
	for rows.Next() {
		var e dueExpense
		if err := rows.Scan(&e.ID, &e.BusinessID, &e.Name, &e.Amount, &e.Note); err != nil {
			return 0, fmt.Errorf("scan recurring expense: %w", err)
		}
		due = append(due, e)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate recurring expenses: %w", err)
	}

	posted := 0
	touched := make(map[string]bool)
	for _, e := range due {
		if err := p.post(e, month); err != nil {
			return posted, err
		}
		posted++
		touched[e.BusinessID] = true
	}

	for businessID := range touched {
		p.events.Publish(bus.Event{Topic: bus.TopicCostItemsChanged, BusinessID: businessID})
	}

	return posted, nil
}

// PostNow posts a single expense of one business for the current month
// regardless of its posting day. Posting twice in one month is rejected, and
// an expense belonging to another business is not found.
func (p *Poster) PostNow(businessID, id string, now time.Time) error {
	month := now.Format(monthLayout)

	var e dueExpense
	var lastPosted string
	err := p.db.QueryRow(`
		SELECT id, business_id, name, amount, COALESCE(note, ''), last_posted
		FROM recurring_expenses
		WHERE id = ? AND business_id = ?
	`, id, businessID).Scan(&e.ID, &e.BusinessID, &e.Name, &e.Amount, &e.Note, &lastPosted)
	if err != nil {
		return fmt.Errorf("load recurring expense: %w", err)
	}
	if lastPosted == month {
		return fmt.Errorf("expense already posted for %s", month)
	}

	if err := p.post(e, month); err != nil {
		return err
	}
	p.events.Publish(bus.Event{Topic: bus.TopicCostItemsChanged, BusinessID: e.BusinessID})
	return nil
}

// post inserts the fixed-cost item and stamps last_posted in one transaction.
func (p *Poster) post(e dueExpense, month string) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("begin posting transaction: %w", err)
	}

	itemName := fmt.Sprintf("%s (%s)", e.Name, month)
	if _, err := tx.Exec(`
		INSERT INTO cost_items (id, business_id, category, name, value, note)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), e.BusinessID, string(finance.CategoryFixed), itemName, e.Amount, e.Note); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert posted expense item: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE recurring_expenses
		SET last_posted = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, month, e.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("stamp last posted month: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit posting transaction: %w", err)
	}

	p.logger.Info("posted recurring expense",
		zap.String("expense", e.Name),
		zap.String("business_id", e.BusinessID),
		zap.String("month", month),
		zap.Int64("amount", e.Amount))
	return nil
}
