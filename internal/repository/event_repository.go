package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// EventRepo manages the events and event_seat_categories tables.  An
// event row holds the descriptive fields and the persisted sale state;
// each seat category of the event is one row keyed by (event_id, label).
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

const eventColumns = `id, title, description, venue, image_url, event_date, category, sale_state`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var ev model.Event
	var category, state string
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Venue, &ev.ImageURL, &ev.Date, &category, &state)
	ev.Category = model.EventCategory(category)
	ev.SaleState = model.SaleState(state)
	ev.Date = ev.Date.UTC()
	return ev, err
}

// GetByID retrieves an event with its seat categories.  It returns
// ErrEventNotFound if there is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id string) (model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	ev, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrEventNotFound
		}
		return model.Event{}, err
	}
	seats, err := r.seatCategories(ctx, `WHERE event_id = ?`, id)
	if err != nil {
		return model.Event{}, err
	}
	ev.SeatCategories = seats[id]
	if ev.SeatCategories == nil {
		ev.SeatCategories = map[string]model.SeatCategory{}
	}
	return ev, nil
}

// List returns every event ordered by date.  Seat categories are
// loaded with one additional query.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events ORDER BY event_date ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seats, err := r.seatCategories(ctx, ``)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].SeatCategories = seats[result[i].ID]
		if result[i].SeatCategories == nil {
			result[i].SeatCategories = map[string]model.SeatCategory{}
		}
	}
	return result, nil
}

func (r *EventRepo) seatCategories(ctx context.Context, where string, args ...any) (map[string]map[string]model.SeatCategory, error) {
	q := `SELECT event_id, label, price_cents, available_seats FROM event_seat_categories ` + where
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]map[string]model.SeatCategory)
	for rows.Next() {
		var eventID, label string
		var sc model.SeatCategory
		if err := rows.Scan(&eventID, &label, &sc.PriceCents, &sc.Available); err != nil {
			return nil, err
		}
		if out[eventID] == nil {
			out[eventID] = make(map[string]model.SeatCategory)
		}
		out[eventID][label] = sc
	}
	return out, rows.Err()
}

// Update applies a partial update in one transaction.  The event row
// is locked first so a missing event is reported as ErrEventNotFound
// rather than as a silent no-op.  Seat labels the event does not have
// are ignored.
func (r *EventRepo) Update(ctx context.Context, id string, patch model.EventPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var one int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ? FOR UPDATE`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	if patch.SaleState != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE events SET sale_state = ? WHERE id = ?`, string(*patch.SaleState), id); err != nil {
			return err
		}
	}
	// Deterministic statement order keeps lock acquisition stable.
	labels := make([]string, 0, len(patch.AvailableSeats))
	for label := range patch.AvailableSeats {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		n := patch.AvailableSeats[label]
		if n < 0 {
			n = 0
		}
		const q = `UPDATE event_seat_categories SET available_seats = ? WHERE event_id = ? AND label = ?`
		if _, err := tx.ExecContext(ctx, q, n, id, label); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CreateIfMissing inserts the event and its seat categories unless an
// event with the same ID exists.  It reports whether a row was
// inserted.
func (r *EventRepo) CreateIfMissing(ctx context.Context, ev model.Event) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `INSERT IGNORE INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, ev.ID, ev.Title, ev.Description, ev.Venue, ev.ImageURL,
		ev.Date.UTC(), string(ev.Category), string(ev.SaleState))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if len(ev.SeatCategories) > 0 {
		labels := make([]string, 0, len(ev.SeatCategories))
		for label := range ev.SeatCategories {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		placeholders := make([]string, 0, len(labels))
		args := make([]any, 0, len(labels)*4)
		for _, label := range labels {
			sc := ev.SeatCategories[label]
			placeholders = append(placeholders, "(?, ?, ?, ?)")
			args = append(args, ev.ID, label, sc.PriceCents, sc.Available)
		}
		q := `INSERT INTO event_seat_categories (event_id, label, price_cents, available_seats) VALUES ` +
			strings.Join(placeholders, ", ")
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return false, err
		}
	}
	return true, tx.Commit()
}
