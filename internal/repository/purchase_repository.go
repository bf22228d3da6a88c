package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// PurchaseRepo provides CRUD operations for purchases.  Rows are never
// updated; the only deletion path is an event reset.
type PurchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepo returns a new PurchaseRepo bound to the given database.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

const purchaseColumns = `id, event_id, user_id, category, quantity, unit_price_cents, total_price_cents, purchased_at, status`

// mysqlErrNoReferencedRow is raised when a foreign key target is missing.
const mysqlErrNoReferencedRow = 1452

// Create inserts p.  A purchase for a missing event fails with
// ErrEventNotFound.
func (r *PurchaseRepo) Create(ctx context.Context, p model.Purchase) (model.Purchase, error) {
	const q = `INSERT INTO purchases (` + purchaseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	p.PurchasedAt = p.PurchasedAt.UTC()
	_, err := r.db.ExecContext(ctx, q, p.ID, p.EventID, p.UserID, p.Category, p.Quantity,
		p.UnitPriceCents, p.TotalPriceCents, p.PurchasedAt, string(p.Status))
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlErrNoReferencedRow {
			return model.Purchase{}, ErrEventNotFound
		}
		return model.Purchase{}, err
	}
	return p, nil
}

// ListByEvent returns the purchases of an event, oldest first.
func (r *PurchaseRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Purchase, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE event_id = ? ORDER BY purchased_at ASC`
	return r.list(ctx, q, eventID)
}

// ListByUser returns the purchases of a buyer, newest first.
func (r *PurchaseRepo) ListByUser(ctx context.Context, userID string) ([]model.Purchase, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE user_id = ? ORDER BY purchased_at DESC`
	return r.list(ctx, q, userID)
}

func (r *PurchaseRepo) list(ctx context.Context, q string, arg string) ([]model.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Purchase
	for rows.Next() {
		var p model.Purchase
		var status string
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.Category, &p.Quantity,
			&p.UnitPriceCents, &p.TotalPriceCents, &p.PurchasedAt, &status); err != nil {
			return nil, err
		}
		p.Status = model.PurchaseStatus(status)
		p.PurchasedAt = p.PurchasedAt.UTC()
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes one purchase.  It returns ErrPurchaseNotFound when no
// row matched.
func (r *PurchaseRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM purchases WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}
