// internal/adapters/out/db/order_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	orderdom "ayyooya/internal/domain/order"
)

// OrderRepositoryPG is the PostgreSQL implementation of order.Repository.
// The table layout matches the hosted Postgres schema the storefront
// started on (serial-era ids are stored as text).
type OrderRepositoryPG struct {
	DB *sql.DB
}

func NewOrderRepositoryPG(db *sql.DB) *OrderRepositoryPG {
	return &OrderRepositoryPG{DB: db}
}

const orderColumns = `
  id, user_id, customer_name, phone, address, total_price, slip_url,
  items, status, tracking_number, created_at, updated_at`

func (r *OrderRepositoryPG) GetByID(ctx context.Context, id string) (orderdom.Order, error) {
	q := `SELECT` + orderColumns + `
FROM orders
WHERE id = $1`
	o, err := scanOrder(r.DB.QueryRowContext(ctx, q, strings.TrimSpace(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return orderdom.Order{}, orderdom.ErrNotFound
		}
		return orderdom.Order{}, err
	}
	return o, nil
}

func (r *OrderRepositoryPG) List(ctx context.Context, f orderdom.Filter) ([]orderdom.Order, error) {
	where, args := buildOrderWhere(f)
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}
	q := fmt.Sprintf(`SELECT%s
FROM orders
%s
ORDER BY created_at DESC, id DESC`, orderColumns, whereSQL)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []orderdom.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepositoryPG) Create(ctx context.Context, o orderdom.Order) (orderdom.Order, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return orderdom.Order{}, err
	}
	const q = `
INSERT INTO orders (
  id, user_id, customer_name, phone, address, total_price, slip_url,
  items, status, tracking_number, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = r.DB.ExecContext(ctx, q,
		o.ID, o.UserID, o.CustomerName, o.Phone, o.Address, o.TotalPrice, o.SlipRef,
		items, string(o.Status), nullString(o.TrackingNumber), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return orderdom.Order{}, orderdom.ErrConflict
		}
		return orderdom.Order{}, err
	}
	return o, nil
}

func (r *OrderRepositoryPG) Save(ctx context.Context, o orderdom.Order, from orderdom.Status) (orderdom.Order, error) {
	// Rows written before status existed hold NULL or '' and are pending.
	const q = `
UPDATE orders
SET status = $2, tracking_number = $3, updated_at = $4
WHERE id = $1 AND COALESCE(NULLIF(status, ''), 'pending') = $5`
	res, err := r.DB.ExecContext(ctx, q, o.ID, string(o.Status), nullString(o.TrackingNumber), o.UpdatedAt, string(from))
	if err != nil {
		return orderdom.Order{}, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return o, nil
	}

	var one int
	err = r.DB.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = $1`, o.ID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return orderdom.Order{}, orderdom.ErrNotFound
	case err != nil:
		return orderdom.Order{}, err
	}
	return orderdom.Order{}, orderdom.ErrConflict
}

func (r *OrderRepositoryPG) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return orderdom.ErrNotFound
	}
	return nil
}

// ========================
// Helpers
// ========================

func buildOrderWhere(f orderdom.Filter) ([]string, []any) {
	where := []string{}
	args := []any{}

	if uid := strings.TrimSpace(f.UserID); uid != "" {
		args = append(args, uid)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		ss := make([]string, 0, len(f.Statuses))
		pending := false
		for _, s := range f.Statuses {
			ss = append(ss, string(s))
			if s == orderdom.StatusPending {
				pending = true
			}
		}
		args = append(args, pq.Array(ss))
		cond := fmt.Sprintf("status = ANY($%d)", len(args))
		if pending {
			// legacy rows without a status are pending
			cond = fmt.Sprintf("(%s OR status IS NULL OR status = '')", cond)
		}
		where = append(where, cond)
	}
	if f.HasTracking != nil {
		if *f.HasTracking {
			where = append(where, "COALESCE(tracking_number, '') <> ''")
		} else {
			where = append(where, "COALESCE(tracking_number, '') = ''")
		}
	}
	return where, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (orderdom.Order, error) {
	var (
		o        orderdom.Order
		items    []byte
		status   sql.NullString
		tracking sql.NullString
	)
	if err := s.Scan(
		&o.ID, &o.UserID, &o.CustomerName, &o.Phone, &o.Address, &o.TotalPrice, &o.SlipRef,
		&items, &status, &tracking, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return orderdom.Order{}, err
	}
	o.Status = orderdom.ParseStatus(status.String)
	if tracking.Valid {
		o.TrackingNumber = orderdom.NormalizePtr(&tracking.String)
	}
	o.Items = []orderdom.Item{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return orderdom.Order{}, fmt.Errorf("db: decode order items: %w", err)
		}
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
