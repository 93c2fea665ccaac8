package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	productdom "ayyooya/internal/domain/product"
)

type ProductRepositoryPG struct {
	DB  *sql.DB
	now func() time.Time
}

func NewProductRepositoryPG(db *sql.DB) *ProductRepositoryPG {
	return &ProductRepositoryPG{DB: db, now: time.Now}
}

const productColumns = `
  id, name, price, size, category, description, image_url, is_sold, created_at, updated_at`

func (r *ProductRepositoryPG) GetByID(ctx context.Context, id string) (productdom.Product, error) {
	q := `SELECT` + productColumns + `
FROM products
WHERE id = $1`
	p, err := scanProduct(r.DB.QueryRowContext(ctx, q, strings.TrimSpace(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return productdom.Product{}, productdom.ErrNotFound
		}
		return productdom.Product{}, err
	}
	return p, nil
}

func (r *ProductRepositoryPG) List(ctx context.Context, f productdom.Filter) ([]productdom.Product, error) {
	where := []string{}
	args := []any{}
	if c := strings.ToLower(strings.TrimSpace(f.Category)); c != "" {
		args = append(args, c)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if !f.IncludeSold {
		where = append(where, "is_sold = FALSE")
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}
	q := fmt.Sprintf(`SELECT%s
FROM products
%s
ORDER BY created_at DESC, id DESC`, productColumns, whereSQL)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []productdom.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProductRepositoryPG) Create(ctx context.Context, p productdom.Product) (productdom.Product, error) {
	images, err := encodeImages(p.Images)
	if err != nil {
		return productdom.Product{}, err
	}
	const q = `
INSERT INTO products (
  id, name, price, size, category, description, image_url, is_sold, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err = r.DB.ExecContext(ctx, q,
		p.ID, p.Name, p.Price, p.Size, p.Category, p.Description, images, p.IsSold, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return productdom.Product{}, productdom.ErrConflict
		}
		return productdom.Product{}, err
	}
	return p, nil
}

func (r *ProductRepositoryPG) Save(ctx context.Context, p productdom.Product) (productdom.Product, error) {
	images, err := encodeImages(p.Images)
	if err != nil {
		return productdom.Product{}, err
	}
	const q = `
UPDATE products
SET name = $2, price = $3, size = $4, category = $5, description = $6,
    image_url = $7, is_sold = $8, updated_at = $9
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, q,
		p.ID, p.Name, p.Price, p.Size, p.Category, p.Description, images, p.IsSold, p.UpdatedAt,
	)
	if err != nil {
		return productdom.Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return productdom.Product{}, productdom.ErrNotFound
	}
	return p, nil
}

func (r *ProductRepositoryPG) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return productdom.ErrNotFound
	}
	return nil
}

// MarkSold is idempotent: an already sold product still counts as updated.
func (r *ProductRepositoryPG) MarkSold(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE products SET is_sold = TRUE, updated_at = $2 WHERE id = $1`,
		strings.TrimSpace(id), r.now().UTC(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return productdom.ErrNotFound
	}
	return nil
}

func scanProduct(s rowScanner) (productdom.Product, error) {
	var (
		p      productdom.Product
		images []byte
	)
	if err := s.Scan(
		&p.ID, &p.Name, &p.Price, &p.Size, &p.Category, &p.Description,
		&images, &p.IsSold, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return productdom.Product{}, err
	}
	xs, err := decodeImages(images)
	if err != nil {
		return productdom.Product{}, err
	}
	p.Images = xs
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func encodeImages(xs []string) ([]byte, error) {
	if xs == nil {
		xs = []string{}
	}
	return json.Marshal(xs)
}

// decodeImages accepts a JSON array or a single JSON string; rows created
// before multi-image upload hold a bare string.
func decodeImages(raw []byte) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("db: decode image_url: %w", err)
		}
		if strings.TrimSpace(s) == "" {
			return []string{}, nil
		}
		return []string{s}, nil
	}
	var xs []string
	if err := json.Unmarshal(raw, &xs); err != nil {
		return nil, fmt.Errorf("db: decode image_url: %w", err)
	}
	if xs == nil {
		xs = []string{}
	}
	return xs, nil
}
