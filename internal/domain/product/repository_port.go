package product

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Filter is the shop listing query.
type Filter struct {
	Category string
	// Search matches the name case-insensitively.
	Search      string
	IncludeSold bool
}

func (f Filter) Match(p Product) bool {
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(p.Category, c) {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" &&
		!strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
		return false
	}
	if !f.IncludeSold && p.IsSold {
		return false
	}
	return true
}

// SortNewestFirst orders in place by creation time, then id, descending.
func SortNewestFirst(xs []Product) {
	sort.SliceStable(xs, func(i, j int) bool {
		if !xs[i].CreatedAt.Equal(xs[j].CreatedAt) {
			return xs[i].CreatedAt.After(xs[j].CreatedAt)
		}
		return xs[i].ID > xs[j].ID
	})
}

type Repository interface {
	GetByID(ctx context.Context, id string) (Product, error)
	// List returns matching products, newest first.
	List(ctx context.Context, f Filter) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Save(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id string) error
	// MarkSold is idempotent.
	MarkSold(ctx context.Context, id string) error
}

var (
	ErrNotFound = errors.New("product: not found")
	ErrConflict = errors.New("product: conflict")
)
