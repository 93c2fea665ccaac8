package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	productdom "ayyooya/internal/domain/product"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]productdom.Product
	now      func() time.Time
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: map[string]productdom.Product{}, now: time.Now}
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (productdom.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[strings.TrimSpace(id)]
	if !ok {
		return productdom.Product{}, productdom.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *ProductRepository) List(_ context.Context, f productdom.Filter) ([]productdom.Product, error) {
	r.mu.RLock()
	out := make([]productdom.Product, 0, len(r.products))
	for _, p := range r.products {
		if f.Match(p) {
			out = append(out, cloneProduct(p))
		}
	}
	r.mu.RUnlock()
	productdom.SortNewestFirst(out)
	return out, nil
}

func (r *ProductRepository) Create(_ context.Context, p productdom.Product) (productdom.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; ok {
		return productdom.Product{}, productdom.ErrConflict
	}
	r.products[p.ID] = cloneProduct(p)
	return p, nil
}

func (r *ProductRepository) Save(_ context.Context, p productdom.Product) (productdom.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return productdom.Product{}, productdom.ErrNotFound
	}
	r.products[p.ID] = cloneProduct(p)
	return p, nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id = strings.TrimSpace(id)
	if _, ok := r.products[id]; !ok {
		return productdom.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *ProductRepository) MarkSold(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id = strings.TrimSpace(id)
	p, ok := r.products[id]
	if !ok {
		return productdom.ErrNotFound
	}
	p.IsSold = true
	p.UpdatedAt = r.now().UTC()
	r.products[id] = p
	return nil
}

func cloneProduct(p productdom.Product) productdom.Product {
	p.Images = append([]string(nil), p.Images...)
	return p
}
