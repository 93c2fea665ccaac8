// internal/adapters/out/firestore/product_repository_fs.go
package firestore

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	productdom "ayyooya/internal/domain/product"
)

const productsCollection = "products"

type ProductRepositoryFS struct {
	Client *firestore.Client
	now    func() time.Time
}

func NewProductRepositoryFS(client *firestore.Client) *ProductRepositoryFS {
	return &ProductRepositoryFS{Client: client, now: time.Now}
}

func (r *ProductRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection(productsCollection)
}

func (r *ProductRepositoryFS) GetByID(ctx context.Context, id string) (productdom.Product, error) {
	if r == nil || r.Client == nil {
		return productdom.Product{}, errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return productdom.Product{}, productdom.ErrNotFound
	}
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return productdom.Product{}, productdom.ErrNotFound
		}
		return productdom.Product{}, err
	}
	return mapToProduct(snap.Ref.ID, snap.Data()), nil
}

func (r *ProductRepositoryFS) List(ctx context.Context, f productdom.Filter) ([]productdom.Product, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	q := r.col().Query
	if c := strings.ToLower(strings.TrimSpace(f.Category)); c != "" {
		q = q.Where("category", "==", c)
	}
	if !f.IncludeSold {
		q = q.Where("isSold", "==", false)
	}

	it := q.Documents(ctx)
	defer it.Stop()

	out := []productdom.Product{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		p := mapToProduct(doc.Ref.ID, doc.Data())
		if f.Match(p) {
			out = append(out, p)
		}
	}
	productdom.SortNewestFirst(out)
	return out, nil
}

func (r *ProductRepositoryFS) Create(ctx context.Context, p productdom.Product) (productdom.Product, error) {
	if r == nil || r.Client == nil {
		return productdom.Product{}, errNilClient
	}
	if strings.TrimSpace(p.ID) == "" {
		return productdom.Product{}, productdom.ErrInvalidID
	}
	if _, err := r.col().Doc(p.ID).Create(ctx, productToDoc(p)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return productdom.Product{}, productdom.ErrConflict
		}
		return productdom.Product{}, err
	}
	return p, nil
}

func (r *ProductRepositoryFS) Save(ctx context.Context, p productdom.Product) (productdom.Product, error) {
	if r == nil || r.Client == nil {
		return productdom.Product{}, errNilClient
	}
	if strings.TrimSpace(p.ID) == "" {
		return productdom.Product{}, productdom.ErrNotFound
	}
	d := productToDoc(p)
	updates := make([]firestore.Update, 0, len(d))
	for k, v := range d {
		if k == "createdAt" {
			continue
		}
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	if _, err := r.col().Doc(p.ID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return productdom.Product{}, productdom.ErrNotFound
		}
		return productdom.Product{}, err
	}
	return p, nil
}

func (r *ProductRepositoryFS) Delete(ctx context.Context, id string) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return productdom.ErrNotFound
	}
	if _, err := r.col().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return productdom.ErrNotFound
		}
		return err
	}
	return nil
}

// MarkSold sets isSold; repeating it is harmless.
func (r *ProductRepositoryFS) MarkSold(ctx context.Context, id string) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return productdom.ErrNotFound
	}
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "isSold", Value: true},
		{Path: "updatedAt", Value: r.now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return productdom.ErrNotFound
		}
		return err
	}
	return nil
}

func mapToProduct(id string, data map[string]any) productdom.Product {
	p := productdom.Product{
		ID:          id,
		Name:        asString(data["name"]),
		Price:       asInt(data["price"]),
		Size:        asString(data["size"]),
		Category:    asString(data["category"]),
		Description: asString(data["description"]),
		Images:      asStrings(data["imageUrl"]),
		IsSold:      asBool(data["isSold"]),
	}
	if t, ok := asTime(data["createdAt"]); ok {
		p.CreatedAt = t
	}
	if t, ok := asTime(data["updatedAt"]); ok {
		p.UpdatedAt = t
	}
	return p
}

func productToDoc(p productdom.Product) map[string]any {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return map[string]any{
		"name":        p.Name,
		"price":       p.Price,
		"size":        p.Size,
		"category":    p.Category,
		"description": p.Description,
		"imageUrl":    images,
		"isSold":      p.IsSold,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
}
