// internal/application/usecase/catalog_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ayyooya/internal/domain/common"
	"ayyooya/internal/domain/media"
	productdom "ayyooya/internal/domain/product"
)

// DefaultProductImageBucket holds product photos.
const DefaultProductImageBucket = "product-images"

var ErrInvalidProductID = errors.New("product: id is required")

// CatalogUsecase is the shop listing plus admin product management.
type CatalogUsecase struct {
	products productdom.Repository
	objects  media.Store
	sessions SessionSource
	bucket   string
	clock    Clock
	newID    func() string
	log      *zap.Logger
}

func NewCatalogUsecase(
	products productdom.Repository,
	objects media.Store,
	sessions SessionSource,
	bucket string,
	log *zap.Logger,
) *CatalogUsecase {
	return NewCatalogUsecaseWithClock(products, objects, sessions, bucket, log, nil, nil)
}

func NewCatalogUsecaseWithClock(
	products productdom.Repository,
	objects media.Store,
	sessions SessionSource,
	bucket string,
	log *zap.Logger,
	clock Clock,
	newID func() string,
) *CatalogUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(bucket) == "" {
		bucket = DefaultProductImageBucket
	}
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &CatalogUsecase{
		products: products,
		objects:  objects,
		sessions: sessions,
		bucket:   bucket,
		clock:    clockOrSystem(clock),
		newID:    newID,
		log:      log.Named("catalog"),
	}
}

// List returns matching products, newest first.
func (uc *CatalogUsecase) List(ctx context.Context, f productdom.Filter) ([]productdom.Product, error) {
	xs, err := uc.products.List(ctx, f)
	if err != nil {
		return nil, mapProductErr("catalog.list", err)
	}
	productdom.SortNewestFirst(xs)
	return xs, nil
}

func (uc *CatalogUsecase) Get(ctx context.Context, id string) (productdom.Product, error) {
	const op = "catalog.get"
	pid := strings.TrimSpace(id)
	if pid == "" {
		return productdom.Product{}, common.E(common.CodeValidation, op, ErrInvalidProductID)
	}
	p, err := uc.products.GetByID(ctx, pid)
	if err != nil {
		return productdom.Product{}, mapProductErr(op, err)
	}
	return p, nil
}

// Create uploads every image, then inserts the product. Images uploaded
// before a failure are removed best-effort.
func (uc *CatalogUsecase) Create(ctx context.Context, d productdom.Draft, images []media.Upload) (productdom.Product, error) {
	const op = "catalog.create"
	if _, err := requireAdmin(uc.sessions, op); err != nil {
		return productdom.Product{}, err
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return productdom.Product{}, common.E(common.CodeValidation, op, err)
	}
	valid := make([]media.Upload, 0, len(images))
	for i := range images {
		if images[i].Valid() {
			valid = append(valid, images[i])
		}
	}
	if len(valid) == 0 {
		return productdom.Product{}, common.E(common.CodeValidation, op, productdom.ErrInvalidImages)
	}

	var (
		names []string
		urls  []string
	)
	cleanup := func() {
		for _, n := range names {
			if err := uc.objects.Delete(ctx, uc.bucket, n); err != nil {
				uc.log.Warn("remove uploaded image failed", zap.String("object", n), zap.Error(err))
			}
		}
	}

	for _, u := range valid {
		name := media.ImageObjectName(uc.newID(), u)
		if err := uc.objects.Put(ctx, uc.bucket, name, media.ContentTypeOf(u), u.Body); err != nil {
			cleanup()
			return productdom.Product{}, common.E(common.CodeBackend, op, fmt.Errorf("upload image failed: %w", err))
		}
		names = append(names, name)
		urls = append(urls, uc.objects.PublicURL(uc.bucket, name))
	}

	p, err := productdom.New(uc.newID(), d, urls, uc.clock.Now())
	if err != nil {
		cleanup()
		return productdom.Product{}, common.E(common.CodeValidation, op, err)
	}
	created, err := uc.products.Create(ctx, p)
	if err != nil {
		cleanup()
		return productdom.Product{}, mapProductErr(op, err)
	}
	uc.log.Info("product created", zap.String("product_id", created.ID), zap.Int("images", len(created.Images)))
	return created, nil
}

func (uc *CatalogUsecase) Update(ctx context.Context, id string, patch productdom.Patch) (productdom.Product, error) {
	const op = "catalog.update"
	if _, err := requireAdmin(uc.sessions, op); err != nil {
		return productdom.Product{}, err
	}
	p, err := uc.Get(ctx, id)
	if err != nil {
		return productdom.Product{}, err
	}
	if err := p.Apply(patch, uc.clock.Now()); err != nil {
		return productdom.Product{}, common.E(common.CodeValidation, op, err)
	}
	saved, err := uc.products.Save(ctx, p)
	if err != nil {
		return productdom.Product{}, mapProductErr(op, err)
	}
	return saved, nil
}

// Delete removes a product; it needs confirmed=true.
func (uc *CatalogUsecase) Delete(ctx context.Context, id string, confirmed bool) error {
	const op = "catalog.delete"
	if _, err := requireAdmin(uc.sessions, op); err != nil {
		return err
	}
	if !confirmed {
		return common.E(common.CodeValidation, op, productdom.ErrNotConfirmed)
	}
	pid := strings.TrimSpace(id)
	if pid == "" {
		return common.E(common.CodeValidation, op, ErrInvalidProductID)
	}
	if err := uc.products.Delete(ctx, pid); err != nil {
		return mapProductErr(op, err)
	}
	uc.log.Info("product deleted", zap.String("product_id", pid))
	return nil
}

func mapProductErr(op string, err error) error {
	switch {
	case errors.Is(err, productdom.ErrNotFound):
		return common.E(common.CodeNotFound, op, err)
	case errors.Is(err, productdom.ErrConflict):
		return common.E(common.CodeConflict, op, err)
	default:
		return common.E(common.CodeBackend, op, err)
	}
}
