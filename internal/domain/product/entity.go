// internal/domain/product/entity.go
package product

import (
	"errors"
	"strings"
	"time"
)

type Product struct {
	ID          string
	Name        string
	Price       int
	Size        string
	Category    string
	Description string
	Images      []string
	IsSold      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	ErrInvalidID     = errors.New("product: invalid id")
	ErrInvalidName   = errors.New("product: name is required")
	ErrInvalidPrice  = errors.New("product: price must be >= 0")
	ErrInvalidImages = errors.New("product: at least one image is required")
	ErrNotConfirmed  = errors.New("product: delete requires confirmation")
)

// Categories offered by the shop filter.
var Categories = []string{"tops", "bottoms", "outer", "dress", "accessories"}

// Draft is the admin input for a new product, before images are uploaded.
type Draft struct {
	Name        string
	Price       int
	Size        string
	Category    string
	Description string
}

func (d Draft) Normalize() Draft {
	return Draft{
		Name:        strings.TrimSpace(d.Name),
		Price:       d.Price,
		Size:        strings.TrimSpace(d.Size),
		Category:    strings.ToLower(strings.TrimSpace(d.Category)),
		Description: strings.TrimSpace(d.Description),
	}
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrInvalidName
	}
	if d.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// New builds an unsold product from d and the public image URLs.
func New(id string, d Draft, images []string, now time.Time) (Product, error) {
	d = d.Normalize()
	p := Product{
		ID:          strings.TrimSpace(id),
		Name:        d.Name,
		Price:       d.Price,
		Size:        d.Size,
		Category:    d.Category,
		Description: d.Description,
		Images:      cleanImages(images),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := p.validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (p Product) validate() error {
	if p.ID == "" {
		return ErrInvalidID
	}
	if p.Name == "" {
		return ErrInvalidName
	}
	if p.Price < 0 {
		return ErrInvalidPrice
	}
	if len(p.Images) == 0 {
		return ErrInvalidImages
	}
	return nil
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Name        *string
	Price       *int
	Size        *string
	Category    *string
	Description *string
	IsSold      *bool
}

func (p *Product) Apply(patch Patch, now time.Time) error {
	next := *p
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Price != nil {
		next.Price = *patch.Price
	}
	if patch.Size != nil {
		next.Size = strings.TrimSpace(*patch.Size)
	}
	if patch.Category != nil {
		next.Category = strings.ToLower(strings.TrimSpace(*patch.Category))
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.IsSold != nil {
		next.IsSold = *patch.IsSold
	}
	if err := next.validate(); err != nil {
		return err
	}
	next.UpdatedAt = now.UTC()
	*p = next
	return nil
}

// Thumbnail is the first image, or "".
func (p Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

func cleanImages(src []string) []string {
	out := make([]string, 0, len(src))
	for _, s := range src {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
