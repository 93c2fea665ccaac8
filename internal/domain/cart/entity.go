// internal/domain/cart/entity.go
package cart

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrInvalidItem = errors.New("cart: invalid item")
)

// CartItem is one line of the shopper's cart.
// A line is identified by (ProductID, Size); the JSON names match the
// persisted snapshot format.
type CartItem struct {
	ProductID string   `json:"id"`
	Name      string   `json:"name"`
	UnitPrice int      `json:"price"`
	Image     ImageRef `json:"image_url"`
	Size      string   `json:"size"`
}

// Key identifies a cart line.
type Key struct {
	ProductID string
	Size      string
}

// NewItem normalizes and validates a cart line.
func NewItem(productID, name string, unitPrice int, image ImageRef, size string) (CartItem, error) {
	it := CartItem{
		ProductID: strings.TrimSpace(productID),
		Name:      strings.TrimSpace(name),
		UnitPrice: unitPrice,
		Image:     image,
		Size:      strings.TrimSpace(size),
	}
	if err := it.Validate(); err != nil {
		return CartItem{}, err
	}
	return it, nil
}

// Normalized is it with the identifying fields trimmed, validated.
func (it CartItem) Normalized() (CartItem, error) {
	return NewItem(it.ProductID, it.Name, it.UnitPrice, it.Image, it.Size)
}

func (it CartItem) Key() Key {
	return Key{ProductID: it.ProductID, Size: it.Size}
}

func (it CartItem) Validate() error {
	if strings.TrimSpace(it.ProductID) == "" {
		return ErrInvalidItem
	}
	if it.UnitPrice < 0 {
		return ErrInvalidItem
	}
	return nil
}

// Items is an ordered cart; insertion order is display order.
type Items []CartItem

// Contains reports whether any line refers to productID, regardless of size.
func (xs Items) Contains(productID string) bool {
	id := strings.TrimSpace(productID)
	if id == "" {
		return false
	}
	for _, it := range xs {
		if it.ProductID == id {
			return true
		}
	}
	return false
}

func (xs Items) Total() int {
	sum := 0
	for _, it := range xs {
		sum += it.UnitPrice
	}
	return sum
}

// Without returns a new slice with every line matching (productID, size)
// removed. Order of the remaining lines is preserved.
func (xs Items) Without(productID, size string) Items {
	k := Key{ProductID: strings.TrimSpace(productID), Size: strings.TrimSpace(size)}
	out := make(Items, 0, len(xs))
	for _, it := range xs {
		if it.Key() == k {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (xs Items) Clone() Items {
	if len(xs) == 0 {
		return Items{}
	}
	cp := make(Items, len(xs))
	copy(cp, xs)
	return cp
}

// Encode renders the persisted snapshot. An empty cart encodes as "[]".
func (xs Items) Encode() ([]byte, error) {
	if xs == nil {
		xs = Items{}
	}
	return json.Marshal(xs)
}

// Decode parses a persisted snapshot and normalizes each line. Lines that
// fail validation are reported as an error so the caller can fall back to an empty cart.
func Decode(data []byte) (Items, error) {
	var xs Items
	if err := json.Unmarshal(data, &xs); err != nil {
		return nil, err
	}
	for i, it := range xs {
		n, err := it.Normalized()
		if err != nil {
			return nil, err
		}
		xs[i] = n
	}
	if xs == nil {
		xs = Items{}
	}
	return xs, nil
}
