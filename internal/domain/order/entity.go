// internal/domain/order/entity.go
package order

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	cartdom "ayyooya/internal/domain/cart"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// ParseStatus maps a stored value to a Status. Rows written before status
// existed carry "" and are pending.
func ParseStatus(v string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	switch s {
	case "", StatusPending:
		return StatusPending
	case "cancelled":
		return StatusCanceled
	default:
		return s
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// rank is the listing group of s: pending, then completed, then canceled.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusCompleted:
		return 1
	case StatusCanceled:
		return 2
	default:
		return 3
	}
}

// Item is the snapshot of a cart line taken at checkout.
type Item struct {
	ProductID string           `json:"id"`
	Name      string           `json:"name"`
	Price     int              `json:"price"`
	Image     cartdom.ImageRef `json:"image_url"`
	Size      string           `json:"size"`
}

// ItemsFromCart snapshots the cart lines.
func ItemsFromCart(xs cartdom.Items) []Item {
	out := make([]Item, 0, len(xs))
	for _, it := range xs {
		out = append(out, Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.UnitPrice,
			Image:     it.Image,
			Size:      it.Size,
		})
	}
	return out
}

// Shipping is the customer-entered delivery data.
type Shipping struct {
	CustomerName string
	Phone        string
	Address      string
}

type Order struct {
	ID             string
	UserID         string
	CustomerName   string
	Phone          string
	Address        string
	TotalPrice     int
	SlipRef        string
	Items          []Item
	Status         Status
	TrackingNumber *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var (
	ErrInvalidID             = errors.New("order: invalid id")
	ErrInvalidUserID         = errors.New("order: invalid userId")
	ErrInvalidCustomerName   = errors.New("order: customer name is required")
	ErrInvalidPhone          = errors.New("order: phone is required")
	ErrInvalidAddress        = errors.New("order: address is required")
	ErrInvalidSlip           = errors.New("order: payment slip is required")
	ErrInvalidItems          = errors.New("order: items are required")
	ErrInvalidTotal          = errors.New("order: invalid total price")
	ErrInvalidCreatedAt      = errors.New("order: invalid createdAt")
	ErrInvalidStatus         = errors.New("order: invalid status")
	ErrInvalidTransition     = errors.New("order: invalid status transition")
	ErrInvalidTrackingNumber = errors.New("order: invalid tracking number")
)

var (
	MinTrackingNumberLength = 1
	MaxTrackingNumberLength = 128
	TrackingNumberRe        = regexp.MustCompile(`^[A-Za-z0-9\-_.]+$`)
)

// New builds a pending order. TotalPrice is the sum of item prices.
func New(id, userID string, ship Shipping, slipRef string, items []Item, createdAt time.Time) (Order, error) {
	o := Order{
		ID:           strings.TrimSpace(id),
		UserID:       strings.TrimSpace(userID),
		CustomerName: strings.TrimSpace(ship.CustomerName),
		Phone:        strings.TrimSpace(ship.Phone),
		Address:      strings.TrimSpace(ship.Address),
		SlipRef:      strings.TrimSpace(slipRef),
		Items:        cloneItems(items),
		Status:       StatusPending,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    createdAt.UTC(),
	}
	for _, it := range o.Items {
		o.TotalPrice += it.Price
	}
	if err := o.validate(); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (o Order) validate() error {
	if o.ID == "" {
		return ErrInvalidID
	}
	if o.UserID == "" {
		return ErrInvalidUserID
	}
	if o.CustomerName == "" {
		return ErrInvalidCustomerName
	}
	if o.Phone == "" {
		return ErrInvalidPhone
	}
	if o.Address == "" {
		return ErrInvalidAddress
	}
	if o.SlipRef == "" {
		return ErrInvalidSlip
	}
	if len(o.Items) == 0 {
		return ErrInvalidItems
	}
	for _, it := range o.Items {
		if strings.TrimSpace(it.ProductID) == "" || it.Price < 0 {
			return ErrInvalidItems
		}
	}
	if o.TotalPrice < 0 {
		return ErrInvalidTotal
	}
	if o.CreatedAt.IsZero() {
		return ErrInvalidCreatedAt
	}
	if !o.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Confirm moves a pending order to completed.
func (o *Order) Confirm(now time.Time) error {
	return o.transition(StatusPending, StatusCompleted, now)
}

// Cancel moves a pending order to canceled.
func (o *Order) Cancel(now time.Time) error {
	return o.transition(StatusPending, StatusCanceled, now)
}

func (o *Order) transition(from, to Status, now time.Time) error {
	if o == nil {
		return ErrInvalidTransition
	}
	if o.Status != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = now.UTC()
	return nil
}

// AttachTracking sets or replaces the tracking number of a completed order.
func (o *Order) AttachTracking(number string, now time.Time) error {
	if o == nil {
		return ErrInvalidTransition
	}
	n, err := NormalizeTrackingNumber(number)
	if err != nil {
		return err
	}
	if o.Status != StatusCompleted {
		return fmt.Errorf("%w: tracking requires %s, order is %s", ErrInvalidTransition, StatusCompleted, o.Status)
	}
	o.TrackingNumber = &n
	o.UpdatedAt = now.UTC()
	return nil
}

// HasTracking reports whether a non-empty tracking number is set.
func (o Order) HasTracking() bool {
	return o.TrackingNumber != nil && strings.TrimSpace(*o.TrackingNumber) != ""
}

func NormalizeTrackingNumber(v string) (string, error) {
	n := strings.TrimSpace(v)
	if !withinLen(n, MinTrackingNumberLength, MaxTrackingNumberLength) {
		return "", ErrInvalidTrackingNumber
	}
	if TrackingNumberRe != nil && !TrackingNumberRe.MatchString(n) {
		return "", ErrInvalidTrackingNumber
	}
	return n, nil
}

// ----------------------------
// Helpers
// ----------------------------

func withinLen(s string, min, max int) bool {
	l := len([]rune(s))
	if min > 0 && l < min {
		return false
	}
	if max > 0 && l > max {
		return false
	}
	return true
}

func cloneItems(src []Item) []Item {
	if len(src) == 0 {
		return []Item{}
	}
	cp := make([]Item, len(src))
	copy(cp, src)
	return cp
}

// NormalizePtr trims *p and returns nil for empty values.
func NormalizePtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
