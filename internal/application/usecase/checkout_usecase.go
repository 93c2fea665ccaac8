// internal/application/usecase/checkout_usecase.go
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
	orderdom "ayyooya/internal/domain/order"
)

var (
	ErrCartEmpty      = errors.New("checkout: cart is empty")
	ErrSlipRequired   = errors.New("checkout: payment slip is required")
	ErrFieldsRequired = errors.New("checkout: name, phone and address are required")
)

// DefaultSlipBucket holds uploaded payment slips.
const DefaultSlipBucket = "slips"

// CheckoutForm is what the shopper submits on the checkout page.
type CheckoutForm struct {
	Name    string
	Phone   string
	Address string
	Slip    *media.Upload
}

func (f CheckoutForm) validate() error {
	if !f.Slip.Valid() {
		return ErrSlipRequired
	}
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Phone) == "" || strings.TrimSpace(f.Address) == "" {
		return ErrFieldsRequired
	}
	return nil
}

// CheckoutUsecase turns the cart into a pending order.
type CheckoutUsecase struct {
	cart     *CartStore
	sessions SessionSource
	orders   orderdom.Repository
	objects  media.Store
	bucket   string
	clock    Clock
	newID    func() string
	log      *zap.Logger
}

func NewCheckoutUsecase(
	cart *CartStore,
	sessions SessionSource,
	orders orderdom.Repository,
	objects media.Store,
	bucket string,
	log *zap.Logger,
) *CheckoutUsecase {
	return NewCheckoutUsecaseWithClock(cart, sessions, orders, objects, bucket, log, nil, nil)
}

// NewCheckoutUsecaseWithClock is useful for tests.
func NewCheckoutUsecaseWithClock(
	cart *CartStore,
	sessions SessionSource,
	orders orderdom.Repository,
	objects media.Store,
	bucket string,
	log *zap.Logger,
	clock Clock,
	newID func() string,
) *CheckoutUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(bucket) == "" {
		bucket = DefaultSlipBucket
	}
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &CheckoutUsecase{
		cart:     cart,
		sessions: sessions,
		orders:   orders,
		objects:  objects,
		bucket:   bucket,
		clock:    clockOrSystem(clock),
		newID:    newID,
		log:      log.Named("checkout"),
	}
}

// Submit validates the form, uploads the slip, inserts the order and
// clears the cart. Nothing reaches the backend when validation fails.
func (uc *CheckoutUsecase) Submit(ctx context.Context, form CheckoutForm) (orderdom.Order, error) {
	const op = "checkout.submit"

	s, err := requireSession(uc.sessions, op)
	if err != nil {
		return orderdom.Order{}, err
	}
	items := uc.cart.Items()
	if len(items) == 0 {
		return orderdom.Order{}, common.E(common.CodeValidation, op, ErrCartEmpty)
	}
	if err := form.validate(); err != nil {
		return orderdom.Order{}, common.E(common.CodeValidation, op, err)
	}

	now := uc.clock.Now()
	id := uc.newID()
	objectName := media.SlipObjectName(now, shortID(id), *form.Slip)

	o, err := orderdom.New(id, s.UserID, orderdom.Shipping{
		CustomerName: form.Name,
		Phone:        form.Phone,
		Address:      form.Address,
	}, objectName, orderdom.ItemsFromCart(items), now)
	if err != nil {
		return orderdom.Order{}, common.E(common.CodeValidation, op, err)
	}

	if err := uc.objects.Put(ctx, uc.bucket, objectName, media.ContentTypeOf(*form.Slip), form.Slip.Body); err != nil {
		return orderdom.Order{}, common.E(common.CodeBackend, op, fmt.Errorf("upload slip failed: %w", err))
	}

	created, err := uc.orders.Create(ctx, o)
	if err != nil {
		if derr := uc.objects.Delete(ctx, uc.bucket, objectName); derr != nil {
			uc.log.Warn("remove orphaned slip failed", zap.String("object", objectName), zap.Error(derr))
		}
		return orderdom.Order{}, common.E(common.CodeBackend, op, fmt.Errorf("insert order failed: %w", err))
	}

	if err := uc.cart.Clear(ctx); err != nil {
		uc.log.Error("clear cart after checkout failed", zap.String("order_id", created.ID), zap.Error(err))
	}
	uc.log.Info("order placed",
		zap.String("order_id", created.ID), zap.Int("total", created.TotalPrice), zap.Int("items", len(created.Items)))
	return created, nil
}

func shortID(id string) string {
	s := strings.ReplaceAll(id, "-", "")
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
