// internal/application/usecase/order_workflow.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ayyooya/internal/domain/common"
	orderdom "ayyooya/internal/domain/order"
	productdom "ayyooya/internal/domain/product"
)

var (
	ErrDeleteNotConfirmed = errors.New("order: delete requires confirmation")
	ErrInvalidOrderID     = errors.New("order: id is required")
)

// PartialFailure reports products that could not be marked sold while
// confirming an order. Confirming marks are idempotent; ReconcileSold
// re-runs them.
type PartialFailure struct {
	OrderID    string
	ProductIDs []string
	Causes     []error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("order %s: %d product(s) not marked sold: %s",
		e.OrderID, len(e.ProductIDs), strings.Join(e.ProductIDs, ", "))
}

func (e *PartialFailure) Unwrap() []error { return e.Causes }

// OrderWorkflow applies the admin status transitions.
type OrderWorkflow struct {
	orders   orderdom.Repository
	products ProductMarker
	sessions SessionSource
	mailer   TrackingMailer
	clock    Clock
	retry    RetryPolicy
	log      *zap.Logger
}

type OrderWorkflowOption func(*OrderWorkflow)

func WithWorkflowClock(c Clock) OrderWorkflowOption {
	return func(w *OrderWorkflow) { w.clock = clockOrSystem(c) }
}

func WithRetryPolicy(p RetryPolicy) OrderWorkflowOption {
	return func(w *OrderWorkflow) { w.retry = p }
}

// WithTrackingMailer enables the customer email on AttachTracking.
func WithTrackingMailer(m TrackingMailer) OrderWorkflowOption {
	return func(w *OrderWorkflow) { w.mailer = m }
}

func NewOrderWorkflow(
	orders orderdom.Repository,
	products ProductMarker,
	sessions SessionSource,
	log *zap.Logger,
	opts ...OrderWorkflowOption,
) *OrderWorkflow {
	if log == nil {
		log = zap.NewNop()
	}
	w := &OrderWorkflow{
		orders:   orders,
		products: products,
		sessions: sessions,
		clock:    systemClock{},
		retry:    DefaultRetryPolicy,
		log:      log.Named("order_workflow"),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *OrderWorkflow) load(ctx context.Context, op, id string) (orderdom.Order, error) {
	oid := strings.TrimSpace(id)
	if oid == "" {
		return orderdom.Order{}, common.E(common.CodeValidation, op, ErrInvalidOrderID)
	}
	o, err := w.orders.GetByID(ctx, oid)
	if err != nil {
		return orderdom.Order{}, mapOrderErr(op, err)
	}
	return o, nil
}

// Confirm marks every product of a pending order sold, then moves the order
// to completed. Every item is attempted even if one fails, and the status
// update is attempted regardless; failed product ids come back as a
// *PartialFailure with CodePartial.
func (w *OrderWorkflow) Confirm(ctx context.Context, orderID string) (orderdom.Order, error) {
	const op = "order.confirm"
	if _, err := requireAdmin(w.sessions, op); err != nil {
		return orderdom.Order{}, err
	}
	o, err := w.load(ctx, op, orderID)
	if err != nil {
		return orderdom.Order{}, err
	}
	if o.Status != orderdom.StatusPending {
		return o, common.E(common.CodeConflict, op,
			fmt.Errorf("%w: order is %s", orderdom.ErrInvalidTransition, o.Status))
	}

	partial := w.markSold(ctx, o)

	if err := o.Confirm(w.clock.Now()); err != nil {
		return o, common.E(common.CodeConflict, op, err)
	}
	saved, err := w.orders.Save(ctx, o, orderdom.StatusPending)
	if err != nil {
		w.log.Error("save confirmed order failed", zap.String("order_id", o.ID), zap.Error(err))
		if errors.Is(err, orderdom.ErrConflict) {
			if partial != nil {
				err = errors.Join(err, partial)
			}
			return o, common.E(common.CodeConflict, op, err)
		}
		if partial != nil {
			return o, common.E(common.CodeBackend, op, errors.Join(err, partial))
		}
		return o, mapOrderErr(op, err)
	}

	if partial != nil {
		return saved, common.E(common.CodePartial, op, partial)
	}
	w.log.Info("order confirmed", zap.String("order_id", saved.ID), zap.Int("items", len(saved.Items)))
	return saved, nil
}

// ReconcileSold re-marks the products of a completed order sold. It is the
// follow-up for a Confirm that reported a partial failure.
func (w *OrderWorkflow) ReconcileSold(ctx context.Context, orderID string) (orderdom.Order, error) {
	const op = "order.reconcile_sold"
	if _, err := requireAdmin(w.sessions, op); err != nil {
		return orderdom.Order{}, err
	}
	o, err := w.load(ctx, op, orderID)
	if err != nil {
		return orderdom.Order{}, err
	}
	if o.Status != orderdom.StatusCompleted {
		return o, common.E(common.CodeConflict, op,
			fmt.Errorf("%w: order is %s", orderdom.ErrInvalidTransition, o.Status))
	}
	if partial := w.markSold(ctx, o); partial != nil {
		return o, common.E(common.CodePartial, op, partial)
	}
	return o, nil
}

func (w *OrderWorkflow) markSold(ctx context.Context, o orderdom.Order) *PartialFailure {
	seen := map[string]struct{}{}
	var pf *PartialFailure

	for _, it := range o.Items {
		pid := strings.TrimSpace(it.ProductID)
		if pid == "" {
			continue
		}
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}

		err := w.retry.Do(ctx, func(ctx context.Context) error {
			err := w.products.MarkSold(ctx, pid)
			if errors.Is(err, productdom.ErrNotFound) {
				return common.E(common.CodeNotFound, "product.mark_sold", err)
			}
			return err
		})
		if err != nil {
			w.log.Warn("mark product sold failed",
				zap.String("order_id", o.ID), zap.String("product_id", pid), zap.Error(err))
			if pf == nil {
				pf = &PartialFailure{OrderID: o.ID}
			}
			pf.ProductIDs = append(pf.ProductIDs, pid)
			pf.Causes = append(pf.Causes, err)
		}
	}
	return pf
}

// Cancel moves a pending order to canceled.
func (w *OrderWorkflow) Cancel(ctx context.Context, orderID string) (orderdom.Order, error) {
	const op = "order.cancel"
	if _, err := requireAdmin(w.sessions, op); err != nil {
		return orderdom.Order{}, err
	}
	o, err := w.load(ctx, op, orderID)
	if err != nil {
		return orderdom.Order{}, err
	}
	from := o.Status
	if err := o.Cancel(w.clock.Now()); err != nil {
		return o, common.E(common.CodeConflict, op, err)
	}
	saved, err := w.orders.Save(ctx, o, from)
	if err != nil {
		return o, mapOrderErr(op, err)
	}
	w.log.Info("order canceled", zap.String("order_id", saved.ID))
	return saved, nil
}

// Delete removes the order row. It is destructive and needs confirmed=true.
func (w *OrderWorkflow) Delete(ctx context.Context, orderID string, confirmed bool) error {
	const op = "order.delete"
	if _, err := requireAdmin(w.sessions, op); err != nil {
		return err
	}
	if !confirmed {
		return common.E(common.CodeValidation, op, ErrDeleteNotConfirmed)
	}
	oid := strings.TrimSpace(orderID)
	if oid == "" {
		return common.E(common.CodeValidation, op, ErrInvalidOrderID)
	}
	if err := w.orders.Delete(ctx, oid); err != nil {
		return mapOrderErr(op, err)
	}
	w.log.Info("order deleted", zap.String("order_id", oid))
	return nil
}

// AttachTracking sets the tracking number of a completed order, then emails
// the customer. The email is best-effort.
func (w *OrderWorkflow) AttachTracking(ctx context.Context, orderID, number string) (orderdom.Order, error) {
	const op = "order.attach_tracking"
	if _, err := requireAdmin(w.sessions, op); err != nil {
		return orderdom.Order{}, err
	}
	if _, err := orderdom.NormalizeTrackingNumber(number); err != nil {
		return orderdom.Order{}, common.E(common.CodeValidation, op, err)
	}
	o, err := w.load(ctx, op, orderID)
	if err != nil {
		return orderdom.Order{}, err
	}
	from := o.Status
	if err := o.AttachTracking(number, w.clock.Now()); err != nil {
		return o, common.E(common.CodeConflict, op, err)
	}
	saved, err := w.orders.Save(ctx, o, from)
	if err != nil {
		return o, mapOrderErr(op, err)
	}

	if w.mailer != nil {
		if err := w.mailer.NotifyTrackingAttached(ctx, saved); err != nil {
			w.log.Warn("tracking email failed", zap.String("order_id", saved.ID), zap.Error(err))
		}
	}
	return saved, nil
}

func mapOrderErr(op string, err error) error {
	switch {
	case errors.Is(err, orderdom.ErrNotFound):
		return common.E(common.CodeNotFound, op, err)
	case errors.Is(err, orderdom.ErrConflict):
		return common.E(common.CodeConflict, op, err)
	default:
		return common.E(common.CodeBackend, op, err)
	}
}
