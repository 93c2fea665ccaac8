package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderdom "ayyooya/internal/domain/order"
)

type sent struct{ from, to, subject, body string }

type recorder struct {
	sent []sent
}

func (r *recorder) Send(_ context.Context, from, to, subject, body string) error {
	r.sent = append(r.sent, sent{from, to, subject, body})
	return nil
}

type lookup map[string]string

func (l lookup) EmailOf(_ context.Context, uid string) (string, error) {
	e, ok := l[uid]
	if !ok {
		return "", errors.New("no such user")
	}
	return e, nil
}

func shippedOrder() orderdom.Order {
	tn := "TH0001"
	return orderdom.Order{
		ID:             "o-1",
		UserID:         "u-1",
		CustomerName:   "Ann",
		Address:        "1 Road",
		TotalPrice:     700,
		Status:         orderdom.StatusCompleted,
		TrackingNumber: &tn,
		Items:          []orderdom.Item{{ProductID: "p-1", Name: "Shirt", Price: 700, Size: "M"}},
	}
}

func TestNotifyTrackingAttached(t *testing.T) {
	rec := &recorder{}
	m := NewTrackingMailer(rec, lookup{"u-1": "ann@example.com"}, "shop@example.com", "https://shop.example.com/")

	require.NoError(t, m.NotifyTrackingAttached(context.Background(), shippedOrder()))
	require.Len(t, rec.sent, 1)
	got := rec.sent[0]
	assert.Equal(t, "shop@example.com", got.from)
	assert.Equal(t, "ann@example.com", got.to)
	assert.Equal(t, "Your order #o-1 has shipped", got.subject)
	assert.Contains(t, got.body, "Tracking number: TH0001")
	assert.Contains(t, got.body, "Shirt (M)  700")
	assert.Contains(t, got.body, "https://shop.example.com/orders")
}

func TestNotifyTrackingAttachedFailures(t *testing.T) {
	rec := &recorder{}
	ctx := context.Background()

	m := NewTrackingMailer(rec, lookup{"u-1": " "}, "shop@example.com", "")
	assert.ErrorIs(t, m.NotifyTrackingAttached(ctx, shippedOrder()), ErrNoRecipient)

	m = NewTrackingMailer(rec, lookup{}, "shop@example.com", "")
	assert.Error(t, m.NotifyTrackingAttached(ctx, shippedOrder()))

	o := shippedOrder()
	o.TrackingNumber = nil
	assert.ErrorIs(t, m.NotifyTrackingAttached(ctx, o), orderdom.ErrInvalidTrackingNumber)
	assert.Empty(t, rec.sent)
}

func TestSendGridClientRejectsMissingFields(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, NewSendGridClient("", "", nil).Send(ctx, "a@x", "b@x", "s", "b"))
	assert.Error(t, NewSendGridClient("key", "", nil).Send(ctx, "", "b@x", "s", "b"))
	assert.Error(t, NewSendGridClient("key", "", nil).Send(ctx, "a@x", "", "s", "b"))
}
