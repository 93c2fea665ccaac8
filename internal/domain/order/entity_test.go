package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "ayyooya/internal/domain/cart"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newPending(t *testing.T, id string) Order {
	t.Helper()
	o, err := New(id, "u1",
		Shipping{CustomerName: "Nok", Phone: "0812345678", Address: "Bangkok"},
		"slips/1-abc.png",
		[]Item{{ProductID: "p1", Price: 500}, {ProductID: "p2", Price: 750}},
		t0,
	)
	require.NoError(t, err)
	return o
}

func TestNewComputesTotalAndStartsPending(t *testing.T) {
	o := newPending(t, "o1")
	assert.Equal(t, 1250, o.TotalPrice)
	assert.Equal(t, StatusPending, o.Status)
	assert.Nil(t, o.TrackingNumber)
}

func TestNewValidation(t *testing.T) {
	ship := Shipping{CustomerName: "A", Phone: "1", Address: "X"}
	items := []Item{{ProductID: "p1", Price: 1}}

	_, err := New("o1", "u1", Shipping{Phone: "1", Address: "X"}, "s", items, t0)
	assert.ErrorIs(t, err, ErrInvalidCustomerName)
	_, err = New("o1", "u1", ship, "", items, t0)
	assert.ErrorIs(t, err, ErrInvalidSlip)
	_, err = New("o1", "u1", ship, "s", nil, t0)
	assert.ErrorIs(t, err, ErrInvalidItems)
	_, err = New("o1", "", ship, "s", items, t0)
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestTransitionsFromPending(t *testing.T) {
	o := newPending(t, "o1")
	require.NoError(t, o.Confirm(t0.Add(time.Minute)))
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, t0.Add(time.Minute), o.UpdatedAt)

	// terminal
	assert.ErrorIs(t, o.Confirm(t0), ErrInvalidTransition)
	assert.ErrorIs(t, o.Cancel(t0), ErrInvalidTransition)

	c := newPending(t, "o2")
	require.NoError(t, c.Cancel(t0))
	assert.ErrorIs(t, c.Confirm(t0), ErrInvalidTransition)
	assert.ErrorIs(t, c.Cancel(t0), ErrInvalidTransition)
}

func TestAttachTrackingRequiresCompleted(t *testing.T) {
	o := newPending(t, "o1")
	assert.ErrorIs(t, o.AttachTracking("TH1", t0), ErrInvalidTransition)

	require.NoError(t, o.Confirm(t0))
	require.NoError(t, o.AttachTracking(" TH123456789 ", t0))
	require.True(t, o.HasTracking())
	assert.Equal(t, "TH123456789", *o.TrackingNumber)

	// replacement allowed
	require.NoError(t, o.AttachTracking("TH2", t0))
	assert.Equal(t, "TH2", *o.TrackingNumber)

	c := newPending(t, "o2")
	require.NoError(t, c.Cancel(t0))
	assert.ErrorIs(t, c.AttachTracking("TH1", t0), ErrInvalidTransition)
}

func TestNormalizeTrackingNumber(t *testing.T) {
	for _, bad := range []string{"", "   ", "TH 1", "TH#1", string(make([]byte, 129))} {
		_, err := NormalizeTrackingNumber(bad)
		assert.ErrorIs(t, err, ErrInvalidTrackingNumber, "%q", bad)
	}
	n, err := NormalizeTrackingNumber("EF-123_45.TH")
	require.NoError(t, err)
	assert.Equal(t, "EF-123_45.TH", n)
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusPending, ParseStatus(""))
	assert.Equal(t, StatusPending, ParseStatus(" Pending "))
	assert.Equal(t, StatusCanceled, ParseStatus("cancelled"))
	assert.Equal(t, StatusCompleted, ParseStatus("completed"))
	assert.False(t, ParseStatus("shipped").IsValid())
}

func TestItemsFromCart(t *testing.T) {
	it, err := cartdom.NewItem("p1", "Tee", 500, cartdom.ImageList("a", "b"), "M")
	require.NoError(t, err)

	got := ItemsFromCart(cartdom.Items{it})
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ProductID)
	assert.Equal(t, 500, got[0].Price)
	assert.True(t, got[0].Image.IsList())
}

func TestFilterMatch(t *testing.T) {
	o := newPending(t, "o1")
	yes := true

	assert.True(t, Filter{}.Match(o))
	assert.True(t, Filter{UserID: "u1"}.Match(o))
	assert.False(t, Filter{UserID: "u2"}.Match(o))
	assert.False(t, Filter{Statuses: []Status{StatusCompleted}}.Match(o))
	assert.False(t, Filter{HasTracking: &yes}.Match(o))
}
