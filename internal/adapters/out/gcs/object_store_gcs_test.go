package gcs

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ayyooya/internal/domain/media"
)

func TestPublicURL(t *testing.T) {
	s := NewObjectStoreGCS(nil, "")
	assert.Equal(t,
		"https://storage.googleapis.com/slips/1746090000000-0f8fad5b.jpg",
		s.PublicURL(" slips ", "/1746090000000-0f8fad5b.jpg"))
	assert.Equal(t,
		"https://storage.googleapis.com/product-images/a%20b/c.png",
		s.PublicURL("product-images", "a b/c.png"))
	assert.Empty(t, s.PublicURL("", "x.jpg"))
	assert.Empty(t, s.PublicURL("slips", "  "))

	local := NewObjectStoreGCS(nil, "http://localhost:4443/")
	assert.Equal(t, "http://localhost:4443/slips/x.jpg", local.PublicURL("slips", "x.jpg"))
}

func TestNilClient(t *testing.T) {
	var s *ObjectStoreGCS
	ctx := context.Background()
	assert.ErrorIs(t, s.Put(ctx, "slips", "x.jpg", "image/jpeg", strings.NewReader("x")), errNilClient)
	assert.ErrorIs(t, s.Delete(ctx, "slips", "x.jpg"), errNilClient)
}

func TestCleanTarget(t *testing.T) {
	_, _, err := cleanTarget("", "a")
	assert.ErrorIs(t, err, media.ErrEmptyBucket)
	_, _, err = cleanTarget("b", "/")
	assert.ErrorIs(t, err, media.ErrEmptyPath)
}
