package db

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	productdom "ayyooya/internal/domain/product"
)

var productCols = []string{
	"id", "name", "price", "size", "category", "description", "image_url", "is_sold", "created_at", "updated_at",
}

func newProductMock(t *testing.T) (*ProductRepositoryPG, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := NewProductRepositoryPG(db)
	repo.now = func() time.Time { return created }
	return repo, mock
}

func TestProductListDefaultsToUnsold(t *testing.T) {
	repo, mock := newProductMock(t)

	rows := sqlmock.NewRows(productCols).
		AddRow("p-2", "Jacket", 1200, "L", "outer", "", []byte(`["a.jpg","b.jpg"]`), false, created, created).
		AddRow("p-1", "Shirt", 500, "M", "tops", "", []byte(`"legacy.jpg"`), false, created, created)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE category = $1 AND is_sold = FALSE")).
		WithArgs("outer").
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), productdom.Filter{Category: " Outer "})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, got[0].Images)
	assert.Equal(t, []string{"legacy.jpg"}, got[1].Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductMarkSold(t *testing.T) {
	repo, mock := newProductMock(t)
	mock.ExpectExec(regexp.QuoteMeta("SET is_sold = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs("p-1", created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE products").
		WithArgs("gone", created).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkSold(context.Background(), "p-1"))
	assert.ErrorIs(t, repo.MarkSold(context.Background(), "gone"), productdom.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductCreateEncodesImages(t *testing.T) {
	repo, mock := newProductMock(t)
	p := productdom.Product{ID: "p-3", Name: "Cap", Price: 300, CreatedAt: created, UpdatedAt: created}

	mock.ExpectExec("INSERT INTO products").
		WithArgs("p-3", "Cap", 300, "", "", "", []byte(`[]`), false, created, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecodeImages(t *testing.T) {
	cases := map[string][]string{
		``:          {},
		`null`:      {},
		`""`:        {},
		`"one.jpg"`: {"one.jpg"},
		`["a","b"]`: {"a", "b"},
	}
	for raw, want := range cases {
		got, err := decodeImages([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := decodeImages([]byte(`{}`))
	assert.Error(t, err)
}
