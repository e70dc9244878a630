// internal/infrastructure/api/catalog_client_test.go
package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/damon-houk/catalog-price-converter/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsJSON = `[
	{"id": 12, "title": "Classic Runner", "price": 95, "description": "x", "images": []},
	{"id": 13, "title": "Suede Loafer", "price": 49.99, "category": {"id": 4}},
	{"id": 14, "title": "Broken", "price": "not-a-number"},
	{"id": 15, "price": 10},
	{"id": 16, "title": "Sandal", "price": null}
]`

func TestFetchCatalog(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/categories/4/products", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(productsJSON))
	}))
	defer mockServer.Close()

	client := NewCatalogClient(mockServer.URL+"/api/v1/categories/4/products", "", mockServer.Client(), nil)

	items, err := client.FetchCatalog(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, "Classic Runner", items[0].Title)
	assert.Equal(t, "95", items[0].Price.Decimal.String())
	assert.Equal(t, "USD", items[0].Currency)
	assert.Equal(t, "Suede Loafer", items[1].Title)
	assert.Equal(t, "49.99", items[1].Price.Decimal.String())

	// Malformed entries keep their row with the bad value absent
	assert.Equal(t, "Broken", items[2].Title)
	assert.False(t, items[2].Price.Valid)
	assert.Equal(t, "", items[3].Title)
	assert.True(t, items[3].Price.Valid)
	assert.Equal(t, "10", items[3].Price.Decimal.String())
	assert.Equal(t, "Sandal", items[4].Title)
	assert.False(t, items[4].Price.Valid)
	for _, item := range items {
		assert.Equal(t, "USD", item.Currency)
	}
}

func TestFetchCatalogCurrency(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"title": "Boot", "price": 50}]`))
	}))
	defer mockServer.Close()

	client := NewCatalogClient(mockServer.URL, "GBP", mockServer.Client(), nil)

	items, err := client.FetchCatalog(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "GBP", items[0].Currency)
}

func TestFetchCatalogErrors(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "Server error", status: http.StatusInternalServerError, body: "oops", want: "status 500"},
		{name: "Not an array", status: http.StatusOK, body: `{"title": "x"}`, want: "failed to decode response"},
		{name: "No price field", status: http.StatusOK, body: `[{"title": "x"}]`, want: `no "price" field`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer mockServer.Close()

			client := NewCatalogClient(mockServer.URL, "", mockServer.Client(), nil)
			items, err := client.FetchCatalog(ctx)

			assert.Nil(t, items)
			assert.True(t, apperror.IsKind(err, apperror.Fetch))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestFetchCatalogEmpty(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer mockServer.Close()

	client := NewCatalogClient(mockServer.URL, "", mockServer.Client(), nil)
	items, err := client.FetchCatalog(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, items)
}
