package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/damon-houk/catalog-price-converter/internal/apperror"
	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCatalogEndpoint is the shoes category of the fake e-commerce API
	DefaultCatalogEndpoint = "https://api.escuelajs.co/api/v1/categories/4/products"
	// DefaultCatalogCurrency is the currency every listing of the catalog is priced in
	DefaultCatalogCurrency = "USD"
)

// CatalogClient fetches product listings from a JSON products endpoint
type CatalogClient struct {
	endpoint   string
	currency   string
	httpClient *http.Client
	logger     logger.Logger
}

// NewCatalogClient creates a new catalog client. Every listing is tagged with currency.
func NewCatalogClient(endpoint, currency string, httpClient *http.Client, log logger.Logger) *CatalogClient {
	if endpoint == "" {
		endpoint = DefaultCatalogEndpoint
	}
	if currency == "" {
		currency = DefaultCatalogCurrency
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultTimeout,
		}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &CatalogClient{
		endpoint:   endpoint,
		currency:   currency,
		httpClient: httpClient,
		logger:     log.WithField("source", "catalog"),
	}
}

// FetchCatalog retrieves every listing with its title and price
func (c *CatalogClient) FetchCatalog(ctx context.Context) ([]entity.CatalogItem, error) {
	const op = "fetch catalog"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, apperror.NewFetch(op, c.endpoint, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.NewFetch(op, c.endpoint, 0, fmt.Errorf("failed to execute request: %w", err))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.NewFetch(op, c.endpoint, resp.StatusCode, errorBody(resp.Body))
	}

	c.logger.Info("Successfully retrieved data", map[string]interface{}{
		"url": c.endpoint,
	})

	var products []map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, apperror.NewFetch(op, c.endpoint, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	c.logger.Info("Data fetched from catalog API", map[string]interface{}{
		"columns": columnsOf(products),
		"rows":    len(products),
	})

	items, err := c.toItems(products)
	if err != nil {
		return nil, apperror.NewFetch(op, c.endpoint, resp.StatusCode, err)
	}

	c.logger.Info("Catalog data after processing", map[string]interface{}{
		"columns": entity.CatalogItem{}.Fields(),
		"rows":    len(items),
	})

	return items, nil
}

func (c *CatalogClient) toItems(products []map[string]json.RawMessage) ([]entity.CatalogItem, error) {
	items := make([]entity.CatalogItem, 0, len(products))
	if len(products) == 0 {
		return items, nil
	}

	columns := columnsOf(products)
	for _, required := range []string{"title", "price"} {
		if !contains(columns, required) {
			return nil, fmt.Errorf("response objects have no %q field", required)
		}
	}

	// Entries with a missing or malformed value keep their row with that value absent
	for i, p := range products {
		item := entity.CatalogItem{Currency: c.currency}

		if err := decodeField(p, "title", &item.Title); err != nil {
			c.logger.Warn("Catalog entry has no usable title", map[string]interface{}{"index": i, "error": err.Error()})
		}

		var price decimal.Decimal
		if err := decodeField(p, "price", &price); err != nil {
			c.logger.Warn("Catalog entry has no usable price", map[string]interface{}{"index": i, "error": err.Error()})
		} else {
			item.Price = decimal.NewNullDecimal(price)
		}

		items = append(items, item)
	}

	return items, nil
}

func decodeField(obj map[string]json.RawMessage, name string, dst interface{}) error {
	raw, ok := obj[name]
	if !ok || strings.TrimSpace(string(raw)) == "null" {
		return fmt.Errorf("missing %q", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid %q: %w", name, err)
	}
	return nil
}

// columnsOf returns the sorted union of keys across the decoded objects
func columnsOf(objects []map[string]json.RawMessage) []string {
	seen := make(map[string]struct{})
	for _, obj := range objects {
		for k := range obj {
			seen[k] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	return columns
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
