package service

import (
	"context"
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
)

// RateSource defines the interface for a provider of currency-to-EUR rates
type RateSource interface {
	// FetchRates retrieves rates for every period in [start, end], sorted by currency
	FetchRates(ctx context.Context, start, end time.Time) ([]entity.RateRecord, error)
}

// CatalogSource defines the interface for a provider of product listings
type CatalogSource interface {
	// FetchCatalog retrieves the product listings with price and currency
	FetchCatalog(ctx context.Context) ([]entity.CatalogItem, error)
}
