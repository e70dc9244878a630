// Package repository internal/domain/repository/exchange_rate_repository.go
package repository

import (
	"context"
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
)

// RateRepository defines the interface for exchange rate access
type RateRepository interface {
	// FindRates finds every rate published between start and end, inclusive
	FindRates(ctx context.Context, start, end time.Time) ([]entity.RateRecord, error)
}
