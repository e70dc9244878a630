// Package db internal/infrastructure/db/exchange_rate_repository.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
	"github.com/damon-houk/catalog-price-converter/internal/domain/repository"
	"github.com/damon-houk/catalog-price-converter/internal/domain/service"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/cache"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/logger"
)

// SourceExchangeRateRepository implements the RateRepository interface over a RateSource
type SourceExchangeRateRepository struct {
	source service.RateSource
	cache  *cache.ExchangeRateCache
	logger logger.Logger
}

// NewSourceExchangeRateRepository creates a new repository for exchange rates.
// A nil cache disables caching.
func NewSourceExchangeRateRepository(source service.RateSource, rateCache *cache.ExchangeRateCache, log logger.Logger) repository.RateRepository {
	if log == nil {
		log = logger.Nop()
	}

	return &SourceExchangeRateRepository{
		source: source,
		cache:  rateCache,
		logger: log,
	}
}

// FindRates finds every rate published between start and end
func (r *SourceExchangeRateRepository) FindRates(ctx context.Context, start, end time.Time) ([]entity.RateRecord, error) {
	fields := map[string]interface{}{
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	}

	if r.cache != nil {
		if rates, ok := r.cache.Get(start, end); ok {
			r.logger.Info("Exchange rates served from cache", withField(fields, "rows", len(rates)))
			return rates, nil
		}
	}

	r.logger.Info("Finding exchange rates", fields)

	begin := time.Now()
	rates, err := r.source.FetchRates(ctx, start, end)
	if err != nil {
		r.logger.Error("Failed to retrieve exchange rates", withField(fields, "error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve exchange rates: %w", err)
	}

	if r.cache != nil {
		r.cache.Put(start, end, rates)
	}

	r.logger.Info("Exchange rates found", withField(withField(fields, "rows", len(rates)),
		"time_to_find", time.Since(begin).String()))

	return rates, nil
}

func withField(fields map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}
