// internal/infrastructure/db/exchange_rate_repository_test.go
package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/cache"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/logger"
	"github.com/damon-houk/catalog-price-converter/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSourceExchangeRateRepository(t *testing.T) {
	ctx := context.Background()
	log := logger.NewJSONLogger(nil, logger.InfoLevel)
	start := time.Date(2023, 2, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)
	expectedRates := []entity.RateRecord{{
		TimePeriod: "2023-02-09",
		Currency:   "USD",
		ExrEUR:     decimal.NewNullDecimal(decimal.RequireFromString("1.0745")),
	}}

	t.Run("Successful retrieval is cached", func(t *testing.T) {
		mockSource := new(mocks.MockRateSource)
		repo := NewSourceExchangeRateRepository(mockSource, cache.NewExchangeRateCache(time.Hour), log)

		mockSource.On("FetchRates", ctx, start, end).Return(expectedRates, nil).Once()

		rates, err := repo.FindRates(ctx, start, end)
		assert.NoError(t, err)
		assert.Equal(t, expectedRates, rates)

		// Second call must not reach the source
		rates, err = repo.FindRates(ctx, start, end)
		assert.NoError(t, err)
		assert.Equal(t, expectedRates, rates)

		mockSource.AssertExpectations(t)
	})

	t.Run("Source error is wrapped and not cached", func(t *testing.T) {
		mockSource := new(mocks.MockRateSource)
		repo := NewSourceExchangeRateRepository(mockSource, cache.NewExchangeRateCache(time.Hour), log)

		mockSource.On("FetchRates", ctx, start, end).Return(nil, errors.New("status 503")).Twice()

		rates, err := repo.FindRates(ctx, start, end)
		assert.Error(t, err)
		assert.Nil(t, rates)
		assert.Contains(t, err.Error(), "failed to retrieve exchange rates")

		_, err = repo.FindRates(ctx, start, end)
		assert.Error(t, err)

		mockSource.AssertExpectations(t)
	})

	t.Run("No cache", func(t *testing.T) {
		mockSource := new(mocks.MockRateSource)
		repo := NewSourceExchangeRateRepository(mockSource, nil, nil)

		mockSource.On("FetchRates", ctx, start, end).Return(expectedRates, nil).Twice()

		_, _ = repo.FindRates(ctx, start, end)
		_, _ = repo.FindRates(ctx, start, end)

		mockSource.AssertExpectations(t)
	})
}
