// internal/infrastructure/handler/run_handler_test.go
package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
	"github.com/damon-houk/catalog-price-converter/internal/domain/repository"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/handler"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/middleware"
	"github.com/damon-houk/catalog-price-converter/internal/mocks"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPipelineRunner mocks the pipeline behind POST /runs
type MockPipelineRunner struct {
	mock.Mock
}

func (m *MockPipelineRunner) Run(ctx context.Context, start, end time.Time) (*entity.PipelineRun, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PipelineRun), args.Error(1)
}

var (
	defaultStart = time.Date(2023, 2, 9, 0, 0, 0, 0, time.UTC)
	defaultEnd   = time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)
)

func usd(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func sampleRun(id string) *entity.PipelineRun {
	date := "2023-02-09"
	return &entity.PipelineRun{
		ID:         id,
		StartDate:  defaultStart,
		EndDate:    defaultEnd,
		StartedAt:  time.Date(2023, 2, 11, 8, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2023, 2, 11, 8, 0, 2, 0, time.UTC),
		Rates: []entity.RateRecord{{
			TimePeriod: date,
			Currency:   "USD",
			ExrEUR:     decimal.NewNullDecimal(decimal.RequireFromString("1.07")),
		}},
		Items: []entity.CatalogItem{
			{Title: "Air Max", Price: usd("107"), Currency: "USD"},
			{Title: "Boot", Price: usd("50"), Currency: "USD"},
		},
		Merged: []entity.MergedRecord{
			{
				ProductName: "Air Max",
				PriceUS:     usd("107"),
				PriceEUR:    decimal.NewNullDecimal(decimal.RequireFromString("100")),
				DateExr:     &date,
			},
			{ProductName: "Boot", PriceUS: usd("50")},
			{ProductName: "Sandal", DateExr: &date},
		},
	}
}

func setupTestServer(pipeline *MockPipelineRunner, runs *mocks.MockRunRepository) *httptest.Server {
	h := handler.NewRunHandler(pipeline, runs, defaultStart, defaultEnd, nil)

	router := mux.NewRouter()
	h.RegisterRoutes(router)

	return httptest.NewServer(middleware.RequestIDMiddleware(router))
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestTriggerRun(t *testing.T) {
	t.Run("Default window", func(t *testing.T) {
		pipeline := new(MockPipelineRunner)
		server := setupTestServer(pipeline, new(mocks.MockRunRepository))
		defer server.Close()

		pipeline.On("Run", mock.Anything, defaultStart, defaultEnd).Return(sampleRun("run-1"), nil).Once()

		resp, err := http.Post(server.URL+"/runs", "application/json", nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var summary handler.RunSummaryResponse
		decodeBody(t, resp, &summary)
		assert.Equal(t, "run-1", summary.ID)
		assert.Equal(t, "2023-02-09", summary.StartDate)
		assert.Equal(t, 2, summary.Items)
		assert.Equal(t, 3, summary.Merged)
		assert.True(t, summary.Succeeded)

		pipeline.AssertExpectations(t)
	})

	t.Run("Explicit window", func(t *testing.T) {
		pipeline := new(MockPipelineRunner)
		server := setupTestServer(pipeline, new(mocks.MockRunRepository))
		defer server.Close()

		start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
		pipeline.On("Run", mock.Anything, start, end).Return(sampleRun("run-2"), nil).Once()

		resp, err := http.Post(server.URL+"/runs?start=2024-01-02&end=2024-01-05", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		pipeline.AssertExpectations(t)
	})

	t.Run("Archive failure still returns the run", func(t *testing.T) {
		pipeline := new(MockPipelineRunner)
		server := setupTestServer(pipeline, new(mocks.MockRunRepository))
		defer server.Close()

		pipeline.On("Run", mock.Anything, defaultStart, defaultEnd).
			Return(sampleRun("run-3"), errors.New("failed to archive run")).Once()

		resp, err := http.Post(server.URL+"/runs", "application/json", nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var summary handler.RunSummaryResponse
		decodeBody(t, resp, &summary)
		assert.Equal(t, "run-3", summary.ID)
	})

	badRequests := []struct {
		name  string
		query string
	}{
		{name: "Bad start", query: "?start=09-02-2023"},
		{name: "Bad end", query: "?end=tomorrow"},
		{name: "Inverted range", query: "?start=2023-03-01&end=2023-02-01"},
	}

	for _, tc := range badRequests {
		t.Run(tc.name, func(t *testing.T) {
			pipeline := new(MockPipelineRunner)
			server := setupTestServer(pipeline, new(mocks.MockRunRepository))
			defer server.Close()

			resp, err := http.Post(server.URL+"/runs"+tc.query, "application/json", nil)
			require.NoError(t, err)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var errResp handler.ErrorResponse
			decodeBody(t, resp, &errResp)
			assert.Equal(t, http.StatusBadRequest, errResp.Status)
			assert.NotEmpty(t, errResp.RequestID)

			pipeline.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetRuns(t *testing.T) {
	pipeline := new(MockPipelineRunner)
	runs := new(mocks.MockRunRepository)
	server := setupTestServer(pipeline, runs)
	defer server.Close()

	t.Run("Latest", func(t *testing.T) {
		runs.On("Latest", mock.Anything).Return(sampleRun("run-9"), nil).Once()

		resp, err := http.Get(server.URL + "/runs/latest")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var summary handler.RunSummaryResponse
		decodeBody(t, resp, &summary)
		assert.Equal(t, "run-9", summary.ID)
	})

	t.Run("By id", func(t *testing.T) {
		runs.On("FindByID", mock.Anything, "run-1").Return(sampleRun("run-1"), nil).Once()

		resp, err := http.Get(server.URL + "/runs/run-1")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var summary handler.RunSummaryResponse
		decodeBody(t, resp, &summary)
		assert.Equal(t, 1, summary.Rates)
	})

	t.Run("Merged rows", func(t *testing.T) {
		runs.On("FindByID", mock.Anything, "run-1").Return(sampleRun("run-1"), nil).Once()

		resp, err := http.Get(server.URL + "/runs/run-1/merged")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var rows []handler.MergedRowResponse
		decodeBody(t, resp, &rows)
		require.Len(t, rows, 3)
		assert.Equal(t, "Air Max", rows[0].ProductName)
		require.NotNil(t, rows[0].PriceUS)
		assert.Equal(t, "107", *rows[0].PriceUS)
		require.NotNil(t, rows[0].PriceEUR)
		assert.Equal(t, "100.00", *rows[0].PriceEUR)
		assert.Equal(t, "2023-02-09", *rows[0].DateExr)
		assert.Nil(t, rows[1].PriceEUR)
		assert.Nil(t, rows[1].DateExr)
		assert.Nil(t, rows[2].PriceUS)
		assert.Equal(t, "2023-02-09", *rows[2].DateExr)
	})

	t.Run("Not found", func(t *testing.T) {
		runs.On("FindByID", mock.Anything, "missing").
			Return(nil, fmt.Errorf("%w: missing", repository.ErrRunNotFound)).Once()

		resp, err := http.Get(server.URL + "/runs/missing")
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var errResp handler.ErrorResponse
		decodeBody(t, resp, &errResp)
		assert.Equal(t, "Run not found", errResp.Error)
	})

	t.Run("Archive error", func(t *testing.T) {
		runs.On("Latest", mock.Anything).Return(nil, errors.New("badger closed")).Once()

		resp, err := http.Get(server.URL + "/runs/latest")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	runs.AssertExpectations(t)
}
