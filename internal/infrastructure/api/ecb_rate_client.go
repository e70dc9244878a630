package api

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/apperror"
	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
)

const (
	// DefaultECBEndpoint is the daily reference rates of every currency against the euro
	DefaultECBEndpoint = "https://sdw-wsrest.ecb.europa.eu/service/data/EXR/D..EUR.SP00.A"

	defaultTimeout = 10 * time.Second
	periodLayout   = "2006-01-02"

	// errorBodyLimit caps how much of a failed response is kept in the error
	errorBodyLimit = 512
)

// ECB CSV columns consumed by the client
const (
	colTimePeriod = "TIME_PERIOD"
	colObsValue   = "OBS_VALUE"
	colCurrency   = "CURRENCY"
)

// ECBRateClient fetches euro reference rates from the ECB SDMX web service
type ECBRateClient struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
}

// NewECBRateClient creates a new ECB client for the given data resource URL
func NewECBRateClient(endpoint string, httpClient *http.Client, log logger.Logger) *ECBRateClient {
	if endpoint == "" {
		endpoint = DefaultECBEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultTimeout,
		}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &ECBRateClient{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     log.WithField("source", "ecb"),
	}
}

// FetchRates retrieves every published rate between start and end, sorted by currency
func (c *ECBRateClient) FetchRates(ctx context.Context, start, end time.Time) ([]entity.RateRecord, error) {
	const op = "fetch rates"

	if start.After(end) {
		return nil, apperror.NewFetch(op, c.endpoint, 0,
			fmt.Errorf("start period %s is after end period %s", start.Format(periodLayout), end.Format(periodLayout)))
	}

	params := url.Values{}
	params.Set("startPeriod", start.Format(periodLayout))
	params.Set("endPeriod", end.Format(periodLayout))
	reqURL := c.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperror.NewFetch(op, c.endpoint, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "text/csv")

	c.logger.Debug("Requesting exchange rates", map[string]interface{}{
		"url": reqURL,
	})

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

	rates, err := c.parseRates(resp.Body)
	if err != nil {
		return nil, apperror.NewFetch(op, c.endpoint, resp.StatusCode, err)
	}

	return rates, nil
}

func (c *ECBRateClient) parseRates(body io.Reader) ([]entity.RateRecord, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		c.logger.Warn("Exchange rate response was empty", nil)
		return []entity.RateRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	c.logger.Info("Data fetched from ECB API", map[string]interface{}{
		"columns": header,
	})

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	var missing []string
	for _, col := range []string{colTimePeriod, colObsValue, colCurrency} {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("response is missing columns %s", strings.Join(missing, ", "))
	}

	periodIdx, valueIdx, currencyIdx := index[colTimePeriod], index[colObsValue], index[colCurrency]
	width := max(periodIdx, valueIdx, currencyIdx) + 1

	rates := make([]entity.RateRecord, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", line, err)
		}
		if len(row) < width {
			return nil, fmt.Errorf("CSV row %d has %d fields, want at least %d", line, len(row), width)
		}

		rates = append(rates, entity.RateRecord{
			TimePeriod: row[periodIdx],
			Currency:   row[currencyIdx],
			ExrEUR:     parseObservation(row[valueIdx]),
		})
	}

	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].Currency < rates[j].Currency
	})

	c.logger.Info("ECB data after processing", map[string]interface{}{
		"columns": entity.RateRecord{}.Fields(),
		"rows":    len(rates),
	})

	return rates, nil
}

// parseObservation treats blank and NaN observations as missing
func parseObservation(raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return decimal.NullDecimal{}
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(value)
}

// errorBody keeps the start of a failed response for diagnostics
func errorBody(body io.Reader) error {
	snippet, err := io.ReadAll(io.LimitReader(body, errorBodyLimit))
	if err != nil || len(snippet) == 0 {
		return errors.New("unexpected response status")
	}
	return fmt.Errorf("unexpected response status, body: %s", strings.TrimSpace(string(snippet)))
}
