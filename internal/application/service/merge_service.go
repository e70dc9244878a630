// Package service internal/application/service/merge_service.go
package service

import (
	"errors"
	"sort"

	"github.com/damon-houk/catalog-price-converter/internal/apperror"
	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
)

// priceScale is the number of fraction digits kept in converted prices
const priceScale = 2

var (
	errItemsWithoutCurrency = errors.New("no catalog item carries a currency code")
	errRatesWithoutCurrency = errors.New("no rate record carries a currency code")
)

// Merge left-joins items to rates on the exact currency code and converts
// each price to EUR.
//
// Items without a matching rate are kept with PriceEUR and DateExr absent.
// An item whose currency matches several rate periods produces one row per
// period, in rate order. Output order is items outer, matches inner.
// PriceEUR is rounded half to even at two fraction digits, and is absent
// for items without a price.
func Merge(rates []entity.RateRecord, items []entity.CatalogItem) ([]entity.MergedRecord, error) {
	if len(items) > 0 && !anyItemCurrency(items) {
		return []entity.MergedRecord{}, apperror.NewMerge("merge", errItemsWithoutCurrency)
	}
	if len(rates) > 0 && !anyRateCurrency(rates) {
		return []entity.MergedRecord{}, apperror.NewMerge("merge", errRatesWithoutCurrency)
	}

	byCurrency := make(map[string][]entity.RateRecord, len(rates))
	for _, r := range rates {
		byCurrency[r.Currency] = append(byCurrency[r.Currency], r)
	}

	merged := make([]entity.MergedRecord, 0, len(items))
	for _, item := range items {
		matches := byCurrency[item.Currency]
		if len(matches) == 0 {
			merged = append(merged, entity.MergedRecord{
				ProductName: item.Title,
				PriceUS:     item.Price,
			})
			continue
		}

		for _, rate := range matches {
			merged = append(merged, convert(item, rate))
		}
	}

	return merged, nil
}

func convert(item entity.CatalogItem, rate entity.RateRecord) entity.MergedRecord {
	date := rate.TimePeriod

	rec := entity.MergedRecord{
		ProductName: item.Title,
		PriceUS:     item.Price,
		DateExr:     &date,
	}

	if rate.Convertible() && item.Price.Valid {
		rec.PriceEUR = decimal.NewNullDecimal(quoRoundBank(item.Price.Decimal, rate.ExrEUR.Decimal))
	}

	return rec
}

// quoRoundBank returns price / rate rounded half to even at priceScale digits,
// decided on the exact remainder so the quotient is rounded only once.
// rate must be non-zero.
func quoRoundBank(price, rate decimal.Decimal) decimal.Decimal {
	q, r := price.QuoRem(rate, priceScale)
	if r.IsZero() {
		return q
	}

	unit := decimal.New(1, -priceScale)
	// |r| < |rate| * unit, so comparing 2|r| with it locates the discarded half
	switch r.Abs().Add(r.Abs()).Cmp(rate.Abs().Mul(unit)) {
	case -1:
		return q
	case 0:
		if q.Shift(priceScale).Mod(decimal.NewFromInt(2)).IsZero() {
			return q
		}
	}

	if price.Sign()*rate.Sign() < 0 {
		return q.Sub(unit)
	}
	return q.Add(unit)
}

func anyItemCurrency(items []entity.CatalogItem) bool {
	for _, item := range items {
		if item.Currency != "" {
			return true
		}
	}
	return false
}

func anyRateCurrency(rates []entity.RateRecord) bool {
	for _, r := range rates {
		if r.Currency != "" {
			return true
		}
	}
	return false
}

// FanOutCurrencies returns, sorted, every currency carried by an item that
// matches more than one rate record, i.e. the currencies whose catalog rows
// Merge repeats
func FanOutCurrencies(rates []entity.RateRecord, items []entity.CatalogItem) []string {
	counts := make(map[string]int)
	for _, r := range rates {
		counts[r.Currency]++
	}

	seen := make(map[string]bool)
	var currencies []string
	for _, item := range items {
		if counts[item.Currency] > 1 && !seen[item.Currency] {
			seen[item.Currency] = true
			currencies = append(currencies, item.Currency)
		}
	}
	sort.Strings(currencies)

	return currencies
}

// MergeService runs Merge and reports what it produced
type MergeService struct {
	logger logger.Logger
}

// NewMergeService creates a new merge service
func NewMergeService(log logger.Logger) *MergeService {
	if log == nil {
		log = logger.Nop()
	}

	return &MergeService{logger: log}
}

// Merge joins rates and items, logging the joined schema and shape.
// On error the returned slice is empty, never nil.
func (s *MergeService) Merge(rates []entity.RateRecord, items []entity.CatalogItem) ([]entity.MergedRecord, error) {
	s.logger.Info("Joining catalog with exchange rates", map[string]interface{}{
		"rates":   len(rates),
		"items":   len(items),
		"columns": append(entity.CatalogItem{}.Fields(), "time_period", "exr_eur"),
	})

	if fanOut := FanOutCurrencies(rates, items); len(fanOut) > 0 {
		s.logger.Warn("Currencies match several rate periods, catalog rows will be repeated per period", map[string]interface{}{
			"currencies": fanOut,
		})
	}

	merged, err := Merge(rates, items)
	if err != nil {
		var appErr *apperror.Error
		fields := map[string]interface{}{"error": err.Error()}
		if errors.As(err, &appErr) {
			fields = appErr.Fields()
		}
		s.logger.Error("An error occurred during data merge", fields)
		return merged, err
	}

	unmatched := 0
	for _, m := range merged {
		if !m.PriceEUR.Valid {
			unmatched++
		}
	}

	s.logger.Info("Joined data after processing", map[string]interface{}{
		"columns":   entity.MergedRecord{}.Fields(),
		"rows":      len(merged),
		"cols":      len(entity.MergedRecord{}.Fields()),
		"unmatched": unmatched,
	})

	return merged, nil
}
