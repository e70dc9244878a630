package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMergedRecordValues(t *testing.T) {
	date := "2023-02-09"
	rec := MergedRecord{
		ProductName: "Air Max",
		PriceUS:     decimal.NewNullDecimal(decimal.RequireFromString("107")),
		PriceEUR:    decimal.NewNullDecimal(decimal.RequireFromString("100")),
		DateExr:     &date,
	}

	assert.Equal(t, []string{"product_name", "price_US", "price_EUR", "date_exr"}, rec.Fields())
	assert.Equal(t, []string{"Air Max", "107", "100.00", "2023-02-09"}, rec.Values())

	// Absent conversion leaves empty cells
	rec = MergedRecord{ProductName: "Boot", PriceUS: decimal.NewNullDecimal(decimal.RequireFromString("50"))}
	assert.Equal(t, []string{"Boot", "50", "", ""}, rec.Values())

	// A listing without a price keeps its row
	rec = MergedRecord{ProductName: "Sandal", DateExr: &date}
	assert.Equal(t, []string{"Sandal", "", "", "2023-02-09"}, rec.Values())
}

func TestCatalogItemValues(t *testing.T) {
	item := CatalogItem{Title: "Boot", Price: decimal.NewNullDecimal(decimal.RequireFromString("49.99")), Currency: "USD"}
	assert.Equal(t, []string{"title", "price", "currency"}, item.Fields())
	assert.Equal(t, []string{"Boot", "49.99", "USD"}, item.Values())

	assert.Equal(t, []string{"", "", "USD"}, CatalogItem{Currency: "USD"}.Values())
}

func TestRateRecord(t *testing.T) {
	rate := RateRecord{
		TimePeriod: "2023-02-09",
		Currency:   "USD",
		ExrEUR:     decimal.NewNullDecimal(decimal.RequireFromString("1.0723")),
	}

	assert.Equal(t, []string{"time_period", "currency", "exr_eur"}, rate.Fields())
	assert.Equal(t, []string{"2023-02-09", "USD", "1.0723"}, rate.Values())
	assert.True(t, rate.Convertible())

	assert.False(t, RateRecord{Currency: "USD"}.Convertible())
	assert.False(t, RateRecord{Currency: "USD", ExrEUR: decimal.NewNullDecimal(decimal.Zero)}.Convertible())
	assert.Equal(t, "", RateRecord{Currency: "USD"}.Values()[2])
}

func TestPipelineRunFailures(t *testing.T) {
	run := &PipelineRun{}
	assert.True(t, run.Succeeded())

	run.Failures = append(run.Failures, StepFailure{Step: "fetch_rates", Kind: "FETCH", Error: "status 500"})
	assert.False(t, run.Succeeded())

	f, ok := run.Failed("fetch_rates")
	assert.True(t, ok)
	assert.Equal(t, "FETCH", f.Kind)

	_, ok = run.Failed("merge")
	assert.False(t, ok)
}
