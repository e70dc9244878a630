package entity

import (
	"github.com/shopspring/decimal"
)

// RateRecord is one currency-to-EUR reference rate for a reporting period.
// ExrEUR is the number of currency units per 1 EUR; it is invalid when the
// source published no observation for the period.
type RateRecord struct {
	TimePeriod string              `json:"time_period"`
	Currency   string              `json:"currency"`
	ExrEUR     decimal.NullDecimal `json:"exr_eur"`
}

// Fields returns the exported column names
func (RateRecord) Fields() []string {
	return []string{"time_period", "currency", "exr_eur"}
}

// Values returns the exported row, in Fields order
func (r RateRecord) Values() []string {
	return []string{r.TimePeriod, r.Currency, nullString(r.ExrEUR)}
}

// Convertible reports whether the rate can be used as a divisor
func (r RateRecord) Convertible() bool {
	return r.ExrEUR.Valid && !r.ExrEUR.Decimal.IsZero()
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
