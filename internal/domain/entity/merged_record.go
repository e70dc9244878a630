package entity

import (
	"github.com/shopspring/decimal"
)

// MergedRecord is a catalog item joined to one exchange rate period.
// PriceEUR and DateExr are absent when the item's currency had no usable rate;
// PriceEUR is also absent when the item had no price.
type MergedRecord struct {
	ProductName string              `json:"product_name"`
	PriceUS     decimal.NullDecimal `json:"price_US"`
	PriceEUR    decimal.NullDecimal `json:"price_EUR"`
	DateExr     *string             `json:"date_exr"`
}

// Fields returns the exported column names
func (MergedRecord) Fields() []string {
	return []string{"product_name", "price_US", "price_EUR", "date_exr"}
}

// Values returns the exported row, in Fields order
func (m MergedRecord) Values() []string {
	priceEUR := ""
	if m.PriceEUR.Valid {
		priceEUR = m.PriceEUR.Decimal.StringFixed(2)
	}

	dateExr := ""
	if m.DateExr != nil {
		dateExr = *m.DateExr
	}

	return []string{m.ProductName, nullString(m.PriceUS), priceEUR, dateExr}
}
