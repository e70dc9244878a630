package entity

import (
	"github.com/shopspring/decimal"
)

// CatalogItem is a product listing priced in its source currency.
// Price is invalid when the listing carried no usable price.
type CatalogItem struct {
	Title    string              `json:"title"`
	Price    decimal.NullDecimal `json:"price"`
	Currency string              `json:"currency"`
}

// Fields returns the exported column names
func (CatalogItem) Fields() []string {
	return []string{"title", "price", "currency"}
}

// Values returns the exported row, in Fields order
func (c CatalogItem) Values() []string {
	return []string{c.Title, nullString(c.Price), c.Currency}
}
