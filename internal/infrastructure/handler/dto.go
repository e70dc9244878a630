package handler

import (
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
)

// RunSummaryResponse represents a pipeline run without its rows
type RunSummaryResponse struct {
	ID         string               `json:"id"`
	StartDate  string               `json:"start_date"`
	EndDate    string               `json:"end_date"`
	StartedAt  string               `json:"started_at"`
	FinishedAt string               `json:"finished_at"`
	Rates      int                  `json:"rates"`
	Items      int                  `json:"items"`
	Merged     int                  `json:"merged"`
	Succeeded  bool                 `json:"succeeded"`
	Failures   []entity.StepFailure `json:"failures,omitempty"`
}

// MergedRowResponse is one converted price; absent values are null
type MergedRowResponse struct {
	ProductName string  `json:"product_name"`
	PriceUS     *string `json:"price_US"`
	PriceEUR    *string `json:"price_EUR"`
	DateExr     *string `json:"date_exr"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

const dateLayout = "2006-01-02"

func toSummary(run *entity.PipelineRun) RunSummaryResponse {
	return RunSummaryResponse{
		ID:         run.ID,
		StartDate:  run.StartDate.Format(dateLayout),
		EndDate:    run.EndDate.Format(dateLayout),
		StartedAt:  run.StartedAt.Format(time.RFC3339),
		FinishedAt: run.FinishedAt.Format(time.RFC3339),
		Rates:      len(run.Rates),
		Items:      len(run.Items),
		Merged:     len(run.Merged),
		Succeeded:  run.Succeeded(),
		Failures:   run.Failures,
	}
}

func toMergedRows(records []entity.MergedRecord) []MergedRowResponse {
	rows := make([]MergedRowResponse, 0, len(records))
	for _, r := range records {
		row := MergedRowResponse{
			ProductName: r.ProductName,
			DateExr:     r.DateExr,
		}
		if r.PriceUS.Valid {
			us := r.PriceUS.Decimal.String()
			row.PriceUS = &us
		}
		if r.PriceEUR.Valid {
			eur := r.PriceEUR.Decimal.StringFixed(2)
			row.PriceEUR = &eur
		}
		rows = append(rows, row)
	}
	return rows
}
