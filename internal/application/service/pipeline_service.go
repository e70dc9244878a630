package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/apperror"
	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
	"github.com/damon-houk/catalog-price-converter/internal/domain/repository"
	domainservice "github.com/damon-houk/catalog-price-converter/internal/domain/service"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/export"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/logger"
	"github.com/google/uuid"
)

// Pipeline steps, as recorded in StepFailure.Step
const (
	StepFetchRates   = "fetch_rates"
	StepExportRates  = "export_rates"
	StepFetchCatalog = "fetch_catalog"
	StepMerge        = "merge"
	StepExportMerged = "export_merged"
)

// sampleSize is how many rows of each result are written to the log
const sampleSize = 6

// PipelineFiles names the two exported files
type PipelineFiles struct {
	Rates  string
	Merged string
}

// PipelineService runs fetch, export, merge and export in sequence.
// Every step failure is logged and degrades to an empty result.
type PipelineService struct {
	rates    repository.RateRepository
	catalog  domainservice.CatalogSource
	merger   *MergeService
	exporter *export.CSVExporter
	files    PipelineFiles
	runs     repository.RunRepository
	logger   logger.Logger
	now      func() time.Time
}

// NewPipelineService creates a new pipeline. runs may be nil to skip archiving.
func NewPipelineService(
	rates repository.RateRepository,
	catalog domainservice.CatalogSource,
	exporter *export.CSVExporter,
	files PipelineFiles,
	runs repository.RunRepository,
	log logger.Logger,
) *PipelineService {
	if log == nil {
		log = logger.Nop()
	}

	return &PipelineService{
		rates:    rates,
		catalog:  catalog,
		merger:   NewMergeService(log),
		exporter: exporter,
		files:    files,
		runs:     runs,
		logger:   log,
		now:      time.Now,
	}
}

// Run executes the pipeline for the rate window [start, end]. The returned
// error is only set when the finished run could not be archived; step
// failures are reported through the run itself.
func (s *PipelineService) Run(ctx context.Context, start, end time.Time) (*entity.PipelineRun, error) {
	run := &entity.PipelineRun{
		ID:        uuid.New().String(),
		StartDate: start,
		EndDate:   end,
		StartedAt: s.now().UTC(),
	}
	log := s.logger.WithField("run_id", run.ID)

	log.Info("Pipeline started", map[string]interface{}{
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	})

	rates, err := s.rates.FindRates(ctx, start, end)
	if err != nil {
		s.fail(log, run, StepFetchRates, err)
		rates = []entity.RateRecord{}
	}
	run.Rates = rates

	if err := export.Export(s.exporter, s.files.Rates, rates); err != nil {
		s.fail(log, run, StepExportRates, err)
	} else {
		log.Info("Exchange rates exported", map[string]interface{}{
			"file": s.exporter.Path(s.files.Rates),
			"rows": len(rates),
		})
	}

	items, err := s.catalog.FetchCatalog(ctx)
	if err != nil {
		s.fail(log, run, StepFetchCatalog, err)
		items = []entity.CatalogItem{}
	}
	run.Items = items

	merged, err := s.merger.Merge(rates, items)
	if err != nil {
		s.fail(log, run, StepMerge, err)
		merged = []entity.MergedRecord{}
	}
	run.Merged = merged

	if err := export.Export(s.exporter, s.files.Merged, merged); err != nil {
		s.fail(log, run, StepExportMerged, err)
	} else {
		log.Info("Converted prices exported", map[string]interface{}{
			"file": s.exporter.Path(s.files.Merged),
			"rows": len(merged),
		})
	}

	log.Info("ECB exchange rate data fetch sample", map[string]interface{}{
		"columns": entity.RateRecord{}.Fields(),
		"sample":  sample(rates),
	})
	log.Info("Final result data sample", map[string]interface{}{
		"columns": entity.MergedRecord{}.Fields(),
		"sample":  sample(merged),
	})

	run.FinishedAt = s.now().UTC()

	log.Info("Pipeline finished", map[string]interface{}{
		"rates":       len(rates),
		"items":       len(items),
		"merged":      len(merged),
		"failures":    len(run.Failures),
		"duration_ms": run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	})

	if s.runs != nil {
		if err := s.runs.Store(ctx, run); err != nil {
			log.Error("Failed to archive run", map[string]interface{}{"error": err.Error()})
			return run, fmt.Errorf("failed to archive run: %w", err)
		}
	}

	return run, nil
}

func (s *PipelineService) fail(log logger.Logger, run *entity.PipelineRun, step string, err error) {
	kind := "UNKNOWN"
	fields := map[string]interface{}{"error": err.Error()}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		kind = string(appErr.Kind)
		fields = appErr.Fields()
	}
	fields["step"] = step

	log.Error("Pipeline step failed, continuing with an empty result", fields)

	run.Failures = append(run.Failures, entity.StepFailure{
		Step:  step,
		Kind:  kind,
		Error: err.Error(),
	})
}

// sample renders the first rows of a result the way they are exported
func sample[R export.Record](records []R) [][]string {
	n := min(len(records), sampleSize)
	rows := make([][]string, 0, n)
	for _, r := range records[:n] {
		rows = append(rows, r.Values())
	}
	return rows
}
