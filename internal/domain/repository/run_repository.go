package repository

import (
	"context"
	"errors"

	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
)

// ErrRunNotFound is returned when no archived run matches the lookup
var ErrRunNotFound = errors.New("run not found")

// RunRepository defines the interface for the pipeline run archive
type RunRepository interface {
	// Store saves a run and marks it as the latest
	Store(ctx context.Context, run *entity.PipelineRun) error

	// FindByID retrieves a run by its unique identifier
	FindByID(ctx context.Context, id string) (*entity.PipelineRun, error)

	// Latest retrieves the most recently stored run
	Latest(ctx context.Context) (*entity.PipelineRun, error)
}
