package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
	"github.com/damon-houk/catalog-price-converter/internal/domain/repository"
	"github.com/dgraph-io/badger/v3"
)

const (
	runKeyPrefix = "run:"
	latestRunKey = "run-latest"
)

// BadgerRunRepository implements the run repository interface using BadgerDB
type BadgerRunRepository struct {
	db *badger.DB
}

// NewBadgerRunRepository creates a new BadgerDB run repository
func NewBadgerRunRepository(db *badger.DB) *BadgerRunRepository {
	return &BadgerRunRepository{db: db}
}

// Store saves a run and points the latest marker at it, in one transaction
func (r *BadgerRunRepository) Store(ctx context.Context, run *entity.PipelineRun) error {
	if run.ID == "" {
		return errors.New("run has no id")
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(runKeyPrefix+run.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(latestRunKey), []byte(run.ID))
	})
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	return nil
}

// FindByID retrieves a run by its unique identifier
func (r *BadgerRunRepository) FindByID(ctx context.Context, id string) (*entity.PipelineRun, error) {
	var run entity.PipelineRun

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runKeyPrefix + id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", repository.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve run: %w", err)
	}

	return &run, nil
}

// Latest retrieves the most recently stored run
func (r *BadgerRunRepository) Latest(ctx context.Context) (*entity.PipelineRun, error) {
	var id string

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(latestRunKey))
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		id = string(val)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: no run stored yet", repository.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve latest run: %w", err)
	}

	return r.FindByID(ctx, id)
}
