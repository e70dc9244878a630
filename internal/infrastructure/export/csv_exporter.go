// Package export writes tabular results as delimited text files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/damon-houk/catalog-price-converter/internal/apperror"
)

// Record is a row with a fixed column layout. Fields must not depend on the
// receiver's value so the header can be taken from the zero value.
type Record interface {
	Fields() []string
	Values() []string
}

// CSVExporter writes files into a single output directory
type CSVExporter struct {
	dir string
}

// NewCSVExporter creates an exporter rooted at dir
func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{dir: dir}
}

// Path returns where a file with the given name is written
func (e *CSVExporter) Path(name string) string {
	return filepath.Join(e.dir, name)
}

// Export writes a header row followed by one row per record. The file is
// written to a temporary sibling first and renamed into place, so a failed
// export never leaves a truncated file behind.
func Export[R Record](e *CSVExporter, name string, records []R) error {
	const op = "export"
	dest := e.Path(name)

	var zero R
	header := zero.Fields()

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return apperror.NewIO(op, dest, fmt.Errorf("failed to create output directory: %w", err))
	}

	tmp, err := os.CreateTemp(e.dir, "."+name+".*")
	if err != nil {
		return apperror.NewIO(op, dest, fmt.Errorf("failed to create file: %w", err))
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return apperror.NewIO(op, dest, err)
	}

	for i, rec := range records {
		row := rec.Values()
		if len(row) != len(header) {
			tmp.Close()
			return apperror.NewIO(op, dest, fmt.Errorf("record %d has %d values, want %d", i, len(row), len(header)))
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return apperror.NewIO(op, dest, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return apperror.NewIO(op, dest, err)
	}

	if err := tmp.Close(); err != nil {
		return apperror.NewIO(op, dest, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return apperror.NewIO(op, dest, fmt.Errorf("failed to move file into place: %w", err))
	}

	return nil
}
