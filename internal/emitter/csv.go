package emitter

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yairfalse/costscan/pkg/resource"
)

// CSVFile is the CSV export file name.
const CSVFile = "aws_resources.csv"

// CSVEmitter writes the flat record table as RFC 4180 CSV.
type CSVEmitter struct {
	path string
}

// NewCSVEmitter creates a CSV emitter writing aws_resources.csv into dir.
func NewCSVEmitter(dir string) *CSVEmitter {
	return &CSVEmitter{path: filepath.Join(dir, CSVFile)}
}

// Path returns the output file path.
func (e *CSVEmitter) Path() string {
	return e.path
}

// Emit truncates and rewrites the file with a header row and one row per record.
func (e *CSVEmitter) Emit(_ context.Context, result resource.ScanResult) error {
	inv, err := inventoryOf(result)
	if err != nil {
		return err
	}

	f, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(resource.Columns); err != nil {
		_ = f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range inv.Records {
		if err := w.Write(r.Row()); err != nil {
			_ = f.Close()
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	return nil
}

// Close is a no-op; the file is closed after each Emit.
func (e *CSVEmitter) Close() error {
	return nil
}
