package emitter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/yairfalse/costscan/pkg/resource"
)

// Workbook layout.
const (
	XLSXFile  = "aws_resources.xlsx"
	SheetName = "Sheet1"
)

// XLSXEmitter writes the flat record table as a single-sheet workbook.
type XLSXEmitter struct {
	path string
}

// NewXLSXEmitter creates an XLSX emitter writing aws_resources.xlsx into dir.
func NewXLSXEmitter(dir string) *XLSXEmitter {
	return &XLSXEmitter{path: filepath.Join(dir, XLSXFile)}
}

// Path returns the output file path.
func (e *XLSXEmitter) Path() string {
	return e.path
}

// Emit builds a fresh workbook and saves it over any existing file.
// Every cell is written as a string.
func (e *XLSXEmitter) Emit(_ context.Context, result resource.ScanResult) error {
	inv, err := inventoryOf(result)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open xlsx stream: %w", err)
	}
	if err := sw.SetRow("A1", cells(resource.Columns)); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, r := range inv.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx cell name: %w", err)
		}
		if err := sw.SetRow(cell, cells(r.Row())); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush xlsx: %w", err)
	}

	if err := f.SaveAs(e.path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Close is a no-op; the workbook is closed after each Emit.
func (e *XLSXEmitter) Close() error {
	return nil
}
