package emitter

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readSheet(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestXLSXEmitter_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	e := NewXLSXEmitter(dir)

	require.NoError(t, e.Emit(context.Background(), endToEndResult()))

	assert.Equal(t, filepath.Join(dir, "aws_resources.xlsx"), e.Path())
	assert.Equal(t, [][]string{
		{"Service", "ResourceId", "Region", "Details"},
		{"EC2", "i-123", "us-east-1", "Type=t3.micro, State=running, AZ=us-east-1a"},
		{"S3", "my-bucket", "Global", "S3 Bucket"},
	}, readSheet(t, e.Path()))
}

func TestXLSXAndCSV_SameRows(t *testing.T) {
	dir := t.TempDir()
	result := endToEndResult()
	require.NoError(t, NewCSVEmitter(dir).Emit(context.Background(), result))
	require.NoError(t, NewXLSXEmitter(dir).Emit(context.Background(), result))

	f, err := os.Open(filepath.Join(dir, CSVFile))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	csvRows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, csvRows, readSheet(t, filepath.Join(dir, XLSXFile)))
}
