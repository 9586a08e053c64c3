package emitter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/costscan/pkg/resource"
)

func TestCSVEmitter_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	e := NewCSVEmitter(dir)

	require.NoError(t, e.Emit(context.Background(), endToEndResult()))

	assert.Equal(t, filepath.Join(dir, "aws_resources.csv"), e.Path())
	data, err := os.ReadFile(e.Path())
	require.NoError(t, err)
	want := "Service,ResourceId,Region,Details\n" +
		"EC2,i-123,us-east-1,\"Type=t3.micro, State=running, AZ=us-east-1a\"\n" +
		"S3,my-bucket,Global,S3 Bucket\n"
	assert.Equal(t, want, string(data))
}

func TestCSVEmitter_Overwrites(t *testing.T) {
	dir := t.TempDir()
	e := NewCSVEmitter(dir)
	require.NoError(t, e.Emit(context.Background(), endToEndResult()))

	empty := resource.ScanResult{Inventory: &resource.Inventory{}}
	require.NoError(t, e.Emit(context.Background(), empty))

	data, err := os.ReadFile(e.Path())
	require.NoError(t, err)
	assert.Equal(t, "Service,ResourceId,Region,Details\n", string(data))
}

func TestCSVEmitter_QuotesEmbeddedQuotes(t *testing.T) {
	dir := t.TempDir()
	result := resource.ScanResult{Inventory: &resource.Inventory{
		Records: []resource.Record{{Service: resource.ServiceDynamoDB, ResourceID: "t", Region: "us-east-1", Details: `say "hi"`}},
	}}

	require.NoError(t, NewCSVEmitter(dir).Emit(context.Background(), result))

	data, err := os.ReadFile(filepath.Join(dir, CSVFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `DynamoDB,t,us-east-1,"say ""hi"""`)
}

func TestCSVEmitter_MissingDir(t *testing.T) {
	e := NewCSVEmitter(filepath.Join(t.TempDir(), "nope"))

	err := e.Emit(context.Background(), endToEndResult())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create csv")
}
