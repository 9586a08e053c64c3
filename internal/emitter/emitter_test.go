package emitter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/costscan/pkg/resource"
)

// mockEmitter implements Emitter for testing.
type mockEmitter struct {
	emitCalls  int
	closeCalls int
	emitErr    error
	closeErr   error
	results    []resource.ScanResult
}

func (m *mockEmitter) Emit(_ context.Context, result resource.ScanResult) error {
	m.emitCalls++
	m.results = append(m.results, result)
	return m.emitErr
}

func (m *mockEmitter) Close() error {
	m.closeCalls++
	return m.closeErr
}

// endToEndResult is a run over us-east-1 and eu-west-1 where the us-east-1
// load balancer check failed and eu-west-1 had nothing.
func endToEndResult() resource.ScanResult {
	ec2 := resource.Record{Service: resource.ServiceEC2, ResourceID: "i-123", Region: "us-east-1", Details: "Type=t3.micro, State=running, AZ=us-east-1a"}
	bucket := resource.Record{Service: resource.ServiceS3, ResourceID: "my-bucket", Region: resource.GlobalRegion, Details: "S3 Bucket"}

	return resource.ScanResult{
		Provider: "aws",
		Duration: 2 * time.Second,
		Inventory: &resource.Inventory{
			RunID:   "run-1",
			Account: "123456789012",
			Regions: []string{"us-east-1", "eu-west-1"},
			Records: []resource.Record{ec2, bucket},
			Checks: []resource.CheckResult{
				{Service: resource.ServiceEC2, Region: "us-east-1", Records: []resource.Record{ec2}, Duration: 120 * time.Millisecond},
				{Service: resource.ServiceELB, Region: "us-east-1", Err: errors.New("AccessDenied: not authorized"), Duration: 40 * time.Millisecond},
				{Service: resource.ServiceEC2, Region: "eu-west-1", Duration: 90 * time.Millisecond},
				{Service: resource.ServiceS3, Region: resource.GlobalRegion, Records: []resource.Record{bucket}, Duration: 60 * time.Millisecond},
			},
		},
	}
}

func classifyForTest(err error) string {
	if err == nil {
		return ""
	}
	return "AccessDenied"
}

func TestMultiEmitter_Emit(t *testing.T) {
	e1 := &mockEmitter{}
	e2 := &mockEmitter{}
	multi := NewMultiEmitter(e1, e2)

	err := multi.Emit(context.Background(), endToEndResult())

	require.NoError(t, err)
	assert.Equal(t, 1, e1.emitCalls)
	assert.Equal(t, 1, e2.emitCalls)
	assert.Equal(t, "run-1", e2.results[0].Inventory.RunID)
	assert.Equal(t, 2, multi.Len())
}

func TestMultiEmitter_Emit_Error(t *testing.T) {
	e1 := &mockEmitter{emitErr: errors.New("disk full")}
	e2 := &mockEmitter{}
	multi := NewMultiEmitter(e1, e2)

	err := multi.Emit(context.Background(), endToEndResult())

	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 1, e1.emitCalls)
	assert.Equal(t, 0, e2.emitCalls) // Should stop on first error
}

func TestMultiEmitter_Close_JoinsErrors(t *testing.T) {
	e1 := &mockEmitter{closeErr: errors.New("close failed")}
	e2 := &mockEmitter{}
	multi := NewMultiEmitter(e1, e2)

	err := multi.Close()

	assert.Error(t, err)
	assert.Equal(t, 1, e1.closeCalls)
	assert.Equal(t, 1, e2.closeCalls)
}

func TestMultiEmitter_Empty(t *testing.T) {
	multi := NewMultiEmitter()

	require.NoError(t, multi.Emit(context.Background(), resource.ScanResult{}))
	require.NoError(t, multi.Close())
}

func TestEmitters_RejectMissingInventory(t *testing.T) {
	dir := t.TempDir()
	emitters := []Emitter{
		NewConsoleEmitter(&discard{}),
		NewCSVEmitter(dir),
		NewXLSXEmitter(dir),
		NewJSONEmitter(dir, nil),
	}
	for _, e := range emitters {
		assert.ErrorIs(t, e.Emit(context.Background(), resource.ScanResult{Provider: "aws"}), ErrNoInventory)
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
