package emitter

import (
	"context"
	"os"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/costscan/pkg/resource"
)

func TestJSONEmitter_RecordsAndChecks(t *testing.T) {
	e := NewJSONEmitter(t.TempDir(), classifyForTest)

	require.NoError(t, e.Emit(context.Background(), endToEndResult()))

	data, err := os.ReadFile(e.Path())
	require.NoError(t, err)
	var doc jsonDocument
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "aws", doc.Provider)
	assert.Equal(t, "123456789012", doc.Account)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, doc.Regions)
	require.Len(t, doc.Records, 2)
	assert.Equal(t, "i-123", doc.Records[0].ResourceID)

	require.Len(t, doc.Checks, 4)
	assert.Equal(t, resource.ServiceELB, doc.Checks[1].Service)
	assert.Equal(t, "AccessDenied", doc.Checks[1].ErrorCode)
	assert.NotEmpty(t, doc.Checks[1].Error)
	assert.Empty(t, doc.Checks[0].ErrorCode)
	assert.Equal(t, 0, doc.Checks[2].Records)
}

func TestJSONEmitter_EmptyInventoryHasEmptyArrays(t *testing.T) {
	e := NewJSONEmitter(t.TempDir(), nil)

	require.NoError(t, e.Emit(context.Background(), resource.ScanResult{Provider: "aws", Inventory: &resource.Inventory{}}))

	data, err := os.ReadFile(e.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"records": []`)
	assert.Contains(t, string(data), `"checks": []`)
}
