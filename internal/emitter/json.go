package emitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/yairfalse/costscan/pkg/resource"
)

// JSONFile is the JSON export file name.
const JSONFile = "aws_resources.json"

// ErrorClassifier maps a check failure to a short code.
type ErrorClassifier func(error) string

// JSONEmitter writes the inventory plus per-check diagnostics as one document.
type JSONEmitter struct {
	path     string
	classify ErrorClassifier
}

// NewJSONEmitter creates a JSON emitter writing aws_resources.json into dir.
// classify may be nil.
func NewJSONEmitter(dir string, classify ErrorClassifier) *JSONEmitter {
	if classify == nil {
		classify = func(error) string { return "" }
	}
	return &JSONEmitter{path: filepath.Join(dir, JSONFile), classify: classify}
}

// Path returns the output file path.
func (e *JSONEmitter) Path() string {
	return e.path
}

type jsonDocument struct {
	Provider        string            `json:"provider"`
	RunID           string            `json:"run_id,omitempty"`
	Account         string            `json:"account,omitempty"`
	DurationSeconds float64           `json:"duration_seconds"`
	Regions         []string          `json:"regions"`
	Records         []resource.Record `json:"records"`
	Checks          []jsonCheck       `json:"checks"`
}

type jsonCheck struct {
	Service    resource.Service `json:"service"`
	Region     string           `json:"region"`
	Records    int              `json:"records"`
	DurationMS int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
	ErrorCode  string           `json:"error_code,omitempty"`
}

// Emit writes the document, replacing any previous file.
func (e *JSONEmitter) Emit(_ context.Context, result resource.ScanResult) error {
	inv, err := inventoryOf(result)
	if err != nil {
		return err
	}

	doc := jsonDocument{
		Provider:        result.Provider,
		RunID:           inv.RunID,
		Account:         inv.Account,
		DurationSeconds: result.Duration.Seconds(),
		Regions:         inv.Regions,
		Records:         inv.Records,
		Checks:          make([]jsonCheck, 0, len(inv.Checks)),
	}
	if doc.Records == nil {
		doc.Records = []resource.Record{}
	}
	for _, c := range inv.Checks {
		jc := jsonCheck{
			Service:    c.Service,
			Region:     c.Region,
			Records:    len(c.Records),
			DurationMS: c.Duration.Milliseconds(),
		}
		if c.Failed() {
			jc.Error = c.Err.Error()
			jc.ErrorCode = e.classify(c.Err)
		}
		doc.Checks = append(doc.Checks, jc)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(e.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// Close is a no-op.
func (e *JSONEmitter) Close() error {
	return nil
}
