package emitter

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/yairfalse/costscan/pkg/resource"
)

// Console headings.
const (
	ConsoleBanner = "==== AWS Payable Resources Across All Regions ===="
	GlobalHeading = "--- Global Services ---"
)

// ConsoleEmitter prints records grouped by region, then the global services.
type ConsoleEmitter struct {
	w io.Writer
}

// NewConsoleEmitter creates a console emitter writing to w.
func NewConsoleEmitter(w io.Writer) *ConsoleEmitter {
	return &ConsoleEmitter{w: w}
}

// Emit prints one section per scanned region in scan order. Regions with no
// records still get a header.
func (e *ConsoleEmitter) Emit(_ context.Context, result resource.ScanResult) error {
	inv, err := inventoryOf(result)
	if err != nil {
		return err
	}

	byRegion := make(map[string][]resource.Record, len(inv.Regions))
	var global []resource.Record
	for _, r := range inv.Records {
		if r.Service.Regional() {
			byRegion[r.Region] = append(byRegion[r.Region], r)
			continue
		}
		global = append(global, r)
	}

	bw := bufio.NewWriter(e.w)
	fmt.Fprintf(bw, "%s\n\n", ConsoleBanner)
	for _, region := range inv.Regions {
		fmt.Fprintf(bw, "--- Region: %s ---\n", region)
		for _, r := range byRegion[region] {
			writeLine(bw, r)
		}
		fmt.Fprintln(bw)
	}
	fmt.Fprintln(bw, GlobalHeading)
	for _, r := range global {
		writeLine(bw, r)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write console output: %w", err)
	}
	return nil
}

func writeLine(w io.Writer, r resource.Record) {
	fmt.Fprintf(w, "%s: %s | %s\n", r.Service, r.ResourceID, r.Details)
}

// Close is a no-op; the writer belongs to the caller.
func (e *ConsoleEmitter) Close() error {
	return nil
}
