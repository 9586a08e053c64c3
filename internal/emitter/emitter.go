// Package emitter renders costscan inventories to their output sinks.
package emitter

import (
	"context"
	"errors"

	"github.com/yairfalse/costscan/pkg/resource"
)

// ErrNoInventory is returned when a sink is handed a result without an inventory.
var ErrNoInventory = errors.New("scan result has no inventory")

// Emitter writes a scan result to one sink.
type Emitter interface {
	// Emit writes the result. Each call fully replaces previous output.
	Emit(ctx context.Context, result resource.ScanResult) error

	// Close releases the sink.
	Close() error
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that writes to every sink in order.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit writes to all emitters in order, returning the first error.
func (m *MultiEmitter) Emit(ctx context.Context, result resource.ScanResult) error {
	for _, e := range m.emitters {
		if err := e.Emit(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every emitter and joins their errors.
func (m *MultiEmitter) Close() error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks.
func (m *MultiEmitter) Len() int {
	return len(m.emitters)
}

func inventoryOf(result resource.ScanResult) (*resource.Inventory, error) {
	if result.Inventory == nil {
		return nil, ErrNoInventory
	}
	return result.Inventory, nil
}
