// Package plugin defines the inventory provider interface for costscan.
package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/yairfalse/costscan/pkg/resource"
)

// Plugin enumerates the billable resources of one cloud provider.
type Plugin interface {
	// Name returns the provider identifier, e.g. "aws".
	Name() string

	// Regions returns the region set a scan would cover.
	Regions(ctx context.Context) ([]string, error)

	// Scan runs every check and returns the collected inventory. Failed
	// checks are reported inside the inventory; the error is reserved for
	// failures that leave nothing to report.
	Scan(ctx context.Context) (*resource.Inventory, error)
}

var (
	registry = make(map[string]Plugin)
	mu       sync.RWMutex
)

// Register adds a plugin, replacing any plugin of the same name.
func Register(p Plugin) {
	mu.Lock()
	defer mu.Unlock()
	registry[p.Name()] = p
}

// Get returns a plugin by name.
func Get(name string) (Plugin, error) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("plugin %q not registered", name)
	}
	return p, nil
}

// Clear removes all plugins from the registry. Used for testing.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Plugin)
}
