// Package filter provides service and region selection for costscan scans.
package filter

import (
	"github.com/yairfalse/costscan/pkg/resource"
)

// Filter controls which services and regions are scanned.
// A nil *Filter scans everything.
type Filter struct {
	includeServices map[resource.Service]bool
	excludeServices map[resource.Service]bool
	excludeRegions  map[string]bool
}

// New creates a new Filter. An empty include list means all services.
func New(includeServices, excludeServices []resource.Service, excludeRegions []string) *Filter {
	f := &Filter{
		includeServices: make(map[resource.Service]bool),
		excludeServices: make(map[resource.Service]bool),
		excludeRegions:  make(map[string]bool),
	}
	for _, s := range includeServices {
		f.includeServices[s] = true
	}
	for _, s := range excludeServices {
		f.excludeServices[s] = true
	}
	for _, r := range excludeRegions {
		f.excludeRegions[r] = true
	}
	return f
}

// ShouldScanService returns true if checks for the service should be planned.
func (f *Filter) ShouldScanService(s resource.Service) bool {
	if f == nil {
		return true
	}
	if len(f.includeServices) > 0 && !f.includeServices[s] {
		return false
	}
	return !f.excludeServices[s]
}

// ShouldScanRegion returns true if the region is not excluded.
func (f *Filter) ShouldScanRegion(region string) bool {
	if f == nil {
		return true
	}
	return !f.excludeRegions[region]
}

// Regions returns the regions that pass the filter, preserving order.
func (f *Filter) Regions(regions []string) []string {
	if f.IsEmpty() {
		return regions
	}

	filtered := make([]string, 0, len(regions))
	for _, r := range regions {
		if f.ShouldScanRegion(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// IsEmpty returns true if no filters are configured.
func (f *Filter) IsEmpty() bool {
	return f == nil ||
		len(f.includeServices) == 0 && len(f.excludeServices) == 0 && len(f.excludeRegions) == 0
}
