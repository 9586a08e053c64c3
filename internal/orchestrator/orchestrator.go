// Package orchestrator runs one scan and hands the inventory to the emitters.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/costscan/internal/emitter"
	"github.com/yairfalse/costscan/internal/plugin"
	"github.com/yairfalse/costscan/pkg/resource"
)

// Orchestrator coordinates the scan -> report flow.
type Orchestrator struct {
	plugin  plugin.Plugin
	emitter emitter.Emitter
	logger  zerolog.Logger
}

// New creates an orchestrator for one provider plugin.
func New(p plugin.Plugin, e emitter.Emitter) *Orchestrator {
	return &Orchestrator{
		plugin:  p,
		emitter: e,
		logger:  log.With().Str("component", "orchestrator").Logger(),
	}
}

// RunCycle scans once and writes every output. Failed checks do not fail the
// cycle; a scan or output error does.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleResult, error) {
	result := &CycleResult{
		StartTime: time.Now(),
		Success:   true,
	}

	if o.plugin == nil {
		err := errors.New("no plugin configured")
		result.Errors = append(result.Errors, err.Error())
		result.Success = false
		return o.finishCycle(ctx, result), err
	}

	o.logger.Info().Ctx(ctx).Str("provider", o.plugin.Name()).Msg("starting scan")

	// 1. Scan
	inv, err := o.plugin.Scan(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("scan failed: %v", err))
		result.Success = false
		return o.finishCycle(ctx, result), fmt.Errorf("scan: %w", err)
	}

	result.RunID = inv.RunID
	result.Regions = len(inv.Regions)
	result.Checks = len(inv.Checks)
	result.Records = len(inv.Records)
	for _, c := range inv.Failed() {
		result.FailedChecks++
		result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", c.Service, c.Region, c.Err))
	}

	// An interrupted scan leaves the previous exports in place.
	if err := ctx.Err(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("scan interrupted: %v", err))
		result.Success = false
		return o.finishCycle(ctx, result), fmt.Errorf("scan interrupted: %w", err)
	}

	// 2. Report
	if o.emitter != nil {
		scan := resource.ScanResult{
			Provider:  o.plugin.Name(),
			Inventory: inv,
			Duration:  time.Since(result.StartTime),
		}
		if err := o.emitter.Emit(ctx, scan); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("emit failed: %v", err))
			result.Success = false
			return o.finishCycle(ctx, result), fmt.Errorf("emit: %w", err)
		}
	}

	return o.finishCycle(ctx, result), nil
}

func (o *Orchestrator) finishCycle(ctx context.Context, result *CycleResult) *CycleResult {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	event := o.logger.Info()
	if !result.Success {
		event = o.logger.Error()
	}
	event.
		Ctx(ctx).
		Str("run_id", result.RunID).
		Int("regions", result.Regions).
		Int("checks", result.Checks).
		Int("failed_checks", result.FailedChecks).
		Int("records", result.Records).
		Dur("duration", result.Duration).
		Bool("success", result.Success).
		Msg("scan cycle complete")

	return result
}
