package orchestrator

import (
	"time"
)

// CycleResult summarizes one scan-and-report run.
type CycleResult struct {
	RunID        string        `json:"run_id,omitempty"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`
	Regions      int           `json:"regions"`
	Checks       int           `json:"checks"`
	FailedChecks int           `json:"failed_checks"`
	Records      int           `json:"records"`
	Errors       []string      `json:"errors,omitempty"`
	Success      bool          `json:"success"`
}
