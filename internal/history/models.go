// Package history stores pipeline runs and their per-action outcomes in SQLite.
package history

import "time"

// Status is the outcome of one action in a run
type Status string

const (
	StatusRan     Status = "ran"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Run is one execution of a preset
type Run struct {
	ID         int64
	Preset     string
	Baseline   string
	Head       string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Actions    []ActionRecord
}

// ActionRecord is the stored outcome of a single action
type ActionRecord struct {
	Name     string
	Status   Status
	Output   string
	Error    string
	Duration time.Duration
}

// Count returns how many actions ended with status
func (r *Run) Count(status Status) int {
	n := 0
	for _, a := range r.Actions {
		if a.Status == status {
			n++
		}
	}
	return n
}

// Succeeded reports whether no action failed
func (r *Run) Succeeded() bool {
	return r.Count(StatusFailed) == 0
}
