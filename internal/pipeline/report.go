package pipeline

import (
	"time"

	"deployit.dev/deployit/internal/actions"
	"deployit.dev/deployit/internal/history"
)

// Result is the outcome of one action in a run
type Result struct {
	Name     string
	Message  string
	Status   history.Status
	Outcome  actions.Outcome
	Err      error
	Duration time.Duration
}

// Report summarizes a pipeline run
type Report struct {
	Preset     string
	Baseline   string
	Head       string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

// Count returns how many actions ended with status
func (r *Report) Count(status history.Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the names of failed actions in run order
func (r *Report) Failed() []string {
	var names []string
	for _, res := range r.Results {
		if res.Status == history.StatusFailed {
			names = append(names, res.Name)
		}
	}
	return names
}

// Succeeded reports whether no action failed
func (r *Report) Succeeded() bool {
	return r.Count(history.StatusFailed) == 0
}

// Run converts the report into a history record
func (r *Report) Run() *history.Run {
	run := &history.Run{
		Preset:     r.Preset,
		Baseline:   r.Baseline,
		Head:       r.Head,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Actions:    make([]history.ActionRecord, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		rec := history.ActionRecord{
			Name:     res.Name,
			Status:   res.Status,
			Output:   res.Outcome.String(),
			Duration: res.Duration,
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		run.Actions = append(run.Actions, rec)
	}
	return run
}
