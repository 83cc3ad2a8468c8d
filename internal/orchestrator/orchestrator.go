// Package orchestrator runs the analysis passes over a summary in order,
// sharding per-flow work across workers and reporting progress.
package orchestrator

// Stage identifies a pipeline stage (0–5).
type Stage int

const (
	StageLoad        Stage = 0
	StageThreshold   Stage = 1
	StageEquivalence Stage = 2
	StageCluster     Stage = 3
	StageImplied     Stage = 4
	StageReport      Stage = 5
)

func (s Stage) String() string {
	names := [...]string{
		"load",
		"threshold",
		"equivalence",
		"cluster",
		"implied",
		"report",
	}
	if s >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// ProgressEvent is emitted to the user during pipeline execution.
type ProgressEvent struct {
	Stage   Stage
	Section string // flow prefix, or the stage name for stage-level events
	Status  ProgressStatus
	Message string
}

// ProgressStatus is the state of a section within a stage.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressSkipped  ProgressStatus = "skipped"
	ProgressFailed   ProgressStatus = "failed"
)
