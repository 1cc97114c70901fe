package core

import "time"

// Phase is a stage of a run.
type Phase string

const (
	PhasePreparing Phase = "preparing"
	PhaseParsing   Phase = "parsing"
	PhaseUploading Phase = "uploading"
	PhaseDone      Phase = "done"
)

// RunResult describes a finished run.
type RunResult struct {
	RunID      string
	SourcePath string
	NodeURL    string
	Backend    string

	// Phase is PhaseDone on success, otherwise the phase that failed.
	Phase   Phase
	Entries int
	Bytes   int
	// Verified is true when the node was read back and matched.
	Verified bool
	// DryRun is true when the write was skipped.
	DryRun bool

	// Err is the failure, nil on success.
	Err error

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run reached PhaseDone.
func (r *RunResult) Succeeded() bool {
	return r.Err == nil && r.Phase == PhaseDone
}
