package core

import "context"

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, res *RunResult) error
}

// NopRecorder discards runs.
type NopRecorder struct{}

// Record does nothing.
func (NopRecorder) Record(context.Context, *RunResult) error { return nil }

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, res *RunResult) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, res *RunResult) error { return f(ctx, res) }
