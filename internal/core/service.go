package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/rtdbpush/internal/logging"
	"github.com/JonMunkholm/rtdbpush/internal/rtdb"
	"github.com/google/uuid"
)

// DefaultTimeout bounds the write (and read-back) when Options.Timeout is unset.
const DefaultTimeout = 60 * time.Second

// WriterFactory builds the database writer at the start of a run.
type WriterFactory func(ctx context.Context) (rtdb.Writer, error)

// Options configures a Service.
type Options struct {
	// MaxFileSize limits the input document. Zero uses MaxFileSize.
	MaxFileSize int64
	// Timeout bounds the upload phase. Zero uses DefaultTimeout.
	Timeout time.Duration
	// Verify reads the node back after the write and compares it.
	Verify bool
	// DryRun stops after parsing.
	DryRun bool
	// Out receives the progress lines. Nil discards them.
	Out io.Writer
	// Recorder receives every finished run. Nil records nothing.
	Recorder Recorder
}

// Service performs upload runs.
type Service struct {
	newWriter WriterFactory
	opts      Options
	out       io.Writer
	recorder  Recorder
	now       func() time.Time
}

// NewService creates a Service that obtains its writer from newWriter.
func NewService(newWriter WriterFactory, opts Options) (*Service, error) {
	if newWriter == nil {
		return nil, errors.New("writer factory cannot be nil")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}

	return &Service{
		newWriter: newWriter,
		opts:      opts,
		out:       out,
		recorder:  recorder,
		now:       time.Now,
	}, nil
}

// Run uploads the document at sourcePath. The returned error is the same
// value as the result's Err; the result is never nil.
func (s *Service) Run(ctx context.Context, sourcePath string) (*RunResult, error) {
	res := &RunResult{
		RunID:      uuid.NewString(),
		SourcePath: sourcePath,
		DryRun:     s.opts.DryRun,
		StartedAt:  s.now(),
	}
	ctx = logging.WithRunID(ctx, res.RunID)

	err := s.run(ctx, res)
	res.FinishedAt = s.now()
	if err != nil {
		res.Err = err
		var se *StageError
		if errors.As(err, &se) {
			res.Phase = se.Phase
		}
		logging.FromContext(ctx).Error("run failed",
			"phase", res.Phase,
			"error", err,
			"duration_ms", res.Duration().Milliseconds(),
		)
	} else {
		res.Phase = PhaseDone
		logging.FromContext(ctx).Info("run completed",
			"node", res.NodeURL,
			"entries", res.Entries,
			"bytes", res.Bytes,
			"verified", res.Verified,
			"dry_run", res.DryRun,
			"duration_ms", res.Duration().Milliseconds(),
		)
	}

	if rerr := s.recorder.Record(context.WithoutCancel(ctx), res); rerr != nil {
		logging.FromContext(ctx).Warn("failed to record run", "error", rerr)
	}

	return res, res.Err
}

func (s *Service) run(ctx context.Context, res *RunResult) error {
	logger := logging.FromContext(ctx)

	res.Phase = PhasePreparing
	s.say("Preparing database writer...")
	w, err := s.newWriter(ctx)
	if err != nil {
		return stageErr(PhasePreparing, ErrDependencyUnavailable, err)
	}
	res.NodeURL = w.Node().String()
	res.Backend = w.Backend()
	logger.Debug("writer ready", "backend", res.Backend, "node", res.NodeURL)

	res.Phase = PhaseParsing
	s.say("Reading JSON file...")
	doc, err := LoadDocument(res.SourcePath, s.opts.MaxFileSize)
	if err != nil {
		return stageErr(PhaseParsing, ErrInputRead, err)
	}
	res.Entries = doc.Entries()
	res.Bytes = len(doc.Raw)
	s.say("Parsed %d devices from JSON file", res.Entries)

	if s.opts.DryRun {
		s.say("Dry run: skipping upload to %s", res.NodeURL)
		return nil
	}

	res.Phase = PhaseUploading
	s.say("Uploading data to Firebase...")
	uctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := w.Put(uctx, doc.Raw); err != nil {
		return stageErr(PhaseUploading, ErrUpload, err)
	}

	if s.opts.Verify {
		if err := verify(uctx, w, doc); err != nil {
			return stageErr(PhaseUploading, ErrUpload, err)
		}
		res.Verified = true
		s.say("Verified %d entries at %s", res.Entries, res.NodeURL)
	}

	s.say("Data successfully uploaded to Firebase!")
	return nil
}

// verify reads the node back and compares it with the uploaded document.
func verify(ctx context.Context, w rtdb.Writer, doc *Document) error {
	data, err := w.Get(ctx)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	got, err := rtdb.Decode(data)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if !rtdb.Equal(doc.Value, got) {
		return fmt.Errorf("%w: node content differs from %d-entry document", ErrVerifyMismatch, doc.Entries())
	}
	return nil
}

func (s *Service) say(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}
