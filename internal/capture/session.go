package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"epochcap/internal/dataset"
	"epochcap/internal/epoch"
	"epochcap/internal/export"
	"epochcap/internal/faults"
	"epochcap/internal/logging"
	"epochcap/internal/render"
)

// DefaultFilePrefix names single-recording captures.
const DefaultFilePrefix = "edf_epoch"

// MinAutoDelay is the floor for the pause between auto-captured epochs.
const MinAutoDelay = 100 * time.Millisecond

// State is the auto-capture state of a Session.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCancelled State = "cancelled"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	Composer render.Composer
	Exporter *export.Exporter
	// Output is the folder captures are written to. Nil sends every image to
	// the exporter's fallback.
	Output      export.Directory
	Prefix      string
	SettleDelay time.Duration
	AutoDelay   time.Duration
	Logger      *slog.Logger
}

// AutoSummary reports what an auto-capture run did.
type AutoSummary struct {
	Start     int
	Captured  int
	Failed    int
	Cancelled bool
}

// Session holds one loaded recording and the epoch currently in view.
type Session struct {
	mu    sync.Mutex
	opts  SessionOptions
	log   *Log
	ds    *dataset.Dataset
	index int
	state State

	cancel  context.CancelFunc
	done    chan struct{}
	summary AutoSummary
}

// NewSession returns an idle session with no dataset.
func NewSession(opts SessionOptions) *Session {
	if opts.Prefix == "" {
		opts.Prefix = DefaultFilePrefix
	}
	opts.AutoDelay = max(opts.AutoDelay, MinAutoDelay)
	if opts.Exporter == nil {
		opts.Exporter = &export.Exporter{}
	}
	opts.Logger = logging.NewComponentLogger(opts.Logger, "session")
	return &Session{opts: opts, log: NewLog(DefaultLogCapacity), state: StateIdle}
}

// Load replaces the dataset and rewinds to the first epoch. It is rejected
// with faults.ErrBusy while auto-capture runs.
func (s *Session) Load(ds *dataset.Dataset) error {
	if ds == nil {
		return faults.Wrap(faults.ErrNoDataset, "session", "load", "dataset is nil", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return faults.Wrap(faults.ErrBusy, "session", "load", "auto-capture is running", nil)
	}
	s.ds = ds
	s.index = 0
	s.log.Push(fmt.Sprintf("Loaded %s (%d channels)", ds.Source, len(ds.Channels)))
	return nil
}

// Dataset returns the loaded dataset, or nil.
func (s *Session) Dataset() *dataset.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds
}

// SetEpochSeconds changes the epoch length. The current index is clamped to
// the new total.
func (s *Session) SetEpochSeconds(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return faults.Wrap(faults.ErrBusy, "session", "set epoch length", "auto-capture is running", nil)
	}
	if s.ds == nil {
		return faults.Wrap(faults.ErrNoDataset, "session", "set epoch length", "", nil)
	}
	s.ds = s.ds.WithEpochSeconds(seconds)
	s.index = epoch.Clamp(s.index, s.totalLocked())
	return nil
}

// Total returns the number of navigable epochs.
func (s *Session) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLocked()
}

func (s *Session) totalLocked() int {
	return epoch.Total(s.ds, s.opts.Composer.Schema)
}

// Epoch returns the 0-based index of the epoch in view.
func (s *Session) Epoch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Next moves one epoch forward, stopping at the last epoch.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = epoch.Clamp(s.index+1, s.totalLocked())
	return s.index
}

// Prev moves one epoch back, stopping at the first epoch.
func (s *Session) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = epoch.Clamp(s.index-1, s.totalLocked())
	return s.index
}

// GoTo jumps to a 1-based epoch number, clamped to the recording.
func (s *Session) GoTo(number int) (int, error) {
	if number <= 0 {
		return 0, faults.Wrap(faults.ErrInvalidInput, "session", "go to epoch", fmt.Sprintf("epoch number must be positive, got %d", number), nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return 0, faults.Wrap(faults.ErrNoDataset, "session", "go to epoch", "", nil)
	}
	s.index = epoch.Clamp(number-1, s.totalLocked())
	return s.index, nil
}

// Span describes the epoch in view.
func (s *Session) Span() (epoch.Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return epoch.Span{}, faults.Wrap(faults.ErrNoDataset, "session", "span", "", nil)
	}
	return epoch.Range(s.ds, s.index), nil
}

// Capture exports the epoch in view.
func (s *Session) Capture(ctx context.Context) (export.Result, error) {
	s.mu.Lock()
	ds, index := s.ds, s.index
	s.mu.Unlock()
	if ds == nil {
		return export.Result{}, faults.Wrap(faults.ErrNoDataset, "session", "capture", "", nil)
	}
	return s.captureEpoch(ctx, ds, index)
}

func (s *Session) captureEpoch(ctx context.Context, ds *dataset.Dataset, index int) (export.Result, error) {
	data, err := encodeFrame(s.opts.Composer, ds, index)
	if err != nil {
		return export.Result{}, faults.Wrap(faults.ErrExportWrite, "session", "encode", fmt.Sprintf("epoch %d", index+1), err)
	}
	name := export.FileName(s.opts.Prefix, index)
	res, err := s.opts.Exporter.Export(context.WithoutCancel(ctx), s.opts.Output, name, data)
	if err != nil {
		s.log.Push(fmt.Sprintf("Capture failed for epoch %d: %v", index+1, err))
		return export.Result{}, err
	}
	msg := "Saved " + res.Path
	if res.Fallback {
		msg += " (fallback)"
	}
	s.log.Push(msg)
	return res, nil
}

// StartAuto captures every epoch from the current one to the end in the
// background. It returns false without doing anything when auto-capture is
// already running or no dataset is loaded.
func (s *Session) StartAuto(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle || s.ds == nil {
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.state = StateRunning
	s.cancel = cancel
	s.done = make(chan struct{})
	s.summary = AutoSummary{Start: s.index}
	go s.runAuto(runCtx, s.ds, s.index, s.done)
	return true
}

// CancelAuto asks a running auto-capture to stop. The epoch being written
// still completes.
func (s *Session) CancelAuto() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	s.state = StateCancelled
	s.cancel()
}

// Wait blocks until the current auto-capture run ends and returns its
// summary. It returns immediately when nothing was started.
func (s *Session) Wait() AutoSummary {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// State reports the auto-capture state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Logs returns the session log lines.
func (s *Session) Logs() []string {
	return s.log.Lines()
}

func (s *Session) runAuto(ctx context.Context, ds *dataset.Dataset, start int, done chan struct{}) {
	defer close(done)
	logger := logging.WithContext(ctx, s.opts.Logger)
	total := epoch.Total(ds, s.opts.Composer.Schema)
	sampler := logging.NewProgressSampler(10)
	summary := AutoSummary{Start: start}

	s.log.Push(fmt.Sprintf("Auto capture started at epoch %d/%d", start+1, total))
	logger.Info("auto capture started",
		logging.String(logging.FieldFile, ds.Source),
		logging.Int(logging.FieldEpoch, start+1),
		logging.Int(logging.FieldEpochCount, total),
		logging.String(logging.FieldEventType, "auto_started"),
	)

	for i := start; i < total; i++ {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		s.mu.Lock()
		s.index = i
		s.mu.Unlock()

		if err := sleep(ctx, s.opts.SettleDelay); err != nil {
			summary.Cancelled = true
			break
		}
		if _, err := s.captureEpoch(ctx, ds, i); err != nil {
			summary.Failed++
			logging.WarnWithContext(logger, "auto capture epoch failed", "auto_epoch_failed",
				append(logging.Epoch(i+1, total),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the output folder and fallback folder"),
					logging.String(logging.FieldImpact, "epoch image missing; auto capture continues"),
				)...,
			)
		} else {
			summary.Captured++
			if sampler.ShouldLog(ds.Source, i+1, total) {
				logger.Info("auto capture progress", logging.Args(logging.Epoch(i+1, total)...)...)
			}
		}
		if i < total-1 {
			if err := sleep(ctx, s.opts.AutoDelay); err != nil {
				summary.Cancelled = true
				break
			}
		}
	}

	if summary.Cancelled {
		s.log.Push("Auto capture cancelled")
	} else {
		s.log.Push("Auto capture finished")
	}
	logger.Info("auto capture ended",
		logging.Int("captured", summary.Captured),
		logging.Int("failed", summary.Failed),
		logging.Bool("cancelled", summary.Cancelled),
		logging.String(logging.FieldEventType, "auto_ended"),
	)

	s.mu.Lock()
	s.summary = summary
	s.state = StateIdle
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}
