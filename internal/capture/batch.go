package capture

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"epochcap/internal/dataset"
	"epochcap/internal/epoch"
	"epochcap/internal/export"
	"epochcap/internal/faults"
	"epochcap/internal/logging"
	"epochcap/internal/notifications"
	"epochcap/internal/render"
	"epochcap/internal/textutil"
)

// Status is the externally visible state of a batch run.
type Status string

const (
	StatusIdle        Status = "Idle"
	StatusEnumerating Status = "Enumerating"
	StatusProcessing  Status = "Processing"
	StatusCompleted   Status = "Completed"
	StatusStopped     Status = "Stopped"
	StatusError       Status = "Error"
)

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusError
}

// MinInterEpochDelay is the floor for the pause between batch epochs.
const MinInterEpochDelay = 50 * time.Millisecond

// Progress is a snapshot of a batch run. Indexes are 1-based; zero means
// not started.
type Progress struct {
	RunID      string
	Status     Status
	Message    string
	FileIndex  int
	FileCount  int
	EpochIndex int
	EpochCount int
}

// FileOutcome records what happened to one recording.
type FileOutcome struct {
	Name      string
	Output    string
	Epochs    int
	Exported  int
	Fallbacks int
	Err       error
}

// Failed reports whether the file hit an error other than cancellation.
func (f FileOutcome) Failed() bool {
	return f.Err != nil && !errors.Is(f.Err, context.Canceled)
}

// Result summarizes a finished batch run.
type Result struct {
	RunID      string
	Folder     string
	Status     Status
	Files      []FileOutcome
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Images returns the number of exported epoch images.
func (r Result) Images() int {
	n := 0
	for _, f := range r.Files {
		n += f.Exported
	}
	return n
}

// FailedFiles returns the number of files that failed.
func (r Result) FailedFiles() int {
	n := 0
	for _, f := range r.Files {
		if f.Failed() {
			n++
		}
	}
	return n
}

// Summary converts the result into a notification payload.
func (r Result) Summary() notifications.BatchSummary {
	return notifications.BatchSummary{
		Folder:   r.Folder,
		Status:   string(r.Status),
		Files:    len(r.Files),
		Failed:   r.FailedFiles(),
		Images:   r.Images(),
		Duration: r.FinishedAt.Sub(r.StartedAt),
	}
}

// Recorder persists batch outcomes. Recorder errors are logged and never
// change the run's status.
type Recorder interface {
	StartRun(ctx context.Context, runID, folder string, files []string, started time.Time) error
	RecordFile(ctx context.Context, runID string, index int, outcome FileOutcome) error
	FinishRun(ctx context.Context, result Result) error
}

// Notifier is told about finished runs.
type Notifier interface {
	NotifyBatchCompleted(ctx context.Context, summary notifications.BatchSummary) error
}

// BatchOptions configures a Batch.
type BatchOptions struct {
	Composer render.Composer
	Decoder  dataset.Decoder
	// EpochSeconds applies when a recording does not carry its own length.
	EpochSeconds    int
	Exporter        *export.Exporter
	// Output receives the per-recording subfolders. Nil writes them inside
	// the folder being processed.
	Output          export.Directory
	InterEpochDelay time.Duration
	InterFileDelay  time.Duration
	LogCapacity     int
	Logger          *slog.Logger
	Recorder        Recorder
	Notifier        Notifier
}

// Batch captures every epoch of every EDF recording in a folder.
type Batch struct {
	opts BatchOptions
	log  *Log

	mu       sync.Mutex
	running  bool
	progress Progress
}

// NewBatch returns an idle batch controller.
func NewBatch(opts BatchOptions) *Batch {
	if opts.Decoder == nil {
		opts.Decoder = dataset.EDFDecoder{EpochSeconds: opts.EpochSeconds}
	}
	if opts.Exporter == nil {
		opts.Exporter = &export.Exporter{}
	}
	opts.InterEpochDelay = max(opts.InterEpochDelay, MinInterEpochDelay)
	opts.Logger = logging.NewComponentLogger(opts.Logger, "batch")
	return &Batch{
		opts:     opts,
		log:      NewLog(opts.LogCapacity),
		progress: Progress{Status: StatusIdle},
	}
}

// Progress returns a snapshot of the current run.
func (b *Batch) Progress() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

// Logs returns the run log, oldest first.
func (b *Batch) Logs() []Entry {
	return b.log.Entries()
}

// Running reports whether a run is in progress.
func (b *Batch) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Run processes dir until every file is done or ctx is cancelled. The
// returned error is non-nil only when the run itself could not proceed: no
// folder, a run already in progress, or a failed enumeration. Per-file
// failures are reported in Result.Files.
func (b *Batch) Run(ctx context.Context, dir export.Directory) (Result, error) {
	if export.Missing(dir) {
		return Result{Status: StatusIdle}, faults.Wrap(faults.ErrNoDirectory, "batch", "start", "select a folder first", nil)
	}
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return Result{Status: StatusIdle}, faults.Wrap(faults.ErrBusy, "batch", "start", "a batch run is already in progress", nil)
	}
	b.running = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	result := Result{RunID: uuid.NewString(), Folder: dir.Name(), StartedAt: time.Now()}
	ctx = logging.ContextWithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, b.opts.Logger)

	b.log.Reset()
	b.setProgress(Progress{RunID: result.RunID, Status: StatusEnumerating, Message: "Starting"})
	b.log.Push("Starting folder capture")

	files, err := b.enumerate(ctx, dir)
	if err != nil {
		result.Status = StatusError
		result.Err = err
		result.FinishedAt = time.Now()
		b.setProgress(Progress{RunID: result.RunID, Status: StatusError, Message: "Error"})
		b.log.Push("Folder capture error: " + err.Error())
		logging.ErrorWithContext(logger, "folder enumeration failed", "batch_enumeration_failed",
			logging.String("folder", dir.Name()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the folder exists and is readable"),
		)
		b.finish(ctx, logger, result)
		return result, err
	}

	logger.Info("batch started",
		logging.String("folder", dir.Name()),
		logging.Int(logging.FieldFileCount, len(files)),
		logging.String(logging.FieldEventType, "batch_started"),
	)
	b.record(ctx, logger, func(r Recorder) error {
		return r.StartRun(ctx, result.RunID, result.Folder, files, result.StartedAt)
	})

	stopped := false
	for i, name := range files {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		b.update(func(p *Progress) {
			p.Status = StatusProcessing
			p.FileIndex = i + 1
			p.FileCount = len(files)
			p.EpochIndex = 0
			p.EpochCount = 0
			p.Message = fmt.Sprintf("Processing %s (%d/%d)", name, i+1, len(files))
		})
		b.log.Push("Processing file: " + name)

		outcome := b.processFile(ctx, logger, dir, name, i, len(files))
		result.Files = append(result.Files, outcome)
		switch {
		case outcome.Failed():
			b.log.Push(fmt.Sprintf("Error processing %s: %v", name, outcome.Err))
			logging.WarnWithContext(logger, "file failed; continuing with next file", "batch_file_failed",
				append(logging.File(name, i+1, len(files)),
					logging.Error(outcome.Err),
					logging.String(logging.FieldErrorHint, "open the file on its own to inspect it"),
					logging.String(logging.FieldImpact, "file skipped; remaining files continue"),
				)...,
			)
		case outcome.Err == nil:
			b.log.Push("Finished file: " + name)
		}
		// A file interrupted by cancellation is still journaled.
		b.record(ctx, logger, func(r Recorder) error {
			return r.RecordFile(context.WithoutCancel(ctx), result.RunID, i, outcome)
		})

		if ctx.Err() != nil {
			stopped = true
			break
		}
		if err := sleep(ctx, b.opts.InterFileDelay); err != nil {
			stopped = true
			break
		}
	}

	result.FinishedAt = time.Now()
	if stopped {
		result.Status = StatusStopped
		b.update(func(p *Progress) {
			p.Status = StatusStopped
			p.Message = "Stopped by user"
		})
		b.log.Push("Folder capture stopped by user")
	} else {
		result.Status = StatusCompleted
		b.update(func(p *Progress) {
			p.Status = StatusCompleted
			p.Message = "Completed"
		})
		b.log.Push("Folder capture completed")
	}
	logger.Info("batch finished",
		logging.String("status", string(result.Status)),
		logging.Int(logging.FieldFileCount, len(files)),
		logging.Int("failed", result.FailedFiles()),
		logging.Int("images", result.Images()),
		logging.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
		logging.String(logging.FieldEventType, "batch_finished"),
	)
	b.finish(ctx, logger, result)
	return result, nil
}

func (b *Batch) enumerate(ctx context.Context, dir export.Directory) ([]string, error) {
	entries, err := dir.List(ctx)
	if err != nil {
		if errors.Is(err, faults.ErrEnumeration) {
			return nil, err
		}
		return nil, faults.Wrap(faults.ErrEnumeration, "batch", "list folder", dir.Name(), err)
	}
	var files []string
	for _, entry := range entries {
		if entry.Dir || !dataset.IsEDF(entry.Name) {
			continue
		}
		files = append(files, entry.Name)
	}
	SortFiles(files)
	return files, nil
}

func (b *Batch) processFile(ctx context.Context, logger *slog.Logger, dir export.Directory, name string, index, count int) FileOutcome {
	outcome := FileOutcome{Name: name}
	fileLogger := logger.With(logging.Args(logging.File(name, index+1, count)...)...)

	rc, err := dir.Open(ctx, name)
	if err != nil {
		outcome.Err = faults.Wrap(faults.ErrDecode, "batch", "open", name, err)
		return outcome
	}
	ds, err := dataset.Load(ctx, name, rc, b.opts.Decoder, b.opts.EpochSeconds)
	_ = rc.Close()
	if err != nil {
		outcome.Err = err
		return outcome
	}

	base := textutil.BaseName(name)
	total := epoch.Total(ds, b.opts.Composer.Schema)
	outcome.Epochs = total
	b.update(func(p *Progress) { p.EpochCount = total })

	root := b.opts.Output
	if export.Missing(root) {
		root = dir
	}
	sub, err := root.Subdirectory(ctx, base)
	if err != nil {
		outcome.Err = faults.Wrap(faults.ErrExportWrite, "batch", "create subdirectory", base, err)
		return outcome
	}
	outcome.Output = sub.Name()

	sampler := logging.NewProgressSampler(10)
	for e := 0; e < total; e++ {
		if err := ctx.Err(); err != nil {
			outcome.Err = err
			return outcome
		}
		b.update(func(p *Progress) {
			p.EpochIndex = e + 1
			p.Message = fmt.Sprintf("File %s: epoch %d/%d", base, e+1, total)
		})
		b.log.Push(fmt.Sprintf("Rendering %s epoch %d/%d", base, e+1, total))

		data, err := encodeFrame(b.opts.Composer, ds, e)
		if err != nil {
			outcome.Err = faults.Wrap(faults.ErrExportWrite, "batch", "encode", fmt.Sprintf("%s epoch %d", base, e+1), err)
			return outcome
		}
		res, err := b.opts.Exporter.Export(context.WithoutCancel(ctx), sub, export.FileName(base, e), data)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		outcome.Exported++
		if res.Fallback {
			outcome.Fallbacks++
		}
		if sampler.ShouldLog(name, e+1, total) {
			fileLogger.Info("epoch exported", logging.Args(append(logging.Epoch(e+1, total), logging.String("path", res.Path))...)...)
		}
		if err := sleep(ctx, b.opts.InterEpochDelay); err != nil {
			outcome.Err = err
			return outcome
		}
	}
	return outcome
}

func (b *Batch) finish(ctx context.Context, logger *slog.Logger, result Result) {
	// Bookkeeping runs even when the batch was cancelled.
	ctx = context.WithoutCancel(ctx)
	b.record(ctx, logger, func(r Recorder) error { return r.FinishRun(ctx, result) })
	if b.opts.Notifier == nil || result.Status == StatusError {
		return
	}
	if err := b.opts.Notifier.NotifyBatchCompleted(ctx, result.Summary()); err != nil {
		logging.WarnWithContext(logger, "batch notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "no push notification for this run"),
		)
	}
}

func (b *Batch) record(ctx context.Context, logger *slog.Logger, fn func(Recorder) error) {
	if b.opts.Recorder == nil {
		return
	}
	if err := fn(b.opts.Recorder); err != nil {
		logging.WarnWithContext(logger, "journal write failed", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check journal.path permissions"),
			logging.String(logging.FieldImpact, "run history incomplete"),
		)
	}
}

func (b *Batch) setProgress(p Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress = p
}

func (b *Batch) update(fn func(*Progress)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.progress)
}

// SortFiles orders recording names for processing. Two names whose base
// names are both integers compare numerically ("2.edf" before "10.edf");
// any other pair compares by collation order.
func SortFiles(names []string) {
	col := collate.New(language.Und)
	slices.SortStableFunc(names, func(a, b string) int {
		na, errA := strconv.Atoi(textutil.BaseName(a))
		nb, errB := strconv.Atoi(textutil.BaseName(b))
		if errA == nil && errB == nil && na != nb {
			return cmp.Compare(na, nb)
		}
		if c := col.CompareString(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}
