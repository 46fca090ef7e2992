package journal_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"epochcap/internal/capture"
	"epochcap/internal/export"
	"epochcap/internal/faults"
	"epochcap/internal/journal"
	"epochcap/internal/render"
	"epochcap/internal/schema"
	"epochcap/internal/testsupport"
)

func TestJournalRecordsRun(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenJournal(t)
	started := time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC)

	if err := store.StartRun(ctx, "run-1", "studies", []string{"1.edf", "2.edf"}, started); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.RecordFile(ctx, "run-1", 0, capture.FileOutcome{Name: "1.edf", Output: "1", Epochs: 3, Exported: 3}); err != nil {
		t.Fatalf("RecordFile: %v", err)
	}
	decodeErr := faults.Wrap(faults.ErrDecode, "edf", "read header", "2.edf", nil)
	if err := store.RecordFile(ctx, "run-1", 1, capture.FileOutcome{Name: "2.edf", Err: decodeErr}); err != nil {
		t.Fatalf("RecordFile: %v", err)
	}
	result := capture.Result{
		RunID:      "run-1",
		Folder:     "studies",
		Status:     capture.StatusCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Files:      make([]capture.FileOutcome, 2),
	}
	if err := store.FinishRun(ctx, result); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err := store.Run(ctx, "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != "Completed" || run.FileCount != 2 || run.Duration() != 90*time.Second {
		t.Fatalf("run = %+v", run)
	}
	files, err := store.Files(ctx, "run-1")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 || files[0].Exported != 3 || files[0].OutputDir != "1" {
		t.Fatalf("files = %+v", files)
	}
	if files[1].Error != decodeErr.Error() || files[1].OutputDir != "" {
		t.Fatalf("failed file = %+v", files[1])
	}
}

func TestJournalRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenJournal(t)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		res := capture.Result{RunID: id, Folder: "f", Status: capture.StatusStopped, StartedAt: base.Add(time.Duration(i) * time.Hour), FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute)}
		if err := store.FinishRun(ctx, res); err != nil {
			t.Fatalf("FinishRun %s: %v", id, err)
		}
	}
	runs, err := store.Runs(ctx, 2)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("runs = %+v", runs)
	}
	all, _ := store.Runs(ctx, 0)
	if len(all) != 3 {
		t.Fatalf("all runs = %d", len(all))
	}
}

func TestJournalUnknownRun(t *testing.T) {
	store := testsupport.MustOpenJournal(t)
	if _, err := store.Run(context.Background(), "missing"); !errors.Is(err, journal.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestJournalReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	res := capture.Result{RunID: "keep", Folder: "f", Status: capture.StatusCompleted, StartedAt: time.Now(), FinishedAt: time.Now()}
	if err := store.FinishRun(context.Background(), res); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	_ = store.Close()

	store, err = journal.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if _, err := store.Run(context.Background(), "keep"); err != nil {
		t.Fatalf("run lost after reopen: %v", err)
	}
}

func TestOpenConfigDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Journal.Enabled = false
	store, err := journal.OpenConfig(cfg)
	if err != nil || store != nil {
		t.Fatalf("disabled journal: store=%v err=%v", store, err)
	}
}

func TestBatchWritesJournal(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteEDF(t, filepath.Join(root, "1.edf"),
		testsupport.Signal{Label: "Flow", SampleRate: 1, Samples: testsupport.Sine(60, 20, 12)},
	)
	testsupport.WriteFile(t, filepath.Join(root, "2.edf"), []byte("junk"))
	dir, err := export.NewOSDirectory(root)
	if err != nil {
		t.Fatalf("NewOSDirectory: %v", err)
	}
	store := testsupport.MustOpenJournal(t)
	batch := capture.NewBatch(capture.BatchOptions{
		Composer: render.NewComposer(schema.Default(), render.Size{Width: 32, Height: 42}),
		Recorder: store,
	})
	result, err := batch.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, err := store.Run(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Run lookup: %v", err)
	}
	if run.Status != string(capture.StatusCompleted) || run.FinishedAt == nil {
		t.Fatalf("run = %+v", run)
	}
	files, _ := store.Files(context.Background(), result.RunID)
	if len(files) != 2 || files[0].Exported != 2 || files[1].Error == "" {
		t.Fatalf("files = %+v", files)
	}
}
