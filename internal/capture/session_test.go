package capture_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"epochcap/internal/capture"
	"epochcap/internal/dataset"
	"epochcap/internal/export"
	"epochcap/internal/faults"
	"epochcap/internal/testsupport"
)

func threeEpochDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("night.edf", []dataset.Channel{
		{RawLabel: "Flow", SampleRate: 1, Samples: testsupport.Sine(90, 10, 15)},
	}, 30)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return ds
}

func newSession(t *testing.T) (*capture.Session, string) {
	t.Helper()
	out := t.TempDir()
	dir, err := export.NewOSDirectory(out)
	if err != nil {
		t.Fatalf("NewOSDirectory: %v", err)
	}
	return capture.NewSession(capture.SessionOptions{
		Composer: smallComposer(),
		Output:   dir,
	}), out
}

func TestSessionNavigation(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.GoTo(1); !errors.Is(err, faults.ErrNoDataset) {
		t.Fatalf("GoTo without dataset err = %v", err)
	}
	if err := s.Load(threeEpochDataset(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Total() != 3 {
		t.Fatalf("Total = %d, want 3", s.Total())
	}
	if got := s.Prev(); got != 0 {
		t.Fatalf("Prev at start = %d", got)
	}
	s.Next()
	s.Next()
	if got := s.Next(); got != 2 {
		t.Fatalf("Next at end = %d, want 2", got)
	}
	for _, bad := range []int{0, -4} {
		if _, err := s.GoTo(bad); !errors.Is(err, faults.ErrInvalidInput) {
			t.Fatalf("GoTo(%d) err = %v", bad, err)
		}
	}
	if got, _ := s.GoTo(99); got != 2 {
		t.Fatalf("GoTo(99) = %d, want 2", got)
	}
	if got, _ := s.GoTo(2); got != 1 {
		t.Fatalf("GoTo(2) = %d, want 1", got)
	}
	span, err := s.Span()
	if err != nil {
		t.Fatalf("Span: %v", err)
	}
	if span.StartSeconds != 30 || span.EndSeconds != 60 || span.StartSample != 30 || span.EndSample != 59 {
		t.Fatalf("span = %+v", span)
	}
}

func TestSessionSetEpochSecondsClamps(t *testing.T) {
	s, _ := newSession(t)
	if err := s.Load(threeEpochDataset(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.GoTo(3); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if err := s.SetEpochSeconds(60); err != nil {
		t.Fatalf("SetEpochSeconds: %v", err)
	}
	if s.Total() != 2 || s.Epoch() != 1 {
		t.Fatalf("total=%d epoch=%d", s.Total(), s.Epoch())
	}
}

func TestSessionCapture(t *testing.T) {
	s, out := newSession(t)
	if _, err := s.Capture(context.Background()); !errors.Is(err, faults.ErrNoDataset) {
		t.Fatalf("capture without dataset err = %v", err)
	}
	if err := s.Load(threeEpochDataset(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Next()
	res, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if res.Fallback || res.Path != filepath.Join(out, "edf_epoch_2.png") {
		t.Fatalf("result = %+v", res)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Fatalf("capture missing: %v", err)
	}
}

func TestSessionAutoCapture(t *testing.T) {
	s, out := newSession(t)
	if s.StartAuto(context.Background()) {
		t.Fatal("StartAuto without dataset should be a no-op")
	}
	if err := s.Load(threeEpochDataset(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.StartAuto(context.Background()) {
		t.Fatal("StartAuto should start")
	}
	if s.StartAuto(context.Background()) {
		t.Fatal("second StartAuto should be a no-op")
	}
	if err := s.Load(threeEpochDataset(t)); !errors.Is(err, faults.ErrBusy) {
		t.Fatalf("Load during auto-capture err = %v, want ErrBusy", err)
	}

	summary := s.Wait()
	if summary.Captured != 3 || summary.Failed != 0 || summary.Cancelled {
		t.Fatalf("summary = %+v", summary)
	}
	if s.State() != capture.StateIdle || s.Epoch() != 2 {
		t.Fatalf("state=%s epoch=%d", s.State(), s.Epoch())
	}
	for _, n := range []string{"edf_epoch_1.png", "edf_epoch_2.png", "edf_epoch_3.png"} {
		if _, err := os.Stat(filepath.Join(out, n)); err != nil {
			t.Fatalf("missing %s: %v", n, err)
		}
	}
}

func TestSessionAutoCaptureCancel(t *testing.T) {
	out := t.TempDir()
	dir, _ := export.NewOSDirectory(out)
	s := capture.NewSession(capture.SessionOptions{
		Composer:  smallComposer(),
		Output:    dir,
		AutoDelay: time.Hour,
	})
	if err := s.Load(threeEpochDataset(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.StartAuto(context.Background()) {
		t.Fatal("StartAuto should start")
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filepath.Join(out, "edf_epoch_1.png")); err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.CancelAuto()
	summary := s.Wait()
	if !summary.Cancelled || summary.Captured != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if s.State() != capture.StateIdle {
		t.Fatalf("state = %s, want idle", s.State())
	}
	if err := s.Load(threeEpochDataset(t)); err != nil {
		t.Fatalf("Load after cancel: %v", err)
	}
}
