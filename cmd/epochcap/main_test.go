package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"epochcap/internal/export"
)

func TestCLIChannelsAndEpochs(t *testing.T) {
	env := setupCLITestEnv(t)
	rec := filepath.Join(env.baseDir, "night.edf")
	writeRecording(t, rec, 2*time.Minute)

	out, _, err := runCLI(t, []string{"channels", rec}, env.configPath)
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	requireContains(t, out, "C3-M2")
	requireContains(t, out, "SpO2")
	requireContains(t, out, "Saturation (85-100%)")

	out, _, err = runCLI(t, []string{"epochs", rec, "--epoch", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("epochs: %v", err)
	}
	requireContains(t, out, "Epochs: 4")
	requireContains(t, out, "Epoch 2/4: 30s-60s")
}

func TestCLIEpochSecondsOverride(t *testing.T) {
	env := setupCLITestEnv(t)
	rec := filepath.Join(env.baseDir, "night.edf")
	writeRecording(t, rec, 2*time.Minute)

	out, _, err := runCLI(t, []string{"--epoch-seconds", "60", "epochs", rec}, env.configPath)
	if err != nil {
		t.Fatalf("epochs: %v", err)
	}
	requireContains(t, out, "Epoch length: 60s")
	requireContains(t, out, "Epochs: 2")

	if _, _, err := runCLI(t, []string{"--epoch-seconds", "-5", "epochs", rec}, env.configPath); err == nil {
		t.Fatal("expected negative epoch length to be rejected")
	}
}

func TestCLICaptureWritesNumberedImages(t *testing.T) {
	env := setupCLITestEnv(t)
	rec := filepath.Join(env.baseDir, "night.edf")
	writeRecording(t, rec, 2*time.Minute)

	out, _, err := runCLI(t, []string{"capture", rec, "--epoch", "1", "--epoch", "9"}, env.configPath)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	requireContains(t, out, "Saved ")
	requireFile(t, filepath.Join(env.cfg.Paths.OutputDir, "edf_epoch_1.png"))
	// Out-of-range epochs clamp to the last one.
	requireFile(t, filepath.Join(env.cfg.Paths.OutputDir, "edf_epoch_4.png"))
}

func TestCLICaptureRejectsZeroEpoch(t *testing.T) {
	env := setupCLITestEnv(t)
	rec := filepath.Join(env.baseDir, "night.edf")
	writeRecording(t, rec, time.Minute)

	if _, _, err := runCLI(t, []string{"capture", rec, "--epoch", "0"}, env.configPath); err == nil {
		t.Fatal("expected epoch 0 to be rejected")
	}
}

func TestCLIAutoCapturesFromStart(t *testing.T) {
	env := setupCLITestEnv(t)
	rec := filepath.Join(env.baseDir, "night.edf")
	writeRecording(t, rec, 2*time.Minute)
	outDir := filepath.Join(env.baseDir, "auto")

	out, _, err := runCLI(t, []string{"auto", rec, "--start", "3", "--out", outDir}, env.configPath)
	if err != nil {
		t.Fatalf("auto: %v", err)
	}
	requireContains(t, out, "Auto capture finished")
	requireContains(t, out, "Captured 2 of 2 epochs starting at 3")
	requireFile(t, filepath.Join(outDir, "edf_epoch_3.png"))
	requireFile(t, filepath.Join(outDir, "edf_epoch_4.png"))
	if _, err := os.Stat(filepath.Join(outDir, "edf_epoch_1.png")); !os.IsNotExist(err) {
		t.Fatalf("expected epoch 1 to be skipped, stat err=%v", err)
	}
}

func TestCLIPreviewWritesStrip(t *testing.T) {
	env := setupCLITestEnv(t)
	rec := filepath.Join(env.baseDir, "night.edf")
	writeRecording(t, rec, time.Minute)
	target := filepath.Join(env.baseDir, "strip.png")

	out, _, err := runCLI(t, []string{"preview", rec, "--epoch", "2", "--width", "200", "--out", target}, env.configPath)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	requireContains(t, out, "Wrote "+target)
	requireFile(t, target)
}

func TestCLIBatchAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	folder := filepath.Join(env.baseDir, "study")
	writeRecording(t, filepath.Join(folder, "10.edf"), time.Minute)
	writeRecording(t, filepath.Join(folder, "9.edf"), time.Minute)
	if err := os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	out, _, err := runCLI(t, []string{"batch", folder, "--quiet"}, env.configPath)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	requireContains(t, out, "Batch Completed")
	requireContains(t, out, "Folder capture completed")
	requireContains(t, out, "2 files, 4 images")
	for _, name := range []string{"9/9_1.png", "9/9_2.png", "10/10_1.png", "10/10_2.png"} {
		requireFile(t, filepath.Join(folder, filepath.FromSlash(name)))
	}
	if _, err := os.Stat(filepath.Join(folder, export.LockFileName)); err != nil {
		t.Fatalf("expected lock file to remain as a marker: %v", err)
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []runView
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Status != "Completed" || runs[0].Files != 2 {
		t.Fatalf("unexpected history %+v", runs)
	}

	out, _, err = runCLI(t, []string{"history", "--jsonl"}, env.configPath)
	if err != nil {
		t.Fatalf("history jsonl: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var line runView
	if len(lines) != 1 || json.Unmarshal([]byte(lines[0]), &line) != nil || line.ID != runs[0].ID {
		t.Fatalf("unexpected jsonl history:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"history", runs[0].ID, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history detail json: %v", err)
	}
	var detail runView
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode history detail: %v\n%s", err, out)
	}
	if len(detail.Outcomes) != 2 || detail.Outcomes[0].Name != "9.edf" || detail.Outcomes[0].Exported != 2 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if _, _, err := runCLI(t, []string{"history", "--json", "--jsonl"}, env.configPath); err == nil {
		t.Fatal("expected --json and --jsonl to be mutually exclusive")
	}

	out, _, err = runCLI(t, []string{"history", runs[0].ID}, env.configPath)
	if err != nil {
		t.Fatalf("history detail: %v", err)
	}
	requireContains(t, out, "Status: Completed")
	// Numeric names sort numerically.
	if strings.Index(out, "9.edf") > strings.Index(out, "10.edf") {
		t.Fatalf("expected 9.edf before 10.edf:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--run", runs[0].ID, "-n", "200"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "batch finished")
}

func TestCLIBatchMissingFolder(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"batch", filepath.Join(env.baseDir, "missing")}, env.configPath)
	if err == nil {
		t.Fatal("expected missing folder to fail")
	}
	requireContains(t, err.Error(), "does not exist")
}

func TestCLIDoctorReportsMissingFolders(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail before the output folder exists")
	}
	requireContains(t, out, "Output directory")
	requireContains(t, out, "[ERROR]")

	for _, dir := range []string{env.cfg.Paths.OutputDir, env.cfg.Paths.FallbackDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	out, _, err = runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK]")
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "epochcap.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}

	t.Setenv("HOME", dir)
	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestCLISynthSkipsConfig(t *testing.T) {
	target := filepath.Join(t.TempDir(), "demo.edf")
	out, _, err := runCLI(t, []string{"--config", "/nonexistent/dir/config.toml", "synth", target, "--minutes", "1"}, "")
	if err != nil {
		t.Fatalf("synth: %v", err)
	}
	requireContains(t, out, "17 channels")
	requireFile(t, target)
}

func TestCLITestNotifyRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "ntfy_topic") {
		t.Fatalf("expected missing topic error, got %v", err)
	}
}
