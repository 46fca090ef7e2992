package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"epochcap/internal/capture"
	"epochcap/internal/config"
	"epochcap/internal/export"
	"epochcap/internal/journal"
	"epochcap/internal/logging"
	"epochcap/internal/notifications"
	"epochcap/internal/preflight"
)

const progressPollInterval = 250 * time.Millisecond

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		outDir   string
		logLines int
		quiet    bool
	)
	cmd := &cobra.Command{
		Use:   "batch <folder>",
		Short: "Capture every epoch of every EDF recording in a folder",
		Long: `Capture every epoch of every .edf recording in a folder. Each recording
gets its own subfolder named after the file; images are named
<recording>_<epoch>.png. Press Ctrl-C to stop after the current epoch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			folder, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve folder: %w", err)
			}
			if check := preflight.CheckDirectoryAccess("Batch folder", folder); !check.Passed {
				return fmt.Errorf("batch folder unavailable: %s", check.Detail)
			}
			dir, err := export.NewOSDirectory(folder)
			if err != nil {
				return err
			}
			lock, err := export.LockDirectory(folder)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			comp, err := ctx.composer()
			if err != nil {
				return err
			}
			logger := ctx.loggerFor()
			notifier := notifications.NewService(cfg)
			opts := capture.BatchOptions{
				Composer:        comp,
				EpochSeconds:    cfg.Capture.EpochSeconds,
				Exporter:        ctx.exporter(),
				InterEpochDelay: cfg.InterEpochDelay(),
				InterFileDelay:  cfg.InterFileDelay(),
				Logger:          logger,
				Notifier:        notifier,
			}
			if outDir != "" {
				output, err := ctx.outputDir(outDir)
				if err != nil {
					return err
				}
				opts.Output = output
			}
			store, err := journal.OpenConfig(cfg)
			if err != nil {
				logging.WarnWithContext(logger, "journal unavailable; run will not be recorded", "journal_unavailable",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check journal.path or run epochcap doctor"),
					logging.String(logging.FieldImpact, "history will not list this run"),
				)
			} else if store != nil {
				defer store.Close()
				opts.Recorder = store
			}

			batch := capture.NewBatch(opts)
			stopProgress := func() {}
			if !quiet {
				stopProgress = watchProgress(cmd.Context(), batch, cmd.ErrOrStderr())
			}
			result, runErr := batch.Run(cmd.Context(), dir)
			stopProgress()

			out := cmd.OutOrStdout()
			renderBatchResult(out, batch, result, logLines, shouldColorize(out))
			if runErr != nil {
				if notifyErr := notifier.NotifyError(context.WithoutCancel(cmd.Context()), runErr, "batch "+dir.Name()); notifyErr != nil {
					logger.Debug("error notification failed", logging.Error(notifyErr))
				}
				return runErr
			}
			if failed := result.FailedFiles(); failed > 0 {
				return fmt.Errorf("%d of %d recordings failed", failed, len(result.Files))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write recording subfolders here instead of inside the batch folder")
	cmd.Flags().IntVar(&logLines, "log-lines", 20, "Run log lines to print when the batch ends (0 prints none)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress while running")
	return cmd
}

// watchProgress prints the batch message whenever it changes. The returned
// func stops the watcher and waits for it to exit.
func watchProgress(ctx context.Context, batch *capture.Batch, w io.Writer) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(progressPollInterval)
		defer ticker.Stop()
		sampler := logging.NewProgressSampler(10)
		last := ""
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			p := batch.Progress()
			if p.Message != last {
				last = p.Message
				fmt.Fprintln(w, p.Message)
			}
			if p.EpochCount > 0 && sampler.ShouldLog(strconv.Itoa(p.FileIndex), p.EpochIndex, p.EpochCount) {
				fmt.Fprintf(w, "  epoch %d/%d\n", p.EpochIndex, p.EpochCount)
			}
		}
	}()
	return func() {
		close(stop)
		<-done
	}
}

func renderBatchResult(w io.Writer, batch *capture.Batch, result capture.Result, logLines int, colorize bool) {
	if logLines > 0 {
		entries := batch.Logs()
		if len(entries) > logLines {
			entries = entries[len(entries)-logLines:]
		}
		for _, line := range renderSectionHeader("Run log", colorize) {
			fmt.Fprintln(w, line)
		}
		for _, e := range entries {
			fmt.Fprintln(w, e.String())
		}
		fmt.Fprintln(w)
	}

	if len(result.Files) > 0 {
		rows := make([][]string, 0, len(result.Files))
		for _, f := range result.Files {
			rows = append(rows, fileOutcomeRow(f))
		}
		fmt.Fprintln(w, renderTable(
			[]string{"File", "Epochs", "Exported", "Fallback", "Result"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
		))
	}

	failed := result.FailedFiles()
	message := fmt.Sprintf("%d files, %d images in %s", len(result.Files), result.Images(), result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	if failed > 0 {
		message += fmt.Sprintf(", %d failed", failed)
	}
	if result.Err != nil {
		message = result.Err.Error()
	}
	fmt.Fprintln(w, renderStatusLine("Batch "+string(result.Status), batchStatusKind(result.Status, failed), message, colorize))
	if result.RunID != "" {
		fmt.Fprintf(w, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Run:", result.RunID)
	}
}

func fileOutcomeRow(f capture.FileOutcome) []string {
	status := "ok"
	switch {
	case f.Failed():
		status = f.Err.Error()
	case f.Err != nil:
		status = "stopped"
	}
	return []string{
		f.Name,
		strconv.Itoa(f.Epochs),
		strconv.Itoa(f.Exported),
		strconv.Itoa(f.Fallbacks),
		status,
	}
}
