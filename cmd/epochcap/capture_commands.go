package main

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"epochcap/internal/capture"
	"epochcap/internal/logging"
)

// newSession loads path into a session that writes to outDir or the
// configured output folder.
func (c *commandContext) newSession(cmd *cobra.Command, path, outDir string) (*capture.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	comp, err := c.composer()
	if err != nil {
		return nil, err
	}
	output, err := c.outputDir(outDir)
	if err != nil {
		return nil, err
	}
	ds, err := c.loadDataset(cmd.Context(), path)
	if err != nil {
		return nil, err
	}
	session := capture.NewSession(capture.SessionOptions{
		Composer:    comp,
		Exporter:    c.exporter(),
		Output:      output,
		Prefix:      cfg.Capture.FilePrefix,
		SettleDelay: cfg.SettleDelay(),
		AutoDelay:   cfg.AutoDelay(),
		Logger:      c.loggerFor(),
	})
	if err := session.Load(ds); err != nil {
		return nil, err
	}
	return session, nil
}

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var (
		numbers []int
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "capture <file>",
		Short: "Export one or more epochs as full-frame images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.newSession(cmd, args[0], outDir)
			if err != nil {
				return err
			}
			if len(numbers) == 0 {
				numbers = []int{1}
			}
			out := cmd.OutOrStdout()
			total := session.Total()
			for _, n := range numbers {
				if _, err := session.GoTo(n); err != nil {
					return err
				}
				span, err := session.Span()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, formatSpan(span, total))
				res, err := session.Capture(cmd.Context())
				if err != nil {
					return err
				}
				if res.Fallback {
					fmt.Fprintf(out, "Saved %s (fallback folder)\n", res.Path)
				} else {
					fmt.Fprintf(out, "Saved %s\n", res.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVarP(&numbers, "epoch", "e", nil, "Epoch numbers to capture (1-based, repeatable; default 1)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output folder (default paths.output_dir)")
	return cmd
}

func newAutoCommand(ctx *commandContext) *cobra.Command {
	var (
		start  int
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "auto <file>",
		Short: "Capture every epoch from a starting point to the end",
		Long: `Capture every epoch from --start to the last epoch, pausing
capture.settle_delay_ms before and capture.auto_delay_ms after each one.
Press Ctrl-C to stop; the image being written still completes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.newSession(cmd, args[0], outDir)
			if err != nil {
				return err
			}
			if _, err := session.GoTo(start); err != nil {
				return err
			}
			runCtx := logging.ContextWithRunID(cmd.Context(), uuid.NewString())
			if !session.StartAuto(runCtx) {
				return fmt.Errorf("auto capture could not start")
			}
			summary := session.Wait()

			out := cmd.OutOrStdout()
			printLines(out, session.Logs())
			fmt.Fprintf(out, "Captured %d of %d epochs starting at %d", summary.Captured, session.Total()-summary.Start, summary.Start+1)
			if summary.Failed > 0 {
				fmt.Fprintf(out, ", %d failed", summary.Failed)
			}
			if summary.Cancelled {
				fmt.Fprint(out, " (cancelled)")
			}
			fmt.Fprintln(out)
			if summary.Failed > 0 {
				return fmt.Errorf("%d epochs failed to export", summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&start, "start", "s", 1, "First epoch to capture (1-based)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output folder (default paths.output_dir)")
	return cmd
}

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
