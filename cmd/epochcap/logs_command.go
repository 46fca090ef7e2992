package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"epochcap/internal/logging"
	"epochcap/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		runID  string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the epochcap log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			result, err := logs.Tail(path, logs.TailOptions{Limit: lines, Match: runID})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printLines(out, result.Lines)
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, result.Offset, runID, logs.DefaultPoll, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines from this run id")
	return cmd
}
