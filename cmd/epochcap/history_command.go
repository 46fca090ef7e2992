package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"epochcap/internal/journal"
)

type runView struct {
	ID         string     `json:"id"`
	Folder     string     `json:"folder"`
	Status     string     `json:"status"`
	Files      int        `json:"file_count"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Outcomes   []fileView `json:"files,omitempty"`
}

type fileView struct {
	Name      string `json:"name"`
	OutputDir string `json:"output_dir,omitempty"`
	Epochs    int    `json:"epochs"`
	Exported  int    `json:"exported"`
	Fallbacks int    `json:"fallbacks"`
	Error     string `json:"error,omitempty"`
}

func newRunView(r journal.Run) runView {
	return runView{
		ID:         r.ID,
		Folder:     r.Folder,
		Status:     r.Status,
		Files:      r.FileCount,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit     int
		jsonMode  bool
		jsonLines bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show journaled folder batch runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.OpenConfig(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			if store == nil {
				return errors.New("journal is disabled (set journal.enabled = true)")
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				files, err := store.Files(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				view := newRunView(run)
				for _, f := range files {
					view.Outcomes = append(view.Outcomes, fileView{
						Name:      f.Name,
						OutputDir: f.OutputDir,
						Epochs:    f.Epochs,
						Exported:  f.Exported,
						Fallbacks: f.Fallbacks,
						Error:     f.Error,
					})
				}
				if jsonMode || jsonLines {
					return writeHistoryJSON(cmd.OutOrStdout(), view, jsonLines)
				}
				renderRunDetail(cmd, view, run.Duration())
				return nil
			}

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonMode || jsonLines {
				views := make([]runView, 0, len(runs))
				for _, r := range runs {
					views = append(views, newRunView(r))
				}
				return writeHistoryJSON(cmd.OutOrStdout(), views, jsonLines)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					r.Folder,
					r.Status,
					strconv.Itoa(r.FileCount),
					r.StartedAt.Local().Format("2006-01-02 15:04"),
					formatRunDuration(r),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Folder", "Status", "Files", "Started", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 lists all)")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&jsonLines, "jsonl", false, "Output one compact JSON object per run")
	cmd.MarkFlagsMutuallyExclusive("json", "jsonl")
	return cmd
}

// writeHistoryJSON writes v as indented JSON, or compact when lines is set.
// In lines mode a run list is written as one object per line.
func writeHistoryJSON(w io.Writer, v any, lines bool) error {
	enc := json.NewEncoder(w)
	if !lines {
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	views, ok := v.([]runView)
	if !ok {
		return enc.Encode(v)
	}
	for _, view := range views {
		if err := enc.Encode(view); err != nil {
			return err
		}
	}
	return nil
}
