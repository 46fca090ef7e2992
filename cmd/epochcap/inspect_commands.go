package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"epochcap/internal/dataset"
	"epochcap/internal/epoch"
	"epochcap/internal/fileutil"
	"epochcap/internal/render"
	"epochcap/internal/schema"
)

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "channels <file>",
		Short: "List a recording's channels and the row each one fills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := ctx.loadDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			comp, err := ctx.composer()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			rows := make([][]string, 0, len(ds.Channels))
			for i, ch := range ds.Channels {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					ch.RawLabel,
					ch.Name,
					formatRate(ch.SampleRate),
					strconv.Itoa(len(ch.Samples)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Label", "Canonical", "Rate (Hz)", "Samples"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
			))
			if dups := ds.Duplicates(); len(dups) > 0 {
				fmt.Fprintf(out, "Duplicate channels (first one is shown): %s\n", strings.Join(dups, ", "))
			}

			fmt.Fprintln(out, renderTable(
				[]string{"Row", "Name", "Height", "Channel"},
				assignmentRows(comp.Schema.Assign(ds)),
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func assignmentRows(assignments []schema.Assignment) [][]string {
	rows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		name := a.Row.Name
		if a.Row.Blank() {
			name = "(blank)"
		}
		channel := "-"
		if a.Channel != nil {
			channel = a.Channel.RawLabel
		}
		rows = append(rows, []string{
			strconv.Itoa(a.Index + 1),
			name,
			strconv.Itoa(a.Row.Height),
			channel,
		})
	}
	return rows
}

func newEpochsCommand(ctx *commandContext) *cobra.Command {
	var number int
	cmd := &cobra.Command{
		Use:   "epochs <file>",
		Short: "Report epoch counts for a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := ctx.loadDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			comp, err := ctx.composer()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			total := epoch.Total(ds, comp.Schema)
			fmt.Fprintf(out, "Recording: %s\n", ds.Source)
			fmt.Fprintf(out, "Epoch length: %ds\n", ds.EpochSeconds)
			fmt.Fprintf(out, "Epochs: %d\n", total)

			counts := epoch.PerRow(ds, comp.Schema)
			rows := make([][]string, 0, len(counts))
			for i, row := range comp.Schema {
				if row.Blank() {
					continue
				}
				rows = append(rows, []string{row.Name, strconv.Itoa(counts[i])})
			}
			fmt.Fprintln(out, renderTable([]string{"Row", "Epochs"}, rows, []columnAlignment{alignLeft, alignRight}))

			if number > 0 {
				index := epoch.Clamp(number-1, total)
				fmt.Fprintln(out, formatSpan(epoch.Range(ds, index), total))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&number, "epoch", "e", 0, "Also describe this epoch (1-based)")
	return cmd
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var (
		number int
		width  int
		target string
	)
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Render the viewer strip for one epoch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if number <= 0 {
				return fmt.Errorf("--epoch must be positive (got %d)", number)
			}
			ds, err := ctx.loadDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			comp, err := ctx.composer()
			if err != nil {
				return err
			}
			index := epoch.Clamp(number-1, epoch.Total(ds, comp.Schema))
			data, err := render.EncodePNG(comp.Preview(ds, index, width))
			if err != nil {
				return err
			}
			path := strings.TrimSpace(target)
			if path == "" {
				path = previewName(ds, index)
			}
			if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().IntVarP(&number, "epoch", "e", 1, "Epoch to render (1-based)")
	cmd.Flags().IntVar(&width, "width", render.PreviewWidth, "Strip width in pixels")
	cmd.Flags().StringVarP(&target, "out", "o", "", "Destination PNG (default <recording>_preview_<epoch>.png)")
	return cmd
}

func previewName(ds *dataset.Dataset, index int) string {
	base := strings.TrimSuffix(ds.Source, filepath.Ext(ds.Source))
	if base == "" {
		base = "recording"
	}
	return fmt.Sprintf("%s_preview_%d.png", base, index+1)
}

func formatSpan(span epoch.Span, total int) string {
	return fmt.Sprintf("Epoch %d/%d: %ds-%ds, %s samples %d-%d at %s Hz",
		span.Index+1, total,
		span.StartSeconds, span.EndSeconds,
		span.Channel, span.StartSample, span.EndSample,
		formatRate(span.SampleRate),
	)
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
