package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"epochcap/internal/config"
	"epochcap/internal/synth"
)

func newSynthCommand() *cobra.Command {
	var (
		minutes int
		seed    uint64
	)
	cmd := &cobra.Command{
		Use:         "synth <path.edf>",
		Short:       "Write a synthetic PSG recording for trying out captures",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if minutes <= 0 {
				return fmt.Errorf("--minutes must be positive (got %d)", minutes)
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			opts := synth.Options{Duration: time.Duration(minutes) * time.Minute, Seed: seed}
			if err := synth.WriteFile(path, opts); err != nil {
				return fmt.Errorf("write recording: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d channels, %d min)\n", path, len(synth.Montage()), minutes)
			return nil
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", int(synth.DefaultDuration/time.Minute), "Recording length in minutes")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Noise seed")
	return cmd
}
