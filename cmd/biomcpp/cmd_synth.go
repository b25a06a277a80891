package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/biomcpp/internal/config"
	"github.com/san-kum/biomcpp/internal/resultfile"
	"github.com/san-kum/biomcpp/internal/results"
	"github.com/san-kum/biomcpp/internal/synth"
)

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth [name]",
		Short: "write a synthetic stirred-tank run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			params := a.cfg.Synth
			if cmd.Flags().Changed("preset") {
				name, _ := cmd.Flags().GetString("preset")
				p := config.GetPreset(name)
				if p == nil {
					return fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(config.ListPresets(), ", "))
				}
				params = *p
			}
			if cmd.Flags().Changed("ranks") {
				params.Ranks, _ = cmd.Flags().GetInt("ranks")
			}
			if cmd.Flags().Changed("seed") {
				params.Seed, _ = cmd.Flags().GetUint64("seed")
			}

			name := args[0]
			if force, _ := cmd.Flags().GetBool("force"); force {
				err := resultfile.Remove(a.cfg.ResultsRoot, name)
				if err != nil && !errors.Is(err, results.ErrRunNotFound) {
					return err
				}
			}

			sum, err := synth.Generate(cmd.Context(), a.cfg.ResultsRoot, name, params, a.log)
			if err != nil {
				return err
			}
			a.artifacts.Log(a.command, name, resultfile.MainFilePath(sum.Root, name))
			fmt.Fprintf(a.out, "%s: %d steps, %d ranks, %d particles, %d probes\n",
				resultfile.MainFilePath(sum.Root, name), sum.Steps, sum.Ranks, sum.Particles, sum.Probes)
			return nil
		},
	}
	cmd.Flags().String("preset", "", "use preset configuration")
	cmd.Flags().Int("ranks", 1, "number of partial files")
	cmd.Flags().Uint64("seed", 42, "random seed")
	cmd.Flags().Bool("force", false, "replace an existing run")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list synthetic run presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %6.0fs  %3d exports  %2d compartments  %d ranks\n",
					name, p.FinalTime, p.Exports, p.Compartments, p.Ranks)
			}
			return nil
		},
	}
}
