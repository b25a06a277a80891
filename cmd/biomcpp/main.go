package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"

	"github.com/san-kum/biomcpp/internal/config"
	"github.com/san-kum/biomcpp/internal/figures"
	"github.com/san-kum/biomcpp/internal/logging"
	"github.com/san-kum/biomcpp/internal/resultfile"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "biomcpp",
		Short: "post-processing for particle/biomass simulation runs",
		Long: `biomcpp reads the results of particle/biomass simulation runs and
derives biomass concentration, population statistics and residence-time
distributions, rendered as figures or exported as CSV/JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	rootCmd.PersistentFlags().String("root", config.DefaultResultsRoot, "results root directory")
	rootCmd.PersistentFlags().String("out", config.DefaultOutputDir, "figure output directory")
	rootCmd.PersistentFlags().String("format", config.DefaultFigureFormat, "figure format (svg, png)")
	rootCmd.PersistentFlags().String("config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level (info, debug, trace)")

	rootCmd.AddCommand(
		newListCmd(),
		newInfoCmd(),
		newBiomassCmd(),
		newConcentrationCmd(),
		newMeanCmd(),
		newGrowthCmd(),
		newHistCmd(),
		newRTDCmd(),
		newConcatCmd(),
		newTalliesCmd(),
		newExportCSVCmd(),
		newExportJSONCmd(),
		newSynthCmd(),
		newPresetsCmd(),
	)
	return rootCmd
}

// app is the per-command environment resolved from config file, env and flags.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	artifacts *logging.ArtifactLogger
	format    figures.Format
	out       io.Writer
	command   string
}

// loadApp layers the config file, BIOMC_* variables and explicitly set
// flags, in that order.
func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("root") {
		cfg.ResultsRoot, _ = cmd.Flags().GetString("root")
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir, _ = cmd.Flags().GetString("out")
	}
	if cmd.Flags().Changed("format") {
		cfg.FigureFormat, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}

	format, err := figures.ParseFormat(cfg.FigureFormat)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
	logger.Debug("configuration loaded",
		"root", cfg.ResultsRoot, "out", cfg.OutputDir, "format", format, "config", path)

	return &app{
		cfg:       cfg,
		log:       logger,
		artifacts: logging.NewArtifactLogger(cfg.OutputDir, cfg.LogLevel),
		format:    format,
		out:       cmd.OutOrStdout(),
		command:   cmd.Name(),
	}, nil
}

func (a *app) Close() {
	a.artifacts.Close()
}

func (a *app) openRun(ctx context.Context, name string) (*resultfile.Run, error) {
	r, err := resultfile.Open(ctx, name, a.cfg.ResultsRoot, resultfile.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	a.log.Debug("run opened", "name", name, "steps", r.NExport(), "ranks", r.Main().Misc.NRank)
	return r, nil
}

// save writes p under the output directory and reports the path.
func (a *app) save(p *plot.Plot, run, name string) error {
	path, err := figures.Save(p, a.cfg.OutputDir, name, a.format)
	if err != nil {
		return err
	}
	a.artifacts.Log(a.command, run, path)
	a.log.Info("figure written", "path", path)
	fmt.Fprintln(a.out, path)
	return nil
}

// preview prints an ascii chart when --ascii is set.
func (a *app) preview(cmd *cobra.Command, values []float64, caption string) {
	if ascii, _ := cmd.Flags().GetBool("ascii"); ascii {
		if g := figures.Terminal(values, caption); g != "" {
			fmt.Fprintln(a.out, g)
		}
	}
}
