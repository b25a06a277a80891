package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/biomcpp/internal/analysis"
	"github.com/san-kum/biomcpp/internal/figures"
	"github.com/san-kum/biomcpp/internal/resultfile"
	"github.com/san-kum/biomcpp/internal/results"
	"github.com/san-kum/biomcpp/internal/rtd"
	"github.com/san-kum/biomcpp/internal/timeunit"
)

// agreementTolerance is the relative tolerance between the loop and
// vectorized population means.
const agreementTolerance = 1e-9

func newBiomassCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biomass [run]",
		Short: "plot biomass concentration over time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.openRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			ts := timeunit.Normalize(r.Time())
			if cmd.Flags().Changed("compartment") {
				compartment, _ := cmd.Flags().GetInt("compartment")
				local, err := analysis.LocalBiomass(r, compartment)
				if err != nil {
					return err
				}
				p, err := figures.LocalBiomassConcentration(ts, local, compartment)
				if err != nil {
					return err
				}
				a.preview(cmd, local, fmt.Sprintf("biomass, compartment %d", compartment))
				return a.save(p, r.Name(), fmt.Sprintf("%s_%d", figures.LocalBiomassFile, compartment))
			}

			total, err := analysis.TotalBiomass(r)
			if err != nil {
				return err
			}
			p, err := figures.BiomassConcentration(ts, total)
			if err != nil {
				return err
			}
			a.preview(cmd, total, "biomass concentration")
			return a.save(p, r.Name(), figures.BiomassFile)
		},
	}
	cmd.Flags().Int("compartment", 0, "plot a single compartment")
	cmd.Flags().Bool("ascii", false, "also print an ascii chart")
	return cmd
}

func newConcentrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concentration [run]",
		Short: "plot the spatial average concentration of a species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			species, _ := cmd.Flags().GetInt("species")
			phaseName, _ := cmd.Flags().GetString("phase")
			phase, err := results.ParsePhase(phaseName)
			if err != nil {
				return err
			}

			r, err := a.openRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			if cmd.Flags().Changed("time-average") {
				position, _ := cmd.Flags().GetInt("time-average")
				profile, err := analysis.TimeAverage(r, species, position, phase)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, formatFloats(profile))
				return nil
			}

			ts := timeunit.Normalize(r.Time())
			values, err := analysis.SpatialAverage(r, species, phase)
			if err != nil {
				return err
			}
			p, err := figures.Concentration(ts, values, species, phase)
			if err != nil {
				return err
			}
			a.preview(cmd, values, fmt.Sprintf("species %d (%s)", species, phase))
			if err := a.save(p, r.Name(), fmt.Sprintf("%s_%s_%d", figures.ConcentrationFile, phase, species)); err != nil {
				return err
			}

			if variance, _ := cmd.Flags().GetBool("variance"); variance {
				h, err := analysis.ConcentrationHeterogeneity(r, species, phase)
				if err != nil {
					return err
				}
				p, err := figures.Series("Concentration heterogeneity", "Variance [(g/L)²]", ts,
					[]string{fmt.Sprintf("Species %d", species)}, h.Variance)
				if err != nil {
					return err
				}
				return a.save(p, r.Name(), fmt.Sprintf("variance_%s_%d", phase, species))
			}
			return nil
		},
	}
	cmd.Flags().Int("species", 0, "species index")
	cmd.Flags().String("phase", "liquid", "phase (liquid, gas)")
	cmd.Flags().Int("time-average", 0, "print the time-averaged profile at this compartment instead of plotting")
	cmd.Flags().Bool("variance", false, "also plot the volume-weighted variance")
	cmd.Flags().Bool("ascii", false, "also print an ascii chart")
	return cmd
}

func parseEstimator(s string) (results.Estimator, error) {
	switch strings.ToLower(s) {
	case "mc", "montecarlo", "monte_carlo":
		return results.MonteCarlo, nil
	case "weighted":
		return results.Weighted, nil
	}
	return 0, fmt.Errorf("unknown estimator %q (available: mc, weighted)", s)
}

func newMeanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mean [run]",
		Short: "plot the population mean of a particle property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			key, _ := cmd.Flags().GetString("key")
			r, err := a.openRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			var mean []float64
			if cmd.Flags().Changed("estimator") {
				name, _ := cmd.Flags().GetString("estimator")
				kind, err := parseEstimator(name)
				if err != nil {
					return err
				}
				if mean, err = analysis.EstimateTime(r, kind, key); err != nil {
					return err
				}
			} else if mean, err = analysis.PopulationMeanVectorized(r, key); err != nil {
				return err
			}

			if check, _ := cmd.Flags().GetBool("check"); check {
				loop, err := analysis.PopulationMeanLoop(r, key)
				if err != nil {
					return err
				}
				vec, err := analysis.PopulationMeanVectorized(r, key)
				if err != nil {
					return err
				}
				if err := analysis.CheckAgreement(loop, vec, agreementTolerance); err != nil {
					return err
				}
				a.log.Info("loop and vectorized means agree", "key", key, "steps", len(vec))
			}

			p, err := figures.PopulationMean(timeunit.Normalize(r.Time()), mean, key)
			if err != nil {
				return err
			}
			a.preview(cmd, mean, "mean "+key)
			return a.save(p, r.Name(), fmt.Sprintf("%s_%s", figures.PopulationMeanFile, key))
		},
	}
	cmd.Flags().String("key", "mass", "particle property")
	cmd.Flags().Bool("check", false, "verify the loop and vectorized means agree")
	cmd.Flags().String("estimator", "", "use an estimator instead of the plain mean (mc, weighted)")
	cmd.Flags().Bool("ascii", false, "also print an ascii chart")
	return cmd
}

func newGrowthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "growth [run]",
		Short: "plot particle count and specific growth rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.openRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			ts := timeunit.Normalize(r.Time())
			number := analysis.GrowthInNumber(r)
			p, err := figures.Series("Number of particles", "Particles", ts, []string{"Particles"}, number)
			if err != nil {
				return err
			}
			if err := a.save(p, r.Name(), "growth_in_number"); err != nil {
				return err
			}

			mu, err := analysis.GrowthRate(r)
			if errors.Is(err, results.ErrNotAvailable) {
				a.log.Warn("growth rate skipped", "reason", err)
				return nil
			}
			if err != nil {
				return err
			}
			if ts.Unit == timeunit.Hours {
				for i := range mu {
					mu[i] *= timeunit.SecondsPerHour
				}
			}
			p, err = figures.Series("Specific growth rate", fmt.Sprintf("μ [1/%s]", ts.Unit), ts, []string{"μ"}, mu)
			if err != nil {
				return err
			}
			a.preview(cmd, mu, "growth rate")
			return a.save(p, r.Name(), "growth_rate")
		},
	}
	cmd.Flags().Bool("ascii", false, "also print an ascii chart")
	return cmd
}

func newHistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hist [run]",
		Short: "plot the histogram of a particle property at one export step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			key, _ := cmd.Flags().GetString("key")
			bins, _ := cmd.Flags().GetInt("bins")
			if !cmd.Flags().Changed("bins") {
				bins = a.cfg.HistogramBins
			}
			iExport, _ := cmd.Flags().GetInt("export")
			density, _ := cmd.Flags().GetBool("density")
			scale, _ := cmd.Flags().GetFloat64("scale")

			r, err := a.openRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			if iExport < 0 {
				iExport = r.MaxNExportBio() - 1
			}
			h, err := analysis.Histogram(r, bins, iExport, key, scale)
			if err != nil {
				return err
			}
			p, err := figures.HistogramBars(h, density, key, key)
			if err != nil {
				return err
			}
			return a.save(p, r.Name(), fmt.Sprintf("%s_%s_%d", figures.HistogramFile, key, iExport))
		},
	}
	cmd.Flags().String("key", "mass", "particle property")
	cmd.Flags().Int("bins", 50, "number of bins")
	cmd.Flags().Int("export", -1, "export step (-1 for the last step with particles)")
	cmd.Flags().Bool("density", false, "normalize bars to unit area")
	cmd.Flags().Float64("scale", 1, "multiply bin edges by this factor")
	return cmd
}

func newRTDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rtd [run]",
		Short: "compare scalar and particle residence-time distributions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			step := a.cfg.RTDStep
			if cmd.Flags().Changed("step") {
				step, _ = cmd.Flags().GetFloat64("step")
			}

			r, err := a.openRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			scalar, err := rtd.FromScalarRun(r, timeunit.Normalize(r.Time()), step)
			if err != nil {
				return err
			}
			particles, err := rtd.FromParticleRun(r)
			if err != nil {
				return err
			}
			scalar = scalar.In(timeunit.Hours)
			a.log.Debug("rtd estimated", "step", step, "samples", len(scalar.E), "bins", particles.Bins())

			p, err := figures.RTD(scalar, particles)
			if err != nil {
				return err
			}
			a.preview(cmd, scalar.E, "E(t) [1/h], scalar")
			return a.save(p, r.Name(), figures.RTDFile)
		},
	}
	cmd.Flags().Float64("step", 0, "tracer step concentration (default from config)")
	cmd.Flags().Bool("ascii", false, "also print an ascii chart of E(t)")
	return cmd
}

func newConcatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concat [run...]",
		Short: "plot biomass over several runs joined end to end",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := resultfile.OpenConcat(cmd.Context(), args, a.cfg.ResultsRoot, resultfile.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer c.Close()

			ends, err := c.TimeEnd()
			if err != nil {
				return err
			}
			for i, end := range ends {
				a.log.Debug("run joined", "name", args[i], "time_end", end)
			}

			biomass, err := analysis.SpatialAverageBiomass(c)
			if err != nil {
				return err
			}
			p, err := figures.BiomassConcentration(timeunit.Normalize(c.Time()), biomass)
			if err != nil {
				return err
			}
			a.preview(cmd, biomass, "biomass concentration")
			return a.save(p, strings.Join(args, "+"), "concat_"+figures.BiomassFile)
		},
	}
	cmd.Flags().Bool("ascii", false, "also print an ascii chart")
	return cmd
}

func formatFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', 6, 64)
	}
	return strings.Join(parts, " ")
}
