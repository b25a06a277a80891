package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/biomcpp/internal/analysis"
	"github.com/san-kum/biomcpp/internal/export"
	"github.com/san-kum/biomcpp/internal/figures"
	"github.com/san-kum/biomcpp/internal/metrics"
	"github.com/san-kum/biomcpp/internal/resultfile"
	"github.com/san-kum/biomcpp/internal/timeunit"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list runs under the results root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := resultfile.List(cmd.Context(), a.cfg.ResultsRoot)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Fprintf(a.out, "no runs found in %s\n", a.cfg.ResultsRoot)
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTEPS\tCOMP\tSPECIES\tRANKS\tFINAL\tGAS\tMODIFIED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.4g\t%t\t%s\n",
					r.Name,
					r.Steps,
					r.Compartments,
					r.Species,
					r.NRank,
					r.FinalTime,
					r.HasGas,
					r.ModTime.Format("2006-01-02 15:04:05"),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	return cmd
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [run]",
		Short: "summarize a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := resultfile.Describe(cmd.Context(), a.cfg.ResultsRoot, args[0])
			if err != nil {
				return err
			}
			r, err := a.openRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			ts := timeunit.Normalize(r.Time())
			keys := []string{"steps", "final time", "compartments", "species", "ranks", "gas phase", "properties", "particle steps", "weight"}
			values := []string{
				strconv.Itoa(info.Steps),
				fmt.Sprintf("%.4g %s", ts.Last(), ts.Unit),
				strconv.Itoa(info.Compartments),
				strconv.Itoa(info.Species),
				strconv.Itoa(info.NRank),
				strconv.FormatBool(info.HasGas),
				fmt.Sprint(r.PropertyNames()),
				strconv.Itoa(r.MaxNExportBio()),
				strconv.FormatFloat(r.Weight().Single, 'g', 6, 64),
			}
			events := r.Events()
			for _, name := range export.EventNames(events) {
				keys = append(keys, "events."+name)
				values = append(values, strconv.FormatUint(events[name], 10))
			}
			fmt.Fprintln(a.out, figures.KeyValues(info.Name, keys, values))

			biomass, err := analysis.SpatialAverageBiomass(r)
			if err != nil {
				a.log.Debug("no biomass summary", "error", err)
				return nil
			}
			summary := metrics.Summarize(ts.Values, biomass, metrics.Standard()...)
			names := metrics.Names(summary)
			vals := make([]string, len(names))
			for i, n := range names {
				vals[i] = strconv.FormatFloat(summary[n], 'g', 6, 64)
			}
			fmt.Fprintln(a.out, figures.KeyValues("biomass [g/L]", names, vals))
			fmt.Fprintln(a.out, figures.Label.Render("biomass "+figures.Sparkline(biomass)))
			a.preview(cmd, biomass, "biomass concentration")
			return nil
		},
	}
	cmd.Flags().Bool("ascii", false, "print an ascii chart of the biomass")
	return cmd
}
