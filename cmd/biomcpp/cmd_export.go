package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/san-kum/biomcpp/internal/export"
)

// output opens the --output file, or returns the command's stdout when the
// flag is empty. The returned close function is never nil.
func (a *app) output(cmd *cobra.Command) (io.Writer, string, func() error, error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return a.out, "", func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, "", nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, "", nil, err
	}
	return f, path, f.Close, nil
}

func (a *app) written(run, path string) {
	if path == "" {
		return
	}
	a.artifacts.Log(a.command, run, path)
	a.log.Info("export written", "path", path)
}

func newTalliesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tallies [run]",
		Short: "export the event tallies of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			as, _ := cmd.Flags().GetString("as")
			if as != "csv" && as != "json" {
				return fmt.Errorf("unsupported tallies format %q (available: csv, json)", as)
			}

			r, err := a.openRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			tallies, err := r.Tallies()
			if err != nil {
				return err
			}
			w, path, closeFn, err := a.output(cmd)
			if err != nil {
				return err
			}
			if as == "csv" {
				err = export.WriteTalliesCSV(w, tallies)
			} else {
				err = export.WriteTalliesJSON(w, tallies, r.Events())
			}
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			a.written(r.Name(), path)
			return nil
		},
	}
	cmd.Flags().String("as", "csv", "output format (csv, json)")
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	return cmd
}

func newExportCSVCmd() *cobra.Command {
	return newExportCmd("export-csv", "export derived series as CSV", export.WriteCSV)
}

func newExportJSONCmd() *cobra.Command {
	return newExportCmd("export-json", "export derived series and their summary as JSON", export.WriteJSON)
}

func newExportCmd(use, short string, write func(io.Writer, *export.Table) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [run]",
		Short: short,
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

			tbl, err := export.Derived(r, r.Name())
			if err != nil {
				return err
			}
			a.log.Debug("series derived", "columns", len(tbl.Columns), "steps", len(tbl.Time))

			w, path, closeFn, err := a.output(cmd)
			if err != nil {
				return err
			}
			err = write(w, tbl)
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			a.written(r.Name(), path)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	return cmd
}
