package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/gatebridge/internal/storage"
	"github.com/san-kum/gatebridge/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := runStore().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tACTUATORS\tTICKS\tTRIPS\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f\t%s\n",
			r.ID, r.Model, r.Actuators, r.Ticks, r.Metrics["watchdog_trips"],
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := runStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	trace, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}

	plot, err := viz.PlotChannel(trace, channel, 70, 12)
	if err != nil {
		return err
	}
	fmt.Printf("run %s (%s, %d actuators, %d ticks)\n\n", meta.ID, meta.Model, meta.Actuators, meta.Ticks)
	fmt.Println(plot)
	fmt.Println()
	fmt.Println(viz.Summary(trace, 40))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := runStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	trace, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "csv":
		err = storage.WriteCSV(w, trace)
	case "json":
		err = storage.ExportJSON(w, meta, trace)
	case "svg":
		var svg string
		svg, err = viz.TraceSVG(trace, channel, 800, 400)
		if err == nil {
			_, err = io.WriteString(w, svg)
		}
	default:
		return fmt.Errorf("unknown format %q (csv, json, svg)", format)
	}
	if err != nil {
		return err
	}
	if outFile != "" {
		fmt.Fprintf(os.Stderr, "exported %d rows to %s\n", len(trace.Rows), outFile)
	}
	return nil
}

func diffRuns(cmd *cobra.Command, args []string) error {
	st := runStore()
	a, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	b, err := st.LoadTrace(args[1])
	if err != nil {
		return err
	}

	d, err := storage.Compare(a, b, tolerance)
	if err != nil {
		return err
	}
	if d != nil {
		return fmt.Errorf("runs diverge at %s", d)
	}
	if tolerance == 0 {
		fmt.Printf("%d rows, commands bit-identical\n", len(a.Rows))
	} else {
		fmt.Printf("%d rows, commands within %g\n", len(a.Rows), tolerance)
	}
	return nil
}
