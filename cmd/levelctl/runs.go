package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/levelctl/internal/logging"
	"github.com/san-kum/levelctl/internal/scenario"
	"github.com/san-kum/levelctl/internal/storage"
	"github.com/san-kum/levelctl/internal/viz"
)

func simulateScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sc, err := loadScenario(args)
	if err != nil {
		return err
	}

	fmt.Printf("running scenario %s (%s)...\n", sc.Name, sc.Duration)
	res, err := scenario.Run(cmd.Context(), cfg, sc, logger)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Name:      sc.Name,
		Backend:   "scenario",
		Tick:      cfg.Loop.Tick.Seconds(),
		Params:    cfg.Parameters(),
		Reference: cfg.Controller.Reference,
		Metrics:   res.Metrics,
	}, res.Samples)
	if err != nil {
		return err
	}

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("samples: %d\n", len(res.Samples))
	fmt.Printf("final state: %s, level %.2f cm, estimate %.2f cm\n", res.Final, res.Level, res.Estimate)
	fmt.Printf("equilibrium under final command: %.2f cm\n", res.Equilibrium)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, res.Metrics[name])
	}
	return nil
}

func loadScenario(args []string) (*scenario.Scenario, error) {
	if len(args) == 1 {
		return scenario.Load(args[0])
	}
	return scenario.StepResponse(), nil
}

func sweepScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sc, err := loadScenario(args)
	if err != nil {
		return err
	}

	sw := scenario.Sweep{
		Param:   sweepParam,
		Values:  scenario.LinearValues(sweepFrom, sweepTo, sweepSteps),
		Workers: sweepWorkers,
	}
	fmt.Printf("sweeping %s over %d values on scenario %s...\n", sw.Param, len(sw.Values), sc.Name)
	results, err := scenario.RunSweep(cmd.Context(), cfg, sc, sw, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTRACKING\tSATURATION\tIN_BAND\tEFFORT\tFINAL\n", sw.Param)
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%.4f\t%.3f\t%.3f\t%.2f\t%s\n",
			r.Value,
			r.Metrics["tracking_error"],
			r.Metrics["saturation"],
			r.Metrics["in_band"],
			r.Metrics["control_effort"],
			r.Final,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best, ok := scenario.Best(results, sweepMetric); ok {
		fmt.Printf("\nbest %s=%.4f (%s %.6f)\n", sw.Param, best.Value, sweepMetric, best.Metrics[sweepMetric])
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBACKEND\tTIME\tDURATION\tSTEPS\tK\tKE\tRSS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%d\t%.4f\t%.4f\t%.2f\n",
			run.ID,
			run.Backend,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Steps,
			run.Params.K,
			run.Params.Ke,
			run.Reference,
		)
	}

	return w.Flush()
}

// resolveRun picks the run named in args, or the latest one.
func resolveRun(st *storage.Store, args []string) (*storage.RunMetadata, error) {
	if len(args) == 1 {
		return st.Load(args[0])
	}
	return st.Latest()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(meta.ID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("%s  (%s, %d steps, %.2fs)\n\n", meta.ID, meta.Backend, meta.Steps, meta.Duration)
	fmt.Print(viz.PlotRun(samples, plotWidth, plotHeight))
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	return st.CopySamples(os.Stdout, meta.ID)
}
