package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/levelctl/internal/config"
)

var (
	dataDir    string
	configFile string
	preset     string
	brokerURL  string
	backend    string
	record     bool
	logLevel   string
	plotWidth  int
	plotHeight int

	sweepParam   string
	sweepFrom    float64
	sweepTo      float64
	sweepSteps   int
	sweepWorkers int
	sweepMetric  string
)

// main registers the commands and exits 1 when the selected one fails.
func main() {
	rootCmd := &cobra.Command{
		Use:          "levelctl",
		Short:        "tank level controller with observer-based state feedback",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".levelctl", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a named preset")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the controller against an MQTT broker",
		Args:  cobra.NoArgs,
		RunE:  runController,
	}
	runCmd.Flags().StringVar(&backend, "backend", "hardware", "plant backend: hardware or sim")
	runCmd.Flags().StringVar(&brokerURL, "broker", "", "broker url, e.g. tcp://localhost:1883")
	runCmd.Flags().BoolVar(&record, "record", false, "store the run when the controller exits")

	simulateCmd := &cobra.Command{
		Use:   "simulate [scenario.yaml]",
		Short: "play a scripted scenario against the simulated tank",
		Args:  cobra.MaximumNArgs(1),
		RunE:  simulateScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario.yaml]",
		Short: "replay a scenario across a range of one controller parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepScenario,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "K", "parameter to vary: K, Ke, Nx, Nu or rss")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 10, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 100, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "parallel runs (0 = one per cpu)")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "tracking_error", "metric to minimise")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run (latest when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 70, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write the samples of a stored run to stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportCSV,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "drive the simulated tank in real time from a dashboard",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the effective configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, simulateCmd, sweepCmd, listCmd, plotCmd, exportCSVCmd, liveCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, preset, file and flags, later ones winning.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p, err := config.GetPreset(preset)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg.ApplyEnv()
	}
	if brokerURL != "" {
		cfg.Broker.URL = brokerURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Validate()
}
