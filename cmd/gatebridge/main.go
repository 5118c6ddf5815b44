package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/gatebridge/internal/bridge"
	"github.com/san-kum/gatebridge/internal/config"
	"github.com/san-kum/gatebridge/internal/storage"
	"github.com/san-kum/gatebridge/internal/telemetry"
	"github.com/san-kum/gatebridge/internal/tune"
	"github.com/san-kum/gatebridge/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFormat  string

	model      string
	integrator string
	actuators  int
	dt         float64

	ticks     uint64
	timeoutMs uint64
	kp        float64
	kd        float64
	cpu       int

	metricsAddr string
	feedFile    string
	withTUI     bool
	palette     string

	channel   int
	outFile   string
	format    string
	tolerance float64
	repeat    int

	kpGrid     []float64
	kdGrid     []float64
	tuneMetric string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "gatebridge",
		Short:         "gate-authorized setpoint bridge for a fixed-rate control loop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "log format (console, json)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a deterministic simulation of the configured gate script",
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the control loop on wall-clock time",
		RunE:  serve,
	}
	addConfigFlags(serveCmd)
	serveCmd.Flags().IntVar(&cpu, "cpu", -1, "pin the loop thread to this cpu (-1 disables)")
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	serveCmd.Flags().StringVar(&feedFile, "feed", "", "watch this yaml file for live setpoints")
	serveCmd.Flags().BoolVar(&withTUI, "tui", false, "show the live dashboard")
	serveCmd.Flags().StringVar(&palette, "palette", "control-room", "dashboard palette ("+strings.Join(viz.PaletteNames(), ", ")+")")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "run the configured simulation several times concurrently and check the command traces match",
		RunE:  verifyDeterminism,
	}
	addConfigFlags(verifyCmd)
	verifyCmd.Flags().IntVar(&repeat, "repeat", 4, "number of concurrent runs")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one channel of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&channel, "channel", 0, "channel to plot")

	exportCmd := &cobra.Command{
		Use:     "export-csv [run_id]",
		Aliases: []string{"export"},
		Short:   "export a run trace",
		Args:    cobra.ExactArgs(1),
		RunE:    exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&format, "format", "csv", "csv, json or svg")
	exportCmd.Flags().IntVar(&channel, "channel", 0, "channel to draw (svg)")

	diffCmd := &cobra.Command{
		Use:   "diff [run_a] [run_b]",
		Short: "compare the command traces of two runs",
		Args:  cobra.ExactArgs(2),
		RunE:  diffRuns,
	}
	diffCmd.Flags().Float64Var(&tolerance, "tol", 0, "allowed absolute difference (0 demands bit-identical)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search feedback gains against a run metric",
		RunE:  tuneGains,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&kpGrid, "kp-grid", []float64{100, 250, 500, 1000}, "kp values to try")
	tuneCmd.Flags().Float64SliceVar(&kdGrid, "kd-grid", []float64{10, 25, 50, 100}, "kd values to try")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "tracking_rms", "metric to minimise")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models := config.ListModels()
			if len(args) == 1 {
				models = args
			}
			for _, m := range models {
				names := config.ListPresets(m)
				if len(names) == 0 {
					fmt.Printf("no presets for model: %s\n", m)
					continue
				}
				fmt.Printf("presets for %s:\n", m)
				for _, p := range names {
					fmt.Printf("  %s/%s\n", m, p)
				}
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				p, err := lookupPreset(preset)
				if err != nil {
					return err
				}
				cfg = p
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset (model/name)")

	rootCmd.AddCommand(runCmd, serveCmd, verifyCmd, tuneCmd, listCmd, plotCmd, exportCmd, diffCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration (model/name)")
	cmd.Flags().StringVar(&model, "model", "joints", "plant model")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	cmd.Flags().IntVar(&actuators, "actuators", config.DefaultActuators, "actuator count")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "plant timestep in seconds")
	cmd.Flags().Uint64Var(&ticks, "ticks", config.DefaultTicks, "ticks to simulate")
	cmd.Flags().Uint64Var(&timeoutMs, "timeout", 50, "watchdog timeout in ms")
	cmd.Flags().Float64Var(&kp, "kp", 500, "proportional gain")
	cmd.Flags().Float64Var(&kd, "kd", 50, "derivative gain")
}

func lookupPreset(name string) (*config.Config, error) {
	m, p, ok := strings.Cut(name, "/")
	if !ok {
		return nil, fmt.Errorf("preset must be model/name, got %q", name)
	}
	cfg := config.GetPreset(m, p)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	return cfg, nil
}

// loadConfig layers defaults, preset, config file and explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p, err := lookupPreset(preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Plant.Model = model
	}
	if flags.Changed("integrator") {
		cfg.Plant.Integrator = integrator
	}
	if flags.Changed("actuators") {
		cfg.Plant.Actuators = actuators
	}
	if flags.Changed("dt") {
		cfg.Plant.Dt = dt
	}
	if flags.Changed("ticks") {
		cfg.Run.Ticks = ticks
	}
	if flags.Changed("timeout") {
		cfg.Loop.WatchdogTimeoutMs = timeoutMs
	}
	if flags.Changed("kp") {
		cfg.Gains.Kp = kp
	}
	if flags.Changed("kd") {
		cfg.Gains.Kd = kd
	}
	if flags.Changed("cpu") {
		cfg.Loop.CPU = cpu
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	if flags.Changed("feed") {
		cfg.Gate.FeedFile = feedFile
	}
	if root := cmd.Root().PersistentFlags(); root.Changed("log-level") || cfg.Logging.Level == "" {
		cfg.Logging.Level = logLevel
	}
	if root := cmd.Root().PersistentFlags(); root.Changed("log-format") || cfg.Logging.Format == "" {
		cfg.Logging.Format = logFormat
	}
	if dataDir != "" {
		cfg.Run.DataDir = dataDir
	}

	return cfg, cfg.Validate()
}

func runStore() *storage.Store {
	dir := dataDir
	if dir == "" {
		dir = config.DefaultDataDir
	}
	return storage.New(dir)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	alerter := telemetry.NewAlerter(logger, nil, 0)
	b, err := bridge.New(cfg, bridge.Options{
		Logger:    telemetry.Logr(logger),
		Stale:     alerter,
		Anomalies: alerter,
	})
	if err != nil {
		return err
	}

	logger.Info("running simulation",
		zap.String("model", cfg.Plant.Model),
		zap.Int("actuators", cfg.Plant.Actuators),
		zap.Uint64("ticks", cfg.Run.Ticks),
	)
	start := time.Now()

	result, err := b.Simulate(context.Background(), alerter)
	if cerr := alerter.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(cfg.Run.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Preset:            preset,
		Model:             cfg.Plant.Model,
		Integrator:        cfg.Plant.Integrator,
		Actuators:         cfg.Plant.Actuators,
		Dt:                cfg.Plant.Dt,
		TickPeriodMs:      cfg.Loop.TickPeriodMs,
		WatchdogTimeoutMs: cfg.Loop.WatchdogTimeoutMs,
		Kp:                cfg.Gains.Kp,
		Kd:                cfg.Gains.Kd,
		Ticks:             int(result.Ticks),
		Truncated:         result.Truncated,
		Metrics:           result.Metrics,
	}, result.Trace)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("ticks: %d\n", result.Ticks)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
	return nil
}

func verifyDeterminism(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	results, err := bridge.Repeat(cmd.Context(), cfg, repeat)
	if err != nil {
		return err
	}
	idx, d, err := bridge.Verify(results, 0)
	if err != nil {
		return fmt.Errorf("run %d: %w", idx, err)
	}
	if d != nil {
		return fmt.Errorf("run %d diverged from run 0 at %s", idx, d)
	}
	fmt.Printf("%d runs of %d ticks produced bit-identical commands\n", repeat, cfg.Run.Ticks)
	return nil
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	g, err := tune.NewGridSearch([]string{"kp", "kd"}, [][]float64{kpGrid, kdGrid})
	if err != nil {
		return err
	}
	fmt.Printf("searching %d gain pairs over %d ticks...\n", g.Size(), cfg.Run.Ticks)

	best, score, all, err := g.Search(cmd.Context(), cfg, tuneMetric)
	if err != nil {
		return err
	}
	for _, c := range all {
		if c.Err != nil {
			fmt.Printf("  kp=%-8g kd=%-8g error: %v\n", c.Params["kp"], c.Params["kd"], c.Err)
			continue
		}
		fmt.Printf("  kp=%-8g kd=%-8g %s=%.6f\n", c.Params["kp"], c.Params["kd"], tuneMetric, c.Score)
	}
	fmt.Printf("\nbest: kp=%g kd=%g %s=%.6f\n", best["kp"], best["kd"], tuneMetric, score)
	return nil
}
