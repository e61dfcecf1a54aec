package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/verlet/internal/analysis"
	"github.com/san-kum/verlet/internal/config"
	"github.com/san-kum/verlet/internal/export"
	"github.com/san-kum/verlet/internal/metrics"
	"github.com/san-kum/verlet/internal/physics"
	"github.com/san-kum/verlet/internal/render"
	"github.com/san-kum/verlet/internal/sim"
	"github.com/san-kum/verlet/internal/storage"
	"github.com/san-kum/verlet/internal/tui"
	"github.com/san-kum/verlet/internal/viz"
	"github.com/san-kum/verlet/internal/watch"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFile    string

	dt       float64
	duration float64
	maxDt    float64
	substeps int
	seed     int64

	emit        bool
	csvOut      bool
	drawFrames  bool
	frameRate   int
	noSave      bool
	ensemble    int
	spawns      []string
	metricNames []string
	svgFile     string
	pngFile     string

	settleThreshold float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "verlet",
		Short:        "verlet particle simulation in a circular arena",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".verlet", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset scene")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a file instead of stderr")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "interactive simulation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "headless simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "frame time step")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "simulated seconds")
	runCmd.Flags().Float64Var(&maxDt, "max-dt", config.DefaultMaxDt, "largest frame step before clamping")
	runCmd.Flags().IntVar(&substeps, "substeps", 1, "world steps per frame")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	runCmd.Flags().BoolVar(&emit, "emit", false, "enable the emitter")
	runCmd.Flags().BoolVar(&csvOut, "csv", false, "write the frame series as CSV to stdout")
	runCmd.Flags().BoolVar(&drawFrames, "render", false, "draw frames to the terminal")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "redraw rate with --render")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().IntVar(&ensemble, "ensemble", 1, "number of seeds to run in parallel")
	runCmd.Flags().StringSliceVar(&spawns, "spawn", nil, "extra bodies at viewport pixels, as x,y")
	runCmd.Flags().StringSliceVar(&metricNames, "metrics", defaultMetricNames(), "metrics to record")
	runCmd.Flags().StringVar(&svgFile, "svg", "", "write the final frame as SVG")
	runCmd.Flags().StringVar(&pngFile, "png", "", "write the final frame as PNG")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run, or a fresh one when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "settling and frequency analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&settleThreshold, "threshold", 1e-4, "kinetic energy below which the scene counts as settled")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure step throughput at several populations",
		RunE:  benchWorld,
	}
	benchCmd.Flags().IntSliceVar(&benchSizes, "bodies", []int{1000, 4000, 16000}, "populations to measure")
	benchCmd.Flags().IntVar(&benchSteps, "steps", 200, "timed steps per population")
	benchCmd.Flags().Float32Var(&benchRadius, "radius", 0.005, "body radius")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset scenes",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFILL\tEMITTER\tSHAPES\tSUBSTEPS")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				emitter := "off"
				if cfg.Emitter.Enabled {
					emitter = fmt.Sprintf("every %d", cfg.Emitter.Every)
				}
				fmt.Fprintf(w, "%s\t%dx%d\t%s\t%d\t%d\n",
					name, cfg.Fill.Cols, cfg.Fill.Rows, emitter, len(cfg.Shapes), cfg.Run.Substeps)
			}
			return w.Flush()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage config files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a config file for the selected preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := baseConfig(nil)
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
	configCmd.AddCommand(configInitCmd)

	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "list available metrics",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range metrics.Names() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(liveCmd, runCmd, listCmd, plotCmd, exportCmd, analyzeCmd, benchCmd, presetsCmd, configCmd, metricsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultMetricNames() []string {
	var names []string
	for _, m := range metrics.Default(config.DefaultDt) {
		names = append(names, m.Name())
	}
	return names
}

// newLogger honours --log-level and --log-file. fallback receives the logs
// when no file is given.
func newLogger(fallback io.Writer) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}

	out, closeFn := fallback, func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		out, closeFn = f, func() { f.Close() }
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          "verlet",
		ReportTimestamp: true,
	})
	return logger, closeFn, nil
}

// baseConfig resolves the scene: a preset (the positional argument wins over
// --preset), then the config file layered on top.
func baseConfig(args []string) (*config.Config, error) {
	name := preset
	if len(args) > 0 {
		name = args[0]
	}

	cfg := config.DefaultConfig()
	if name != "" {
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOver(cfg, configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	return cfg, nil
}

func sceneName(args []string) string {
	switch {
	case len(args) > 0:
		return args[0]
	case preset != "":
		return preset
	default:
		return "default"
	}
}

// applyRunFlags overrides config values with flags the user actually set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Run.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Run.Duration = duration
	}
	if flags.Changed("max-dt") {
		cfg.Run.MaxDt = maxDt
	}
	if flags.Changed("substeps") {
		cfg.Run.Substeps = substeps
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Changed("emit") {
		cfg.Emitter.Enabled = emit
		if cfg.Emitter.Every < 1 {
			cfg.Emitter.Every = 1
		}
	}
	return cfg.Validate()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig(args)
	if err != nil {
		return err
	}

	// the live view owns the terminal, so logs go nowhere unless --log-file
	logger, closeLog, err := newLogger(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	opts := viz.Options{
		Config: cfg,
		Name:   sceneName(args),
		Logger: logger,
	}

	if configFile != "" {
		base := config.DefaultConfig()
		if name := sceneName(args); name != "default" {
			base = config.GetPreset(name)
		}
		w, err := watch.NewOver(base, configFile)
		if err != nil {
			return err
		}
		defer w.Close()
		opts.Watcher = w
		logger.Info("watching config", "path", w.Path())
	}

	return viz.Run(opts)
}

// buildRunner creates an independent world and runner for one seed.
func buildRunner(cfg *config.Config, logger *log.Logger) sim.Builder {
	return func(seed int64) (*sim.Runner, error) {
		world, err := cfg.BuildWorld()
		if err != nil {
			return nil, err
		}

		vp := cfg.ViewportSpec()
		for _, s := range spawns {
			px, py, err := parsePixel(s)
			if err != nil {
				return nil, err
			}
			world.Spawn(vp.ToWorld(px, py))
		}

		simCfg := cfg.SimConfig()
		simCfg.Seed = seed
		r, err := sim.New(world, simCfg, logger)
		if err != nil {
			return nil, err
		}
		if err := r.SetEmitter(cfg.EmitterSpec()); err != nil {
			return nil, err
		}

		for _, name := range metricNames {
			m, err := metrics.New(name, simCfg.StepDt())
			if err != nil {
				return nil, fmt.Errorf("%w (available: %v)", err, metrics.Names())
			}
			r.AddMetric(m)
		}
		return r, nil
	}
}

func parsePixel(s string) (float32, float32, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("spawn %q: expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("spawn %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("spawn %q: %w", s, err)
	}
	fx, fy := float32(x), float32(y)
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(float64(fx), 0) || math.IsInf(float64(fy), 0) {
		return 0, 0, fmt.Errorf("spawn %q: coordinates must be finite", s)
	}
	return fx, fy, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig(args)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	build := buildRunner(cfg, logger)
	if ensemble > 1 {
		return runEnsemble(ctx, build, cfg, logger)
	}

	r, err := build(cfg.Run.Seed)
	if err != nil {
		return err
	}
	if drawFrames {
		lr := tui.NewLiveRenderer(os.Stdout, sceneName(args), frameRate)
		lr.Start()
		defer lr.Stop()
		r.AddObserver(lr)
	}

	logger.Info("running", "scene", sceneName(args), "bodies", r.World().Len(),
		"frames", cfg.SimConfig().Frames(), "substeps", cfg.Run.Substeps)

	result, err := r.Run(ctx)
	if err != nil {
		return err
	}

	if svgFile != "" {
		if err := writeFrame(svgFile, r, cfg, export.WorldToSVG); err != nil {
			return err
		}
		logger.Info("wrote frame", "path", svgFile)
	}
	if pngFile != "" {
		if err := writeFrame(pngFile, r, cfg, export.WorldToPNG); err != nil {
			return err
		}
		logger.Info("wrote frame", "path", pngFile)
	}

	if csvOut {
		if err := storage.WriteSeries(os.Stdout, result); err != nil {
			return err
		}
	} else {
		printSummary(result)
	}

	if noSave {
		return nil
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(sceneName(args), r.Config(), result)
	if err != nil {
		return err
	}
	logger.Info("saved run", "id", runID)
	return nil
}

type frameWriter func(io.Writer, *physics.World, render.Viewport) error

func writeFrame(path string, r *sim.Runner, cfg *config.Config, write frameWriter) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, r.World(), cfg.ViewportSpec()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func finalBodies(result *sim.Result) int {
	if n := len(result.Bodies); n > 0 {
		return result.Bodies[n-1]
	}
	return 0
}

func printSummary(result *sim.Result) {
	fmt.Printf("frames: %d\n", result.Frames)
	fmt.Printf("bodies: %d\n", finalBodies(result))
	if result.Clamped > 0 {
		fmt.Printf("clamped frames: %d\n", result.Clamped)
	}
	for _, name := range metricNames {
		if v, ok := result.Metrics[name]; ok {
			fmt.Printf("%s: %.6g\n", name, v)
		}
	}
}

func runEnsemble(ctx context.Context, build sim.Builder, cfg *config.Config, logger *log.Logger) error {
	logger.Info("running ensemble", "runs", ensemble, "seed", cfg.Run.Seed)

	results, err := sim.NewEnsemble(build, ensemble, cfg.Run.Seed).Run(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SEED\tFRAMES\tBODIES\t%s\n", strings.ToUpper(strings.Join(metricNames, "\t")))
	for i, result := range results {
		fmt.Fprintf(w, "%d\t%d\t%d", cfg.Run.Seed+int64(i), result.Frames, finalBodies(result))
		for _, name := range metricNames {
			fmt.Fprintf(w, "\t%.6g", result.Metrics[name])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
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
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tDT\tSUBSTEPS\tBODIES")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Substeps,
			run.Bodies,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	var (
		title  string
		bodies []int
		cols   []string
		values map[string][]float64
	)

	if len(args) == 1 {
		st := storage.New(dataDir)
		meta, err := st.Load(args[0])
		if err != nil {
			return err
		}
		series, err := st.LoadSeries(args[0])
		if err != nil {
			return err
		}
		title = fmt.Sprintf("run: %s\nscene: %s", meta.ID, meta.Scene)
		bodies, cols, values = series.Bodies, series.Columns, series.Values
	} else {
		cfg, err := baseConfig(nil)
		if err != nil {
			return err
		}
		logger, closeLog, err := newLogger(os.Stderr)
		if err != nil {
			return err
		}
		defer closeLog()

		metricNames = defaultMetricNames()
		r, err := buildRunner(cfg, logger)(cfg.Run.Seed)
		if err != nil {
			return err
		}
		result, err := r.Run(cmd.Context())
		if err != nil {
			return err
		}
		title = fmt.Sprintf("scene: %s", sceneName(nil))
		bodies, cols, values = result.Bodies, metricNames, result.Series
	}

	if len(bodies) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(title)
	fmt.Printf("samples: %d\n\n", len(bodies))

	counts := make([]float64, len(bodies))
	for i, n := range bodies {
		counts[i] = float64(n)
	}
	plot(counts, "bodies")

	for _, name := range cols {
		plot(values[name], name)
	}
	return nil
}

func plot(data []float64, caption string) {
	if len(data) == 0 {
		return
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)
	fmt.Println()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(series.Times) < 2 {
		return fmt.Errorf("no data")
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s\n\n", meta.Scene)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tPEAK\tAT\tMEAN\tFINAL")
	for _, name := range series.Columns {
		s := analysis.Summarize(series.Times, series.Values[name])
		fmt.Fprintf(w, "%s\t%.6g\t%.2fs\t%.6g\t%.6g\n", name, s.Peak, s.PeakTime, s.Mean, s.Final)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()

	kinetic, ok := series.Values["kinetic"]
	if !ok {
		return nil
	}

	if t, ok := analysis.SettleTime(series.Times, kinetic, settleThreshold); ok {
		fmt.Printf("settled at: %.2fs\n", t)
	} else {
		fmt.Printf("not settled (kinetic > %g at end)\n", settleThreshold)
	}

	frameDt := series.Times[1] - series.Times[0]
	ps := analysis.PowerSpectrum(kinetic)
	plotData := ps[:len(ps)/4+1]
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (kinetic)"),
	)
	fmt.Println(graph)
	fmt.Println()

	freq, _ := analysis.DominantFrequency(kinetic, frameDt)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}
