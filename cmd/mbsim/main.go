package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/mbsim/internal/analysis"
	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/experiment"
	"github.com/san-kum/mbsim/internal/export"
	"github.com/san-kum/mbsim/internal/optim"
	"github.com/san-kum/mbsim/internal/sim"
	"github.com/san-kum/mbsim/internal/storage"
	"github.com/san-kum/mbsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	verbose    bool
	dt         float64
	duration   float64
	seed       int64
	integrator string
	substeps   int
	damping    float64
	jitter     float64
	configFile string
	preset     string
	field      string
	outFile    string
	parallel   int
	trials     int
	mcJitter   float64
	// analyze and plot default to different columns.
	analyzeField string
	epsilon      float64
	driftLimit   float64
	metricName   string
	tsFlag       []float64
	zetasFlag    []float64
)

var (
	headStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "mbsim",
		Short:        "constrained multibody simulation lab",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mbsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log solver diagnostics")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	sceneFlags(runCmd)
	runCmd.Flags().Float64Var(&jitter, "jitter", 0, "uniform initial velocity noise")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one state column of every body",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&field, "field", "pz", "state column (px..wz)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list scenes, or the presets of one scene",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "run a scene with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	sceneFlags(liveCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [scene] [integrator...]",
		Short: "run a scene under several integrators concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareIntegrators,
	}
	sceneFlags(compareCmd)
	compareCmd.Flags().IntVar(&parallel, "parallel", 0, "max concurrent runs (0 = unlimited)")

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "measure solver throughput over step sizes and sub-steps",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	benchCmd.Flags().StringVar(&preset, "preset", "", "scene preset")
	benchCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the x-z trajectories of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "dominant period of one state column of every body",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&analyzeField, "field", "px", "state column (px..wz)")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [scene]",
		Short: "estimate the largest Lyapunov exponent of a scene",
		Args:  cobra.MaximumNArgs(1),
		RunE:  estimateLyapunov,
	}
	sceneFlags(lyapunovCmd)
	lyapunovCmd.Flags().Float64Var(&epsilon, "eps", 1e-6, "initial velocity perturbation")

	tuneCmd := &cobra.Command{
		Use:   "tune [scene]",
		Short: "grid search the stabilization time constant and damping ratio",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneGains,
	}
	sceneFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&tsFlag, "t", []float64{0.02, 0.05, 0.1, 0.2}, "time constants")
	tuneCmd.Flags().Float64SliceVar(&zetasFlag, "zeta", []float64{0.5, 1, 2}, "damping ratios")
	tuneCmd.Flags().StringVar(&metricName, "metric", "constraint_drift", "metric to minimize")
	tuneCmd.Flags().IntVar(&parallel, "parallel", 0, "max concurrent runs (0 = unlimited)")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [scene]",
		Short: "run jittered copies of a scene and count stable ones",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	sceneFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&mcJitter, "jitter", 0.05, "uniform initial velocity noise")
	monteCarloCmd.Flags().Float64Var(&driftLimit, "drift-limit", 0, "max constraint drift of a stable trial (0 = off)")
	monteCarloCmd.Flags().IntVar(&parallel, "parallel", 0, "max concurrent runs (0 = unlimited)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, presetsCmd, liveCmd,
		compareCmd, benchCmd, analyzeCmd, lyapunovCmd, tuneCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "scene preset (default: first listed)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	cmd.Flags().IntVar(&substeps, "substeps", config.DefaultSubsteps, "integrator sub-steps per step")
	cmd.Flags().Float64Var(&damping, "damping", 0, "velocity damping")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadScene resolves the scene config from --config, or from a preset of the
// named scene, then applies any flags set on the command line. It returns
// the config and the preset variant used.
func loadScene(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	var cfg *config.Config
	variant := preset

	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg, variant = c, ""
	case len(args) == 0:
		cfg, variant = config.DefaultConfig(), ""
	default:
		scene := args[0]
		variants := config.ListPresets(scene)
		if len(variants) == 0 {
			return nil, "", fmt.Errorf("unknown scene: %s (available: %v)", scene, config.ListScenes())
		}
		if variant == "" {
			variant = variants[0]
		}
		cfg = config.GetPreset(scene, variant)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", variant, variants)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("substeps") {
		cfg.Substeps = substeps
	}
	if flags.Changed("damping") {
		cfg.Damping = damping
	}
	return cfg, variant, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, variant, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.WithLogger(newLogger()), experiment.WithJitter(jitter))
	if err := exp.Setup(nil); err != nil {
		return err
	}

	fmt.Printf("running %s (%d bodies, %d constraints)...\n", cfg.Scene, len(cfg.Bodies), len(cfg.Constraints))
	start := time.Now()

	result, runErr := exp.Run(context.Background())
	elapsed := time.Since(start)

	var simErr *sim.SimulationError
	if runErr != nil && !errors.As(runErr, &simErr) {
		return runErr
	}

	runID, err := st.Save(cfg, variant, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	printMetrics(result)

	if n := len(result.Warnings); n > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("\n%d drift warnings", n)))
		for _, w := range result.Warnings[:min(n, 5)] {
			fmt.Println(dimStyle.Render("  " + w.String()))
		}
	}
	if runErr != nil {
		fmt.Println(warnStyle.Render("stopped early: " + runErr.Error()))
		return runErr
	}
	return nil
}

func printMetrics(result *sim.Result) {
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Println("\n" + headStyle.Render("metrics:"))
	for _, name := range names {
		fmt.Printf("  %-18s %.6g\n", name, result.Metrics[name])
	}
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
	fmt.Fprintln(w, "ID\tSCENE\tVARIANT\tTIME\tDURATION\tDT\tINTEG\tSTEPS\tWARN")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Variant,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Steps,
			run.Warnings,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	col := slices.Index(storage.StateColumns(), field)
	if col < 0 {
		return fmt.Errorf("unknown field %q (available: %v)", field, storage.StateColumns())
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("samples: %d\n\n", len(states))

	for b, name := range meta.Bodies {
		data := make([]float64, len(states))
		for i, s := range states {
			data[i] = s[b*sim.BodyStateDim+col]
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s.%s vs time", name, field)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

// loadRun rebuilds the scene config and result of a stored run.
func loadRun(runID string) (*config.Config, *storage.RunMetadata, *sim.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	result := &sim.Result{
		States:      states,
		Times:       times,
		Metrics:     meta.Metrics,
		EnergyDrift: meta.EnergyDrift,
		StepsTaken:  meta.Steps,
	}
	return cfg, meta, result, nil
}

func output() (*os.File, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	cfg, _, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	out, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(out, cfg, result); err != nil {
		done()
		return err
	}
	return done()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	out, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(out, meta.Bodies, result); err != nil {
		done()
		return err
	}
	if outFile != "" {
		fmt.Fprintf(os.Stderr, "exported %d rows to %s\n", len(result.States), outFile)
	}
	return done()
}

func listPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println("scenes:")
		for _, s := range config.ListScenes() {
			fmt.Printf("  %-18s %s\n", s, dimStyle.Render(strings.Join(config.ListPresets(s), ", ")))
		}
		return nil
	}
	presets := config.ListPresets(args[0])
	if len(presets) == 0 {
		fmt.Printf("no presets for scene: %s\n", args[0])
		return nil
	}
	fmt.Printf("presets for %s:\n", args[0])
	for _, p := range presets {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && configFile == "" {
		return viz.RunInteractive()
	}
	cfg, variant, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	name := cfg.Scene
	if variant != "" {
		name += "/" + variant
	}
	m, err := viz.NewModel(name, viz.ConfigBuilder(cfg), cfg.Dt)
	if err != nil {
		return err
	}
	if err := viz.Run(m); err != nil {
		return err
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadScene(cmd, args[:1])
	if err != nil {
		return err
	}
	names := args[1:]
	if len(names) == 0 {
		names = experiment.NewRegistry().ListIntegrators()
	}

	factories := make([]sim.Factory, len(names))
	for i, name := range names {
		c := cfg.Clone()
		c.Integrator = name
		factories[i] = experiment.Factory(c, experiment.WithLogger(newLogger()))
	}

	simCfg := sim.Config{Dt: cfg.Dt, Duration: cfg.Duration, Seed: cfg.Seed, ValidateState: true}

	fmt.Printf("comparing integrators for %s (dt=%.4f, duration=%.1fs, substeps=%d)\n\n", cfg.Scene, cfg.Dt, cfg.Duration, cfg.Substeps)
	start := time.Now()
	results, err := sim.NewEnsemble(parallel, factories...).Run(context.Background(), simCfg)
	elapsed := time.Since(start)

	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tENERGY_DRIFT\tCONSTRAINT_DRIFT\tMAX_|λ|\tWARN")
	for i, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%.3e\t%.3e\t%.4g\t%d\n",
			names[i],
			r.StepsTaken,
			r.EnergyDrift,
			r.Metrics["constraint_drift"],
			r.Metrics["reaction_load"],
			len(r.Warnings),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("\n%d runs in %v", len(results), elapsed)))
	return nil
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	dts := []float64{0.001, 0.005, 0.01}
	subs := []int{1, 4, dynamo.DefaultSubsteps}
	const benchDuration = 2.0

	fmt.Printf("benchmarking %s (%d bodies, %d constraints)\n\n", cfg.Scene, len(cfg.Bodies), len(cfg.Constraints))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSUBSTEPS\tSTEPS\tTIME\tSTEPS/SEC\tDRIFT")

	for _, h := range dts {
		for _, n := range subs {
			c := cfg.Clone()
			c.Dt, c.Substeps, c.Duration = h, n, benchDuration

			exp := experiment.New(c)
			if err := exp.Setup(nil); err != nil {
				return err
			}

			start := time.Now()
			result, err := exp.Run(context.Background())
			elapsed := time.Since(start)
			if err != nil {
				fmt.Fprintf(w, "%.4f\t%d\terror: %v\t\t\t\n", h, n, err)
				continue
			}

			rate := float64(result.StepsTaken) / elapsed.Seconds()
			fmt.Fprintf(w, "%.4f\t%d\t%d\t%v\t%.0f\t%.2e\n",
				h, n, result.StepsTaken, elapsed.Round(time.Microsecond), rate, result.Metrics["constraint_drift"])
		}
	}

	return w.Flush()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	out, done, err := output()
	if err != nil {
		return err
	}
	if err := export.TrajectorySVG(out, meta.Bodies, result.States, 800, 800); err != nil {
		done()
		return err
	}
	return done()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	col := slices.Index(storage.StateColumns(), analyzeField)
	if col < 0 {
		return fmt.Errorf("unknown field %q (available: %v)", analyzeField, storage.StateColumns())
	}

	fmt.Printf("run: %s (%d samples, dt=%.4f)\n\n", meta.ID, len(states), meta.Dt)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODY\tFIELD\tPERIOD\tFREQ")
	for b, name := range meta.Bodies {
		period := analysis.DominantPeriod(analysis.Column(states, b, col), meta.Dt)
		if period == 0 {
			fmt.Fprintf(w, "%s\t%s\t-\t-\n", name, analyzeField)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%.4fs\t%.4fHz\n", name, analyzeField, period, 1/period)
	}
	return w.Flush()
}

func estimateLyapunov(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	fmt.Printf("estimating Lyapunov exponent for %s (eps=%g, duration=%.1fs)\n", cfg.Scene, epsilon, cfg.Duration)
	exp, err := analysis.EstimateLyapunov(context.Background(), cfg, epsilon)
	if err != nil {
		return err
	}
	verdict := "regular"
	if exp > 0.1 {
		verdict = warnStyle.Render("chaotic")
	}
	fmt.Printf("λ ≈ %.4f /s (%s)\n", exp, verdict)
	return nil
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	if len(cfg.Constraints) == 0 {
		return fmt.Errorf("scene %s has no constraints to tune", cfg.Scene)
	}

	g := optim.NewGridSearch(tsFlag, zetasFlag, metricName)
	g.Limit = parallel
	best, all, err := g.Search(context.Background(), cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "T\tZETA\t%s\n", strings.ToUpper(metricName))
	for _, c := range all {
		if c.Err != nil {
			fmt.Fprintf(w, "%g\t%g\terror: %v\n", c.T, c.Zeta, c.Err)
			continue
		}
		fmt.Fprintf(w, "%g\t%g\t%.4e\n", c.T, c.Zeta, c.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if best.T == 0 {
		return fmt.Errorf("no candidate finished")
	}
	fmt.Println(headStyle.Render(fmt.Sprintf("\nbest: T=%g zeta=%g (%s=%.4e)", best.T, best.Zeta, metricName, best.Value)))
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	mc := &optim.MonteCarlo{Trials: trials, Jitter: mcJitter, DriftLimit: driftLimit, Limit: parallel}

	start := time.Now()
	results, err := mc.Run(context.Background(), cfg)
	if err != nil {
		return err
	}
	stable, unstable := optim.Stats(results)

	fmt.Printf("%s: %d trials in %v\n", cfg.Scene, len(results), time.Since(start).Round(time.Millisecond))
	fmt.Printf("stable: %d  unstable: %d\n", stable, unstable)
	for _, tr := range results {
		if !tr.Stable {
			msg := fmt.Sprintf("  trial %d (seed %d): drift %.3e", tr.ID, tr.Seed, tr.ConstraintDrift)
			if tr.Err != nil {
				msg += ": " + tr.Err.Error()
			}
			fmt.Println(warnStyle.Render(msg))
		}
	}
	return nil
}
