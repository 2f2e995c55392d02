// stochsim simulates one-factor stochastic processes (geometric Brownian
// motion, Vasicek, Hull-White) across many Monte Carlo paths and reports
// distributional, risk and convergence summaries over the terminal values.
//
// Settings come from flags layered over an optional config file (--config)
// and STOCHSIM_* environment variables; a .env file in the working directory
// is loaded first when present.
package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/cpu"
	"github.com/spf13/cobra"
	mpb "github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"go.uber.org/zap"

	"github.com/bcdannyboy/stochsim/config"
	"github.com/bcdannyboy/stochsim/convergence"
	"github.com/bcdannyboy/stochsim/export"
	"github.com/bcdannyboy/stochsim/logging"
	"github.com/bcdannyboy/stochsim/random"
	"github.com/bcdannyboy/stochsim/risk"
	"github.com/bcdannyboy/stochsim/simulation"
	"github.com/bcdannyboy/stochsim/stats"
)

var (
	cfgFile        string
	modelName      string
	initialValue   float64
	drift          float64
	volatility     float64
	kappa          float64
	theta          float64
	numPaths       int
	numSteps       int
	dt             float64
	seed           uint64
	workers        int
	batchSize      int
	antithetic     bool
	confidence     float64
	riskFreeRate   float64
	periodsPerYear float64
	outputPrefix   string
	targetValue    float64
	quiet          bool

	rootCmd = &cobra.Command{
		Use:   "stochsim",
		Short: "Monte Carlo simulation of one-factor stochastic processes",
		Long: `stochsim generates Monte Carlo paths for a configured stochastic model,
summarizes the terminal-value distribution, derives risk measures (VaR,
CVaR, Sharpe ratio, max drawdown) and convergence diagnostics, and writes
the population to CSV plus a JSON run report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	compareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Simulate every model under the shared controls and print a comparison table",
		RunE:  runComparison,
	}
)

func init() {
	rootCmd.RunE = runSimulation
	pf := rootCmd.PersistentFlags()
	def := config.Default()

	pf.StringVarP(&cfgFile, "config", "c", "", "config file (JSON or YAML)")
	pf.StringVarP(&modelName, "model", "m", def.Model, "model: gbm, vasicek or hullwhite")
	pf.Float64VarP(&initialValue, "initial", "i", def.Initial, "initial value of the process")
	pf.Float64Var(&drift, "drift", def.Drift, "annualized drift (gbm)")
	pf.Float64Var(&volatility, "volatility", def.Volatility, "annualized volatility")
	pf.Float64Var(&kappa, "kappa", def.Kappa, "mean-reversion speed (vasicek, hullwhite)")
	pf.Float64Var(&theta, "theta", def.Theta, "long-run mean (vasicek, hullwhite)")
	pf.IntVarP(&numPaths, "paths", "p", def.NumPaths, "number of simulated paths")
	pf.IntVarP(&numSteps, "steps", "n", def.NumSteps, "steps per path")
	pf.Float64Var(&dt, "dt", def.Dt, "time increment per step in years")
	pf.Uint64Var(&seed, "seed", def.Seed, "random seed")
	pf.IntVarP(&workers, "workers", "w", def.Workers, "worker goroutines (0 = one per CPU)")
	pf.IntVarP(&batchSize, "batch-size", "b", def.BatchSize, "paths per batch (0 = single batch)")
	pf.BoolVar(&antithetic, "antithetic", def.Antithetic, "simulate in antithetic pairs")
	pf.Float64Var(&confidence, "confidence", def.Confidence, "confidence level for VaR/CVaR")
	pf.Float64Var(&riskFreeRate, "risk-free-rate", def.RiskFreeRate, "annual risk-free rate for the Sharpe ratio")
	pf.Float64Var(&periodsPerYear, "periods-per-year", def.PeriodsPerYear, "periods per year for annualization")
	pf.StringVarP(&outputPrefix, "output", "o", def.OutputPrefix, "output file prefix")
	pf.Float64VarP(&targetValue, "target", "t", 0, "report the probability of the terminal value reaching this level")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress logging and progress output")

	rootCmd.AddCommand(compareCmd)
}

func main() {
	// A .env file is optional; when present its values feed the STOCHSIM_*
	// environment overrides read by the config loader.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// loadConfig layers explicitly set flags over the file/env configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}

	pf := rootCmd.PersistentFlags()
	if pf.Changed("model") {
		cfg.Model = modelName
	}
	if pf.Changed("initial") {
		cfg.Initial = initialValue
	}
	if pf.Changed("drift") {
		cfg.Drift = drift
	}
	if pf.Changed("volatility") {
		cfg.Volatility = volatility
	}
	if pf.Changed("kappa") {
		cfg.Kappa = kappa
	}
	if pf.Changed("theta") {
		cfg.Theta = theta
	}
	if pf.Changed("paths") {
		cfg.NumPaths = numPaths
	}
	if pf.Changed("steps") {
		cfg.NumSteps = numSteps
	}
	if pf.Changed("dt") {
		cfg.Dt = dt
	}
	if pf.Changed("seed") {
		cfg.Seed = seed
	}
	if pf.Changed("workers") {
		cfg.Workers = workers
	}
	if pf.Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	if pf.Changed("antithetic") {
		cfg.Antithetic = antithetic
	}
	if pf.Changed("confidence") {
		cfg.Confidence = confidence
	}
	if pf.Changed("risk-free-rate") {
		cfg.RiskFreeRate = riskFreeRate
	}
	if pf.Changed("periods-per-year") {
		cfg.PeriodsPerYear = periodsPerYear
	}
	if pf.Changed("output") {
		cfg.OutputPrefix = outputPrefix
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func buildLogger(cfg config.Config) (*zap.Logger, error) {
	if quiet {
		return zap.NewNop(), nil
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = level
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	zl, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer zl.Sync()

	model, err := cfg.BuildModel()
	if err != nil {
		return err
	}
	sim, err := simulation.NewSimulator(model, random.NewNormalSource(cfg.Seed))
	if err != nil {
		return err
	}
	sim.Workers = cfg.Workers
	sim.Logger = logging.NewZap(zl)

	if !quiet {
		fmt.Printf("=== %s Simulation ===\n", model.Name())
		fmt.Printf("Paths: %d, Steps: %d, dt: %.6f, Seed: %d\n", cfg.NumPaths, cfg.NumSteps, cfg.Dt, cfg.Seed)

		stopMonitor := make(chan struct{})
		defer close(stopMonitor)
		go monitorCPUUsage(stopMonitor)
	}

	res, err := simulate(sim, cfg)
	if err != nil {
		return err
	}

	printSummary("Terminal Value Distribution", res.TerminalSummary)
	if res.Returns != nil {
		printSummary("Return Distribution", res.ReturnSummary)
	}

	report := export.NewReport(res)

	if res.Returns != nil {
		var prices []float64
		if len(res.Paths) > 0 {
			prices = res.Paths[0]
		}
		riskReport, err := risk.Analyze(res.Returns, prices, cfg.Confidence, cfg.RiskFreeRate, cfg.PeriodsPerYear)
		if err != nil {
			return err
		}
		report.Risk = &riskReport
		printRisk(riskReport)
	}

	report.Convergence = diagnoseConvergence(res.TerminalValues)
	printConvergence(report.Convergence)

	if rootCmd.PersistentFlags().Changed("target") {
		p := res.TargetProbability(targetValue)
		fmt.Printf("\nProbability of terminal value >= %.4f: %.1f%%\n", targetValue, p*100)
	}

	written, err := export.ExportResult(res, cfg.OutputPrefix)
	if err != nil {
		return err
	}
	paramsFile := cfg.OutputPrefix + "_parameters.csv"
	if err := export.WriteParametersCSV(runParameters(cfg, model.Name()), paramsFile); err != nil {
		return err
	}
	written = append(written, paramsFile)
	reportFile := cfg.OutputPrefix + "_report.json"
	if err := report.WriteJSON(reportFile); err != nil {
		return err
	}
	written = append(written, reportFile)

	if !quiet {
		fmt.Printf("\nSimulation complete in %v. Files written:\n", res.Elapsed)
		for _, f := range written {
			fmt.Printf("  %s\n", f)
		}
	}
	return nil
}

// simulate dispatches to the batched, antithetic or plain run and drives the
// progress bar for batched runs.
func simulate(sim *simulation.Simulator, cfg config.Config) (*simulation.Result, error) {
	switch {
	case cfg.BatchSize > 0:
		var bar *mpb.Bar
		var progress *mpb.Progress
		if !quiet {
			progress = mpb.New(mpb.WithWidth(64))
			bar = progress.AddBar(int64(cfg.NumPaths),
				mpb.PrependDecorators(
					decor.Name("Simulating"),
					decor.Percentage(decor.WCSyncSpace),
				),
				mpb.AppendDecorators(
					decor.CountersNoUnit("(%d / %d)", decor.WCSyncSpace),
				),
			)
			sim.Progress = func(done, total int) { bar.Increment() }
		}
		res, err := sim.RunBatched(cfg.NumPaths, cfg.NumSteps, cfg.Dt, cfg.BatchSize)
		if progress != nil {
			if err != nil {
				bar.Abort(true)
			}
			progress.Wait()
		}
		return res, err
	case cfg.Antithetic:
		return sim.RunAntithetic(cfg.NumPaths, cfg.NumSteps, cfg.Dt)
	default:
		return sim.Run(cfg.NumPaths, cfg.NumSteps, cfg.Dt)
	}
}

// diagnoseConvergence bundles the sample-size diagnostics for the report. The
// batch-means check uses ten batches at a 1% relative tolerance and is
// skipped for populations too small to fill them.
func diagnoseConvergence(terminals []float64) *export.Convergence {
	c := &export.Convergence{
		StandardError:       convergence.StandardError(terminals),
		EffectiveSampleSize: convergence.EffectiveSampleSize(terminals),
		MCStandardError:     convergence.MonteCarloStandardError(terminals),
	}
	if len(terminals) >= 20 {
		converged, err := convergence.Check(terminals, 10, 0.01)
		if err == nil {
			c.Converged = converged
		}
	}
	return c
}

func runComparison(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("=== Model Comparison (%d paths, %d steps, dt=%.6f) ===\n\n", cfg.NumPaths, cfg.NumSteps, cfg.Dt)
	fmt.Printf("%-28s %12s %12s %12s %10s %24s\n", "Model", "Mean", "StdDev", "VaR", "AnnVol", "95% CI")

	for _, name := range []string{"gbm", "vasicek", "hullwhite"} {
		runCfg := cfg
		runCfg.Model = name
		if err := runCfg.Validate(); err != nil {
			return err
		}
		model, err := runCfg.BuildModel()
		if err != nil {
			return err
		}
		// Every model replays the same seed so the comparison uses common
		// random numbers.
		sim, err := simulation.NewSimulator(model, random.NewNormalSource(runCfg.Seed))
		if err != nil {
			return err
		}
		sim.Workers = runCfg.Workers

		res, err := sim.Run(runCfg.NumPaths, runCfg.NumSteps, runCfg.Dt)
		if err != nil {
			return err
		}

		valueAtRisk := math.NaN()
		annVol := math.NaN()
		if res.Returns != nil {
			if v, err := risk.CalculateVaR(res.Returns, runCfg.Confidence); err == nil {
				valueAtRisk = v
			}
			annVol = risk.CalculateVolatility(res.Returns) * math.Sqrt(runCfg.PeriodsPerYear)
		}
		s := res.TerminalSummary
		fmt.Printf("%-28s %12.4f %12.4f %12.4f %10.4f %11.4f - %10.4f\n",
			model.Name(), s.Mean, s.StdDev, valueAtRisk, annVol, s.CI95.Lower, s.CI95.Upper)
	}
	return nil
}

func printSummary(title string, s stats.Summary) {
	fmt.Printf("\n%s:\n", title)
	fmt.Printf("  Count:           %d\n", s.Count)
	fmt.Printf("  Mean:            %.4f\n", s.Mean)
	fmt.Printf("  Median:          %.4f\n", s.Median)
	fmt.Printf("  Std Deviation:   %.4f\n", s.StdDev)
	fmt.Printf("  Min:             %.4f\n", s.Min)
	fmt.Printf("  Max:             %.4f\n", s.Max)
	fmt.Printf("  Skewness:        %.4f\n", s.Skewness)
	fmt.Printf("  Excess Kurtosis: %.4f\n", s.ExcessKurtosis)
	fmt.Printf("  Quartiles:       %.4f / %.4f / %.4f\n", s.Q25, s.Q50, s.Q75)
	fmt.Printf("  95%% CI:          [%.4f, %.4f]\n", s.CI95.Lower, s.CI95.Upper)
}

func printRisk(r risk.Report) {
	fmt.Printf("\nRisk Measures (%.0f%% confidence):\n", r.Confidence*100)
	fmt.Printf("  VaR:             %.4f\n", r.VaR)
	fmt.Printf("  CVaR:            %.4f\n", r.CVaR)
	fmt.Printf("  Volatility:      %.4f\n", r.Volatility)
	fmt.Printf("  Sharpe Ratio:    %.4f\n", r.SharpeRatio)
	fmt.Printf("  Max Drawdown:    %.4f (first path)\n", r.MaxDrawdown)
}

func printConvergence(c *export.Convergence) {
	fmt.Printf("\nConvergence Diagnostics:\n")
	fmt.Printf("  Standard Error:  %.6f\n", c.StandardError)
	fmt.Printf("  Effective N:     %.1f\n", c.EffectiveSampleSize)
	fmt.Printf("  MC Std Error:    %.6f\n", c.MCStandardError)
	fmt.Printf("  Converged (10 batches, 1%% tol): %t\n", c.Converged)
}

func runParameters(cfg config.Config, modelName string) map[string]string {
	params := map[string]string{
		"model":            modelName,
		"initial":          formatParam(cfg.Initial),
		"volatility":       formatParam(cfg.Volatility),
		"paths":            strconv.Itoa(cfg.NumPaths),
		"steps":            strconv.Itoa(cfg.NumSteps),
		"dt":               formatParam(cfg.Dt),
		"seed":             strconv.FormatUint(cfg.Seed, 10),
		"confidence":       formatParam(cfg.Confidence),
		"risk_free_rate":   formatParam(cfg.RiskFreeRate),
		"periods_per_year": formatParam(cfg.PeriodsPerYear),
		"antithetic":       strconv.FormatBool(cfg.Antithetic),
	}
	switch cfg.Model {
	case "gbm":
		params["drift"] = formatParam(cfg.Drift)
	case "vasicek", "hullwhite":
		params["kappa"] = formatParam(cfg.Kappa)
		params["theta"] = formatParam(cfg.Theta)
	}
	if cfg.BatchSize > 0 {
		params["batch_size"] = strconv.Itoa(cfg.BatchSize)
	}
	return params
}

func formatParam(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// monitorCPUUsage reports process-visible CPU utilization every five seconds
// until stopped, mirroring the progress bar cadence on long runs.
func monitorCPUUsage(stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			percentage, err := cpu.Percent(time.Second, false)
			if err == nil && len(percentage) > 0 {
				fmt.Printf("CPU Usage: %.2f%%\n", percentage[0])
			}
		}
	}
}
