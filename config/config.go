// Package config loads simulation settings from files and environment
// variables and turns them into runnable model parameters.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/bcdannyboy/stochsim/errs"
	"github.com/bcdannyboy/stochsim/models"
)

// Config carries every tunable of a simulation run.
type Config struct {
	// Model selects the process: gbm, vasicek or hullwhite.
	Model      string
	Initial    float64
	Drift      float64
	Volatility float64
	Kappa      float64
	Theta      float64

	NumPaths   int
	NumSteps   int
	Dt         float64
	Seed       uint64
	Workers    int
	BatchSize  int
	Antithetic bool

	Confidence     float64
	RiskFreeRate   float64
	PeriodsPerYear float64

	OutputPrefix string
	LogLevel     string
}

// Default returns the settings used when nothing is configured: one year of
// daily steps of a moderately volatile growth process.
func Default() Config {
	return Config{
		Model:          "gbm",
		Initial:        100,
		Drift:          0.05,
		Volatility:     0.2,
		Kappa:          1,
		Theta:          0.05,
		NumPaths:       10000,
		NumSteps:       252,
		Dt:             1.0 / 252,
		Seed:           42,
		Workers:        0,
		BatchSize:      0,
		Confidence:     0.95,
		RiskFreeRate:   0.02,
		PeriodsPerYear: 252,
		OutputPrefix:   "simulation",
		LogLevel:       "info",
	}
}

// Load reads settings from the given config file (format inferred from the
// extension) layered over Default, with STOCHSIM_* environment variables
// taking precedence. An empty path skips file loading.
func Load(path string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("model", def.Model)
	v.SetDefault("initial", def.Initial)
	v.SetDefault("drift", def.Drift)
	v.SetDefault("volatility", def.Volatility)
	v.SetDefault("kappa", def.Kappa)
	v.SetDefault("theta", def.Theta)
	v.SetDefault("paths", def.NumPaths)
	v.SetDefault("steps", def.NumSteps)
	v.SetDefault("dt", def.Dt)
	v.SetDefault("seed", def.Seed)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("batch_size", def.BatchSize)
	v.SetDefault("antithetic", def.Antithetic)
	v.SetDefault("confidence", def.Confidence)
	v.SetDefault("risk_free_rate", def.RiskFreeRate)
	v.SetDefault("periods_per_year", def.PeriodsPerYear)
	v.SetDefault("output_prefix", def.OutputPrefix)
	v.SetDefault("log_level", def.LogLevel)

	v.SetEnvPrefix("STOCHSIM")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return Config{
		Model:          strings.ToLower(v.GetString("model")),
		Initial:        v.GetFloat64("initial"),
		Drift:          v.GetFloat64("drift"),
		Volatility:     v.GetFloat64("volatility"),
		Kappa:          v.GetFloat64("kappa"),
		Theta:          v.GetFloat64("theta"),
		NumPaths:       v.GetInt("paths"),
		NumSteps:       v.GetInt("steps"),
		Dt:             v.GetFloat64("dt"),
		Seed:           v.GetUint64("seed"),
		Workers:        v.GetInt("workers"),
		BatchSize:      v.GetInt("batch_size"),
		Antithetic:     v.GetBool("antithetic"),
		Confidence:     v.GetFloat64("confidence"),
		RiskFreeRate:   v.GetFloat64("risk_free_rate"),
		PeriodsPerYear: v.GetFloat64("periods_per_year"),
		OutputPrefix:   v.GetString("output_prefix"),
		LogLevel:       v.GetString("log_level"),
	}, nil
}

// Validate rejects settings no run could accept. Model-parameter checks are
// repeated by the model constructors; failing here keeps the error close to
// the configuration source.
func (c Config) Validate() error {
	switch c.Model {
	case "gbm", "vasicek", "hullwhite":
	default:
		return errs.Invalidf("unknown model %q (want gbm, vasicek or hullwhite)", c.Model)
	}
	if c.NumPaths <= 0 {
		return errs.Invalidf("paths must be positive, got %d", c.NumPaths)
	}
	if c.NumSteps <= 0 {
		return errs.Invalidf("steps must be positive, got %d", c.NumSteps)
	}
	if c.Dt <= 0 {
		return errs.Invalidf("dt must be positive, got %v", c.Dt)
	}
	if c.Workers < 0 {
		return errs.Invalidf("workers must not be negative, got %d", c.Workers)
	}
	if c.BatchSize < 0 {
		return errs.Invalidf("batch size must not be negative, got %d", c.BatchSize)
	}
	if c.Antithetic && c.NumPaths%2 != 0 {
		return errs.Invalidf("antithetic pairing needs an even number of paths, got %d", c.NumPaths)
	}
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return errs.Invalidf("confidence level %v outside (0, 1)", c.Confidence)
	}
	if c.PeriodsPerYear <= 0 {
		return errs.Invalidf("periods per year must be positive, got %v", c.PeriodsPerYear)
	}
	if c.Volatility < 0 {
		return errs.Invalidf("volatility must not be negative, got %v", c.Volatility)
	}
	switch c.Model {
	case "gbm":
		if c.Initial <= 0 {
			return errs.Invalidf("initial value must be positive for gbm, got %v", c.Initial)
		}
	case "vasicek", "hullwhite":
		if c.Kappa < 0 {
			return errs.Invalidf("reversion speed must not be negative, got %v", c.Kappa)
		}
	}
	return nil
}

// BuildModel constructs the configured stochastic model. Configured
// Hull-White runs use a flat target level; time-varying targets are code-API
// only.
func (c Config) BuildModel() (models.Model, error) {
	switch c.Model {
	case "gbm":
		return models.NewGBM(c.Initial, c.Drift, c.Volatility)
	case "vasicek":
		return models.NewVasicek(c.Initial, c.Kappa, c.Theta, c.Volatility)
	case "hullwhite":
		theta := c.Theta
		return models.NewHullWhite(c.Initial, c.Kappa, c.Volatility, func(float64) float64 { return theta })
	default:
		return nil, errs.Invalidf("unknown model %q", c.Model)
	}
}
