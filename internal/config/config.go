// Package config loads the benchmark configuration from the environment and
// from an optional yaml or toml file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/askiada/dishwash-pipeline/internal/logging"
	"github.com/askiada/dishwash-pipeline/pkg/bench"
	"github.com/askiada/dishwash-pipeline/pkg/workload"
)

// Prefix of every environment variable, e.g. DISHWASH_BENCH_ITEMS.
const Prefix = "DISHWASH"

var (
	ErrInvalid           = errors.New("invalid configuration")
	ErrUnsupportedFormat = errors.New("unsupported configuration file format")
)

// Config holds all application configuration.
type Config struct {
	Bench   BenchConfig
	Logging LogConfig
	Output  OutputConfig
}

// BenchConfig describes the workload and the pipeline.
type BenchConfig struct {
	Items       int           `envconfig:"ITEMS" default:"20"`
	Repetitions int           `envconfig:"REPETITIONS" default:"3"`
	Capacity    int           `envconfig:"CAPACITY" default:"5"`
	Seed        int64         `envconfig:"SEED" default:"42"`
	StageCost   time.Duration `envconfig:"STAGE_COST" default:"50ms"`
	StageJitter time.Duration `envconfig:"STAGE_JITTER" default:"0s"`
	Workers     int           `envconfig:"WORKERS" default:"1"`
	ArrivalRate float64       `envconfig:"ARRIVAL_RATE" default:"0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEV" default:"false"`
}

// OutputConfig tells where results go. Empty values disable the output.
type OutputConfig struct {
	SummaryPath string `envconfig:"SUMMARY"`
	DOTPath     string `envconfig:"DOT"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	return &cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Bench: BenchConfig{
			Items:       20,
			Repetitions: 3,
			Capacity:    5,
			Seed:        42,
			StageCost:   50 * time.Millisecond,
			Workers:     1,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// fileConfig mirrors Config. Unset keys keep the value they already had.
type fileConfig struct {
	Bench struct {
		Items       *int     `yaml:"items" toml:"items"`
		Repetitions *int     `yaml:"repetitions" toml:"repetitions"`
		Capacity    *int     `yaml:"capacity" toml:"capacity"`
		Seed        *int64   `yaml:"seed" toml:"seed"`
		StageCost   *string  `yaml:"stage_cost" toml:"stage_cost"`
		StageJitter *string  `yaml:"stage_jitter" toml:"stage_jitter"`
		Workers     *int     `yaml:"workers" toml:"workers"`
		ArrivalRate *float64 `yaml:"arrival_rate" toml:"arrival_rate"`
	} `yaml:"bench" toml:"bench"`
	Logging struct {
		Level       *string `yaml:"level" toml:"level"`
		Development *bool   `yaml:"development" toml:"development"`
	} `yaml:"logging" toml:"logging"`
	Output struct {
		SummaryPath *string `yaml:"summary" toml:"summary"`
		DOTPath     *string `yaml:"dot" toml:"dot"`
		MetricsAddr *string `yaml:"metrics_addr" toml:"metrics_addr"`
	} `yaml:"output" toml:"output"`
}

// LoadFile overrides cfg with the values of a .yaml, .yml or .toml file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "unable to read %s", path)
	}

	return c.Decode(filepath.Ext(path), data)
}

// Decode overrides cfg with data, in the format given by its file extension.
func (c *Config) Decode(ext string, data []byte) error {
	var fc fileConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return errors.Wrap(err, "unable to decode yaml")
		}
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return errors.Wrap(err, "unable to decode toml")
		}
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}

	return c.merge(&fc)
}

func (c *Config) merge(fc *fileConfig) error {
	setInt(&c.Bench.Items, fc.Bench.Items)
	setInt(&c.Bench.Repetitions, fc.Bench.Repetitions)
	setInt(&c.Bench.Capacity, fc.Bench.Capacity)
	setInt(&c.Bench.Workers, fc.Bench.Workers)
	if fc.Bench.Seed != nil {
		c.Bench.Seed = *fc.Bench.Seed
	}
	if fc.Bench.ArrivalRate != nil {
		c.Bench.ArrivalRate = *fc.Bench.ArrivalRate
	}
	if err := setDuration(&c.Bench.StageCost, fc.Bench.StageCost); err != nil {
		return errors.Wrap(err, "stage_cost")
	}
	if err := setDuration(&c.Bench.StageJitter, fc.Bench.StageJitter); err != nil {
		return errors.Wrap(err, "stage_jitter")
	}

	setString(&c.Logging.Level, fc.Logging.Level)
	if fc.Logging.Development != nil {
		c.Logging.Development = *fc.Logging.Development
	}

	setString(&c.Output.SummaryPath, fc.Output.SummaryPath)
	setString(&c.Output.DOTPath, fc.Output.DOTPath)
	setString(&c.Output.MetricsAddr, fc.Output.MetricsAddr)

	return nil
}

func setInt(dst, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", *src)
	}
	*dst = d

	return nil
}

// Validate checks the values a benchmark cannot run with.
func (c *Config) Validate() error {
	b := c.Bench
	switch {
	case b.Items <= 0:
		return errors.Wrapf(ErrInvalid, "items must be greater than 0, got %d", b.Items)
	case b.Repetitions <= 0:
		return errors.Wrapf(ErrInvalid, "repetitions must be greater than 0, got %d", b.Repetitions)
	case b.Capacity <= 0:
		return errors.Wrapf(ErrInvalid, "capacity must be greater than 0, got %d", b.Capacity)
	case b.Workers <= 0:
		return errors.Wrapf(ErrInvalid, "workers must be greater than 0, got %d", b.Workers)
	case b.StageCost <= 0:
		return errors.Wrapf(ErrInvalid, "stage cost must be greater than 0, got %s", b.StageCost)
	case b.StageJitter < 0 || b.StageJitter > b.StageCost:
		return errors.Wrapf(ErrInvalid, "stage jitter must be in [0, %s], got %s", b.StageCost, b.StageJitter)
	case b.ArrivalRate < 0:
		return errors.Wrapf(ErrInvalid, "arrival rate must not be negative, got %f", b.ArrivalRate)
	}

	return nil
}

// HarnessConfig builds the harness configuration with the dishwashing stages.
func (c *Config) HarnessConfig() (bench.Config, error) {
	stages, err := workload.DishStages(c.Bench.StageCost, c.Bench.StageJitter, c.Bench.Seed)
	if err != nil {
		return bench.Config{}, errors.Wrap(err, "unable to build stages")
	}

	return bench.Config{
		Items:       c.Bench.Items,
		Repetitions: c.Bench.Repetitions,
		Capacity:    c.Bench.Capacity,
		Seed:        c.Bench.Seed,
		Stages:      stages,
		Concurrency: c.Bench.Workers,
		ArrivalRate: c.Bench.ArrivalRate,
	}, nil
}

// LoggerConfig returns the logger configuration.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Development = c.Logging.Development

	return cfg
}
