package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/dishwash-pipeline/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("DISHWASH_BENCH_ITEMS", "7")
	t.Setenv("DISHWASH_BENCH_STAGE_COST", "10ms")
	t.Setenv("DISHWASH_BENCH_WORKERS", "2")
	t.Setenv("DISHWASH_LOGGING_LEVEL", "debug")
	t.Setenv("DISHWASH_OUTPUT_METRICS_ADDR", ":9100")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Bench.Items)
	assert.Equal(t, 10*time.Millisecond, cfg.Bench.StageCost)
	assert.Equal(t, 2, cfg.Bench.Workers)
	assert.Equal(t, 3, cfg.Bench.Repetitions)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9100", cfg.Output.MetricsAddr)
}

func TestLoadEnvInvalid(t *testing.T) {
	t.Setenv("DISHWASH_BENCH_ITEMS", "many")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		ext  string
		data string
	}{
		"yaml": {
			ext: ".yaml",
			data: `
bench:
  items: 12
  capacity: 2
  stage_cost: 100ms
  stage_jitter: 20ms
logging:
  development: true
output:
  summary: summary.json
`,
		},
		"toml": {
			ext: ".TOML",
			data: `
[bench]
items = 12
capacity = 2
stage_cost = "100ms"
stage_jitter = "20ms"

[logging]
development = true

[output]
summary = "summary.json"
`,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			require.NoError(t, cfg.Decode(tc.ext, []byte(tc.data)))

			assert.Equal(t, 12, cfg.Bench.Items)
			assert.Equal(t, 2, cfg.Bench.Capacity)
			assert.Equal(t, 100*time.Millisecond, cfg.Bench.StageCost)
			assert.Equal(t, 20*time.Millisecond, cfg.Bench.StageJitter)
			assert.True(t, cfg.Logging.Development)
			assert.Equal(t, "summary.json", cfg.Output.SummaryPath)

			// Keys absent from the file keep their value.
			assert.Equal(t, 3, cfg.Bench.Repetitions)
			assert.Equal(t, int64(42), cfg.Bench.Seed)
			assert.Equal(t, "info", cfg.Logging.Level)
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.ErrorIs(t, cfg.Decode(".ini", nil), config.ErrUnsupportedFormat)
	assert.Error(t, cfg.Decode(".yaml", []byte("bench:\n  stage_cost: soon\n")))
	assert.Error(t, cfg.Decode(".toml", []byte("[bench\n")))
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dishwash.yml")
	require.NoError(t, os.WriteFile(path, []byte("bench:\n  repetitions: 5\n"), 0o600))

	cfg := config.Default()
	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, 5, cfg.Bench.Repetitions)

	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]func(cfg *config.Config){
		"no item":         func(cfg *config.Config) { cfg.Bench.Items = 0 },
		"no repetition":   func(cfg *config.Config) { cfg.Bench.Repetitions = 0 },
		"zero capacity":   func(cfg *config.Config) { cfg.Bench.Capacity = 0 },
		"no worker":       func(cfg *config.Config) { cfg.Bench.Workers = 0 },
		"zero cost":       func(cfg *config.Config) { cfg.Bench.StageCost = 0 },
		"jitter too big":  func(cfg *config.Config) { cfg.Bench.StageJitter = time.Second },
		"negative jitter": func(cfg *config.Config) { cfg.Bench.StageJitter = -time.Millisecond },
		"negative rate":   func(cfg *config.Config) { cfg.Bench.ArrivalRate = -1 },
	}

	for name, update := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			update(cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
		})
	}
}

func TestHarnessConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Bench.StageJitter = 10 * time.Millisecond
	cfg.Bench.ArrivalRate = 50

	got, err := cfg.HarnessConfig()
	require.NoError(t, err)
	assert.Equal(t, 20, got.Items)
	assert.Equal(t, 3, got.Repetitions)
	assert.Equal(t, 5, got.Capacity)
	assert.Equal(t, int64(42), got.Seed)
	assert.Equal(t, 1, got.Concurrency)
	assert.InDelta(t, 50.0, got.ArrivalRate, 0)
	require.Len(t, got.Stages, 4)
	assert.Equal(t, "pre-rinse", got.Stages[0].Name)
	assert.Equal(t, 50*time.Millisecond, got.Stages[0].Cost.Mean())

	cfg.Bench.StageCost = 0
	_, err = cfg.HarnessConfig()
	assert.Error(t, err)
}

func TestLoggerConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.Development = true

	got := cfg.LoggerConfig()
	assert.Equal(t, "warn", got.Level)
	assert.True(t, got.Development)
	assert.Equal(t, []string{"stderr"}, got.OutputPaths)
}
