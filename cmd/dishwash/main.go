// Command dishwash compares a sequential dishwashing line with a pipelined
// one, where every stage has its own worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/askiada/dishwash-pipeline/internal/config"
	"github.com/askiada/dishwash-pipeline/internal/logging"
	"github.com/askiada/dishwash-pipeline/pkg/bench"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/drawer"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/measure"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/model"
	"github.com/askiada/dishwash-pipeline/pkg/pipeline/monitor"
)

func main() {
	configPath := flag.String("config", "", "yaml or toml configuration file")
	dev := flag.Bool("dev", false, "human readable logs")
	out := flag.String("out", "", "write the summary to this .yaml, .yml or .json file")
	dotPath := flag.String("dot", "", "draw the last pipelined trial to this DOT file")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *dev {
		cfg.Logging.Development = true
	}
	overrideString(&cfg.Output.SummaryPath, *out)
	overrideString(&cfg.Output.DOTPath, *dotPath)
	overrideString(&cfg.Output.MetricsAddr, *metricsAddr)

	logger, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("benchmark failed", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1) //nolint:gocritic
	}
}

func overrideString(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path != "" {
		err = cfg.LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	benchCfg, err := cfg.HarnessConfig()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	collector, err := monitor.NewCollector(reg)
	if err != nil {
		return err
	}
	if cfg.Output.MetricsAddr != "" {
		srv := serveMetrics(cfg.Output.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	lastTrial := benchCfg.Repetitions - 1
	harness, err := bench.New(benchCfg,
		bench.WithLogger(logger),
		bench.WithHooks(func(trial int, mode pipeline.Mode) []model.PipelineOption {
			hooks := []model.PipelineOption{collector}
			if cfg.Output.DOTPath != "" && mode == pipeline.ModePipeline && trial == lastTrial {
				msr := measure.NewDefaultMeasure()
				hooks = append(hooks,
					measure.PipelineMeasure(msr),
					drawer.PipelineDrawer(drawer.NewDOTDrawer(cfg.Output.DOTPath), msr),
				)
			}

			return hooks
		}),
		bench.WithTrialObserver(func(t bench.Trial) {
			if t.Err == nil {
				collector.ObserveTrial(string(t.Mode), t.Duration)
			}
		}),
	)
	if err != nil {
		return pkgerrors.Wrap(err, "unable to create harness")
	}

	logger.Info("starting benchmark",
		zap.Int("items", benchCfg.Items),
		zap.Int("stages", len(benchCfg.Stages)),
		zap.Int("repetitions", benchCfg.Repetitions),
		zap.Int("capacity", benchCfg.Capacity),
		zap.Int("workers", harness.WorkerCount()),
	)

	summary, err := harness.Run(ctx)
	if err != nil {
		return err
	}

	logSummary(logger, summary)

	if cfg.Output.SummaryPath != "" {
		err = writeSummary(cfg.Output.SummaryPath, summary)
		if err != nil {
			return err
		}
		logger.Info("summary written", zap.String("path", cfg.Output.SummaryPath))
	}

	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return srv
}

func logSummary(logger *zap.Logger, s *bench.Summary) {
	fields := []zap.Field{
		zap.String("id", s.ID),
		zap.Int("items", s.ItemCount),
		zap.Int("trials", s.TrialCount),
		zap.Int("workers", s.WorkerCount),
		zap.Duration("avg_sequential", s.AverageDurationSeq),
		zap.Duration("avg_pipeline", s.AverageDurationPar),
		zap.Float64("throughput_sequential", s.Sequential.Throughput),
		zap.Float64("throughput_pipeline", s.Pipelined.Throughput),
		zap.Duration("avg_item_sequential", s.Sequential.AvgTimePerItem),
		zap.Duration("avg_item_pipeline", s.Pipelined.AvgTimePerItem),
		zap.Float64("speedup", s.Speedup),
		zap.Float64("efficiency", s.Efficiency),
	}
	if s.Prediction != nil {
		fields = append(fields,
			zap.String("bottleneck", s.Prediction.Bottleneck),
			zap.Float64("max_speedup", s.Prediction.MaxSpeedup),
		)
	}
	logger.Info("summary", fields...)
}

func writeSummary(path string, s *bench.Summary) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	case ".json":
		data, err = sonic.MarshalIndent(s, "", "  ")
	default:
		return pkgerrors.Errorf("unsupported summary format %q", filepath.Ext(path))
	}
	if err != nil {
		return pkgerrors.Wrap(err, "unable to encode summary")
	}

	err = os.WriteFile(path, data, 0o600)
	if err != nil {
		return pkgerrors.Wrapf(err, "unable to write %s", path)
	}

	return nil
}
