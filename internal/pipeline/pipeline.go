// Package pipeline runs one Compass experiment end to end: it profiles the
// dataset, partitions its columns with every enabled strategy and benchmarks
// the whole dataset and each partition under the configured codecs.
//
// Every stage takes its inputs as parameters; the only state shared between
// stages is the benchmark log on disk.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/compass/pkg/bench"
	"github.com/ajitpratap0/compass/pkg/benchlog"
	"github.com/ajitpratap0/compass/pkg/cluster"
	"github.com/ajitpratap0/compass/pkg/compression"
	"github.com/ajitpratap0/compass/pkg/config"
	"github.com/ajitpratap0/compass/pkg/dataset"
	"github.com/ajitpratap0/compass/pkg/entropy"
	"github.com/ajitpratap0/compass/pkg/errors"
	"github.com/ajitpratap0/compass/pkg/logger"
	"github.com/ajitpratap0/compass/pkg/metrics"
	"github.com/ajitpratap0/compass/pkg/observability"
	"github.com/ajitpratap0/compass/pkg/report"
	"github.com/ajitpratap0/compass/pkg/scratch"
)

// Settings is everything a run needs
type Settings struct {
	Config *config.Config
	// Metrics receives run measurements; a fresh collector is used when nil
	Metrics *metrics.Collector
	// Namer overrides scratch file naming
	Namer scratch.Namer
}

// MethodRun is the outcome of one partitioning strategy
type MethodRun struct {
	Method  string          `json:"method"`
	Result  *cluster.Result `json:"result"`
	Summary *bench.Summary  `json:"summary"`
}

// Outcome summarises a finished experiment
type Outcome struct {
	RunID    string             `json:"run_id"`
	Dataset  string             `json:"dataset"`
	Rows     int                `json:"rows"`
	Columns  int                `json:"columns"`
	Entropy  map[string]float64 `json:"entropy"`
	Selected []string           `json:"selected"`
	Baseline *bench.Summary     `json:"baseline"`
	Runs     []MethodRun        `json:"runs"`
	Duration time.Duration      `json:"duration"`
}

// Kinds returns the strategies a configuration enables, in run order
func Kinds(cfg *config.Config) []cluster.Kind {
	var kinds []cluster.Kind
	if cfg.SelectionSplitApplies() {
		kinds = append(kinds, cluster.SelectionSplit)
	}
	return append(kinds, cluster.FeatureClustering, cluster.EntropyClustering)
}

// Run executes the experiment described by s.Config.
func Run(ctx context.Context, s Settings, log *zap.Logger) (*Outcome, error) {
	cfg := s.Config
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "no configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	if log == nil {
		log = logger.Get()
	}
	collector := s.Metrics
	if collector == nil {
		collector = metrics.NewCollector()
	}

	start := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log = logger.WithContext(ctx, log)
	log.Info("starting experiment",
		zap.String("input", cfg.Input),
		zap.Int("clusters", cfg.Clusters),
		zap.Strings("codecs", cfg.Bench.Codecs))
	log.Debug("host", metrics.CollectHostInfo().Fields()...)

	ctx, span := observability.StartSpan(ctx, "experiment")
	out, err := run(ctx, s, collector, log)
	span.End(err)
	if err != nil {
		return nil, err
	}
	out.RunID = runID
	out.Duration = time.Since(start)

	if path := cfg.Output.MetricsFile; path != "" {
		if err := collector.WriteTextfile(path); err != nil {
			return nil, err
		}
	}
	if usage, err := metrics.ProcessUsage(); err == nil {
		log.Info("experiment finished",
			zap.Duration("duration", out.Duration),
			zap.Float64("cpu_seconds", usage.CPUSeconds),
			zap.Uint64("rss_bytes", usage.MemoryRSS))
	}
	return out, nil
}

func run(ctx context.Context, s Settings, collector *metrics.Collector, log *zap.Logger) (*Outcome, error) {
	cfg := s.Config

	ds, err := dataset.Load(cfg.Input)
	if err != nil {
		return nil, err
	}
	base := dataset.Stem(cfg.Input)
	log.Info("dataset loaded",
		zap.String("dataset", base),
		zap.Int("rows", ds.NumRows()),
		zap.Int("columns", ds.NumColumns()))

	profile, err := Profile(ds, cfg.EntropyFile, log)
	if err != nil {
		return nil, err
	}
	selected := profile.Below(cfg.Entropy.Threshold)
	log.Info("low entropy columns selected",
		zap.Float64("threshold", cfg.Entropy.Threshold),
		zap.Strings("columns", selected))

	codecs, err := codecSet(cfg)
	if err != nil {
		return nil, err
	}

	parent := cfg.Bench.TempDir
	if parent == "" {
		parent = os.TempDir()
	}
	opts := []scratch.Option{scratch.WithLogger(log), scratch.WithKeep(cfg.Bench.KeepTemp)}
	if s.Namer != nil {
		opts = append(opts, scratch.WithNamer(s.Namer))
	}
	arena, err := scratch.New(parent, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := arena.Close(); err != nil {
			log.Warn("failed to clean up scratch files", zap.Error(err))
		}
	}()

	results, err := benchlog.Open(cfg.ResultsFile)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := results.Close(); err != nil {
			log.Warn("failed to close benchmark log", zap.Error(err))
		}
	}()

	var scores *report.ScoreLog
	if path := cfg.Output.ScoresFile; path != "" {
		if scores, err = report.OpenScoreLog(path); err != nil {
			return nil, err
		}
		defer func() {
			if err := scores.Close(); err != nil {
				log.Warn("failed to close score log", zap.Error(err))
			}
		}()
	}

	h, err := bench.New(bench.Options{
		Codecs:  codecs,
		Workers: cfg.Bench.GetWorkers(),
		Arena:   arena,
		Log:     results,
		Metrics: collector,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Dataset:  base,
		Rows:     ds.NumRows(),
		Columns:  ds.NumColumns(),
		Entropy:  profile.Map(),
		Selected: selected,
	}
	if out.Baseline, err = h.Bench(ctx, ds, bench.BaselineMethod, []bench.Unit{bench.WholeUnit(ds, base)}); err != nil {
		return nil, err
	}

	clusterOpts := cluster.Options{
		Seed:          cfg.Clustering.Seed,
		Restarts:      cfg.Clustering.Restarts,
		MaxIterations: cfg.Clustering.MaxIterations,
		Tolerance:     cfg.Clustering.Tolerance,
		Threshold:     cfg.Entropy.Threshold,
	}
	in := cluster.Input{Dataset: ds, Profile: profile}

	for _, kind := range Kinds(cfg) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		strategy, err := cluster.New(kind, clusterOpts, log)
		if err != nil {
			return nil, err
		}
		res, err := strategy.Partition(ctx, in, cfg.Clusters)
		if err != nil {
			return nil, err
		}
		if err := res.Partition.Validate(ds.Names()); err != nil {
			return nil, err
		}
		method := cluster.Method(strategy, res.K)

		if kind != cluster.SelectionSplit {
			log.Info(fmt.Sprintf("%s: n_clusters = %d, the average silhouette_score, %v", method, res.K, res.Score),
				zap.Bool("degenerate", res.Degenerate))
			collector.ObserveScore(base, method, res.Score)
			if scores != nil {
				if err := scores.Append(report.Score{Source: base, Method: method, K: res.K, Value: res.Score}); err != nil {
					return nil, err
				}
			}
		}

		summary, err := h.Bench(ctx, ds, method, bench.PartitionUnits(res.Partition, base, method))
		if err != nil {
			return nil, err
		}
		out.Runs = append(out.Runs, MethodRun{Method: method, Result: res, Summary: summary})
	}
	return out, nil
}

// Profile computes the entropy profile of ds, writes it to path and returns
// the profile read back from the file, so later stages see exactly what was
// recorded.
func Profile(ds *dataset.Dataset, path string, log *zap.Logger) (*entropy.Profile, error) {
	if err := entropy.WriteFile(path, entropy.ProfileDataset(ds, log)); err != nil {
		return nil, err
	}
	return entropy.ReadFile(path)
}

func codecSet(cfg *config.Config) ([]compression.Compressor, error) {
	algorithms, err := compression.ParseSet(cfg.Bench.Codecs)
	if err != nil {
		return nil, err
	}
	level, err := compression.ParseLevel(cfg.Bench.Level)
	if err != nil {
		return nil, err
	}
	return compression.NewSet(algorithms, level)
}
