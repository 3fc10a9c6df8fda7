package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Config is the single configuration structure for an experiment run.
type Config struct {
	// Input is a CSV file or a directory of CSV files
	Input string `yaml:"input" json:"input" mapstructure:"input"`
	// EntropyFile receives the two-row entropy profile
	EntropyFile string `yaml:"entropy_file" json:"entropy_file" mapstructure:"entropy_file"`
	// ResultsFile is the append-only benchmark log
	ResultsFile string `yaml:"results_file" json:"results_file" mapstructure:"results_file"`
	// Clusters is the target cluster count k
	Clusters int `yaml:"clusters" json:"clusters" mapstructure:"clusters"`

	Entropy       EntropyConfig       `yaml:"entropy" json:"entropy" mapstructure:"entropy"`
	Clustering    ClusteringConfig    `yaml:"clustering" json:"clustering" mapstructure:"clustering"`
	Bench         BenchConfig         `yaml:"bench" json:"bench" mapstructure:"bench"`
	Output        OutputConfig        `yaml:"output" json:"output" mapstructure:"output"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// EntropyConfig controls column selection by entropy.
type EntropyConfig struct {
	// Threshold selects columns whose entropy is strictly below it
	Threshold float64 `yaml:"threshold" json:"threshold" mapstructure:"threshold"`
}

// ClusteringConfig controls the column partitioner.
type ClusteringConfig struct {
	// Seed makes k-means deterministic
	Seed uint64 `yaml:"seed" json:"seed" mapstructure:"seed"`
	// Restarts is the number of k-means++ initialisations
	Restarts int `yaml:"restarts" json:"restarts" mapstructure:"restarts"`
	// MaxIterations caps Lloyd iterations per restart
	MaxIterations int `yaml:"max_iterations" json:"max_iterations" mapstructure:"max_iterations"`
	// Tolerance stops iterating once centroids move less than this
	Tolerance float64 `yaml:"tolerance" json:"tolerance" mapstructure:"tolerance"`
	// SelectionSplit enables the low-entropy split when k == 2
	SelectionSplit bool `yaml:"selection_split" json:"selection_split" mapstructure:"selection_split"`
}

// BenchConfig controls the compression harness.
type BenchConfig struct {
	// Codecs lists algorithm names (deflate, bzip2, lzma, gzip, zstd, s2, snappy, lz4)
	Codecs []string `yaml:"codecs" json:"codecs" mapstructure:"codecs"`
	// Level is one of fastest, default, better, best
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	// Workers bounds concurrent (unit, codec) invocations; 1 runs sequentially
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`
	// TempDir is the parent of the scratch arena; empty means the OS default
	TempDir string `yaml:"temp_dir" json:"temp_dir" mapstructure:"temp_dir"`
	// KeepTemp leaves materialised units on disk after the run
	KeepTemp bool `yaml:"keep_temp" json:"keep_temp" mapstructure:"keep_temp"`
}

// OutputConfig lists optional side outputs.
type OutputConfig struct {
	// ScoresFile receives one silhouette score row per partitioning run
	ScoresFile string `yaml:"scores_file" json:"scores_file" mapstructure:"scores_file"`
	// MetricsFile receives a Prometheus textfile at the end of the run
	MetricsFile string `yaml:"metrics_file" json:"metrics_file" mapstructure:"metrics_file"`
}

// ObservabilityConfig controls logging and tracing.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format" mapstructure:"log_format"`
	Trace     bool   `yaml:"trace" json:"trace" mapstructure:"trace"`
}

// Defaults returns a configuration with the values used by the original experiments.
func Defaults() *Config {
	return &Config{
		Clusters: 2,
		Entropy: EntropyConfig{
			Threshold: 3,
		},
		Clustering: ClusteringConfig{
			Seed:           42,
			Restarts:       10,
			MaxIterations:  300,
			Tolerance:      1e-4,
			SelectionSplit: true,
		},
		Bench: BenchConfig{
			Codecs:  []string{"deflate", "bzip2", "lzma"},
			Level:   "default",
			Workers: 1,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input is required")
	}
	if c.EntropyFile == "" {
		return fmt.Errorf("entropy_file is required")
	}
	if c.ResultsFile == "" {
		return fmt.Errorf("results_file is required")
	}
	if c.Clusters <= 0 {
		return fmt.Errorf("clusters must be positive, got %d", c.Clusters)
	}
	if c.Entropy.Threshold < 0 {
		return fmt.Errorf("entropy threshold cannot be negative")
	}
	if c.Clustering.Restarts <= 0 {
		return fmt.Errorf("clustering restarts must be positive")
	}
	if c.Clustering.MaxIterations <= 0 {
		return fmt.Errorf("clustering max_iterations must be positive")
	}
	if len(c.Bench.Codecs) == 0 {
		return fmt.Errorf("at least one codec is required")
	}
	if c.Bench.Workers < 0 {
		return fmt.Errorf("bench workers cannot be negative")
	}
	switch strings.ToLower(c.Bench.Level) {
	case "", "fastest", "default", "better", "best":
	default:
		return fmt.Errorf("unknown compression level %q", c.Bench.Level)
	}
	return nil
}

// GetWorkers returns the number of harness workers, ensuring it's at least 1
func (b *BenchConfig) GetWorkers() int {
	if b.Workers <= 0 {
		return 1
	}
	if b.Workers > runtime.NumCPU()*4 {
		return runtime.NumCPU() * 4
	}
	return b.Workers
}

// SelectionSplitApplies reports whether the low-entropy split runs for this k
func (c *Config) SelectionSplitApplies() bool {
	return c.Clustering.SelectionSplit && c.Clusters == 2
}
