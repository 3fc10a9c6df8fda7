// Command compass partitions the columns of a tabular dataset, benchmarks
// compression codecs on each partition and aggregates the results.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/compass/internal/pipeline"
	"github.com/ajitpratap0/compass/pkg/benchlog"
	"github.com/ajitpratap0/compass/pkg/compression"
	"github.com/ajitpratap0/compass/pkg/config"
	"github.com/ajitpratap0/compass/pkg/dataset"
	"github.com/ajitpratap0/compass/pkg/errors"
	"github.com/ajitpratap0/compass/pkg/json"
	"github.com/ajitpratap0/compass/pkg/logger"
	"github.com/ajitpratap0/compass/pkg/observability"
	"github.com/ajitpratap0/compass/pkg/report"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "compass: %v\n", err)
		return errors.ExitCode(err)
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "compass",
		Short: "Column partitioning for better compression",
		Long: `Compass evaluates whether splitting a table's columns into groups before
compressing each group beats compressing the whole table as one block.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Wrap(err, errors.ErrorTypeUsage, "invalid flags")
	})

	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "Log format (console, json)")

	root.AddCommand(
		newRunCmd(),
		newEntropyCmd(),
		newReportCmd(),
		newScoresCmd(),
		newCodecsCmd(),
		newVersionCmd(),
	)
	return root
}

// exactArgs is cobra.ExactArgs reporting a usage error
func exactArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return errors.Newf(errors.ErrorTypeUsage, "accepts %d arg(s), received %d", n, len(args))
		}
		return nil
	}
}

func minArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return errors.Newf(errors.ErrorTypeUsage, "requires at least %d arg(s), received %d", n, len(args))
		}
		return nil
	}
}

// newLogger installs the global logger from the persistent flags, or from
// the configuration when the flags were left alone, and returns it.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	if cfg != nil {
		if !cmd.Flags().Changed("log-level") && cfg.Observability.LogLevel != "" {
			level = cfg.Observability.LogLevel
		}
		if !cmd.Flags().Changed("log-format") && cfg.Observability.LogFormat != "" {
			format = cfg.Observability.LogFormat
		}
	}
	if err := logger.Init(logger.Config{Level: level, Encoding: format}); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeUsage, "invalid logging flags")
	}
	return logger.Get(), nil
}

// flagBindings maps run flags to configuration keys
var flagBindings = map[string]string{
	"codecs":       "bench.codecs",
	"level":        "bench.level",
	"workers":      "bench.workers",
	"temp-dir":     "bench.temp_dir",
	"keep-temp":    "bench.keep_temp",
	"scores":       "output.scores_file",
	"metrics-file": "output.metrics_file",
	"threshold":    "entropy.threshold",
	"seed":         "clustering.seed",
	"trace":        "observability.trace",
	"log-level":    "observability.log_level",
	"log-format":   "observability.log_format",
}

func newRunCmd() *cobra.Command {
	var configPath string
	var noSelection bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <input> <entropy-out> <results-out> <clusters>",
		Short: "Profile, partition and benchmark a dataset",
		Long: `Run one experiment: compute the entropy profile of <input> (a CSV file or a
directory of CSV files), partition its columns into <clusters> groups with
every enabled strategy, and append one benchmark record per unit and codec
to <results-out>.

Example:
  compass run data/sensors.csv entropy.csv results.csv 2 --codecs deflate,bzip2,lzma`,
		Args: exactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd, configPath, args)
			if err != nil {
				return err
			}
			if noSelection {
				cfg.Clustering.SelectionSplit = false
			}

			log, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			shutdown, err := observability.Init(observability.Config{
				Enabled:        cfg.Observability.Trace,
				ServiceName:    "compass",
				ServiceVersion: version,
				Writer:         cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Warn("failed to flush traces", zap.Error(err))
				}
			}()

			out, err := pipeline.Run(cmd.Context(), pipeline.Settings{Config: cfg}, log)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				data, err := json.Marshal(out)
				if err != nil {
					return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode run outcome")
				}
				fmt.Fprintf(w, "%s\n", data)
				return nil
			}
			fmt.Fprintf(w, "%s: %d records, %d failures\n", out.Baseline.Method, out.Baseline.Records, out.Baseline.Failures)
			for _, r := range out.Runs {
				fmt.Fprintf(w, "%s: %d clusters, score %.4f, %d records, %d failures\n",
					r.Method, r.Result.Partition.Len(), r.Result.Score, r.Summary.Records, r.Summary.Failures)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	cmd.Flags().StringSlice("codecs", nil, "Codecs to benchmark (deflate, bzip2, lzma, gzip, zstd, s2, snappy, lz4)")
	cmd.Flags().String("level", "default", "Compression level (fastest, default, better, best)")
	cmd.Flags().Int("workers", 1, "Concurrent codec invocations")
	cmd.Flags().String("temp-dir", "", "Parent directory for scratch files")
	cmd.Flags().Bool("keep-temp", false, "Keep materialised units after the run")
	cmd.Flags().String("scores", "", "Append silhouette scores to this CSV file")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")
	cmd.Flags().Float64("threshold", 3, "Entropy threshold of the low-entropy selection")
	cmd.Flags().Uint64("seed", 42, "k-means seed")
	cmd.Flags().Bool("trace", false, "Print OpenTelemetry spans to stderr")
	cmd.Flags().BoolVar(&noSelection, "no-selection", false, "Skip the low-entropy selection split")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run outcome as JSON")
	return cmd
}

// loadRunConfig layers defaults, the config file, COMPASS_* variables,
// changed flags and the positional arguments.
func loadRunConfig(cmd *cobra.Command, path string, args []string) (*config.Config, error) {
	v, err := config.NewViper(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load configuration")
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	clusters, err := strconv.Atoi(args[3])
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeUsage, "number of clusters %q is not an integer", args[3])
	}
	v.Set("input", args[0])
	v.Set("entropy_file", args[1])
	v.Set("results_file", args[2])
	v.Set("clusters", clusters)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagBindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to bind flag").WithDetail("flag", name)
		}
	}
	return nil
}

func newEntropyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entropy <input> <entropy-out>",
		Short: "Write the entropy profile of a dataset",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ds, err := dataset.Load(args[0])
			if err != nil {
				return err
			}
			profile, err := pipeline.Profile(ds, args[1], log)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, name := range profile.Names() {
				fmt.Fprintf(w, "%s\t%.4f\n", name, profile.Values()[i])
			}
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	var (
		output  string
		verbose bool
		format  string
	)
	cmd := &cobra.Command{
		Use:   "report <log>...",
		Short: "Aggregate benchmark logs into a comparative report",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			records, diags, err := benchlog.ReadFiles(args)
			if err != nil {
				return err
			}
			for _, d := range diags {
				log.Warn("ignoring invalid row", zap.String("origin", d.Origin), zap.Int("line", d.Line), zap.String("reason", d.Reason))
			}

			rep := report.Aggregate(records, report.Options{Verbose: verbose})
			rep.Diagnostics = diags
			if _, ok := rep.BaselineMin(); !ok {
				log.Warn("no baseline records; savings are undefined")
			}
			if err := report.WriteFile(output, rep, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Aggregated report %q created from %d records\n", output, len(records))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "aggregated_data.csv", "Output file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include naive per method and codec totals")
	cmd.Flags().StringVar(&format, "format", "csv", "Output format (csv, json)")
	return cmd
}

func newScoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scores <score-log> <out>",
		Short: "Tabulate silhouette scores by cluster count",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			scores, diags, err := report.ReadScoresFile(args[0])
			if err != nil {
				return err
			}
			for _, d := range diags {
				log.Warn("line did not match and was skipped", zap.String("diagnostic", d.String()))
			}

			table := report.NewScoreTable(scores)
			f, err := os.Create(args[1]) //nolint:gosec // G304: output path is supplied by the operator
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to create score table").WithDetail("path", args[1])
			}
			if err := report.WriteScoreTable(f, table); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to close score table").WithDetail("path", args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "The maximum number of columns with values > 0 is: %d\n", table.MaxPositive())
			return nil
		},
	}
}

func newCodecsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codecs",
		Short: "List available codecs",
		Args:  exactArgs(0),
		Run: func(cmd *cobra.Command, _ []string) {
			defaults := make(map[compression.Algorithm]bool)
			for _, a := range compression.DefaultSet() {
				defaults[a] = true
			}
			w := cmd.OutOrStdout()
			for _, a := range compression.Algorithms() {
				mark := " "
				if defaults[a] {
					mark = "*"
				}
				fmt.Fprintf(w, "%s %-8s %s\n", mark, a, a.Extension())
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Compass v%s\n", version)
			fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
