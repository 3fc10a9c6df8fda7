package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read by the CLI
const EnvPrefix = "COMPASS"

// Load loads a configuration from a YAML file
func Load(filePath string, config interface{}) error {
	content, err := readExpanded(filePath)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(content, config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// Save saves a configuration to a YAML file
func Save(filePath string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// NewViper returns a viper instance seeded with Defaults and bound to
// COMPASS_* environment variables. If filePath is not empty the YAML file
// is read (with ${VAR} substitution) on top of the defaults.
func NewViper(filePath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filePath != "" {
		content, err := readExpanded(filePath)
		if err != nil {
			return nil, err
		}
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	return v, nil
}

// FromViper decodes the layered settings into a Config
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	// Comma separated lists arrive as a single element from env vars and flags.
	cfg.Bench.Codecs = splitList(cfg.Bench.Codecs)
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("input", d.Input)
	v.SetDefault("entropy_file", d.EntropyFile)
	v.SetDefault("results_file", d.ResultsFile)
	v.SetDefault("clusters", d.Clusters)
	v.SetDefault("entropy.threshold", d.Entropy.Threshold)
	v.SetDefault("clustering.seed", d.Clustering.Seed)
	v.SetDefault("clustering.restarts", d.Clustering.Restarts)
	v.SetDefault("clustering.max_iterations", d.Clustering.MaxIterations)
	v.SetDefault("clustering.tolerance", d.Clustering.Tolerance)
	v.SetDefault("clustering.selection_split", d.Clustering.SelectionSplit)
	v.SetDefault("bench.codecs", d.Bench.Codecs)
	v.SetDefault("bench.level", d.Bench.Level)
	v.SetDefault("bench.workers", d.Bench.Workers)
	v.SetDefault("bench.temp_dir", d.Bench.TempDir)
	v.SetDefault("bench.keep_temp", d.Bench.KeepTemp)
	v.SetDefault("output.scores_file", d.Output.ScoresFile)
	v.SetDefault("output.metrics_file", d.Output.MetricsFile)
	v.SetDefault("observability.log_level", d.Observability.LogLevel)
	v.SetDefault("observability.log_format", d.Observability.LogFormat)
	v.SetDefault("observability.trace", d.Observability.Trace)
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, strings.ToLower(strings.TrimSpace(part)))
		}
	}
	return out
}

func readExpanded(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return []byte(substituteEnvVars(string(data))), nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
