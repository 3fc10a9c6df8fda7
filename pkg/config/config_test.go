package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Defaults()
	cfg.Input = "in.csv"
	cfg.EntropyFile = "entropy.csv"
	cfg.ResultsFile = "results.csv"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing input", mutate: func(c *Config) { c.Input = "" }, wantErr: true},
		{name: "missing results", mutate: func(c *Config) { c.ResultsFile = "" }, wantErr: true},
		{name: "zero clusters", mutate: func(c *Config) { c.Clusters = 0 }, wantErr: true},
		{name: "negative threshold", mutate: func(c *Config) { c.Entropy.Threshold = -1 }, wantErr: true},
		{name: "no codecs", mutate: func(c *Config) { c.Bench.Codecs = nil }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Bench.Level = "ultra" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelectionSplitApplies(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.SelectionSplitApplies())
	cfg.Clusters = 3
	assert.False(t, cfg.SelectionSplitApplies())
	cfg.Clusters = 2
	cfg.Clustering.SelectionSplit = false
	assert.False(t, cfg.SelectionSplitApplies())
}

func TestLoadSubstitutesEnv(t *testing.T) {
	t.Setenv("COMPASS_TEST_INPUT", "/data/battery.csv")
	path := filepath.Join(t.TempDir(), "compass.yaml")
	content := "input: ${COMPASS_TEST_INPUT}\nclusters: 5\nbench:\n  codecs: [zstd, lz4]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := Defaults()
	require.NoError(t, Load(path, cfg))
	assert.Equal(t, "/data/battery.csv", cfg.Input)
	assert.Equal(t, 5, cfg.Clusters)
	assert.Equal(t, []string{"zstd", "lz4"}, cfg.Bench.Codecs)
	assert.Equal(t, 3.0, cfg.Entropy.Threshold)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := validConfig()
	cfg.Bench.Workers = 4
	require.NoError(t, Save(path, cfg))

	loaded := &Config{}
	require.NoError(t, Load(path, loaded))
	assert.Equal(t, cfg, loaded)
}

func TestViperLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compass.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clusters: 6\nbench:\n  workers: 2\n"), 0o644))
	t.Setenv("COMPASS_BENCH_WORKERS", "8")
	t.Setenv("COMPASS_BENCH_CODECS", "deflate,zstd")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Clusters)
	assert.Equal(t, 8, cfg.Bench.Workers)
	assert.Equal(t, []string{"deflate", "zstd"}, cfg.Bench.Codecs)
	assert.Equal(t, uint64(42), cfg.Clustering.Seed)
}

func TestNewViperMissingFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
