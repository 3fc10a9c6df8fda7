package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/compass/internal/pipeline"
	"github.com/ajitpratap0/compass/pkg/logger"
	"github.com/ajitpratap0/compass/pkg/testutil"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Compass v"+version)
}

func TestCodecs(t *testing.T) {
	code, out, _ := run(t, "codecs")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "* deflate  .deflate")
	assert.Contains(t, out, "  zstd     .zst")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing arguments", []string{"run", "in.csv"}},
		{"bad cluster count", []string{"run", "in.csv", "e.csv", "r.csv", "two"}},
		{"unknown flag", []string{"report", "--nope", "log.csv"}},
		{"unknown format", []string{"report", "--format", "xml", "log.csv"}},
		{"bad log level", []string{"entropy", "in.csv", "e.csv", "--log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := run(t, tt.args...)
			assert.Equal(t, 2, code)
			assert.True(t, strings.HasPrefix(stderr, "compass: "))
		})
	}
}

func TestLogFlagsInstallGlobalLogger(t *testing.T) {
	code, _, _ := run(t, "entropy", filepath.Join(t.TempDir(), "missing.csv"), "e.csv", "--log-level", "error")
	assert.Equal(t, 3, code)

	log := logger.Get()
	assert.True(t, log.Core().Enabled(zap.ErrorLevel))
	assert.False(t, log.Core().Enabled(zap.WarnLevel))
}

func TestMissingInput(t *testing.T) {
	dir := t.TempDir()
	code, _, _ := run(t, "run", filepath.Join(dir, "absent.csv"),
		filepath.Join(dir, "e.csv"), filepath.Join(dir, "r.csv"), "2", "--log-level", "error")
	assert.Equal(t, 3, code)
}

func TestRunThenReport(t *testing.T) {
	dir := t.TempDir()
	header, rows := testutil.SensorRows()
	input := testutil.WriteCSV(t, dir, "sensors.csv", header, rows)
	results := filepath.Join(dir, "results.csv")
	scores := filepath.Join(dir, "scores.csv")

	code, out, stderr := run(t, "run", input, filepath.Join(dir, "entropy.csv"), results, "2",
		"--codecs", "deflate,zstd",
		"--temp-dir", filepath.Join(dir, "scratch"),
		"--scores", scores,
		"--log-level", "error")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "BASELINE: 2 records, 0 failures")
	assert.Contains(t, out, "COMPASS_KMEANS_DATA (2)")

	reportPath := filepath.Join(dir, "report.csv")
	code, _, stderr = run(t, "report", results, "-o", reportPath, "-v", "--log-level", "error")
	require.Equal(t, 0, code, stderr)
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Method-Compression,Number of Clusters,Sum of Size (bytes),Performance\n"))
	assert.Contains(t, string(data), "COMPASS_BASELINE,1,")
	assert.Contains(t, string(data), "COMPASS_COMPASS_SIBACO,1,")

	tablePath := filepath.Join(dir, "table.tsv")
	code, out, stderr = run(t, "scores", scores, tablePath, "--log-level", "error")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "The maximum number of columns with values > 0 is:")
	table, err := os.ReadFile(tablePath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(table), "k\tsensors_{COMPASS-D}\tsensors_{COMPASS-E}\n"))
}

func TestRunJSON(t *testing.T) {
	dir := t.TempDir()
	header, rows := testutil.SensorRows()
	input := testutil.WriteCSV(t, dir, "sensors.csv", header, rows)

	code, out, stderr := run(t, "run", input, filepath.Join(dir, "entropy.csv"), filepath.Join(dir, "results.csv"), "2",
		"--codecs", "deflate",
		"--temp-dir", dir,
		"--no-selection",
		"--json",
		"--log-level", "error")
	require.Equal(t, 0, code, stderr)

	var outcome pipeline.Outcome
	require.NoError(t, gojson.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, "sensors", outcome.Dataset)
	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, 1, outcome.Baseline.Records)
	require.Len(t, outcome.Runs, 2)
	assert.Equal(t, "COMPASS_KMEANS_DATA (2)", outcome.Runs[0].Method)
}

func TestEntropy(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteCSV(t, dir, "t.csv", []string{"a", "b"}, [][]string{{"1", "x"}, {"1", "y"}})
	out := filepath.Join(dir, "entropy.csv")

	code, stdout, _ := run(t, "entropy", input, out, "--log-level", "error")
	require.Equal(t, 0, code)
	assert.Equal(t, "a\t0.0000\nb\t0.6931\n", stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "a,b\n0,"))
}
