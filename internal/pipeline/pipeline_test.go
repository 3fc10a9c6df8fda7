package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/compass/pkg/benchlog"
	"github.com/ajitpratap0/compass/pkg/cluster"
	"github.com/ajitpratap0/compass/pkg/config"
	"github.com/ajitpratap0/compass/pkg/entropy"
	"github.com/ajitpratap0/compass/pkg/errors"
	"github.com/ajitpratap0/compass/pkg/report"
	"github.com/ajitpratap0/compass/pkg/testutil"
)

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	header, rows := testutil.SensorRows()

	cfg := config.Defaults()
	cfg.Input = testutil.WriteCSV(t, dir, "sensors.csv", header, rows)
	cfg.EntropyFile = filepath.Join(dir, "entropy.csv")
	cfg.ResultsFile = filepath.Join(dir, "results.csv")
	cfg.Output.ScoresFile = filepath.Join(dir, "scores.csv")
	cfg.Output.MetricsFile = filepath.Join(dir, "compass.prom")
	cfg.Bench.TempDir = filepath.Join(dir, "scratch")
	return cfg, dir
}

func TestRun(t *testing.T) {
	cfg, _ := testConfig(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	out, err := Run(ctx, Settings{Config: cfg}, testutil.TestLogger(t))
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, "sensors", out.Dataset)
	assert.Equal(t, 8, out.Rows)
	assert.Equal(t, 6, out.Columns)
	assert.Len(t, out.Selected, 6)
	assert.Equal(t, 3, out.Baseline.Records)

	require.Len(t, out.Runs, 3)
	assert.Equal(t, "COMPASS_SIBACO", out.Runs[0].Method)
	assert.Equal(t, "COMPASS_KMEANS_DATA (2)", out.Runs[1].Method)
	assert.Equal(t, "COMPASS_KMEANS_ENTROPY (2)", out.Runs[2].Method)

	names := []string{"station", "status", "temperature", "humidity", "voltage", "flag"}
	wantRecords := out.Baseline.Records
	for _, r := range out.Runs {
		require.NoError(t, r.Result.Partition.Validate(names))
		assert.Zero(t, r.Summary.Failures)
		assert.Equal(t, r.Result.Partition.Len()*3, r.Summary.Records)
		wantRecords += r.Summary.Records
	}

	records, diags, err := benchlog.ReadFiles([]string{cfg.ResultsFile})
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Len(t, records, wantRecords)

	rep := report.Aggregate(records, report.Options{})
	_, ok := rep.BaselineMin()
	assert.True(t, ok)
	assert.Len(t, rep.Compass, 3)

	profile, err := entropy.ReadFile(cfg.EntropyFile)
	require.NoError(t, err)
	assert.Equal(t, names, profile.Names())

	scores, _, err := report.ReadScoresFile(cfg.Output.ScoresFile)
	require.NoError(t, err)
	assert.Len(t, scores, 2)

	prom, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "compass_codec_invocations_total")

	entries, err := os.ReadDir(cfg.Bench.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunIsDeterministic(t *testing.T) {
	var methods [][]map[int][]string
	for i := 0; i < 2; i++ {
		cfg, _ := testConfig(t)
		out, err := Run(context.Background(), Settings{Config: cfg}, nil)
		require.NoError(t, err)
		var groups []map[int][]string
		for _, r := range out.Runs {
			groups = append(groups, r.Result.Partition.Groups)
		}
		methods = append(methods, groups)
	}
	assert.Equal(t, methods[0], methods[1])
}

func TestRunKeepTemp(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Bench.KeepTemp = true
	cfg.Clusters = 3
	cfg.Bench.Codecs = []string{"zstd"}

	out, err := Run(context.Background(), Settings{Config: cfg}, testutil.TestLogger(t))
	require.NoError(t, err)
	require.Len(t, out.Runs, 2)

	entries, err := os.ReadDir(cfg.Bench.TempDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   errors.ErrorType
	}{
		{"no clusters", func(c *config.Config) { c.Clusters = 0 }, errors.ErrorTypeConfig},
		{"missing input", func(c *config.Config) { c.Input = filepath.Join(filepath.Dir(c.Input), "absent.csv") }, errors.ErrorTypeInput},
		{"unknown codec", func(c *config.Config) { c.Bench.Codecs = []string{"rar"} }, errors.ErrorTypeUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := testConfig(t)
			tt.mutate(cfg)
			_, err := Run(context.Background(), Settings{Config: cfg}, testutil.TestLogger(t))
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.TypeOf(err))
		})
	}
}

func TestKinds(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, []cluster.Kind{cluster.SelectionSplit, cluster.FeatureClustering, cluster.EntropyClustering}, Kinds(cfg))
	cfg.Clustering.SelectionSplit = false
	assert.Equal(t, []cluster.Kind{cluster.FeatureClustering, cluster.EntropyClustering}, Kinds(cfg))
}
