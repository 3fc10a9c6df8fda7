package bench

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/compass/pkg/benchlog"
	"github.com/ajitpratap0/compass/pkg/cluster"
	"github.com/ajitpratap0/compass/pkg/compression"
	"github.com/ajitpratap0/compass/pkg/dataset"
	"github.com/ajitpratap0/compass/pkg/errors"
	"github.com/ajitpratap0/compass/pkg/logger"
	"github.com/ajitpratap0/compass/pkg/metrics"
	"github.com/ajitpratap0/compass/pkg/scratch"
	"github.com/ajitpratap0/compass/pkg/testutil"
)

// fakeCodec lets tests break either half of a round trip.
type fakeCodec struct {
	ext        string
	failEncode bool
	failDecode bool
	corrupt    bool
}

func (f *fakeCodec) Compress(data []byte) ([]byte, error)   { return data, nil }
func (f *fakeCodec) Decompress(data []byte) ([]byte, error) { return data, nil }

func (f *fakeCodec) CompressStream(dst io.Writer, src io.Reader) error {
	if f.failEncode {
		return stderrors.New("encoder exploded")
	}
	_, err := io.Copy(dst, src)
	return err
}

func (f *fakeCodec) DecompressStream(dst io.Writer, src io.Reader) error {
	if f.failDecode {
		if _, err := io.CopyN(dst, src, 16); err != nil {
			return err
		}
		return stderrors.New("decoder exploded")
	}
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	if f.corrupt {
		_, err := dst.Write([]byte("x"))
		return err
	}
	return nil
}

func (f *fakeCodec) Algorithm() compression.Algorithm { return compression.Algorithm("fake") }
func (f *fakeCodec) Level() compression.Level         { return compression.Default }
func (f *fakeCodec) Extension() string                { return f.ext }

type fixture struct {
	ds    *dataset.Dataset
	arena *scratch.Arena
	buf   *bytes.Buffer
	log   *benchlog.Writer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	header, rows := testutil.SensorRows()
	ds, err := dataset.New("sensors", header, rows)
	require.NoError(t, err)

	arena, err := scratch.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = arena.Close() })

	buf := &bytes.Buffer{}
	return &fixture{ds: ds, arena: arena, buf: buf, log: benchlog.NewWriter(buf)}
}

func (f *fixture) harness(t *testing.T, workers int, codecs ...compression.Compressor) *Harness {
	t.Helper()
	h, err := New(Options{
		Codecs:  codecs,
		Workers: workers,
		Arena:   f.arena,
		Log:     f.log,
		Metrics: metrics.NewCollector(),
		Logger:  testutil.TestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func (f *fixture) records(t *testing.T) []benchlog.Record {
	t.Helper()
	records, diags, err := benchlog.Read(bytes.NewReader(f.buf.Bytes()), "mem")
	require.NoError(t, err)
	require.Empty(t, diags)
	return records
}

func defaultCodecs(t *testing.T) []compression.Compressor {
	t.Helper()
	codecs, err := compression.NewSet(compression.DefaultSet(), compression.Default)
	require.NoError(t, err)
	return codecs
}

func TestBenchWholeDataset(t *testing.T) {
	for _, workers := range []int{1, 4} {
		f := newFixture(t)
		h := f.harness(t, workers, defaultCodecs(t)...)

		summary, err := h.Bench(context.Background(), f.ds, BaselineMethod, []Unit{WholeUnit(f.ds, "sensors")})
		require.NoError(t, err)
		assert.Equal(t, &Summary{Method: BaselineMethod, Units: 1, Invocations: 3, Records: 3}, summary)

		records := f.records(t)
		require.Len(t, records, 3)
		codecs := map[string]bool{}
		for _, r := range records {
			assert.Equal(t, 0, r.ClusterID)
			assert.Equal(t, "sensors_full.csv", r.Source)
			assert.Equal(t, BaselineMethod, r.Method)
			assert.Greater(t, r.Size, int64(0))
			assert.True(t, r.IsBaseline())
			codecs[r.Codec] = true
		}
		assert.Equal(t, map[string]bool{".deflate": true, ".bz2": true, ".lzma": true}, codecs)
	}
}

func TestBenchPartitionUnits(t *testing.T) {
	f := newFixture(t)
	h := f.harness(t, 2, defaultCodecs(t)...)

	p := cluster.NewPartition()
	p.Add(1, "station")
	p.Add(1, "status")
	p.Add(2, "temperature")
	p.Add(2, "humidity")
	p.Add(2, "voltage")
	p.Add(2, "flag")

	method := "COMPASS_KMEANS_DATA (2)"
	units := PartitionUnits(p, "sensors", method)
	require.Len(t, units, 2)
	assert.Equal(t, Unit{ClusterID: 1, Label: "sensors_COMPASS_KMEANS_DATA (2)_cluster_1.csv", Columns: []string{"station", "status"}}, units[0])

	summary, err := h.Bench(context.Background(), f.ds, method, units)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Records)

	byCluster := map[int]int{}
	for _, r := range f.records(t) {
		byCluster[r.ClusterID]++
		assert.False(t, r.IsBaseline())
	}
	assert.Equal(t, map[int]int{1: 3, 2: 3}, byCluster)
}

func TestCodecFailureIsAbsorbed(t *testing.T) {
	f := newFixture(t)
	codecs := append(defaultCodecs(t), &fakeCodec{ext: ".broken", failEncode: true}, &fakeCodec{ext: ".lossy", corrupt: true})
	h := f.harness(t, 1, codecs...)

	summary, err := h.Bench(context.Background(), f.ds, BaselineMethod, []Unit{WholeUnit(f.ds, "sensors")})
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Invocations)
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 2, summary.Failures)

	for _, r := range f.records(t) {
		assert.NotEqual(t, ".broken", r.Codec)
		assert.NotEqual(t, ".lossy", r.Codec)
	}
}

func TestScopesAreReleased(t *testing.T) {
	f := newFixture(t)
	h := f.harness(t, 3, append(defaultCodecs(t), &fakeCodec{ext: ".lossy", corrupt: true})...)

	units := []Unit{
		WholeUnit(f.ds, "sensors"),
		{ClusterID: 1, Label: "sensors_M_cluster_1.csv", Columns: []string{"flag"}},
	}
	_, err := h.Bench(context.Background(), f.ds, "M", units)
	require.NoError(t, err)

	stats := f.arena.Stats()
	assert.Equal(t, int64(8), stats.ScopesOpened)
	assert.Equal(t, stats.ScopesOpened, stats.ScopesReleased)

	entries, err := os.ReadDir(f.arena.Root())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.False(t, e.IsDir(), e.Name())
	}
}

func TestScopeReleasedWhenDecodingFails(t *testing.T) {
	f := newFixture(t)
	h := f.harness(t, 1, append(defaultCodecs(t), &fakeCodec{ext: ".halfway", failDecode: true})...)

	summary, err := h.Bench(context.Background(), f.ds, BaselineMethod, []Unit{WholeUnit(f.ds, "sensors")})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, 3, summary.Records)

	stats := f.arena.Stats()
	assert.Equal(t, int64(4), stats.ScopesOpened)
	assert.Equal(t, int64(4), stats.ScopesReleased)

	entries, err := os.ReadDir(f.arena.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsDir())
	for _, r := range f.records(t) {
		assert.NotEqual(t, ".halfway", r.Codec)
	}
}

func TestNewDefaultsToGlobalLogger(t *testing.T) {
	f := newFixture(t)
	h, err := New(Options{Codecs: defaultCodecs(t), Arena: f.arena, Log: f.log})
	require.NoError(t, err)
	assert.Same(t, logger.Get(), h.logger)
	assert.Equal(t, 1, h.workers)
}

func TestAppendFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.log.Close())
	f.log = benchlog.NewWriter(failingWriter{})
	h := f.harness(t, 1, defaultCodecs(t)...)

	_, err := h.Bench(context.Background(), f.ds, BaselineMethod, []Unit{WholeUnit(f.ds, "sensors")})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestBenchCancelled(t *testing.T) {
	f := newFixture(t)
	h := f.harness(t, 1, defaultCodecs(t)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Bench(ctx, f.ds, BaselineMethod, []Unit{WholeUnit(f.ds, "sensors")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.buf.Len())
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeUsage))

	_, err = New(Options{Codecs: defaultCodecs(t)})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestEmptyUnitRejected(t *testing.T) {
	f := newFixture(t)
	h := f.harness(t, 1, defaultCodecs(t)...)
	_, err := h.Bench(context.Background(), f.ds, "M", []Unit{{ClusterID: 1, Label: "empty.csv"}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, stderrors.New("disk full") }
