// Package bench runs every configured codec over the units of a partition
// and appends one benchmark record per successful (unit, codec) invocation.
//
// A unit is a subset of the dataset's columns materialised as a standalone
// CSV file. Each invocation encodes the unit to an artifact, decodes it back
// and compares digests, inside a scratch scope that is released whatever the
// outcome. A failing codec is logged and counted; it never stops the run.
package bench

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/compass/pkg/benchlog"
	"github.com/ajitpratap0/compass/pkg/cluster"
	"github.com/ajitpratap0/compass/pkg/compression"
	"github.com/ajitpratap0/compass/pkg/dataset"
	"github.com/ajitpratap0/compass/pkg/errors"
	"github.com/ajitpratap0/compass/pkg/logger"
	"github.com/ajitpratap0/compass/pkg/metrics"
	"github.com/ajitpratap0/compass/pkg/observability"
	"github.com/ajitpratap0/compass/pkg/scratch"
)

// BaselineMethod labels runs over the whole, unpartitioned dataset
const BaselineMethod = "BASELINE"

// Options configures a Harness
type Options struct {
	Codecs  []compression.Compressor
	Workers int // concurrent invocations; values below 2 run sequentially
	Arena   *scratch.Arena
	Log     *benchlog.Writer
	Metrics *metrics.Collector // optional
	Logger  *zap.Logger        // defaults to the global logger
}

// Harness benchmarks codecs over dataset units
type Harness struct {
	codecs  []compression.Compressor
	workers int
	arena   *scratch.Arena
	log     *benchlog.Writer
	metrics *metrics.Collector
	logger  *zap.Logger
}

// New creates a harness. Codecs, an arena and a log writer are required.
func New(opts Options) (*Harness, error) {
	if len(opts.Codecs) == 0 {
		return nil, errors.New(errors.ErrorTypeUsage, "at least one codec is required")
	}
	if opts.Arena == nil || opts.Log == nil {
		return nil, errors.New(errors.ErrorTypeInternal, "harness needs a scratch arena and a benchmark log")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Harness{
		codecs:  opts.Codecs,
		workers: workers,
		arena:   opts.Arena,
		log:     opts.Log,
		metrics: opts.Metrics,
		logger:  log,
	}, nil
}

// Unit is a group of columns benchmarked as one file
type Unit struct {
	ClusterID int
	Label     string
	Columns   []string
}

// WholeUnit is the whole dataset as cluster 0, labelled <base>_full.csv
func WholeUnit(ds *dataset.Dataset, base string) Unit {
	return Unit{ClusterID: 0, Label: base + "_full.csv", Columns: ds.Names()}
}

// PartitionUnits returns one unit per populated cluster, in cluster id order,
// labelled <base>_<method>_cluster_<id>.csv.
func PartitionUnits(p *cluster.Partition, base, method string) []Unit {
	ids := p.IDs()
	units := make([]Unit, 0, len(ids))
	for _, id := range ids {
		units = append(units, Unit{
			ClusterID: id,
			Label:     fmt.Sprintf("%s_%s_cluster_%d.csv", base, method, id),
			Columns:   p.Columns(id),
		})
	}
	return units
}

// Summary counts what one Bench call did
type Summary struct {
	Method      string `json:"method"`
	Units       int    `json:"units"`
	Invocations int    `json:"invocations"`
	Records     int    `json:"records"`
	Failures    int    `json:"failures"`
}

type counters struct {
	invocations atomic.Int64
	records     atomic.Int64
	failures    atomic.Int64
}

// source is a materialised unit ready for invocations
type source struct {
	unit   Unit
	path   string
	size   int64
	digest uint64
}

// Bench materialises every unit and runs every codec over it. Codec failures
// are absorbed; a failure to materialise a unit or to append to the log
// aborts the call.
func (h *Harness) Bench(ctx context.Context, ds *dataset.Dataset, method string, units []Unit) (*Summary, error) {
	ctx, span := observability.StartSpan(ctx, "bench",
		attribute.String("method", method),
		attribute.Int("units", len(units)))

	summary, err := h.bench(logger.WithMethod(ctx, method), ds, method, units)
	span.End(err)
	return summary, err
}

func (h *Harness) bench(ctx context.Context, ds *dataset.Dataset, method string, units []Unit) (*Summary, error) {
	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)

	for _, u := range units {
		if err := gctx.Err(); err != nil {
			break
		}
		src, err := h.materialize(ds, method, u)
		if err != nil {
			_ = g.Wait()
			return nil, err
		}
		for _, codec := range h.codecs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return h.invoke(gctx, &c, method, src, codec)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Method:      method,
		Units:       len(units),
		Invocations: int(c.invocations.Load()),
		Records:     int(c.records.Load()),
		Failures:    int(c.failures.Load()),
	}
	h.logger.Info("benchmark finished",
		zap.String("method", method),
		zap.Int("units", summary.Units),
		zap.Int("records", summary.Records),
		zap.Int("failures", summary.Failures))
	return summary, nil
}

func (h *Harness) materialize(ds *dataset.Dataset, method string, u Unit) (*source, error) {
	if len(u.Columns) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "unit has no columns").
			WithDetail("unit", u.Label)
	}
	path := h.arena.File(u.Label)
	size, err := ds.Materialize(path, u.Columns)
	if err != nil {
		return nil, err
	}
	digest, err := fileDigest(path)
	if err != nil {
		return nil, err
	}
	if h.metrics != nil {
		h.metrics.ObserveUnit(method, u.Label, size)
	}
	h.logger.Debug("unit materialised",
		zap.String("unit", u.Label),
		zap.Int("columns", len(u.Columns)),
		zap.Int64("size", size))
	return &source{unit: u, path: path, size: size, digest: digest}, nil
}

// invoke runs one codec over one unit. Only a log append failure is
// returned; everything else is counted as a codec failure.
func (h *Harness) invoke(ctx context.Context, c *counters, method string, src *source, codec compression.Compressor) error {
	c.invocations.Add(1)
	label := codec.Extension()
	log := logger.WithContext(logger.WithCodec(ctx, label), h.logger).With(zap.String("unit", src.unit.Label))

	_, span := observability.StartSpan(ctx, "codec",
		attribute.String("codec", label),
		attribute.String("unit", src.unit.Label))

	scope, err := h.arena.Scope()
	if err != nil {
		span.End(err)
		return err
	}
	defer func() {
		if err := scope.Release(); err != nil {
			log.Warn("failed to release scratch scope", zap.Error(err))
		}
	}()

	m, err := measure(scope, src, codec)
	if err != nil {
		c.failures.Add(1)
		if h.metrics != nil {
			h.metrics.ObserveFailure(label)
		}
		log.Warn("codec invocation failed", zap.Error(err))
		span.End(err)
		return nil
	}

	rec := benchlog.Record{
		ClusterID:         src.unit.ClusterID,
		Source:            src.unit.Label,
		Method:            method,
		Codec:             label,
		Size:              m.size,
		CompressSeconds:   m.compress.Seconds(),
		DecompressSeconds: m.decompress.Seconds(),
	}
	if err := h.log.Append(rec); err != nil {
		span.End(err)
		return err
	}
	c.records.Add(1)
	if h.metrics != nil {
		h.metrics.ObserveInvocation(method, src.unit.Label, label, m.size, m.compress, m.decompress)
	}
	span.SetAttribute("size", m.size)
	span.End(nil)

	log.Debug("codec invocation recorded",
		zap.Int64("size", m.size),
		zap.Duration("compress", m.compress),
		zap.Duration("decompress", m.decompress))
	return nil
}

type measurement struct {
	size       int64
	compress   time.Duration
	decompress time.Duration
}

// measure encodes the unit into the scope, decodes it into a fresh
// directory and verifies the decoded digest.
func measure(scope *scratch.Scope, src *source, codec compression.Compressor) (measurement, error) {
	var m measurement
	label := codec.Extension()

	artifact := scope.File(src.unit.Label + label)
	timer := metrics.NewTimer("encode")
	if err := encodeFile(codec, artifact, src.path); err != nil {
		return m, codecError(err, "encode failed", label, src.unit.Label)
	}
	m.compress = timer.Stop()

	info, err := os.Stat(artifact)
	if err != nil {
		return m, codecError(err, "artifact missing", label, src.unit.Label)
	}
	m.size = info.Size()

	dir, err := scope.Mkdir("decoded")
	if err != nil {
		return m, codecError(err, "decode directory unavailable", label, src.unit.Label)
	}
	timer = metrics.NewTimer("decode")
	digest, err := decodeFile(codec, filepath.Join(dir, src.unit.Label), artifact)
	if err != nil {
		return m, codecError(err, "decode failed", label, src.unit.Label)
	}
	m.decompress = timer.Stop()

	if digest != src.digest {
		return m, errors.New(errors.ErrorTypeCodec, "decoded output differs from the unit").
			WithDetail("codec", label).
			WithDetail("unit", src.unit.Label)
	}
	return m, nil
}

func encodeFile(codec compression.Compressor, dst, src string) error {
	in, err := os.Open(src) //nolint:gosec // G304: path comes from the scratch arena
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: path comes from the scratch arena
	if err != nil {
		return err
	}
	buf := bufio.NewWriterSize(out, 64*1024)
	if err := codec.CompressStream(buf, bufio.NewReaderSize(in, 64*1024)); err != nil {
		_ = out.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// decodeFile decodes src into dst and returns the digest of what was written
func decodeFile(codec compression.Compressor, dst, src string) (uint64, error) {
	in, err := os.Open(src) //nolint:gosec // G304: path comes from the scratch arena
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: path comes from the scratch arena
	if err != nil {
		return 0, err
	}
	hash := xxhash.New()
	buf := bufio.NewWriterSize(io.MultiWriter(out, hash), 64*1024)
	if err := codec.DecompressStream(buf, bufio.NewReaderSize(in, 64*1024)); err != nil {
		_ = out.Close()
		return 0, err
	}
	if err := buf.Flush(); err != nil {
		_ = out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	return hash.Sum64(), nil
}

func fileDigest(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the scratch arena
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to open unit file").WithDetail("path", path)
	}
	defer f.Close()

	hash := xxhash.New()
	if _, err := io.Copy(hash, f); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to read unit file").WithDetail("path", path)
	}
	return hash.Sum64(), nil
}

func codecError(err error, msg, codec, unit string) error {
	return errors.Wrap(err, errors.ErrorTypeCodec, msg).
		WithDetail("codec", codec).
		WithDetail("unit", unit)
}
