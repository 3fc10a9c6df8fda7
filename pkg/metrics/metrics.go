// Package metrics records codec benchmark measurements as Prometheus metrics.
//
// # Overview
//
// A Collector owns a private registry, so a batch run exports exactly the
// series it produced. At the end of a run the registry is written in the
// text exposition format with WriteTextfile, ready for the node_exporter
// textfile collector or for archiving next to the benchmark log.
//
// # Basic Usage
//
//	collector := metrics.NewCollector()
//	timer := metrics.NewTimer("encode")
//	encode()
//	collector.ObserveCompress("COMPASS_KMEANS_DATA (2)", ".bz2", timer.Stop())
//	...
//	err := collector.WriteTextfile("compass.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/compass/pkg/errors"
)

// Collector wraps the benchmark metrics of one run.
// It is safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	compressSeconds   *prometheus.HistogramVec // Encode duration per method and codec
	decompressSeconds *prometheus.HistogramVec // Decode duration per method and codec
	encodedBytes      *prometheus.GaugeVec     // Artifact size per unit and codec
	unitBytes         *prometheus.GaugeVec     // Materialised unit size
	invocations       *prometheus.CounterVec   // Codec invocations by outcome
	clusteringScore   *prometheus.GaugeVec     // Silhouette score per method
	startTime         time.Time
}

// durationBuckets spans small units under fast codecs up to whole datasets
// under lzma.
var durationBuckets = []float64{
	1e-4, // 100µs
	1e-3, // 1ms
	1e-2, // 10ms
	1e-1, // 100ms
	1,    // 1s
	10,   // 10s
	60,   // 1min
}

// NewCollector creates a collector on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		compressSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compass_compress_duration_seconds",
				Help:    "Wall-clock duration of one encode pass",
				Buckets: durationBuckets,
			},
			[]string{"method", "codec"},
		),
		decompressSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compass_decompress_duration_seconds",
				Help:    "Wall-clock duration of one decode pass",
				Buckets: durationBuckets,
			},
			[]string{"method", "codec"},
		),
		encodedBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "compass_encoded_size_bytes",
				Help: "Size of the encoded artifact of a unit",
			},
			[]string{"method", "unit", "codec"},
		),
		unitBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "compass_unit_size_bytes",
				Help: "Size of the materialised unit before encoding",
			},
			[]string{"method", "unit"},
		),
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compass_codec_invocations_total",
				Help: "Codec invocations by outcome",
			},
			[]string{"codec", "status"},
		),
		clusteringScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "compass_silhouette_score",
				Help: "Mean silhouette score of a partitioning run",
			},
			[]string{"source", "method"},
		),
		startTime: time.Now(),
	}
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time { return c.startTime }

// ObserveUnit records the size of a materialised unit
func (c *Collector) ObserveUnit(method, unit string, size int64) {
	c.unitBytes.WithLabelValues(method, unit).Set(float64(size))
}

// ObserveInvocation records one successful codec invocation
func (c *Collector) ObserveInvocation(method, unit, codec string, size int64, compress, decompress time.Duration) {
	c.compressSeconds.WithLabelValues(method, codec).Observe(compress.Seconds())
	c.decompressSeconds.WithLabelValues(method, codec).Observe(decompress.Seconds())
	c.encodedBytes.WithLabelValues(method, unit, codec).Set(float64(size))
	c.invocations.WithLabelValues(codec, "success").Inc()
}

// ObserveFailure counts a failed codec invocation
func (c *Collector) ObserveFailure(codec string) {
	c.invocations.WithLabelValues(codec, "failure").Inc()
}

// ObserveScore records the quality score of a partitioning run
func (c *Collector) ObserveScore(source, method string, score float64) {
	c.clusteringScore.WithLabelValues(source, method).Set(score)
}

// WriteTextfile writes every series in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write metrics textfile").
			WithDetail("path", path)
	}
	return nil
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
