// Package report reconciles benchmark records into the comparative report:
// the best whole-dataset encoding (the baseline) against, per partitioning
// method, the sum over clusters of each cluster's best encoding.
package report

import (
	"regexp"
	"strconv"

	"github.com/ajitpratap0/compass/pkg/benchlog"
)

// BaselineLabel names the row holding the best whole-dataset total
const BaselineLabel = "COMPASS_BASELINE"

// Prefix is prepended to a method label to name its COMPASS row
const Prefix = "COMPASS_"

// defaultClusters is reported for method labels without a "(k)" suffix
const defaultClusters = 2

var clusterSuffix = regexp.MustCompile(`\((\d+)\)\s*$`)

// Options controls aggregation
type Options struct {
	// Verbose adds the naive per (method, codec) totals
	Verbose bool
}

// Row is one line of the report
type Row struct {
	Label    string `json:"label"`
	Clusters int    `json:"clusters"`
	Size     int64  `json:"size_bytes"`
	// Savings is nil when it is undefined or not meaningful for the row
	Savings *float64 `json:"savings"`
}

// Report is the aggregated view of one or more benchmark logs
type Report struct {
	// Methods and Baselines are the naive per (method, codec) totals,
	// present only in verbose reports
	Methods   []Row `json:"methods,omitempty"`
	Baselines []Row `json:"baselines,omitempty"`

	// Baseline is the best single-codec total over the whole dataset,
	// nil when the records contain no baseline
	Baseline *Row `json:"baseline"`
	// Compass holds one row per partitioning method, in first-seen order
	Compass []Row `json:"compass"`

	Diagnostics []benchlog.Diagnostic `json:"diagnostics,omitempty"`
}

// BaselineMin returns the baseline total and whether a baseline exists
func (r *Report) BaselineMin() (int64, bool) {
	if r.Baseline == nil {
		return 0, false
	}
	return r.Baseline.Size, true
}

// ordered is an insertion-ordered map of totals
type ordered[K comparable, V any] struct {
	keys []K
	m    map[K]V
}

func newOrdered[K comparable, V any]() *ordered[K, V] {
	return &ordered[K, V]{m: make(map[K]V)}
}

func (o *ordered[K, V]) at(key K) V {
	return o.m[key]
}

func (o *ordered[K, V]) put(key K, v V) {
	if _, ok := o.m[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.m[key] = v
}

// clusterKey identifies one cluster of one method. The origin separates logs
// and the source separates datasets benchmarked into the same log.
type clusterKey struct {
	origin string
	source string
	id     int
}

// Aggregate computes the report. Records are not modified.
func Aggregate(records []benchlog.Record, opts Options) *Report {
	baselines := newOrdered[string, int64]()
	naive := newOrdered[string, int64]()
	naiveClusters := make(map[string]int)

	// method -> cluster -> smallest size across codecs
	methods := newOrdered[string, *ordered[clusterKey, int64]]()

	for _, rec := range records {
		key := rec.Method + "_" + rec.Codec
		if rec.IsBaseline() {
			baselines.put(key, baselines.at(key)+rec.Size)
			continue
		}

		naive.put(key, naive.at(key)+rec.Size)
		naiveClusters[key] = clustersFromLabel(rec.Method)

		clusters := methods.at(rec.Method)
		if clusters == nil {
			clusters = newOrdered[clusterKey, int64]()
			methods.put(rec.Method, clusters)
		}
		ck := clusterKey{origin: rec.Origin, source: rec.Source, id: rec.ClusterID}
		if best, seen := clusters.m[ck]; !seen || rec.Size < best {
			clusters.put(ck, rec.Size)
		}
	}

	rep := &Report{}
	var (
		baselineMin int64
		hasBaseline bool
	)
	for _, key := range baselines.keys {
		total := baselines.at(key)
		if !hasBaseline || total < baselineMin {
			baselineMin = total
		}
		hasBaseline = true
		if opts.Verbose {
			rep.Baselines = append(rep.Baselines, Row{Label: key, Clusters: 1, Size: total})
		}
	}
	if hasBaseline {
		zero := 0.0
		rep.Baseline = &Row{Label: BaselineLabel, Clusters: 1, Size: baselineMin, Savings: &zero}
	}

	if opts.Verbose {
		for _, key := range naive.keys {
			rep.Methods = append(rep.Methods, Row{Label: key, Clusters: naiveClusters[key], Size: naive.at(key)})
		}
	}

	for _, method := range methods.keys {
		clusters := methods.at(method)
		var total int64
		for _, ck := range clusters.keys {
			total += clusters.at(ck)
		}
		rep.Compass = append(rep.Compass, Row{
			Label:    Prefix + method,
			Clusters: len(clusters.keys),
			Size:     total,
			Savings:  Savings(baselineMin, total, hasBaseline),
		})
	}
	return rep
}

// Savings returns (baseline - total) / baseline, or nil when there is no
// baseline or it is zero.
func Savings(baseline, total int64, hasBaseline bool) *float64 {
	if !hasBaseline || baseline == 0 {
		return nil
	}
	s := float64(baseline-total) / float64(baseline)
	return &s
}

// clustersFromLabel parses the k of a "NAME (k)" method label
func clustersFromLabel(method string) int {
	m := clusterSuffix.FindStringSubmatch(method)
	if m == nil {
		return defaultClusters
	}
	k, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultClusters
	}
	return k
}
