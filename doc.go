// Package compass measures whether compressing a table's columns in groups
// beats compressing the table as one block.
//
// # Overview
//
// An experiment runs in three stages:
//
//  1. Profile: the Shannon entropy of every column (pkg/entropy).
//  2. Partition: columns are grouped by k-means over their values, by
//     k-means over their entropies, and by the fixed low-entropy split
//     (pkg/cluster).
//  3. Benchmark: the whole table and every group are materialised as CSV
//     files and encoded with each configured codec; sizes and timings are
//     appended to a benchmark log (pkg/bench, pkg/benchlog).
//
// The aggregator (pkg/report) turns one or more logs into the comparative
// report: the best whole-table encoding against, per method, the sum of
// each group's best encoding.
//
// # Quick Start
//
//	compass run data/sensors.csv entropy.csv results.csv 2
//	compass report results.csv -o report.csv
//
// # Packages
//
//   - pkg/dataset: CSV loading and unit materialisation
//   - pkg/entropy: entropy profiles and the entropy file
//   - pkg/cluster: k-means, silhouette scores and partitioning strategies
//   - pkg/compression: codecs behind one Compressor interface
//   - pkg/scratch: scoped temporary files
//   - pkg/bench: the compression harness
//   - pkg/benchlog: the benchmark log
//   - pkg/report: aggregation, report writers and score tables
//   - pkg/metrics, pkg/observability: Prometheus metrics and tracing
//   - internal/pipeline: one experiment end to end
package compass
