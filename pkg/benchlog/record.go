// Package benchlog reads and writes the benchmark log: a headerless,
// append-only CSV file with one row per (unit, codec) invocation.
//
// Row layout:
//
//	cluster_id,source_label,method_label,codec_label,size,bytes,compress_s,s,decompress_s,s
package benchlog

import (
	"path/filepath"
	"strconv"
	"strings"
)

// MinFields is the shortest row the reader accepts: everything up to the
// size unit marker. Timing fields are optional.
const MinFields = 6

// Record is one codec invocation on one unit
type Record struct {
	// ClusterID is 0 for the whole dataset, otherwise the cluster id
	ClusterID int `json:"cluster_id"`
	// Source is the unit label, the name of the materialised file
	Source string `json:"source"`
	// Method is the partitioning method, BASELINE for whole-dataset runs
	Method string `json:"method"`
	// Codec is the codec label, the artifact file extension
	Codec             string  `json:"codec"`
	Size              int64   `json:"size_bytes"`
	CompressSeconds   float64 `json:"compress_seconds"`
	DecompressSeconds float64 `json:"decompress_seconds"`

	// Origin is the log file the record was read from. It is not written.
	Origin string `json:"origin,omitempty"`
}

// IsBaseline reports whether the record describes the whole, unpartitioned
// dataset: its source label stem ends with "_full".
func (r Record) IsBaseline() bool {
	stem := strings.TrimSuffix(r.Source, filepath.Ext(r.Source))
	return strings.HasSuffix(stem, "_full")
}

// Fields returns the row written to the log
func (r Record) Fields() []string {
	return []string{
		strconv.Itoa(r.ClusterID),
		r.Source,
		r.Method,
		r.Codec,
		strconv.FormatInt(r.Size, 10),
		"bytes",
		strconv.FormatFloat(r.CompressSeconds, 'g', -1, 64),
		"s",
		strconv.FormatFloat(r.DecompressSeconds, 'g', -1, 64),
		"s",
	}
}
