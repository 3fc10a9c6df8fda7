// Package entropy computes per-column Shannon entropy profiles of a dataset
// and reads and writes them as two-row entropy files.
package entropy

import (
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/ajitpratap0/compass/pkg/dataset"
)

// DefaultThreshold is the entropy, in nats, below which a column is
// considered low-entropy by the selection split.
const DefaultThreshold = 3.0

// Profile maps column names to their entropy, in dataset column order.
type Profile struct {
	names  []string
	values []float64
	index  map[string]int
}

// NewProfile builds a profile from parallel name and value slices.
func NewProfile(names []string, values []float64) *Profile {
	p := &Profile{
		names:  append([]string(nil), names...),
		values: append([]float64(nil), values...),
		index:  make(map[string]int, len(names)),
	}
	for i, n := range p.names {
		p.index[n] = i
	}
	return p
}

// ProfileDataset computes the entropy of every column of ds. The dataset is
// not modified.
func ProfileDataset(ds *dataset.Dataset, logger *zap.Logger) *Profile {
	cols := ds.Columns()
	names := make([]string, len(cols))
	values := make([]float64, len(cols))
	for i, col := range cols {
		names[i] = col.Name()
		values[i] = Column(col)
	}
	if logger != nil {
		logger.Debug("entropy profile computed",
			zap.String("dataset", ds.Name()),
			zap.Int("columns", len(cols)),
			zap.Int("rows", ds.NumRows()))
	}
	return NewProfile(names, values)
}

// Column returns the Shannon entropy in nats of the empirical distribution of
// the non-missing values of col. A constant or empty column has entropy 0.
func Column(col *dataset.Column) float64 {
	counts := make(map[string]int)
	total := 0
	for i := 0; i < col.Len(); i++ {
		key, ok := col.Key(i)
		if !ok {
			continue
		}
		counts[key]++
		total++
	}
	if total == 0 || len(counts) == 1 {
		return 0
	}

	// Summation order must not depend on map iteration.
	freq := make([]int, 0, len(counts))
	for _, c := range counts {
		freq = append(freq, c)
	}
	sort.Ints(freq)
	p := make([]float64, len(freq))
	for i, c := range freq {
		p[i] = float64(c) / float64(total)
	}
	h := stat.Entropy(p)
	if h <= 0 {
		return 0
	}
	return h
}

// Len returns the number of profiled columns
func (p *Profile) Len() int { return len(p.names) }

// Names returns the column names in order
func (p *Profile) Names() []string { return append([]string(nil), p.names...) }

// Values returns the entropies in column order
func (p *Profile) Values() []float64 { return append([]float64(nil), p.values...) }

// Get returns the entropy of the named column
func (p *Profile) Get(name string) (float64, bool) {
	i, ok := p.index[name]
	if !ok {
		return 0, false
	}
	return p.values[i], true
}

// Map returns the profile as a name to entropy map
func (p *Profile) Map() map[string]float64 {
	m := make(map[string]float64, len(p.names))
	for i, n := range p.names {
		m[n] = p.values[i]
	}
	return m
}

// Below returns the names of columns whose entropy is strictly below
// threshold, in column order.
func (p *Profile) Below(threshold float64) []string {
	var out []string
	for i, v := range p.values {
		if v < threshold {
			out = append(out, p.names[i])
		}
	}
	return out
}
