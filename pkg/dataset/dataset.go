package dataset

import (
	"fmt"
)

// Dataset is an ordered sequence of named columns that share one row count.
type Dataset struct {
	name    string
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a dataset from a header and row-major records. Every record
// must have exactly len(header) cells.
func New(name string, header []string, records [][]string) (*Dataset, error) {
	if err := checkHeader(header); err != nil {
		return nil, err
	}
	raw := make([][]string, len(header))
	for c := range header {
		raw[c] = make([]string, len(records))
	}
	for r, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", r+1, len(rec), len(header))
		}
		for c, v := range rec {
			raw[c][r] = v
		}
	}
	return fromColumns(name, header, raw), nil
}

func fromColumns(name string, header []string, raw [][]string) *Dataset {
	ds := &Dataset{
		name:    name,
		columns: make([]*Column, len(header)),
		index:   make(map[string]int, len(header)),
	}
	for i, h := range header {
		ds.columns[i] = newColumn(h, raw[i])
		ds.index[h] = i
	}
	if len(raw) > 0 {
		ds.rows = len(raw[0])
	}
	return ds
}

func checkHeader(header []string) error {
	seen := make(map[string]struct{}, len(header))
	for _, h := range header {
		if _, dup := seen[h]; dup {
			return fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = struct{}{}
	}
	return nil
}

// Name returns the dataset name, the base name of its source without extension
func (d *Dataset) Name() string { return d.name }

// NumRows returns the shared row count
func (d *Dataset) NumRows() int { return d.rows }

// NumColumns returns the column count
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Names returns the column names in order
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.name
	}
	return names
}

// Columns returns the columns in order. The slice is a copy; the columns are shared.
func (d *Dataset) Columns() []*Column {
	out := make([]*Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// Column looks a column up by name
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Select returns the named columns in the requested order
func (d *Dataset) Select(names []string) ([]*Column, error) {
	out := make([]*Column, 0, len(names))
	for _, n := range names {
		col, ok := d.Column(n)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		out = append(out, col)
	}
	return out, nil
}

// Complement returns the column names not in names, in dataset order
func (d *Dataset) Complement(names []string) []string {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	out := make([]string, 0, len(d.columns))
	for _, c := range d.columns {
		if _, ok := skip[c.name]; !ok {
			out = append(out, c.name)
		}
	}
	return out
}
