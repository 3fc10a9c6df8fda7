package cluster

import (
	"sort"

	"github.com/ajitpratap0/compass/pkg/errors"
)

// Partition maps cluster ids to the ordered column names they hold.
type Partition struct {
	Groups map[int][]string `json:"groups"`
}

// NewPartition creates an empty partition
func NewPartition() *Partition {
	return &Partition{Groups: make(map[int][]string)}
}

// FromLabels groups names by label; the cluster id of a label is label + 1.
// Column order within a cluster follows names.
func FromLabels(names []string, labels []int) *Partition {
	p := NewPartition()
	for i, name := range names {
		p.Add(labels[i]+1, name)
	}
	return p
}

// Add appends a column to cluster id
func (p *Partition) Add(id int, column string) {
	p.Groups[id] = append(p.Groups[id], column)
}

// IDs returns the populated cluster ids in ascending order
func (p *Partition) IDs() []int {
	ids := make([]int, 0, len(p.Groups))
	for id, cols := range p.Groups {
		if len(cols) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Columns returns the columns of cluster id
func (p *Partition) Columns(id int) []string { return p.Groups[id] }

// Len returns the number of populated clusters
func (p *Partition) Len() int { return len(p.IDs()) }

// Validate checks that every one of columns appears in exactly one cluster
// and that no cluster names an unknown column.
func (p *Partition) Validate(columns []string) error {
	want := make(map[string]bool, len(columns))
	for _, c := range columns {
		want[c] = false
	}

	for _, id := range p.IDs() {
		for _, c := range p.Groups[id] {
			seen, known := want[c]
			if !known {
				return errors.New(errors.ErrorTypeValidation, "partition names an unknown column").
					WithDetail("column", c).WithDetail("cluster", id)
			}
			if seen {
				return errors.New(errors.ErrorTypeValidation, "column assigned to more than one cluster").
					WithDetail("column", c)
			}
			want[c] = true
		}
	}

	for _, c := range columns {
		if !want[c] {
			return errors.New(errors.ErrorTypeValidation, "column missing from partition").
				WithDetail("column", c)
		}
	}
	return nil
}
