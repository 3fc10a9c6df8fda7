// Package dataset provides the in-memory tabular dataset that every Compass
// stage reads. A Dataset is an ordered set of named columns sharing one row
// count; it is immutable once loaded.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind represents the value domain of a column
type Kind int

const (
	// KindNumeric columns hold values that all parse as finite floats (or are
	// missing; non-finite values count as missing)
	KindNumeric Kind = iota
	// KindCategorical columns hold arbitrary strings
	KindCategorical
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// missingTokens are the cell values treated as missing, matching the
// defaults of common dataframe readers.
var missingTokens = map[string]struct{}{
	"":        {},
	"NA":      {},
	"N/A":     {},
	"n/a":     {},
	"NaN":     {},
	"nan":     {},
	"-NaN":    {},
	"-nan":    {},
	"NULL":    {},
	"null":    {},
	"None":    {},
	"<NA>":    {},
	"#N/A":    {},
	"#NA":     {},
	"1.#IND":  {},
	"1.#QNAN": {},
}

// IsMissing reports whether a raw cell value is a missing-value token
func IsMissing(raw string) bool {
	_, ok := missingTokens[strings.TrimSpace(raw)]
	return ok
}

// Column stores one named column. Raw values are kept verbatim so that a
// materialised subset reproduces the input cells exactly.
type Column struct {
	name    string
	kind    Kind
	raw     []string
	missing []bool
	numbers []float64 // populated for numeric columns only
}

// Name returns the column name
func (c *Column) Name() string { return c.name }

// Kind returns the inferred value kind
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of rows
func (c *Column) Len() int { return len(c.raw) }

// Raw returns the verbatim cell at row i
func (c *Column) Raw(i int) string { return c.raw[i] }

// IsMissing reports whether row i holds a missing value
func (c *Column) IsMissing(i int) bool { return c.missing[i] }

// Float returns the parsed value at row i for numeric columns
func (c *Column) Float(i int) (float64, bool) {
	if c.kind != KindNumeric || c.missing[i] {
		return 0, false
	}
	return c.numbers[i], true
}

// Key returns the value identity used for frequency counting: numeric values
// are canonicalised so that "1" and "1.0" are the same value.
func (c *Column) Key(i int) (string, bool) {
	if c.missing[i] {
		return "", false
	}
	if c.kind == KindNumeric {
		return strconv.FormatFloat(c.numbers[i], 'g', -1, 64), true
	}
	return c.raw[i], true
}

// MissingCount returns the number of missing cells
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.missing {
		if m {
			n++
		}
	}
	return n
}

// newColumn infers the column kind and parses numeric values.
func newColumn(name string, raw []string) *Column {
	col := &Column{
		name:    name,
		kind:    KindNumeric,
		raw:     raw,
		missing: make([]bool, len(raw)),
	}
	numbers := make([]float64, len(raw))
	for i, v := range raw {
		if IsMissing(v) {
			col.missing[i] = true
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			col.kind = KindCategorical
			continue
		}
		// inf and nan spellings the token table misses carry no usable value
		if math.IsInf(f, 0) || math.IsNaN(f) {
			col.missing[i] = true
			continue
		}
		numbers[i] = f
	}
	if col.kind == KindNumeric {
		col.numbers = numbers
	}
	return col
}
