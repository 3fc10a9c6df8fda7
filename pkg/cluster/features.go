package cluster

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ajitpratap0/compass/pkg/dataset"
)

// MissingCategory replaces missing categorical cells before encoding.
const MissingCategory = "missing_value"

// Standardize scales x in place to zero mean and unit population variance.
// A constant vector is only centred.
func Standardize(x []float64) {
	if len(x) == 0 {
		return
	}
	mean, std := stat.PopMeanStdDev(x, nil)
	floats.AddConst(-mean, x)
	if std > 0 {
		floats.Scale(1/std, x)
	}
}

func popVariance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(x, nil)
	return v
}

// OrdinalEncode maps each value to the index of its category in the sorted
// list of distinct values.
func OrdinalEncode(values []string) []float64 {
	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	cats := make([]string, 0, len(distinct))
	for v := range distinct {
		cats = append(cats, v)
	}
	sort.Strings(cats)

	code := make(map[string]float64, len(cats))
	for i, c := range cats {
		code[c] = float64(i)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = code[v]
	}
	return out
}

// encodeColumn turns one column into a numeric feature over rows: numeric
// values are imputed with 0 and standardised, categorical values are imputed
// with MissingCategory and ordinally encoded.
func encodeColumn(col *dataset.Column) []float64 {
	n := col.Len()
	if col.Kind() == dataset.KindNumeric {
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			if v, ok := col.Float(i); ok {
				out[i] = v
			}
		}
		Standardize(out)
		return out
	}

	values := make([]string, n)
	for i := 0; i < n; i++ {
		if col.IsMissing(i) {
			values[i] = MissingCategory
		} else {
			values[i] = col.Raw(i)
		}
	}
	return OrdinalEncode(values)
}

// ColumnFeatures builds the rows x columns encoded matrix, transposes it so
// that every column becomes a sample, and standardises each row-feature
// across the columns. The result has one point per column.
func ColumnFeatures(cols []*dataset.Column) [][]float64 {
	if len(cols) == 0 {
		return nil
	}
	rows := cols[0].Len()
	if rows == 0 {
		return make([][]float64, len(cols))
	}

	encoded := mat.NewDense(rows, len(cols), nil)
	for j, col := range cols {
		encoded.SetCol(j, encodeColumn(col))
	}

	var samples mat.Dense
	samples.CloneFrom(encoded.T())

	feature := make([]float64, len(cols))
	for r := 0; r < rows; r++ {
		mat.Col(feature, r, &samples)
		Standardize(feature)
		samples.SetCol(r, feature)
	}

	points := make([][]float64, len(cols))
	for j := range points {
		points[j] = mat.Row(nil, j, &samples)
	}
	return points
}

// EntropyFeatures returns one single-feature point per entropy value,
// standardised across columns.
func EntropyFeatures(values []float64) [][]float64 {
	scaled := append([]float64(nil), values...)
	Standardize(scaled)
	points := make([][]float64, len(scaled))
	for i, v := range scaled {
		points[i] = []float64{v}
	}
	return points
}
