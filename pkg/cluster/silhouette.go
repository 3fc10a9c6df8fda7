package cluster

import (
	"gonum.org/v1/gonum/floats"
)

// Silhouette returns the mean euclidean silhouette coefficient of labels
// over points. Points in singleton clusters score 0. The result is 0 when
// fewer than two clusters are populated.
func Silhouette(points [][]float64, labels []int) float64 {
	n := len(points)
	if n == 0 {
		return 0
	}

	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 {
		return 0
	}

	total := 0.0
	sums := make(map[int]float64, len(sizes))
	for i := 0; i < n; i++ {
		own := labels[i]
		if sizes[own] < 2 {
			continue
		}
		clear(sums)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sums[labels[j]] += floats.Distance(points[i], points[j], 2)
		}

		a := sums[own] / float64(sizes[own]-1)
		b := -1.0
		for l, s := range sums {
			if l == own {
				continue
			}
			if mean := s / float64(sizes[l]); b < 0 || mean < b {
				b = mean
			}
		}

		if den := max(a, b); den > 0 {
			total += (b - a) / den
		}
	}
	return total / float64(n)
}
