package cluster

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// KMeans clusters dense points with k-means++ seeding and Lloyd iterations.
// The run is fully determined by Seed.
type KMeans struct {
	K             int
	MaxIterations int
	Tolerance     float64
	Restarts      int
	Seed          uint64

	centers [][]float64
	inertia float64
}

// NewKMeans creates a k-means model with the given options
func NewKMeans(k int, opts Options) *KMeans {
	return &KMeans{
		K:             k,
		MaxIterations: opts.MaxIterations,
		Tolerance:     opts.Tolerance,
		Restarts:      opts.Restarts,
		Seed:          opts.Seed,
	}
}

// Centers returns the centroids of the best restart
func (m *KMeans) Centers() [][]float64 { return m.centers }

// Inertia returns the sum of squared distances of the best restart
func (m *KMeans) Inertia() float64 { return m.inertia }

// Fit clusters data and returns one label in [0, K) per point. Every label is
// populated when len(data) >= K. Restarts draw from a single seeded stream, so
// the result does not depend on anything but the data and the options.
func (m *KMeans) Fit(ctx context.Context, data [][]float64) ([]int, error) {
	rng := rand.New(rand.NewPCG(m.Seed, m.Seed)) //nolint:gosec // G404: reproducibility, not security

	restarts := m.Restarts
	if restarts < 1 {
		restarts = 1
	}
	tol := m.Tolerance * meanVariance(data)

	var best []int
	for r := 0; r < restarts; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		centers := m.seed(rng, data)
		labels, inertia := m.lloyd(data, centers, tol)
		if best == nil || inertia < m.inertia {
			best = labels
			m.inertia = inertia
			m.centers = centers
		}
	}
	return best, nil
}

// seed picks K initial centers with k-means++: each further center is drawn
// with probability proportional to its squared distance from the nearest
// center chosen so far.
func (m *KMeans) seed(rng *rand.Rand, data [][]float64) [][]float64 {
	n := len(data)
	chosen := make([]bool, n)
	centers := make([][]float64, 0, m.K)

	first := rng.IntN(n)
	chosen[first] = true
	centers = append(centers, clone(data[first]))

	d2 := make([]float64, n)
	for i, p := range data {
		d2[i] = sqDist(p, centers[0])
	}

	for len(centers) < m.K {
		total := floats.Sum(d2)
		var next int
		if total <= 0 {
			// every remaining point coincides with a center
			next = pickUnchosen(rng, chosen)
		} else {
			target := rng.Float64() * total
			next = n - 1
			acc := 0.0
			for i, v := range d2 {
				acc += v
				if acc > target {
					next = i
					break
				}
			}
		}
		chosen[next] = true
		c := clone(data[next])
		centers = append(centers, c)
		for i, p := range data {
			if d := sqDist(p, c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centers
}

func pickUnchosen(rng *rand.Rand, chosen []bool) int {
	free := make([]int, 0, len(chosen))
	for i, c := range chosen {
		if !c {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return rng.IntN(len(chosen))
	}
	return free[rng.IntN(len(free))]
}

// lloyd refines centers in place and returns the labels and inertia.
func (m *KMeans) lloyd(data [][]float64, centers [][]float64, tol float64) ([]int, float64) {
	labels := make([]int, len(data))
	for i := range labels {
		labels[i] = -1
	}

	maxIter := m.MaxIterations
	if maxIter < 1 {
		maxIter = 1
	}
	for iter := 0; iter < maxIter; iter++ {
		changes := assign(data, centers, labels)
		if m.resortOnEmptySets(data, centers, labels) {
			changes++
		}

		shift := recalcCenters(data, centers, labels)
		if changes == 0 || shift <= tol {
			break
		}
	}

	inertia := 0.0
	for i, p := range data {
		inertia += sqDist(p, centers[labels[i]])
	}
	return labels, inertia
}

// assign moves every point to its nearest center, ties going to the lowest
// index, and returns the number of points that changed cluster.
func assign(data [][]float64, centers [][]float64, labels []int) int {
	changes := 0
	for i, p := range data {
		best, bestD := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(p, center); d < bestD {
				best, bestD = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changes++
		}
	}
	return changes
}

// resortOnEmptySets gives every empty cluster the point farthest from its
// own center, taken from a cluster that keeps at least one member.
func (m *KMeans) resortOnEmptySets(data [][]float64, centers [][]float64, labels []int) bool {
	sizes := make([]int, len(centers))
	for _, l := range labels {
		sizes[l]++
	}

	moved := false
	for c := range centers {
		if sizes[c] > 0 {
			continue
		}
		far, farD := -1, -1.0
		for i, p := range data {
			if sizes[labels[i]] < 2 {
				continue
			}
			if d := sqDist(p, centers[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			break
		}
		sizes[labels[far]]--
		labels[far] = c
		sizes[c]++
		copy(centers[c], data[far])
		moved = true
	}
	return moved
}

// recalcCenters sets each center to the mean of its members and returns the
// total squared center movement.
func recalcCenters(data [][]float64, centers [][]float64, labels []int) float64 {
	dim := len(centers[0])
	sums := make([][]float64, len(centers))
	counts := make([]int, len(centers))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range data {
		floats.Add(sums[labels[i]], p)
		counts[labels[i]]++
	}

	shift := 0.0
	for c := range centers {
		if counts[c] == 0 {
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
		shift += sqDist(sums[c], centers[c])
		copy(centers[c], sums[c])
	}
	return shift
}

// meanVariance is the mean over dimensions of the population variance, the
// scale the convergence tolerance is relative to.
func meanVariance(data [][]float64) float64 {
	if len(data) == 0 || len(data[0]) == 0 {
		return 0
	}
	dim := len(data[0])
	col := make([]float64, len(data))
	total := 0.0
	for j := 0; j < dim; j++ {
		for i, p := range data {
			col[i] = p[j]
		}
		total += popVariance(col)
	}
	return total / float64(dim)
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}
