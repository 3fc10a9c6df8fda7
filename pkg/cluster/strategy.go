// Package cluster partitions the columns of a dataset into groups that are
// compressed separately. Three strategies are provided: k-means over the
// encoded column contents, k-means over column entropies, and the fixed
// low-entropy selection split.
package cluster

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/compass/pkg/dataset"
	"github.com/ajitpratap0/compass/pkg/entropy"
	"github.com/ajitpratap0/compass/pkg/errors"
)

// Kind selects a partitioning strategy
type Kind int

const (
	// FeatureClustering clusters columns by their encoded contents
	FeatureClustering Kind = iota
	// EntropyClustering clusters columns by their entropy alone
	EntropyClustering
	// SelectionSplit separates low-entropy columns from the rest
	SelectionSplit
)

// String returns the method name of the kind
func (k Kind) String() string {
	switch k {
	case FeatureClustering:
		return "COMPASS_KMEANS_DATA"
	case EntropyClustering:
		return "COMPASS_KMEANS_ENTROPY"
	case SelectionSplit:
		return "COMPASS_SIBACO"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Options configures the strategies
type Options struct {
	Seed          uint64
	Restarts      int
	MaxIterations int
	Tolerance     float64
	// Threshold is the selection split entropy bound, in nats.
	Threshold float64
}

// DefaultOptions returns the options used by the command line tool
func DefaultOptions() Options {
	return Options{
		Seed:          42,
		Restarts:      10,
		MaxIterations: 300,
		Tolerance:     1e-4,
		Threshold:     entropy.DefaultThreshold,
	}
}

// Input carries what a strategy may read. Profile is computed from Dataset
// when nil.
type Input struct {
	Dataset *dataset.Dataset
	Profile *entropy.Profile
}

// Result is the outcome of one partitioning run
type Result struct {
	Partition *Partition `json:"partition"`
	// Score is the mean silhouette coefficient, 0 for degenerate runs.
	Score      float64 `json:"score"`
	Degenerate bool    `json:"degenerate"`
	K          int     `json:"k"`
}

// Strategy partitions the columns of its input into k groups
type Strategy interface {
	Name() string
	Kind() Kind
	Partition(ctx context.Context, in Input, k int) (*Result, error)
}

// New creates the strategy of the given kind
func New(kind Kind, opts Options, logger *zap.Logger) (Strategy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strategyBase{kind: kind, opts: opts, logger: logger.With(zap.String("strategy", kind.String()))}
	switch kind {
	case FeatureClustering:
		return &featureStrategy{base}, nil
	case EntropyClustering:
		return &entropyStrategy{base}, nil
	case SelectionSplit:
		return &selectionStrategy{base}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeUsage, "unknown partitioning strategy %d", int(kind))
	}
}

// Method returns the method label records of a run are written under:
// "NAME (k)" for the clustering strategies, "NAME" for the selection split.
func Method(s Strategy, k int) string {
	if s.Kind() == SelectionSplit {
		return s.Name()
	}
	return fmt.Sprintf("%s (%d)", s.Name(), k)
}

type strategyBase struct {
	kind   Kind
	opts   Options
	logger *zap.Logger
}

func (b strategyBase) Name() string { return b.kind.String() }
func (b strategyBase) Kind() Kind   { return b.kind }

// effectiveK rejects empty inputs and non-positive k and clamps k to the
// number of columns.
func (b strategyBase) effectiveK(columns, k int) (int, error) {
	if columns == 0 {
		return 0, errors.New(errors.ErrorTypeValidation, "cannot partition a dataset with no columns")
	}
	if k <= 0 {
		return 0, errors.Newf(errors.ErrorTypeValidation, "number of clusters must be positive, got %d", k)
	}
	if k > columns {
		b.logger.Warn("more clusters requested than columns, clamping",
			zap.Int("requested", k),
			zap.Int("columns", columns))
		return columns, nil
	}
	return k, nil
}

// fit runs k-means over one point per column and scores the result.
func (b strategyBase) fit(ctx context.Context, names []string, points [][]float64, k int) (*Result, error) {
	labels, err := NewKMeans(k, b.opts).Fit(ctx, points)
	if err != nil {
		return nil, err
	}
	p := FromLabels(names, labels)

	res := &Result{Partition: p, K: k}
	if k == len(names) || p.Len() < 2 {
		res.Degenerate = true
	} else {
		res.Score = Silhouette(points, labels)
	}

	b.logger.Debug("columns partitioned",
		zap.Int("k", k),
		zap.Int("clusters", p.Len()),
		zap.Float64("score", res.Score),
		zap.Bool("degenerate", res.Degenerate))
	return res, nil
}

func profileOf(in Input) (*entropy.Profile, error) {
	if in.Profile != nil {
		return in.Profile, nil
	}
	if in.Dataset == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "partitioning input has neither dataset nor profile")
	}
	return entropy.ProfileDataset(in.Dataset, nil), nil
}

type featureStrategy struct{ strategyBase }

func (s *featureStrategy) Partition(ctx context.Context, in Input, k int) (*Result, error) {
	if in.Dataset == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "feature clustering needs a dataset")
	}
	names := in.Dataset.Names()
	k, err := s.effectiveK(len(names), k)
	if err != nil {
		return nil, err
	}

	if in.Dataset.NumRows() == 0 {
		s.logger.Warn("dataset has no rows, keeping all columns together")
		p := NewPartition()
		for _, n := range names {
			p.Add(1, n)
		}
		return &Result{Partition: p, Degenerate: true, K: k}, nil
	}

	return s.fit(ctx, names, ColumnFeatures(in.Dataset.Columns()), k)
}

type entropyStrategy struct{ strategyBase }

func (s *entropyStrategy) Partition(ctx context.Context, in Input, k int) (*Result, error) {
	profile, err := profileOf(in)
	if err != nil {
		return nil, err
	}
	names := profile.Names()
	k, err = s.effectiveK(len(names), k)
	if err != nil {
		return nil, err
	}
	return s.fit(ctx, names, EntropyFeatures(profile.Values()), k)
}

type selectionStrategy struct{ strategyBase }

// Partition ignores k: the split always has a low-entropy cluster 1 and a
// remainder cluster 2, either of which may be absent.
func (s *selectionStrategy) Partition(_ context.Context, in Input, _ int) (*Result, error) {
	profile, err := profileOf(in)
	if err != nil {
		return nil, err
	}
	if profile.Len() == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "cannot partition a dataset with no columns")
	}

	low := make(map[string]struct{})
	for _, n := range profile.Below(s.opts.Threshold) {
		low[n] = struct{}{}
	}
	p := NewPartition()
	for _, n := range profile.Names() {
		if _, ok := low[n]; ok {
			p.Add(1, n)
		} else {
			p.Add(2, n)
		}
	}

	s.logger.Debug("selection split",
		zap.Float64("threshold", s.opts.Threshold),
		zap.Int("selected", len(p.Columns(1))),
		zap.Int("rest", len(p.Columns(2))))
	return &Result{Partition: p, Degenerate: p.Len() < 2, K: 2}, nil
}
