// Package knn implements exact batched k-nearest-neighbor search over 3D point clouds.
//
// For every batch element independently, Search returns the k reference points
// closest to each query point by squared Euclidean distance, sorted ascending,
// with exact ties broken by ascending reference index. Brute force and k-d tree
// strategies produce identical output.
package knn

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/born-ml/pointops/internal/arena"
	"github.com/born-ml/pointops/internal/parallel"
	"github.com/born-ml/pointops/internal/tensor"
	"github.com/born-ml/pointops/internal/validate"
)

// DefaultKDTreeMinPoints is the reference size at which Auto switches to the k-d tree.
const DefaultKDTreeMinPoints = 512

// Options configures a search.
type Options struct {
	Layout          tensor.Layout   // Layout of both reference and query
	Strategy        Strategy        // Search strategy
	KDTreeMinPoints int             // Auto threshold; <= 0 means DefaultKDTreeMinPoints
	Parallel        parallel.Config // Batch element dispatch
	Logger          *slog.Logger    // Optional
}

// DefaultOptions returns channels-last, auto strategy, default parallelism.
func DefaultOptions() Options {
	return Options{
		Layout:          tensor.ChannelsLast,
		Strategy:        Auto,
		KDTreeMinPoints: DefaultKDTreeMinPoints,
		Parallel:        parallel.DefaultConfig(),
	}
}

// Result holds the (B, M, k) neighbor indices and squared distances.
type Result struct {
	Index    *tensor.RawTensor // int64
	Distance *tensor.RawTensor // dtype of the inputs
}

// Search finds the k nearest reference points of every query point.
//
// reference is (B, N, 3) and query is (B, M, 3) (or the channels-first
// equivalents). Both must share batch size, dtype and device; 1 <= k <= N.
func Search(reference, query *tensor.RawTensor, k int, opts Options) (*Result, error) {
	refDims, err := validate.Points("reference", reference, opts.Layout)
	if err != nil {
		return nil, coordErr(err)
	}
	queryDims, err := validate.Points("query", query, opts.Layout)
	if err != nil {
		return nil, coordErr(err)
	}
	if err := validate.SameLocation("reference", reference, "query", query); err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}
	if err := validate.SameBatch("reference", refDims.B, "query", queryDims.B); err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}
	if err := validate.Count("k", k, refDims.N); err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}

	refs, err := arena.FromTensor(reference, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}
	queries, err := arena.FromTensor(query, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}

	minPoints := opts.KDTreeMinPoints
	if minPoints <= 0 {
		minPoints = DefaultKDTreeMinPoints
	}
	strategy := opts.Strategy.resolve(refDims.N, minPoints)
	if opts.Logger != nil {
		opts.Logger.Debug("knn search",
			"batch", refDims.B, "n", refDims.N, "m", queryDims.N, "k", k, "strategy", strategy.String())
	}

	b, m := refDims.B, queryDims.N
	indices := make([]int64, b*m*k)
	dists := make([]float64, b*m*k)

	err = parallel.Do(b, func(e int) error {
		base := e * m * k
		return searchElement(refs.Element(e), queries.Element(e), k, strategy,
			indices[base:base+m*k], dists[base:base+m*k])
	}, opts.Parallel)
	if err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}

	return newResult(indices, dists, tensor.Shape{b, m, k}, reference)
}

// searchElement answers all queries of one batch element with a scoped index.
func searchElement(ref, queries arena.Cloud, k int, s Strategy, outIdx []int64, outDist []float64) error {
	idx, err := acquireIndex(ref, s)
	if err != nil {
		return err
	}
	defer idx.Release()

	buf := make([]Neighbor, 0, k)
	for q := 0; q < queries.Len(); q++ {
		buf = idx.Search(queries.At(q), k, buf)
		if len(buf) != k {
			return fmt.Errorf("query %d: found %d neighbors, want %d", q, len(buf), k)
		}
		for j, n := range buf {
			outIdx[q*k+j] = int64(n.Index)
			outDist[q*k+j] = n.Dist
		}
	}
	return nil
}

func newResult(indices []int64, dists []float64, shape tensor.Shape, like *tensor.RawTensor) (*Result, error) {
	idxT, err := tensor.FromInt64(indices, shape)
	if err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}
	distT, err := tensor.NewRaw(shape, like.DType(), like.Device())
	if err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}
	switch like.DType() {
	case tensor.Float32:
		out := distT.AsFloat32()
		for i, d := range dists {
			out[i] = float32(d)
		}
	case tensor.Float64:
		copy(distT.AsFloat64(), dists)
	}
	return &Result{Index: idxT.WithDevice(like.Device()), Distance: distT}, nil
}

// coordErr marks a bad coordinate axis as a shape mismatch as well.
func coordErr(err error) error {
	if errors.Is(err, validate.ErrInvalidShape) {
		return fmt.Errorf("knn: %w: %w", err, validate.ErrShapeMismatch)
	}
	return fmt.Errorf("knn: %w", err)
}
