// Package fps implements deterministic furthest point sampling.
//
// Starting from point 0, each step picks the point whose distance to the
// already selected set is largest (ties: smallest index). The selection order
// is part of the result: sampling m points yields a prefix of sampling m+1.
package fps

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/born-ml/pointops/internal/arena"
	"github.com/born-ml/pointops/internal/parallel"
	"github.com/born-ml/pointops/internal/tensor"
	"github.com/born-ml/pointops/internal/validate"
)

// Options configures sampling.
type Options struct {
	Layout   tensor.Layout
	Parallel parallel.Config
	Logger   *slog.Logger
}

// DefaultOptions returns channels-last with default parallelism.
func DefaultOptions() Options {
	return Options{
		Layout:   tensor.ChannelsLast,
		Parallel: parallel.DefaultConfig(),
	}
}

// Sample selects m well-spread points from each batch element.
// points is (B, N, 3) or (B, 3, N); the result is a (B, m) int64 index tensor.
func Sample(points *tensor.RawTensor, m int, opts Options) (*tensor.RawTensor, error) {
	dims, err := validate.Points("points", points, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("fps: %w", err)
	}
	if err := validate.Count("m", m, dims.N); err != nil {
		return nil, fmt.Errorf("fps: %w", err)
	}

	clouds, err := arena.FromTensor(points, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("fps: %w", err)
	}
	if opts.Logger != nil {
		opts.Logger.Debug("furthest point sampling", "batch", dims.B, "n", dims.N, "m", m)
	}

	out := make([]int64, dims.B*m)
	// One worker per batch element; the m steps inside are sequential.
	parallel.For(dims.B, func(b int) {
		sampleElement(clouds.Element(b), out[b*m:(b+1)*m])
	}, parallel.Config{
		Enabled:      opts.Parallel.Enabled,
		NumWorkers:   opts.Parallel.NumWorkers,
		MinChunkSize: 1,
	})

	idx, err := tensor.FromInt64(out, tensor.Shape{dims.B, m})
	if err != nil {
		return nil, fmt.Errorf("fps: %w", err)
	}
	return idx.WithDevice(points.Device()), nil
}

// sampleElement fills dst with len(dst) greedy furthest picks from cloud.
func sampleElement(cloud arena.Cloud, dst []int64) {
	n := cloud.Len()
	minDist := make([]float64, n)
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}
	selected := bitset.New(uint(n))

	last := 0
	dst[0] = 0
	selected.Set(0)

	for step := 1; step < len(dst); step++ {
		lastPoint := cloud.At(last)
		best, bestDist := -1, math.Inf(-1)
		for i := 0; i < n; i++ {
			if selected.Test(uint(i)) {
				continue
			}
			if d := arena.SquaredDistance(cloud.At(i), lastPoint); d < minDist[i] {
				minDist[i] = d
			}
			// Strict comparison keeps the smallest index on ties.
			if minDist[i] > bestDist {
				best, bestDist = i, minDist[i]
			}
		}
		selected.Set(uint(best))
		dst[step] = int64(best)
		last = best
	}
}
