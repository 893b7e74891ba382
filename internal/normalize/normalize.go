// Package normalize centers and scales batches of point clouds into the unit
// ball.
//
// For every element the centroid is the mean point, and the scale is the
// largest distance of any centered point from the origin. A cloud whose points
// all coincide has scale 1.
package normalize

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/viterin/vek"

	"github.com/born-ml/pointops/internal/parallel"
	"github.com/born-ml/pointops/internal/tensor"
	"github.com/born-ml/pointops/internal/validate"
)

// Options configures Normalize.
type Options struct {
	Layout   tensor.Layout
	Parallel parallel.Config
	Logger   *slog.Logger
}

// DefaultOptions returns channels-last options with the default parallel config.
func DefaultOptions() Options {
	return Options{Layout: tensor.ChannelsLast, Parallel: parallel.DefaultConfig()}
}

// Result holds the normalized batch and the transform that produced it.
//
// points = (Points * Scale) + Centroid recovers the input.
type Result struct {
	Points   *tensor.RawTensor // input shape, layout and dtype
	Centroid *tensor.RawTensor // (B, 1, 3) channels-last, (B, 3, 1) channels-first
	Scale    *tensor.RawTensor // (B, 1, 1)
}

// Normalize centers each element on its centroid and divides by its furthest
// distance.
func Normalize(points *tensor.RawTensor, opts Options) (*Result, error) {
	dims, err := validate.Points("points", points, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if err := validate.Count("points", 1, dims.N); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if opts.Logger != nil {
		opts.Logger.Debug("normalize", "batch", dims.B, "points", dims.N, "layout", opts.Layout.String())
	}

	cf, err := tensor.ToChannelsFirst(points, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	coords := cf.Float64s() // (B, 3, N), one contiguous row per axis
	b, n := dims.B, dims.N
	centroids := make([]float64, b*3)
	scales := make([]float64, b)

	parallel.For(b, func(e int) {
		scales[e] = normalizeElement(coords[e*3*n:(e+1)*3*n], n, centroids[e*3:(e+1)*3])
	}, parallel.Config{
		Enabled:      opts.Parallel.Enabled,
		NumWorkers:   opts.Parallel.NumWorkers,
		MinChunkSize: 1,
	})

	dtype := points.DType()
	out, err := fromFloat64s(coords, tensor.Shape{b, 3, n}, dtype)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if out, err = tensor.FromChannelsFirst(out, opts.Layout); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	centroid, err := fromFloat64s(centroids, tensor.Shape{b, 3, 1}, dtype)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if centroid, err = tensor.FromChannelsFirst(centroid, opts.Layout); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	scale, err := fromFloat64s(scales, tensor.Shape{b, 1, 1}, dtype)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	dev := points.Device()
	return &Result{
		Points:   out.WithDevice(dev),
		Centroid: centroid.WithDevice(dev),
		Scale:    scale.WithDevice(dev),
	}, nil
}

// normalizeElement rewrites one (3, N) element in place, stores its centroid
// and returns its scale.
func normalizeElement(elem []float64, n int, centroid []float64) float64 {
	sq := make([]float64, n)
	for c := 0; c < 3; c++ {
		row := elem[c*n : (c+1)*n]
		centroid[c] = vek.Mean(row)
		vek.SubNumber_Inplace(row, centroid[c])
		vek.Add_Inplace(sq, vek.Mul(row, row))
	}
	scale := math.Sqrt(vek.Max(sq))
	if scale == 0 {
		return 1
	}
	for c := 0; c < 3; c++ {
		vek.DivNumber_Inplace(elem[c*n:(c+1)*n], scale)
	}
	return scale
}

func fromFloat64s(data []float64, shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	if dtype == tensor.Float64 {
		return tensor.FromFloat64(data, shape)
	}
	f32 := make([]float32, len(data))
	for i, v := range data {
		f32[i] = float32(v)
	}
	return tensor.FromFloat32(f32, shape)
}
