// Package group builds k-nearest-neighbor neighborhoods: for every query point
// it collects the feature vectors of its k nearest reference points into a
// dense (B, C, M, k) grid.
//
// The lower primitives only see channels-first data; this package converts
// caller layouts on the way in and on the way out.
package group

import (
	"fmt"

	"github.com/born-ml/pointops/internal/gather"
	"github.com/born-ml/pointops/internal/knn"
	"github.com/born-ml/pointops/internal/tensor"
	"github.com/born-ml/pointops/internal/validate"
)

// Options configures grouping. The embedded search options carry the point
// layout, which also selects the layout of the grouped output.
type Options struct {
	knn.Options

	// Unique documents that neighborhoods are expected to hold distinct points.
	// It is not enforced: duplicate reference points may produce repeated
	// indices and are passed through unchanged.
	Unique bool
}

// DefaultOptions returns channels-last grouping with default search options.
func DefaultOptions() Options {
	return Options{Options: knn.DefaultOptions(), Unique: true}
}

// Result holds one call's neighborhoods.
type Result struct {
	// Grouped is (B, C, M, k) for channels-first or (B, M, k, C) for channels-last.
	Grouped  *tensor.RawTensor
	Index    *tensor.RawTensor // (B, M, k) int64
	Distance *tensor.RawTensor // (B, M, k) squared distances
}

// Group finds the k nearest reference points of each query point and gathers
// their features.
//
// features is (B, C, N) and indexes the same points as reference. When
// features is nil the reference coordinates themselves are grouped (C = 3).
func Group(features, query, reference *tensor.RawTensor, k int, opts Options) (*Result, error) {
	neighbors, err := knn.Search(reference, query, k, opts.Options)
	if err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}

	src, err := Source(features, reference, opts.Layout)
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		opts.Logger.Debug("group neighborhoods",
			"channels", src.Shape()[1], "k", k, "unique", opts.Unique, "layout", opts.Layout.String())
	}

	grid, err := gatherSlots(src, neighbors.Index, opts)
	if err != nil {
		return nil, err
	}
	grouped, err := tensor.FromChannelsFirst(grid, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}

	return &Result{Grouped: grouped, Index: neighbors.Index, Distance: neighbors.Distance}, nil
}

// Source returns the channels-first (B, C, N) tensor that Group gathers from.
func Source(features, reference *tensor.RawTensor, layout tensor.Layout) (*tensor.RawTensor, error) {
	refDims, err := validate.Points("reference", reference, layout)
	if err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}
	if features == nil {
		src, err := tensor.ToChannelsFirst(reference, layout)
		if err != nil {
			return nil, fmt.Errorf("group: %w", err)
		}
		return src, nil
	}

	b, _, n, err := validate.Features("features", features)
	if err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}
	if err := validate.SameBatch("features", b, "reference", refDims.B); err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}
	if n != refDims.N {
		return nil, fmt.Errorf("group: features have %d points, reference has %d: %w",
			n, refDims.N, validate.ErrShapeMismatch)
	}
	if features.Device() != reference.Device() {
		return nil, fmt.Errorf("group: features on %s, reference on %s: %w",
			features.Device(), reference.Device(), validate.ErrInputLocationMismatch)
	}
	return features, nil
}

// gatherSlots runs one gather per neighbor slot and interleaves the results
// into a (B, C, M, k) grid.
func gatherSlots(src, index *tensor.RawTensor, opts Options) (*tensor.RawTensor, error) {
	shape := index.Shape()
	b, m, k := shape[0], shape[1], shape[2]
	c := src.Shape()[1]

	grid, err := tensor.NewRaw(tensor.Shape{b, c, m, k}, src.DType(), src.Device())
	if err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}
	for s := 0; s < k; s++ {
		slotIdx, err := takeSlot(index, s, tensor.Shape{b, m})
		if err != nil {
			return nil, fmt.Errorf("group: %w", err)
		}
		cols, err := gather.Forward(src, slotIdx, opts.Parallel)
		if err != nil {
			return nil, fmt.Errorf("group: slot %d: %w", s, err)
		}
		putSlot(grid, cols, s)
	}
	return grid, nil
}

// Backward maps the gradient of Grouped back onto the grouped source.
//
// gradGrouped has Grouped's shape and layout; sourceShape is the shape of the
// tensor that was grouped (features, or reference when fromPoints is true).
// The result has sourceShape.
func Backward(gradGrouped, index *tensor.RawTensor, sourceShape tensor.Shape, fromPoints bool, opts Options) (*tensor.RawTensor, error) {
	g, err := tensor.ToChannelsFirst(gradGrouped, opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("group backward: %w", err)
	}
	if g.Rank() != 4 || index.Rank() != 3 {
		return nil, fmt.Errorf("group backward: grad %v, index %v: %w", g.Shape(), index.Shape(), validate.ErrInvalidShape)
	}

	featShape := sourceShape
	if fromPoints {
		// Points are gathered as (B, 3, N).
		pointAxis, _ := opts.Layout.PointAxes()
		featShape = tensor.Shape{sourceShape[0], 3, sourceShape[pointAxis]}
	}

	gs, is := g.Shape(), index.Shape()
	b, c, m, k := gs[0], gs[1], gs[2], gs[3]
	if b != is[0] || m != is[1] || k != is[2] {
		return nil, fmt.Errorf("group backward: grad %v does not match index %v: %w", gs, is, validate.ErrShapeMismatch)
	}

	grad, err := tensor.Zeros(featShape, g.DType(), g.Device())
	if err != nil {
		return nil, fmt.Errorf("group backward: %w", err)
	}
	for s := 0; s < k; s++ {
		slotIdx, err := takeSlot(index, s, tensor.Shape{b, m})
		if err != nil {
			return nil, fmt.Errorf("group backward: %w", err)
		}
		slotGrad, err := takeSlot(g, s, tensor.Shape{b, c, m})
		if err != nil {
			return nil, fmt.Errorf("group backward: %w", err)
		}
		if err := gather.Accumulate(grad, slotGrad, slotIdx, opts.Parallel); err != nil {
			return nil, fmt.Errorf("group backward: slot %d: %w", s, err)
		}
	}

	if fromPoints {
		grad, err = tensor.FromChannelsFirst(grad, opts.Layout)
		if err != nil {
			return nil, fmt.Errorf("group backward: %w", err)
		}
	}
	return grad, nil
}

// takeSlot copies the s-th entry of the trailing axis of t into a new tensor of the given shape.
func takeSlot(t *tensor.RawTensor, s int, shape tensor.Shape) (*tensor.RawTensor, error) {
	tShape := t.Shape()
	k := tShape[len(tShape)-1]
	if shape.NumElements()*k != t.NumElements() {
		return nil, fmt.Errorf("slot shape %v does not divide %v", shape, tShape)
	}
	out, err := tensor.NewRaw(shape, t.DType(), t.Device())
	if err != nil {
		return nil, err
	}
	size := t.DType().Size()
	src, dst := t.Data(), out.Data()
	for r := 0; r < shape.NumElements(); r++ {
		from := (r*k + s) * size
		copy(dst[r*size:(r+1)*size], src[from:from+size])
	}
	return out, nil
}

// putSlot writes slot into the s-th entry of grid's trailing axis.
func putSlot(grid, slot *tensor.RawTensor, s int) {
	gShape := grid.Shape()
	k := gShape[len(gShape)-1]
	size := grid.DType().Size()
	src, dst := slot.Data(), grid.Data()
	for r := 0; r < slot.NumElements(); r++ {
		to := (r*k + s) * size
		copy(dst[to:to+size], src[r*size:(r+1)*size])
	}
}
