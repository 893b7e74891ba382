// Package gather implements indexed selection of per-point feature vectors and
// its gradient, the scatter-add.
//
// Forward:
//
//	out[b, :, j] = features[b, :, index[b, j]]
//
// Backward:
//
//	grad[b, :, index[b, j]] += gradOut[b, :, j]
//
// grad starts at zero and repeated indices accumulate. Each (b, c) row of the
// destination is owned by exactly one worker, so concurrent accumulation never
// touches the same slot from two goroutines.
package gather

import (
	"fmt"

	"github.com/born-ml/pointops/internal/parallel"
	"github.com/born-ml/pointops/internal/tensor"
	"github.com/born-ml/pointops/internal/validate"
)

// Forward gathers feature columns.
//
// features is (B, C, N); index is (B, M) or (B, M, K) with values in [0, N).
// The result is (B, C, M) or (B, C, M, K) with the features' dtype.
func Forward(features, index *tensor.RawTensor, cfg parallel.Config) (*tensor.RawTensor, error) {
	b, c, n, err := validate.Features("features", features)
	if err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	if err := validate.Index("index", index, b, n); err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	if index.Device() != features.Device() {
		return nil, fmt.Errorf("gather: index on %s, features on %s: %w",
			index.Device(), features.Device(), validate.ErrInputLocationMismatch)
	}

	outShape := append(tensor.Shape{b, c}, index.Shape()[1:]...)
	out, err := tensor.NewRaw(outShape, features.DType(), features.Device())
	if err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}

	m := index.NumElements() / b
	ids := index.Indices()
	switch features.DType() {
	case tensor.Float32:
		forward(out.AsFloat32(), features.AsFloat32(), ids, b, c, n, m, cfg)
	case tensor.Float64:
		forward(out.AsFloat64(), features.AsFloat64(), ids, b, c, n, m, cfg)
	}
	return out, nil
}

// Backward returns the gradient of Forward with respect to features.
//
// gradOut has Forward's output shape; featureShape is the (B, C, N) shape of
// the gathered features. No gradient flows to index.
func Backward(gradOut, index *tensor.RawTensor, featureShape tensor.Shape, cfg parallel.Config) (*tensor.RawTensor, error) {
	if len(featureShape) != 3 {
		return nil, fmt.Errorf("gather backward: feature shape %v is not (B, C, N): %w", featureShape, validate.ErrInvalidShape)
	}
	if gradOut == nil || !gradOut.DType().IsFloat() {
		return nil, fmt.Errorf("gather backward: gradOut must be a float tensor: %w", validate.ErrInvalidArgument)
	}
	grad, err := tensor.Zeros(featureShape, gradOut.DType(), gradOut.Device())
	if err != nil {
		return nil, fmt.Errorf("gather backward: %w", err)
	}
	if err := Accumulate(grad, gradOut, index, cfg); err != nil {
		return nil, err
	}
	return grad, nil
}

// Accumulate scatter-adds gradOut into grad (B, C, N) in place.
// Calling it repeatedly sums every contribution.
func Accumulate(grad, gradOut, index *tensor.RawTensor, cfg parallel.Config) error {
	b, c, n, err := validate.Features("grad", grad)
	if err != nil {
		return fmt.Errorf("gather backward: %w", err)
	}
	if err := validate.Index("index", index, b, n); err != nil {
		return fmt.Errorf("gather backward: %w", err)
	}

	want := append(tensor.Shape{b, c}, index.Shape()[1:]...)
	if gradOut == nil || !gradOut.Shape().Equal(want) {
		var got tensor.Shape
		if gradOut != nil {
			got = gradOut.Shape()
		}
		return fmt.Errorf("gather backward: gradOut shape %v, want %v: %w", got, want, validate.ErrShapeMismatch)
	}
	if err := validate.SameLocation("grad", grad, "gradOut", gradOut); err != nil {
		return fmt.Errorf("gather backward: %w", err)
	}

	m := index.NumElements() / b
	ids := index.Indices()
	switch grad.DType() {
	case tensor.Float32:
		scatterAdd(grad.AsFloat32(), gradOut.AsFloat32(), ids, b, c, n, m, cfg)
	case tensor.Float64:
		scatterAdd(grad.AsFloat64(), gradOut.AsFloat64(), ids, b, c, n, m, cfg)
	}
	return nil
}

func forward[T tensor.Float](dst, src []T, ids []int64, b, c, n, m int, cfg parallel.Config) {
	parallel.ForBatch(b, c, func(bi, ci int) {
		row := bi*c + ci
		srcRow := src[row*n : (row+1)*n]
		dstRow := dst[row*m : (row+1)*m]
		for j, v := range ids[bi*m : (bi+1)*m] {
			dstRow[j] = srcRow[v]
		}
	}, cfg)
}

// scatterAdd sums src columns into dst; the worker for row (b, c) is the only
// writer of dst[b, c, :].
func scatterAdd[T tensor.Float](dst, src []T, ids []int64, b, c, n, m int, cfg parallel.Config) {
	parallel.ForBatch(b, c, func(bi, ci int) {
		row := bi*c + ci
		dstRow := dst[row*n : (row+1)*n]
		srcRow := src[row*m : (row+1)*m]
		for j, v := range ids[bi*m : (bi+1)*m] {
			dstRow[v] += srcRow[j]
		}
	}, cfg)
}
