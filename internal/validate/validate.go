package validate

import (
	"fmt"

	"github.com/born-ml/pointops/internal/tensor"
)

// PointDims are the resolved sizes of a point batch.
type PointDims struct {
	B int // Batch elements
	N int // Points per element
}

// Points checks a (B, N, 3) / (B, 3, N) float batch and returns its sizes.
func Points(name string, t *tensor.RawTensor, layout tensor.Layout) (PointDims, error) {
	if t == nil {
		return PointDims{}, fmt.Errorf("%s: nil tensor: %w", name, ErrInvalidArgument)
	}
	if !t.DType().IsFloat() {
		return PointDims{}, fmt.Errorf("%s: dtype %s is not a float type: %w", name, t.DType(), ErrInvalidArgument)
	}
	if t.Rank() != 3 {
		return PointDims{}, fmt.Errorf("%s: expected rank 3, got shape %v: %w", name, t.Shape(), ErrInvalidShape)
	}
	pointAxis, coordAxis := layout.PointAxes()
	shape := t.Shape()
	if shape[coordAxis] != 3 {
		return PointDims{}, fmt.Errorf("%s: coordinate axis %d has size %d, want 3 (shape %v, %s): %w",
			name, coordAxis, shape[coordAxis], shape, layout, ErrInvalidShape)
	}
	return PointDims{B: shape[0], N: shape[pointAxis]}, nil
}

// SameLocation checks that two tensors share dtype and device.
//
// A dtype mismatch wraps both ErrInputLocationMismatch and ErrShapeMismatch.
func SameLocation(aName string, a *tensor.RawTensor, bName string, b *tensor.RawTensor) error {
	if a.Device() != b.Device() {
		return fmt.Errorf("%s on %s, %s on %s: %w", aName, a.Device(), bName, b.Device(), ErrInputLocationMismatch)
	}
	if a.DType() != b.DType() {
		return fmt.Errorf("%s is %s, %s is %s: %w: %w",
			aName, a.DType(), bName, b.DType(), ErrInputLocationMismatch, ErrShapeMismatch)
	}
	return nil
}

// SameBatch checks that two batch sizes agree.
func SameBatch(aName string, a int, bName string, b int) error {
	if a != b {
		return fmt.Errorf("%s has batch size %d, %s has %d: %w", aName, a, bName, b, ErrShapeMismatch)
	}
	return nil
}

// Count checks 1 <= want <= have for a neighbor count or sample size.
func Count(name string, want, have int) error {
	if want < 1 {
		return fmt.Errorf("%s = %d, must be positive: %w", name, want, ErrInvalidArgument)
	}
	if want > have {
		return fmt.Errorf("%s = %d exceeds %d available points: %w", name, want, have, ErrInsufficientPoints)
	}
	return nil
}

// Features checks a (B, C, N) float batch and returns (B, C, N).
func Features(name string, t *tensor.RawTensor) (b, c, n int, err error) {
	if t == nil {
		return 0, 0, 0, fmt.Errorf("%s: nil tensor: %w", name, ErrInvalidArgument)
	}
	if !t.DType().IsFloat() {
		return 0, 0, 0, fmt.Errorf("%s: dtype %s is not a float type: %w", name, t.DType(), ErrInvalidArgument)
	}
	if t.Rank() != 3 {
		return 0, 0, 0, fmt.Errorf("%s: expected (B, C, N), got shape %v: %w", name, t.Shape(), ErrInvalidShape)
	}
	s := t.Shape()
	return s[0], s[1], s[2], nil
}

// Index checks an integer (B, M) or (B, M, K) index tensor against a source
// of n points per batch element. Every value must lie in [0, n).
func Index(name string, idx *tensor.RawTensor, batch, n int) error {
	if idx == nil {
		return fmt.Errorf("%s: nil tensor: %w", name, ErrInvalidArgument)
	}
	if !idx.DType().IsInteger() {
		return fmt.Errorf("%s: dtype %s is not an index type: %w", name, idx.DType(), ErrInvalidArgument)
	}
	if r := idx.Rank(); r != 2 && r != 3 {
		return fmt.Errorf("%s: expected (B, M) or (B, M, K), got shape %v: %w", name, idx.Shape(), ErrInvalidShape)
	}
	if err := SameBatch(name, idx.Shape()[0], "source", batch); err != nil {
		return err
	}
	for i, v := range idx.Indices() {
		if v < 0 || v >= int64(n) {
			return fmt.Errorf("%s[%d] = %d not in [0, %d): %w", name, i, v, n, ErrIndexOutOfRange)
		}
	}
	return nil
}
