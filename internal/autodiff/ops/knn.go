package ops

import "github.com/born-ml/pointops/internal/tensor"

// KNNOp records a neighbor search. Index selection is not differentiable, so
// both outputs are opaque and no input receives gradient.
type KNNOp struct {
	stopGradient
	index    *tensor.RawTensor
	distance *tensor.RawTensor
}

// NewKNNOp creates a new knn operation.
func NewKNNOp(index, distance *tensor.RawTensor) *KNNOp {
	return &KNNOp{index: index, distance: distance}
}

// Name returns "knn".
func (op *KNNOp) Name() string { return "knn" }

// Outputs returns (index, distance).
func (op *KNNOp) Outputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.index, op.distance}
}

// Classes marks both outputs NonDifferentiable.
func (op *KNNOp) Classes() []Class {
	return []Class{NonDifferentiable, NonDifferentiable}
}
