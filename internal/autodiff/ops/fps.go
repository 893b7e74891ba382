package ops

import "github.com/born-ml/pointops/internal/tensor"

// FPSOp records furthest point sampling; its index output is opaque.
type FPSOp struct {
	stopGradient
	index *tensor.RawTensor
}

// NewFPSOp creates a new sampling operation.
func NewFPSOp(index *tensor.RawTensor) *FPSOp {
	return &FPSOp{index: index}
}

// Name returns "fps".
func (op *FPSOp) Name() string { return "fps" }

// Outputs returns the index tensor.
func (op *FPSOp) Outputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.index}
}

// Classes marks the index NonDifferentiable.
func (op *FPSOp) Classes() []Class {
	return []Class{NonDifferentiable}
}
