package ops

import (
	"fmt"

	"github.com/born-ml/pointops/internal/group"
	"github.com/born-ml/pointops/internal/tensor"
)

// GroupOp represents neighborhood grouping.
//
// Outputs are (grouped, index, distance). Only grouped carries gradient; its
// backward is one scatter-add per neighbor slot, with the result converted back
// to the layout of the grouped input.
type GroupOp struct {
	input      *tensor.RawTensor // features, or reference points when fromPoints
	fromPoints bool
	result     *group.Result
	opts       group.Options
}

// NewGroupOp creates a new grouping operation.
func NewGroupOp(input *tensor.RawTensor, fromPoints bool, result *group.Result, opts group.Options) *GroupOp {
	return &GroupOp{input: input, fromPoints: fromPoints, result: result, opts: opts}
}

// Name returns "group".
func (op *GroupOp) Name() string { return "group" }

// Inputs returns the grouped source.
func (op *GroupOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Outputs returns (grouped, index, distance).
func (op *GroupOp) Outputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.result.Grouped, op.result.Index, op.result.Distance}
}

// Classes marks grouped Differentiable and the search outputs NonDifferentiable.
func (op *GroupOp) Classes() []Class {
	return []Class{Differentiable, NonDifferentiable, NonDifferentiable}
}

// Backward maps the grouped gradient back onto the source.
func (op *GroupOp) Backward(outputGrads []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(outputGrads) != 3 {
		return nil, fmt.Errorf("group backward: got %d output grads, want 3", len(outputGrads))
	}
	g := outputGrads[0]
	if g == nil {
		return []*tensor.RawTensor{nil}, nil
	}
	grad, err := group.Backward(g, op.result.Index, op.input.Shape(), op.fromPoints, op.opts)
	if err != nil {
		return nil, err
	}
	return []*tensor.RawTensor{grad}, nil
}
