package ops

import (
	"fmt"

	"github.com/born-ml/pointops/internal/gather"
	"github.com/born-ml/pointops/internal/parallel"
	"github.com/born-ml/pointops/internal/tensor"
)

// GatherOp represents an indexed gather of per-point vectors.
//
// Forward: output[b, :, j] = input[b, :, index[b, j]]
//
// Backward:
//
//	Scatter-add gradOutput into a zero gradInput at the gathered columns.
//	Columns selected more than once accumulate every contribution.
//
// Example:
//
//	input:      [10, 20, 30, 40]  (B=1, C=1, N=4)
//	index:      [2, 0, 2]
//	output:     [30, 10, 30]
//	gradOutput: [a, b, c]
//	gradInput:  [b, 0, a+c, 0]
//
// When the op gathers point coordinates the input and output carry the caller's
// layout, and Backward converts through channels-first.
type GatherOp struct {
	input  *tensor.RawTensor // (B, C, N) features, or points in layout
	index  *tensor.RawTensor // (B, M) or (B, M, K) integer
	output *tensor.RawTensor
	layout tensor.Layout
	points bool
	cfg    parallel.Config
}

// NewGatherOp creates a gather over channels-first features.
func NewGatherOp(input, index, output *tensor.RawTensor, cfg parallel.Config) *GatherOp {
	return &GatherOp{input: input, index: index, output: output, layout: tensor.ChannelsFirst, cfg: cfg}
}

// NewPointGatherOp creates a gather over point coordinates stored in layout.
func NewPointGatherOp(points, index, output *tensor.RawTensor, layout tensor.Layout, cfg parallel.Config) *GatherOp {
	return &GatherOp{input: points, index: index, output: output, layout: layout, points: true, cfg: cfg}
}

// Name returns "gather".
func (op *GatherOp) Name() string { return "gather" }

// Inputs returns the gathered tensor. The index receives no gradient.
func (op *GatherOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Outputs returns the gathered result.
func (op *GatherOp) Outputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.output}
}

// Classes marks the output Differentiable.
func (op *GatherOp) Classes() []Class {
	return []Class{Differentiable}
}

// Backward scatter-adds the output gradient back onto the input.
func (op *GatherOp) Backward(outputGrads []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(outputGrads) != 1 {
		return nil, fmt.Errorf("gather backward: got %d output grads, want 1", len(outputGrads))
	}
	g := outputGrads[0]
	if g == nil {
		return []*tensor.RawTensor{nil}, nil
	}

	if !op.points {
		grad, err := gather.Backward(g, op.index, op.input.Shape(), op.cfg)
		if err != nil {
			return nil, err
		}
		return []*tensor.RawTensor{grad}, nil
	}

	g, err := tensor.ToChannelsFirst(g, op.layout)
	if err != nil {
		return nil, fmt.Errorf("gather backward: %w", err)
	}
	pointAxis, _ := op.layout.PointAxes()
	shape := op.input.Shape()
	grad, err := gather.Backward(g, op.index, tensor.Shape{shape[0], 3, shape[pointAxis]}, op.cfg)
	if err != nil {
		return nil, err
	}
	grad, err = tensor.FromChannelsFirst(grad, op.layout)
	if err != nil {
		return nil, fmt.Errorf("gather backward: %w", err)
	}
	return []*tensor.RawTensor{grad}, nil
}
