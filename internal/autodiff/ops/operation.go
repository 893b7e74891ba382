// Package ops defines the operations the gradient tape can record.
//
// Each operation classifies every output it produces:
//   - Differentiable: the operation supplies a backward rule for it
//   - NonDifferentiable: gradient opaque; any gradient arriving here is dropped
//
// Recorded operations:
//   - KNNOp: (index, distance) both NonDifferentiable
//   - FPSOp: index NonDifferentiable
//   - GatherOp: gathered features Differentiable (backward = scatter-add)
//   - GroupOp: grouped Differentiable, (index, distance) NonDifferentiable
package ops

import (
	"fmt"

	"github.com/born-ml/pointops/internal/tensor"
)

// Class says whether gradient may flow through an output.
type Class int

const (
	// NonDifferentiable outputs stop gradient propagation.
	NonDifferentiable Class = iota
	// Differentiable outputs propagate gradient via the operation's Backward.
	Differentiable
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case NonDifferentiable:
		return "non-differentiable"
	case Differentiable:
		return "differentiable"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Operation is one recorded forward computation.
type Operation interface {
	// Name identifies the operation in errors and logs.
	Name() string

	// Inputs returns the tensors that can receive gradient. Index tensors are
	// never listed.
	Inputs() []*tensor.RawTensor

	// Outputs returns every tensor the operation produced.
	Outputs() []*tensor.RawTensor

	// Classes returns one Class per output, in Outputs order.
	Classes() []Class

	// Backward receives one gradient per output (nil where none arrived or the
	// output is NonDifferentiable) and returns one gradient per input.
	Backward(outputGrads []*tensor.RawTensor) ([]*tensor.RawTensor, error)
}

// stopGradient is embedded by operations whose outputs are all opaque.
type stopGradient struct{}

func (stopGradient) Inputs() []*tensor.RawTensor { return nil }

func (stopGradient) Backward([]*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return nil, nil
}
