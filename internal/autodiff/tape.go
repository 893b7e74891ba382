package autodiff

import (
	"errors"
	"fmt"

	"github.com/born-ml/pointops/internal/autodiff/ops"
	"github.com/born-ml/pointops/internal/tensor"
	"github.com/born-ml/pointops/internal/validate"
)

var (
	// ErrIncompleteClassification is returned by Record when an operation does
	// not classify every one of its outputs.
	ErrIncompleteClassification = errors.New("incomplete output classification")

	// ErrNotDifferentiable is returned by Backward when seeded from an output
	// that does not carry gradient.
	ErrNotDifferentiable = errors.New("output is not differentiable")

	// ErrUnknownTensor is returned by Backward when the seed tensor was not
	// produced by any recorded operation.
	ErrUnknownTensor = errors.New("tensor not produced on this tape")
)

// GradientTape records operations during the forward pass and computes
// gradients during the backward pass using reverse-mode automatic differentiation.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.StartRecording()
//	// ... run gather / group ...
//	grads, err := tape.Backward(grouped, gradGrouped)
//
// A tape is not safe for concurrent use.
type GradientTape struct {
	operations []ops.Operation // Recorded operations (in execution order)
	recording  bool
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 16),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations.
func (t *GradientTape) IsRecording() bool {
	return t.recording
}

// Record adds an operation to the tape if it is recording.
// The operation must classify each of its outputs.
func (t *GradientTape) Record(op ops.Operation) error {
	if n, c := len(op.Outputs()), len(op.Classes()); n != c {
		return fmt.Errorf("autodiff: %s has %d outputs but %d classes: %w",
			op.Name(), n, c, ErrIncompleteClassification)
	}
	if t.recording {
		t.operations = append(t.operations, op)
	}
	return nil
}

// Clear resets the tape, removing all recorded operations.
// Recording state is preserved.
func (t *GradientTape) Clear() {
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.operations)
}

// Backward seeds output with grad and walks the tape in reverse.
//
// Gradient that reaches a NonDifferentiable output is dropped. Gradients of a
// tensor used by several operations are summed. The result maps every tensor
// that received gradient (including output) to its accumulated gradient.
func (t *GradientTape) Backward(output, grad *tensor.RawTensor) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	if output == nil || grad == nil {
		return nil, fmt.Errorf("autodiff: nil output or grad: %w", validate.ErrInvalidArgument)
	}
	class, ok := t.classOf(output)
	if !ok {
		return nil, fmt.Errorf("autodiff: %w", ErrUnknownTensor)
	}
	if class != ops.Differentiable {
		return nil, fmt.Errorf("autodiff: %w", ErrNotDifferentiable)
	}
	if !grad.Shape().Equal(output.Shape()) {
		return nil, fmt.Errorf("autodiff: grad shape %v, output shape %v: %w",
			grad.Shape(), output.Shape(), validate.ErrShapeMismatch)
	}
	if grad.DType() != output.DType() {
		return nil, fmt.Errorf("autodiff: grad %s, output %s: %w",
			grad.DType(), output.DType(), validate.ErrInputLocationMismatch)
	}

	// Backward never records.
	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	grads := map[*tensor.RawTensor]*tensor.RawTensor{output: grad}
	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		outputGrads, has := collectOutputGrads(op, grads)
		if !has {
			continue
		}
		inputGrads, err := op.Backward(outputGrads)
		if err != nil {
			return nil, fmt.Errorf("autodiff: %s: %w", op.Name(), err)
		}
		if err := accumulateGrads(op, inputGrads, grads); err != nil {
			return nil, err
		}
	}
	return grads, nil
}

// classOf finds the classification of a recorded output.
func (t *GradientTape) classOf(out *tensor.RawTensor) (ops.Class, bool) {
	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		classes := op.Classes()
		for j, o := range op.Outputs() {
			if o == out {
				return classes[j], true
			}
		}
	}
	return ops.NonDifferentiable, false
}

// collectOutputGrads returns one gradient per output of op, nil for outputs that
// received none or are NonDifferentiable.
func collectOutputGrads(op ops.Operation, grads map[*tensor.RawTensor]*tensor.RawTensor) ([]*tensor.RawTensor, bool) {
	outputs := op.Outputs()
	classes := op.Classes()
	outputGrads := make([]*tensor.RawTensor, len(outputs))
	has := false
	for j, out := range outputs {
		if classes[j] != ops.Differentiable {
			continue
		}
		if g, ok := grads[out]; ok {
			outputGrads[j] = g
			has = true
		}
	}
	return outputGrads, has
}

// accumulateGrads adds each input gradient into grads.
func accumulateGrads(op ops.Operation, inputGrads []*tensor.RawTensor, grads map[*tensor.RawTensor]*tensor.RawTensor) error {
	for j, input := range op.Inputs() {
		if j >= len(inputGrads) {
			break
		}
		g := inputGrads[j]
		if g == nil {
			continue
		}
		existing, ok := grads[input]
		if !ok {
			grads[input] = g
			continue
		}
		sum, err := add(existing, g)
		if err != nil {
			return fmt.Errorf("autodiff: %s: %w", op.Name(), err)
		}
		grads[input] = sum
	}
	return nil
}

// add returns a + b as a new tensor.
func add(a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !a.Shape().Equal(b.Shape()) {
		return nil, fmt.Errorf("accumulate %v and %v: %w", a.Shape(), b.Shape(), validate.ErrShapeMismatch)
	}
	if a.DType() != b.DType() {
		return nil, fmt.Errorf("accumulate %s and %s: %w", a.DType(), b.DType(), validate.ErrInputLocationMismatch)
	}
	out := a.Clone()
	switch out.DType() {
	case tensor.Float32:
		dst, src := out.AsFloat32(), b.AsFloat32()
		for i := range dst {
			dst[i] += src[i]
		}
	case tensor.Float64:
		dst, src := out.AsFloat64(), b.AsFloat64()
		for i := range dst {
			dst[i] += src[i]
		}
	default:
		return nil, fmt.Errorf("accumulate %s gradients: %w", out.DType(), validate.ErrInvalidArgument)
	}
	return out, nil
}
