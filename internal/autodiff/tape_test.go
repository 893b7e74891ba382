package autodiff_test

import (
	"errors"
	"testing"

	"github.com/born-ml/pointops/internal/autodiff"
	"github.com/born-ml/pointops/internal/autodiff/ops"
	"github.com/born-ml/pointops/internal/gather"
	"github.com/born-ml/pointops/internal/parallel"
	"github.com/born-ml/pointops/internal/tensor"
	"github.com/born-ml/pointops/internal/validate"
)

func mustF32(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromFloat32(data, shape)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func mustI64(t *testing.T, data []int64, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromInt64(data, shape)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// recordGather runs a gather and records it on tape.
func recordGather(t *testing.T, tape *autodiff.GradientTape, input, index *tensor.RawTensor) *tensor.RawTensor {
	t.Helper()
	cfg := parallel.Sequential()
	out, err := gather.Forward(input, index, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := tape.Record(ops.NewGatherOp(input, index, out, cfg)); err != nil {
		t.Fatal(err)
	}
	return out
}

// brokenOp reports fewer classes than outputs.
type brokenOp struct{ out *tensor.RawTensor }

func (brokenOp) Name() string                                              { return "broken" }
func (brokenOp) Inputs() []*tensor.RawTensor                               { return nil }
func (b brokenOp) Outputs() []*tensor.RawTensor                            { return []*tensor.RawTensor{b.out, b.out} }
func (brokenOp) Classes() []ops.Class                                      { return []ops.Class{ops.Differentiable} }
func (brokenOp) Backward([]*tensor.RawTensor) ([]*tensor.RawTensor, error) { return nil, nil }

// TestTape_Recording tests tape recording on/off.
func TestTape_Recording(t *testing.T) {
	tape := autodiff.NewGradientTape()
	if tape.IsRecording() {
		t.Error("Tape should not be recording initially")
	}
	tape.StartRecording()
	if !tape.IsRecording() {
		t.Error("Tape should be recording after StartRecording()")
	}
	tape.StopRecording()
	if tape.IsRecording() {
		t.Error("Tape should not be recording after StopRecording()")
	}
}

// TestTape_RecordOnlyWhileRecording tests that ops are dropped when not recording.
func TestTape_RecordOnlyWhileRecording(t *testing.T) {
	tape := autodiff.NewGradientTape()
	input := mustF32(t, []float32{1, 2}, tensor.Shape{1, 1, 2})
	index := mustI64(t, []int64{1}, tensor.Shape{1, 1})

	recordGather(t, tape, input, index)
	if tape.NumOps() != 0 {
		t.Errorf("NumOps = %d while not recording, want 0", tape.NumOps())
	}

	tape.StartRecording()
	recordGather(t, tape, input, index)
	if tape.NumOps() != 1 {
		t.Errorf("NumOps = %d, want 1", tape.NumOps())
	}

	tape.Clear()
	if tape.NumOps() != 0 {
		t.Errorf("Tape should be empty after Clear(), got %d ops", tape.NumOps())
	}
	if !tape.IsRecording() {
		t.Error("Tape should still be recording after Clear()")
	}
}

// TestTape_RefusesIncompleteClassification tests totality of output classes.
func TestTape_RefusesIncompleteClassification(t *testing.T) {
	tape := autodiff.NewGradientTape()
	tape.StartRecording()
	out := mustF32(t, []float32{0}, tensor.Shape{1})

	err := tape.Record(brokenOp{out: out})
	if !errors.Is(err, autodiff.ErrIncompleteClassification) {
		t.Fatalf("Record err = %v, want ErrIncompleteClassification", err)
	}
	if tape.NumOps() != 0 {
		t.Errorf("NumOps = %d, want 0", tape.NumOps())
	}
}

// TestTape_BackwardChain tests gradient through two chained gathers.
func TestTape_BackwardChain(t *testing.T) {
	tape := autodiff.NewGradientTape()
	tape.StartRecording()

	input := mustF32(t, []float32{10, 20, 30}, tensor.Shape{1, 1, 3})
	mid := recordGather(t, tape, input, mustI64(t, []int64{2, 0}, tensor.Shape{1, 2}))
	out := recordGather(t, tape, mid, mustI64(t, []int64{0, 0, 1}, tensor.Shape{1, 3}))

	grads, err := tape.Backward(out, mustF32(t, []float32{1, 2, 4}, tensor.Shape{1, 1, 3}))
	if err != nil {
		t.Fatalf("Backward: %v", err)
	}
	if !tape.IsRecording() {
		t.Error("recording state should be restored after Backward")
	}

	// mid grad = [1+2, 4]; input grad = [4, 0, 3]
	want := []float32{4, 0, 3}
	got := grads[input].AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("grad[input][%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestTape_BackwardAccumulatesSharedInput tests summation over two uses of one tensor.
func TestTape_BackwardAccumulatesSharedInput(t *testing.T) {
	tape := autodiff.NewGradientTape()
	tape.StartRecording()

	input := mustF32(t, []float32{1, 2}, tensor.Shape{1, 1, 2})
	a := recordGather(t, tape, input, mustI64(t, []int64{0}, tensor.Shape{1, 1}))
	recordGather(t, tape, input, mustI64(t, []int64{1}, tensor.Shape{1, 1}))

	grads, err := tape.Backward(a, mustF32(t, []float32{5}, tensor.Shape{1, 1, 1}))
	if err != nil {
		t.Fatal(err)
	}
	got := grads[input].AsFloat32()
	if got[0] != 5 || got[1] != 0 {
		t.Errorf("grad[input] = %v, want [5 0]", got)
	}
}

// TestTape_BackwardErrors tests seeding from invalid outputs.
func TestTape_BackwardErrors(t *testing.T) {
	tape := autodiff.NewGradientTape()
	tape.StartRecording()

	idx := mustI64(t, []int64{0, 1}, tensor.Shape{1, 2})
	if err := tape.Record(ops.NewFPSOp(idx)); err != nil {
		t.Fatal(err)
	}
	input := mustF32(t, []float32{1, 2}, tensor.Shape{1, 1, 2})
	out := recordGather(t, tape, input, idx)

	_, err := tape.Backward(idx, mustF32(t, []float32{1, 1}, tensor.Shape{1, 2}))
	if !errors.Is(err, autodiff.ErrNotDifferentiable) {
		t.Errorf("seed from index: err = %v, want ErrNotDifferentiable", err)
	}

	_, err = tape.Backward(input, mustF32(t, []float32{1, 1}, tensor.Shape{1, 1, 2}))
	if !errors.Is(err, autodiff.ErrUnknownTensor) {
		t.Errorf("seed from leaf: err = %v, want ErrUnknownTensor", err)
	}

	_, err = tape.Backward(out, mustF32(t, []float32{1}, tensor.Shape{1, 1, 1}))
	if !errors.Is(err, validate.ErrShapeMismatch) {
		t.Errorf("bad grad shape: err = %v, want ErrShapeMismatch", err)
	}

	_, err = tape.Backward(out, nil)
	if !errors.Is(err, validate.ErrInvalidArgument) {
		t.Errorf("nil grad: err = %v, want ErrInvalidArgument", err)
	}
}
