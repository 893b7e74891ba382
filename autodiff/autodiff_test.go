// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff_test

import (
	"errors"
	"testing"

	"github.com/born-ml/pointops/autodiff"
	"github.com/born-ml/pointops/tensor"
)

// TestTapeAPI verifies the tape alias exposes the recording controls.
func TestTapeAPI(t *testing.T) {
	tape := autodiff.NewGradientTape()
	if tape.IsRecording() {
		t.Error("new tape should not be recording")
	}
	tape.StartRecording()
	if !tape.IsRecording() {
		t.Error("tape should be recording after StartRecording()")
	}
	if tape.NumOps() != 0 {
		t.Errorf("NumOps() = %d, want 0", tape.NumOps())
	}

	out, err := tensor.FromFloat32([]float32{1}, tensor.Shape{1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tape.Backward(out, out); !errors.Is(err, autodiff.ErrUnknownTensor) {
		t.Errorf("Backward on empty tape: err = %v, want ErrUnknownTensor", err)
	}
}

// TestClassNames verifies the class constants.
func TestClassNames(t *testing.T) {
	if autodiff.Differentiable.String() != "differentiable" {
		t.Errorf("Differentiable = %q", autodiff.Differentiable.String())
	}
	if autodiff.NonDifferentiable.String() != "non-differentiable" {
		t.Errorf("NonDifferentiable = %q", autodiff.NonDifferentiable.String())
	}
}
