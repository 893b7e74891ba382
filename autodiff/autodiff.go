// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode differentiation through point
// primitives.
//
// A GradientTape records each primitive an Engine runs while recording is on.
// Every recorded operation classifies its outputs: gather and grouped values
// are Differentiable, neighbor indices, distances and sampling indices are
// NonDifferentiable. Backward walks the tape in reverse, scatter-adding
// gradients back onto the gathered features or points.
//
// Example:
//
//	import (
//	    "github.com/born-ml/pointops/pointops"
//	    "github.com/born-ml/pointops/tensor"
//	)
//
//	func main() {
//	    e := pointops.New()
//	    e.Tape().StartRecording()
//
//	    res, _ := e.Group(features, query, reference, 16, true)
//	    upstream, _ := tensor.Ones(res.Grouped.Shape(), tensor.Float32, tensor.CPU)
//
//	    grads, _ := e.Backward(res.Grouped, upstream)
//	    _ = grads[features]
//	}
package autodiff

import (
	"github.com/born-ml/pointops/internal/autodiff"
	"github.com/born-ml/pointops/internal/autodiff/ops"
)

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// Operation is one recorded forward computation.
type Operation = ops.Operation

// Class says whether gradient may flow through an operation output.
type Class = ops.Class

// Output classes.
const (
	NonDifferentiable Class = ops.NonDifferentiable
	Differentiable    Class = ops.Differentiable
)

// Tape errors.
var (
	ErrIncompleteClassification = autodiff.ErrIncompleteClassification
	ErrNotDifferentiable        = autodiff.ErrNotDifferentiable
	ErrUnknownTensor            = autodiff.ErrUnknownTensor
)
