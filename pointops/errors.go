// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pointops

import (
	"github.com/born-ml/pointops/internal/config"
	"github.com/born-ml/pointops/internal/validate"
)

// Error sentinels. Test with errors.Is.
var (
	// ErrShapeMismatch reports disagreeing batch sizes, point counts or channels.
	ErrShapeMismatch = validate.ErrShapeMismatch
	// ErrInvalidShape reports a wrong rank or a coordinate axis other than 3.
	ErrInvalidShape = validate.ErrInvalidShape
	// ErrInsufficientPoints reports k or m larger than the point count.
	ErrInsufficientPoints = validate.ErrInsufficientPoints
	// ErrIndexOutOfRange reports a gather index outside [0, N).
	ErrIndexOutOfRange = validate.ErrIndexOutOfRange
	// ErrInputLocationMismatch reports inputs on different devices or dtypes.
	ErrInputLocationMismatch = validate.ErrInputLocationMismatch
	// ErrInvalidArgument reports nil inputs, non-positive k or m, or bad dtypes.
	ErrInvalidArgument = validate.ErrInvalidArgument
	// ErrInvalidConfig reports a configuration value out of range.
	ErrInvalidConfig = config.ErrInvalidConfig
)
