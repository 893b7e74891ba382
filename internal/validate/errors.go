// Package validate holds the error taxonomy of the point primitives and the
// argument checks every primitive runs before it touches any data.
package validate

import "errors"

var (
	// ErrShapeMismatch reports disagreeing batch size, coordinate width or
	// channel count between arguments of one call.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidShape reports a tensor whose rank or coordinate axis is wrong
	// on its own, e.g. non-3D points.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrInsufficientPoints reports k or m larger than the available point count.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrIndexOutOfRange reports an index outside [0, N) at gather time.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInputLocationMismatch reports arguments living in different memory
	// spaces or using different precisions.
	ErrInputLocationMismatch = errors.New("input location mismatch")

	// ErrInvalidArgument reports a nil tensor, a non-positive k or m, or a dtype
	// the primitive cannot operate on.
	ErrInvalidArgument = errors.New("invalid argument")
)
