// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/pointops/internal/tensor"
)

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
)

// Device represents the memory space a tensor claims to live in.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 1024, 3} is a batch of two clouds of 1024 points.
type Shape = tensor.Shape

// Layout selects which axis of a point batch holds the coordinates.
type Layout = tensor.Layout

// Layout constants.
const (
	ChannelsFirst Layout = tensor.ChannelsFirst // (B, 3, N)
	ChannelsLast  Layout = tensor.ChannelsLast  // (B, N, 3)
)

// ParseLayout parses "channels_first"/"nchw" or "channels_last"/"nhwc".
func ParseLayout(s string) (Layout, error) {
	return tensor.ParseLayout(s)
}

// ToChannelsFirst converts a rank-3 or rank-4 tensor stored in layout from to (B, C, ...).
func ToChannelsFirst(t *RawTensor, from Layout) (*RawTensor, error) {
	return tensor.ToChannelsFirst(t, from)
}

// FromChannelsFirst converts a (B, C, ...) tensor to layout to.
func FromChannelsFirst(t *RawTensor, to Layout) (*RawTensor, error) {
	return tensor.FromChannelsFirst(t, to)
}
