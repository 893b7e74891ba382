// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor types consumed and produced by pointops.
//
// # Overview
//
// A RawTensor is a contiguous, row-major buffer with a shape, a data type and a
// device tag. Point primitives read:
//   - point batches: float32 or float64, (B, N, 3) channels-last or (B, 3, N) channels-first
//   - feature batches: float32 or float64, always (B, C, N)
//   - index tensors: int32 or int64, (B, M) or (B, M, K)
//
// # Basic Usage
//
//	import "github.com/born-ml/pointops/tensor"
//
//	func main() {
//	    points, _ := tensor.FromFloat32([]float32{
//	        0, 0, 0,
//	        1, 0, 0,
//	    }, tensor.Shape{1, 2, 3})
//
//	    cf, _ := tensor.ToChannelsFirst(points, tensor.ChannelsLast) // (1, 3, 2)
//	    _ = cf
//	}
//
// # Device Support
//
// Every primitive runs on host memory. The device tag only guards against
// mixing tensors that claim to live in different memory spaces; such calls
// fail with an input location mismatch.
package tensor
