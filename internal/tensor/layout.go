package tensor

import (
	"fmt"
	"strings"
)

// Layout selects which axis of a point batch holds the coordinates.
type Layout int

const (
	// ChannelsFirst stores points as (B, C, N), the NCHW convention.
	ChannelsFirst Layout = iota
	// ChannelsLast stores points as (B, N, C).
	ChannelsLast
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case ChannelsFirst:
		return "channels_first"
	case ChannelsLast:
		return "channels_last"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout parses "channels_first"/"nchw" or "channels_last"/"nhwc".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "channels_first", "nchw", "first":
		return ChannelsFirst, nil
	case "channels_last", "nhwc", "last":
		return ChannelsLast, nil
	default:
		return 0, fmt.Errorf("unknown layout %q", s)
	}
}

// PointAxes returns the (point axis, channel axis) of a rank-3 batch in this layout.
func (l Layout) PointAxes() (points, channels int) {
	if l == ChannelsFirst {
		return 2, 1
	}
	return 1, 2
}

// Permute returns a contiguous copy of t with axes reordered: out.Shape()[i] = t.Shape()[axes[i]].
// It works on any dtype by moving whole elements.
func Permute(t *RawTensor, axes ...int) (*RawTensor, error) {
	inShape := t.Shape()
	outShape, err := inShape.Permuted(axes)
	if err != nil {
		return nil, fmt.Errorf("permute: %w", err)
	}

	out, err := NewRaw(outShape, t.DType(), t.Device())
	if err != nil {
		return nil, fmt.Errorf("permute: %w", err)
	}

	inStrides := inShape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	size := t.DType().Size()
	src := t.Data()
	dst := out.Data()

	ndim := len(outShape)
	coords := make([]int, ndim)
	for outIdx := 0; outIdx < out.NumElements(); outIdx++ {
		remaining := outIdx
		inIdx := 0
		for i := 0; i < ndim; i++ {
			coords[i] = remaining / outStrides[i]
			remaining %= outStrides[i]
			inIdx += coords[i] * inStrides[axes[i]]
		}
		copy(dst[outIdx*size:(outIdx+1)*size], src[inIdx*size:(inIdx+1)*size])
	}

	return out, nil
}

// SwapLastAxes converts a rank-3 batch between (B, C, N) and (B, N, C).
func SwapLastAxes(t *RawTensor) (*RawTensor, error) {
	if t.Rank() != 3 {
		return nil, fmt.Errorf("swap axes: expected rank 3, got shape %v", t.Shape())
	}
	return Permute(t, 0, 2, 1)
}

// ToChannelsFirst returns t in (B, C, ...) layout, copying only when needed.
// A rank-3 ChannelsLast tensor (B, N, C) becomes (B, C, N); a rank-4
// ChannelsLast tensor (B, M, K, C) becomes (B, C, M, K).
func ToChannelsFirst(t *RawTensor, from Layout) (*RawTensor, error) {
	if from == ChannelsFirst {
		return t, nil
	}
	switch t.Rank() {
	case 3:
		return Permute(t, 0, 2, 1)
	case 4:
		return Permute(t, 0, 3, 1, 2)
	default:
		return nil, fmt.Errorf("layout: unsupported rank %d", t.Rank())
	}
}

// FromChannelsFirst converts a (B, C, ...) tensor to the requested layout.
// It is the inverse of ToChannelsFirst.
func FromChannelsFirst(t *RawTensor, to Layout) (*RawTensor, error) {
	if to == ChannelsFirst {
		return t, nil
	}
	switch t.Rank() {
	case 3:
		return Permute(t, 0, 2, 1)
	case 4:
		return Permute(t, 0, 2, 3, 1)
	default:
		return nil, fmt.Errorf("layout: unsupported rank %d", t.Rank())
	}
}
