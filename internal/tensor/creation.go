package tensor

import "fmt"

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return NewRaw(shape, dtype, device)
}

// Ones creates a floating point tensor filled with ones.
// It is the usual seed gradient for a backward pass.
func Ones(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	t, err := NewRaw(shape, dtype, device)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Float32:
		data := t.AsFloat32()
		for i := range data {
			data[i] = 1
		}
	case Float64:
		data := t.AsFloat64()
		for i := range data {
			data[i] = 1
		}
	default:
		return nil, fmt.Errorf("ones: unsupported dtype %s", dtype)
	}
	return t, nil
}

// FromFloat32 creates a CPU tensor holding a copy of data.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	t, err := newChecked(len(data), shape, Float32)
	if err != nil {
		return nil, err
	}
	copy(t.AsFloat32(), data)
	return t, nil
}

// FromFloat64 creates a CPU tensor holding a copy of data.
func FromFloat64(data []float64, shape Shape) (*RawTensor, error) {
	t, err := newChecked(len(data), shape, Float64)
	if err != nil {
		return nil, err
	}
	copy(t.AsFloat64(), data)
	return t, nil
}

// FromInt32 creates a CPU tensor holding a copy of data.
func FromInt32(data []int32, shape Shape) (*RawTensor, error) {
	t, err := newChecked(len(data), shape, Int32)
	if err != nil {
		return nil, err
	}
	copy(t.AsInt32(), data)
	return t, nil
}

// FromInt64 creates a CPU tensor holding a copy of data.
func FromInt64(data []int64, shape Shape) (*RawTensor, error) {
	t, err := newChecked(len(data), shape, Int64)
	if err != nil {
		return nil, err
	}
	copy(t.AsInt64(), data)
	return t, nil
}

func newChecked(n int, shape Shape, dtype DataType) (*RawTensor, error) {
	if shape.NumElements() != n {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", n, shape, shape.NumElements())
	}
	return NewRaw(shape, dtype, CPU)
}

// WithDevice returns a shallow copy of r tagged with another device.
// The buffer is shared; only the tag changes.
func (r *RawTensor) WithDevice(device Device) *RawTensor {
	return &RawTensor{
		data:   r.data,
		shape:  r.shape,
		stride: r.stride,
		dtype:  r.dtype,
		device: device,
	}
}
