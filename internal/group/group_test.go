package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/pointops/internal/tensor"
	"github.com/born-ml/pointops/internal/validate"
)

// Reference: five points on the x axis at 0, 1, 2, 3, 4.
func lineReference(t *testing.T) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromFloat32([]float32{
		0, 0, 0,
		1, 0, 0,
		2, 0, 0,
		3, 0, 0,
		4, 0, 0,
	}, tensor.Shape{1, 5, 3})
	require.NoError(t, err)
	return r
}

func lineQuery(t *testing.T) *tensor.RawTensor {
	t.Helper()
	// Queries at x=0.9 and x=3.8.
	r, err := tensor.FromFloat32([]float32{
		0.9, 0, 0,
		3.8, 0, 0,
	}, tensor.Shape{1, 2, 3})
	require.NoError(t, err)
	return r
}

func TestGroup_PointsChannelsLast(t *testing.T) {
	res, err := Group(nil, lineQuery(t), lineReference(t), 2, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 0, 4, 3}, res.Index.AsInt64())
	assert.Equal(t, tensor.Shape{1, 2, 2, 3}, res.Grouped.Shape())
	assert.Equal(t, []float32{
		1, 0, 0, 0, 0, 0, // query 0: points 1, 0
		4, 0, 0, 3, 0, 0, // query 1: points 4, 3
	}, res.Grouped.AsFloat32())

	dist := res.Distance.AsFloat32()
	assert.InDelta(t, 0.01, dist[0], 1e-6)
	assert.InDelta(t, 0.81, dist[1], 1e-6)
}

func TestGroup_FeaturesChannelsFirst(t *testing.T) {
	ref, err := tensor.SwapLastAxes(lineReference(t))
	require.NoError(t, err)
	query, err := tensor.SwapLastAxes(lineQuery(t))
	require.NoError(t, err)

	// Two channels: c0 = 10*i, c1 = -i.
	features, err := tensor.FromFloat64([]float64{
		0, 10, 20, 30, 40,
		0, -1, -2, -3, -4,
	}, tensor.Shape{1, 2, 5})
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Layout = tensor.ChannelsFirst
	res, err := Group(features, query, ref, 3, opts)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 2, 2, 3}, res.Grouped.Shape())
	// Neighbors: query 0 -> [1, 0, 2], query 1 -> [4, 3, 2]
	assert.Equal(t, []int64{1, 0, 2, 4, 3, 2}, res.Index.AsInt64())
	assert.Equal(t, []float64{
		10, 0, 20, 40, 30, 20,
		-1, 0, -2, -4, -3, -2,
	}, res.Grouped.AsFloat64())
}

// TestGroup_DuplicatesPassThrough checks that Unique does not deduplicate.
func TestGroup_DuplicatesPassThrough(t *testing.T) {
	ref, err := tensor.FromFloat64([]float64{
		5, 5, 5,
		5, 5, 5,
		0, 0, 0,
	}, tensor.Shape{1, 3, 3})
	require.NoError(t, err)
	query, err := tensor.FromFloat64([]float64{5, 5, 5}, tensor.Shape{1, 1, 3})
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Unique = true
	res, err := Group(nil, query, ref, 2, opts)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, res.Index.AsInt64())
	assert.Equal(t, []float64{0, 0}, res.Distance.AsFloat64())
	assert.Equal(t, []float64{5, 5, 5, 5, 5, 5}, res.Grouped.AsFloat64())
}

func TestBackward_CountsReferences(t *testing.T) {
	res, err := Group(nil, lineQuery(t), lineReference(t), 2, DefaultOptions())
	require.NoError(t, err)

	ones, err := tensor.Ones(res.Grouped.Shape(), tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	grad, err := Backward(ones, res.Index, tensor.Shape{1, 5, 3}, true, DefaultOptions())
	require.NoError(t, err)

	// Points 0, 1, 3, 4 referenced once each, point 2 never; every coordinate gets the count.
	assert.Equal(t, tensor.Shape{1, 5, 3}, grad.Shape())
	assert.Equal(t, []float32{
		1, 1, 1,
		1, 1, 1,
		0, 0, 0,
		1, 1, 1,
		1, 1, 1,
	}, grad.AsFloat32())
}

func TestBackward_RepeatedNeighborsAccumulate(t *testing.T) {
	// Both queries sit on point 0 of a two-point cloud; k=2 references both points twice.
	ref, err := tensor.FromFloat64([]float64{0, 0, 0, 1, 0, 0}, tensor.Shape{1, 2, 3})
	require.NoError(t, err)
	query, err := tensor.FromFloat64([]float64{0, 0, 0, 0, 0, 0}, tensor.Shape{1, 2, 3})
	require.NoError(t, err)
	features, err := tensor.FromFloat64([]float64{7, 8}, tensor.Shape{1, 1, 2})
	require.NoError(t, err)

	res, err := Group(features, query, ref, 2, DefaultOptions())
	require.NoError(t, err)
	// Channels-last output for explicit features: (B, M, k, C).
	assert.Equal(t, tensor.Shape{1, 2, 2, 1}, res.Grouped.Shape())
	assert.Equal(t, []float64{7, 8, 7, 8}, res.Grouped.AsFloat64())

	grad, err := tensor.FromFloat64([]float64{1, 2, 3, 4}, res.Grouped.Shape())
	require.NoError(t, err)
	gf, err := Backward(grad, res.Index, features.Shape(), false, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{1 + 3, 2 + 4}, gf.AsFloat64())
}

func TestGroup_Errors(t *testing.T) {
	features, err := tensor.Zeros(tensor.Shape{1, 4, 6}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	_, err = Group(features, lineQuery(t), lineReference(t), 2, DefaultOptions())
	assert.ErrorIs(t, err, validate.ErrShapeMismatch)

	_, err = Group(nil, lineQuery(t), lineReference(t), 6, DefaultOptions())
	assert.ErrorIs(t, err, validate.ErrInsufficientPoints)

	onGPU, err := tensor.Zeros(tensor.Shape{1, 4, 5}, tensor.Float32, tensor.CUDA)
	require.NoError(t, err)
	_, err = Group(onGPU, lineQuery(t), lineReference(t), 2, DefaultOptions())
	assert.ErrorIs(t, err, validate.ErrInputLocationMismatch)
}
