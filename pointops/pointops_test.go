// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pointops_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/pointops/pointops"
	"github.com/born-ml/pointops/tensor"
)

func randomCloud(t *testing.T, seed int64, b, n int) *tensor.RawTensor {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := make([]float32, b*n*3)
	for i := range data {
		data[i] = rng.Float32()
	}
	r, err := tensor.FromFloat32(data, tensor.Shape{b, n, 3})
	require.NoError(t, err)
	return r
}

func TestUnitSquareCentroid(t *testing.T) {
	square, err := tensor.FromFloat32([]float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		1, 1, 0,
	}, tensor.Shape{1, 4, 3})
	require.NoError(t, err)
	center, err := tensor.FromFloat32([]float32{0.5, 0.5, 0}, tensor.Shape{1, 1, 3})
	require.NoError(t, err)

	e := pointops.New(pointops.WithParallel(pointops.SequentialConfig()))
	res, err := e.Search(square, center, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, res.Index.AsInt64())
	assert.Equal(t, []float32{0.5, 0.5}, res.Distance.AsFloat32())
}

func TestStrategiesAgree(t *testing.T) {
	ref := randomCloud(t, 1, 2, 700)
	query := randomCloud(t, 2, 2, 50)

	brute, err := pointops.New(pointops.WithStrategy(pointops.Brute)).Search(ref, query, 8)
	require.NoError(t, err)
	tree, err := pointops.New(pointops.WithStrategy(pointops.KDTree)).Search(ref, query, 8)
	require.NoError(t, err)

	assert.Equal(t, brute.Index.AsInt64(), tree.Index.AsInt64())
	assert.Equal(t, brute.Distance.AsFloat32(), tree.Distance.AsFloat32())
}

func TestPipeline(t *testing.T) {
	e := pointops.New()
	points := randomCloud(t, 3, 2, 256)

	norm, err := e.Normalize(points)
	require.NoError(t, err)

	idx, centers, err := e.SamplePoints(norm.Points, 32)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 32}, idx.Shape())
	assert.Equal(t, tensor.Shape{2, 32, 3}, centers.Shape())

	grp, err := e.Group(nil, centers, norm.Points, 8, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 32, 8, 3}, grp.Grouped.Shape())

	// Each center is its own nearest neighbor.
	sampled := idx.AsInt64()
	neighbors := grp.Index.AsInt64()
	for i, s := range sampled {
		assert.Equal(t, s, neighbors[i*8], "center %d", i)
	}
}

func TestErrorsAreExported(t *testing.T) {
	e := pointops.New()
	points := randomCloud(t, 4, 1, 4)

	_, err := e.Sample(points, 5)
	assert.True(t, errors.Is(err, pointops.ErrInsufficientPoints))

	other := randomCloud(t, 5, 2, 4)
	_, err = e.Search(points, other, 1)
	assert.ErrorIs(t, err, pointops.ErrShapeMismatch)

	f64, err := tensor.FromFloat64(make([]float64, 12), tensor.Shape{1, 4, 3})
	require.NoError(t, err)
	_, err = e.Search(points, f64, 1)
	assert.ErrorIs(t, err, pointops.ErrInputLocationMismatch)
	assert.ErrorIs(t, err, pointops.ErrShapeMismatch)

	_, err = pointops.ParseStrategy("lsh")
	assert.Error(t, err)
}
