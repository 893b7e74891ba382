package engine

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/pointops/internal/autodiff"
	"github.com/born-ml/pointops/internal/config"
	"github.com/born-ml/pointops/internal/knn"
	"github.com/born-ml/pointops/internal/parallel"
	"github.com/born-ml/pointops/internal/tensor"
	"github.com/born-ml/pointops/internal/validate"
)

func linePoints(t *testing.T) *tensor.RawTensor {
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

func newTestEngine(opts ...Option) *Engine {
	return New(append([]Option{WithParallel(parallel.Sequential())}, opts...)...)
}

func TestNew_Defaults(t *testing.T) {
	e := New()
	assert.Equal(t, tensor.ChannelsLast, e.Layout())
	assert.Equal(t, knn.Auto, e.strategy)
	assert.Equal(t, knn.DefaultKDTreeMinPoints, e.kdTreeMinPoints)
	assert.NotNil(t, e.logger)
	assert.False(t, e.Tape().IsRecording())
}

func TestWithConfig(t *testing.T) {
	cfg, err := config.Parse([]byte("layout: channels_first\nknn:\n  strategy: brute\n  kdtree_min_points: 8\nparallel:\n  enabled: false\n"))
	require.NoError(t, err)

	e := New(WithConfig(cfg))
	assert.Equal(t, tensor.ChannelsFirst, e.Layout())
	assert.Equal(t, knn.Brute, e.strategy)
	assert.Equal(t, 8, e.kdTreeMinPoints)
	assert.False(t, e.parallel.Enabled)
}

func TestEngine_SearchAndSample(t *testing.T) {
	e := newTestEngine()
	pts := linePoints(t)

	res, err := e.Search(pts, pts, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 5, 2}, res.Index.Shape())
	assert.Equal(t, []int64{0, 1, 1, 0, 2, 1, 3, 2, 4, 3}, res.Index.AsInt64())

	idx, err := e.Sample(pts, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 4, 2}, idx.AsInt64())

	// Nothing is recorded while the tape is off.
	assert.Zero(t, e.Tape().NumOps())
}

func TestEngine_SamplePointsGradient(t *testing.T) {
	e := newTestEngine()
	e.Tape().StartRecording()
	pts := linePoints(t)

	idx, sampled, err := e.SamplePoints(pts, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 4, 2}, idx.AsInt64())
	assert.Equal(t, tensor.Shape{1, 3, 3}, sampled.Shape())
	assert.Equal(t, []float32{0, 0, 0, 4, 0, 0, 2, 0, 0}, sampled.AsFloat32())
	assert.Equal(t, 2, e.Tape().NumOps())

	ones, err := tensor.Ones(sampled.Shape(), tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	grads, err := e.Backward(sampled, ones)
	require.NoError(t, err)

	assert.Equal(t, []float32{
		1, 1, 1,
		0, 0, 0,
		1, 1, 1,
		0, 0, 0,
		1, 1, 1,
	}, grads[pts].AsFloat32())

	_, err = e.Backward(idx, ones)
	assert.ErrorIs(t, err, autodiff.ErrNotDifferentiable)
}

func TestEngine_GroupGradientChannelsFirst(t *testing.T) {
	e := newTestEngine(WithLayout(tensor.ChannelsFirst))
	e.Tape().StartRecording()

	// Line 0..4 stored (1, 3, 5) with one feature channel equal to x.
	ref, err := tensor.FromFloat64([]float64{
		0, 1, 2, 3, 4,
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
	}, tensor.Shape{1, 3, 5})
	require.NoError(t, err)
	query, err := tensor.FromFloat64([]float64{0, 0, 0}, tensor.Shape{1, 3, 1})
	require.NoError(t, err)
	features, err := tensor.FromFloat64([]float64{10, 11, 12, 13, 14}, tensor.Shape{1, 1, 5})
	require.NoError(t, err)

	res, err := e.Group(features, query, ref, 3, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 1, 3}, res.Grouped.Shape())
	assert.Equal(t, []float64{10, 11, 12}, res.Grouped.AsFloat64())

	ones, err := tensor.Ones(res.Grouped.Shape(), tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	grads, err := e.Backward(res.Grouped, ones)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 0, 0}, grads[features].AsFloat64())

	_, err = e.Backward(res.Distance, res.Distance)
	assert.ErrorIs(t, err, autodiff.ErrNotDifferentiable)
}

func TestEngine_GatherBackwardHistogram(t *testing.T) {
	e := newTestEngine()
	idx, err := tensor.FromInt64([]int64{0, 2, 2, 2, 1}, tensor.Shape{1, 5})
	require.NoError(t, err)
	ones, err := tensor.Ones(tensor.Shape{1, 1, 5}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	grad, err := e.GatherBackward(ones, idx, tensor.Shape{1, 1, 4})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 3, 0}, grad.AsFloat32())
}

func TestEngine_Normalize(t *testing.T) {
	e := newTestEngine()
	res, err := e.Normalize(linePoints(t))
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 0, 0}, res.Centroid.AsFloat32())
	assert.Equal(t, []float32{2}, res.Scale.AsFloat32())
}

func TestEngine_Errors(t *testing.T) {
	e := newTestEngine()
	pts := linePoints(t)

	_, err := e.Search(pts, pts, 6)
	assert.ErrorIs(t, err, validate.ErrInsufficientPoints)

	_, err = e.Sample(pts, 0)
	assert.ErrorIs(t, err, validate.ErrInvalidArgument)

	_, _, err = e.SamplePoints(nil, 1)
	assert.ErrorIs(t, err, validate.ErrInvalidArgument)

	bad, err := tensor.FromInt64([]int64{5}, tensor.Shape{1, 1})
	require.NoError(t, err)
	feats, err := tensor.Ones(tensor.Shape{1, 2, 5}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	_, err = e.Gather(feats, bad)
	assert.ErrorIs(t, err, validate.ErrIndexOutOfRange)
}

func TestEngine_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newTestEngine(WithLogger(logger))

	_, err := e.Search(linePoints(t), linePoints(t), 1)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "knn search")
}
