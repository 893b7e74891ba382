// Package engine ties the point primitives to a gradient tape.
//
// Engine runs each primitive and, while its tape is recording, records the
// matching operation so gradients can later flow back through gather and group.
//
// Example:
//
//	e := engine.New(engine.WithLayout(tensor.ChannelsLast))
//	e.Tape().StartRecording()
//	res, _ := e.Group(nil, query, reference, 16, true)
//	grads, _ := e.Backward(res.Grouped, upstream)
//	gradReference := grads[reference]
package engine

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/pointops/internal/autodiff"
	"github.com/born-ml/pointops/internal/autodiff/ops"
	"github.com/born-ml/pointops/internal/fps"
	"github.com/born-ml/pointops/internal/gather"
	"github.com/born-ml/pointops/internal/group"
	"github.com/born-ml/pointops/internal/knn"
	"github.com/born-ml/pointops/internal/normalize"
	"github.com/born-ml/pointops/internal/parallel"
	"github.com/born-ml/pointops/internal/tensor"
)

// Engine runs point primitives with shared settings.
//
// An Engine is safe for concurrent use only while its tape is not recording.
type Engine struct {
	layout          tensor.Layout
	parallel        parallel.Config
	strategy        knn.Strategy
	kdTreeMinPoints int
	logger          *slog.Logger
	tape            *autodiff.GradientTape
}

// New creates an engine. Defaults: channels-last, auto strategy, default
// parallelism, no logging.
func New(opts ...Option) *Engine {
	e := &Engine{
		layout:          tensor.ChannelsLast,
		parallel:        parallel.DefaultConfig(),
		strategy:        knn.Auto,
		kdTreeMinPoints: knn.DefaultKDTreeMinPoints,
		logger:          slog.New(slog.DiscardHandler),
		tape:            autodiff.NewGradientTape(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Layout returns the point layout the engine expects.
func (e *Engine) Layout() tensor.Layout {
	return e.layout
}

// Tape returns the engine's gradient tape.
func (e *Engine) Tape() *autodiff.GradientTape {
	return e.tape
}

func (e *Engine) knnOptions() knn.Options {
	return knn.Options{
		Layout:          e.layout,
		Strategy:        e.strategy,
		KDTreeMinPoints: e.kdTreeMinPoints,
		Parallel:        e.parallel,
		Logger:          e.logger,
	}
}

func (e *Engine) fpsOptions() fps.Options {
	return fps.Options{Layout: e.layout, Parallel: e.parallel, Logger: e.logger}
}

func (e *Engine) record(op ops.Operation) error {
	if !e.tape.IsRecording() {
		return nil
	}
	return e.tape.Record(op)
}

// Search finds the k nearest reference points of every query point.
func (e *Engine) Search(reference, query *tensor.RawTensor, k int) (*knn.Result, error) {
	res, err := knn.Search(reference, query, k, e.knnOptions())
	if err != nil {
		return nil, err
	}
	if err := e.record(ops.NewKNNOp(res.Index, res.Distance)); err != nil {
		return nil, err
	}
	return res, nil
}

// Sample selects m points per element by furthest point sampling and returns
// their (B, m) int64 indices.
func (e *Engine) Sample(points *tensor.RawTensor, m int) (*tensor.RawTensor, error) {
	idx, err := fps.Sample(points, m, e.fpsOptions())
	if err != nil {
		return nil, err
	}
	if err := e.record(ops.NewFPSOp(idx)); err != nil {
		return nil, err
	}
	return idx, nil
}

// SamplePoints samples like Sample and also returns the selected coordinates
// in the engine's layout. The coordinates are differentiable with respect to
// points.
func (e *Engine) SamplePoints(points *tensor.RawTensor, m int) (index, sampled *tensor.RawTensor, err error) {
	index, err = e.Sample(points, m)
	if err != nil {
		return nil, nil, err
	}
	cf, err := tensor.ToChannelsFirst(points, e.layout)
	if err != nil {
		return nil, nil, fmt.Errorf("sample points: %w", err)
	}
	sampled, err = gather.Forward(cf, index, e.parallel)
	if err != nil {
		return nil, nil, err
	}
	if sampled, err = tensor.FromChannelsFirst(sampled, e.layout); err != nil {
		return nil, nil, fmt.Errorf("sample points: %w", err)
	}
	if err := e.record(ops.NewPointGatherOp(points, index, sampled, e.layout, e.parallel)); err != nil {
		return nil, nil, err
	}
	return index, sampled, nil
}

// Gather selects feature columns: out[b, :, j] = features[b, :, index[b, j]].
// features is always (B, C, N).
func (e *Engine) Gather(features, index *tensor.RawTensor) (*tensor.RawTensor, error) {
	out, err := gather.Forward(features, index, e.parallel)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("gather", "shape", features.Shape(), "index", index.Shape())
	if err := e.record(ops.NewGatherOp(features, index, out, e.parallel)); err != nil {
		return nil, err
	}
	return out, nil
}

// GatherBackward scatter-adds gradOut into a zero tensor of featureShape.
func (e *Engine) GatherBackward(gradOut, index *tensor.RawTensor, featureShape tensor.Shape) (*tensor.RawTensor, error) {
	return gather.Backward(gradOut, index, featureShape, e.parallel)
}

// Group collects, for every query point, the features of its k nearest
// reference points. With nil features the reference coordinates are grouped.
func (e *Engine) Group(features, query, reference *tensor.RawTensor, k int, unique bool) (*group.Result, error) {
	opts := group.Options{Options: e.knnOptions(), Unique: unique}
	res, err := group.Group(features, query, reference, k, opts)
	if err != nil {
		return nil, err
	}
	input, fromPoints := features, false
	if features == nil {
		input, fromPoints = reference, true
	}
	if err := e.record(ops.NewGroupOp(input, fromPoints, res, opts)); err != nil {
		return nil, err
	}
	return res, nil
}

// Normalize centers and scales every element into the unit ball.
func (e *Engine) Normalize(points *tensor.RawTensor) (*normalize.Result, error) {
	return normalize.Normalize(points, normalize.Options{Layout: e.layout, Parallel: e.parallel, Logger: e.logger})
}

// Backward propagates grad from output through the recorded operations.
func (e *Engine) Backward(output, grad *tensor.RawTensor) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	return e.tape.Backward(output, grad)
}
