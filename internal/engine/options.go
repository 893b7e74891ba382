package engine

import (
	"log/slog"

	"github.com/born-ml/pointops/internal/config"
	"github.com/born-ml/pointops/internal/knn"
	"github.com/born-ml/pointops/internal/parallel"
	"github.com/born-ml/pointops/internal/tensor"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLayout sets the layout of every point tensor passed to the engine.
func WithLayout(layout tensor.Layout) Option {
	return func(e *Engine) {
		e.layout = layout
	}
}

// WithParallel sets batch and row dispatch.
func WithParallel(cfg parallel.Config) Option {
	return func(e *Engine) {
		e.parallel = cfg
	}
}

// WithStrategy selects the neighbor search strategy.
func WithStrategy(s knn.Strategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithKDTreeMinPoints sets the reference size at which Auto uses the k-d tree.
func WithKDTreeMinPoints(n int) Option {
	return func(e *Engine) {
		e.kdTreeMinPoints = n
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		e.logger = logger
	}
}

// WithConfig applies layout, parallel and search settings from cfg.
// The logger is left alone; build it with cfg.NewLogger.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg == nil {
			return
		}
		e.layout = cfg.PointLayout()
		e.parallel = cfg.ParallelOptions()
		e.strategy = cfg.Strategy()
		e.kdTreeMinPoints = cfg.KNN.KDTreeMinPoints
	}
}
