// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pointops provides batched point cloud primitives for deep learning.
//
// # Overview
//
// The Engine exposes four primitives and a normalizer:
//   - Search: exact k-nearest-neighbor search, sorted by squared distance
//   - Sample / SamplePoints: furthest point sampling
//   - Gather / GatherBackward: indexed column selection and its scatter-add
//   - Group: k-NN neighborhoods gathered into a (B, C, M, k) grid
//   - Normalize: center on the centroid and scale into the unit ball
//
// Every batch element is processed independently. Results are deterministic:
// neighbor ties resolve to the smaller reference index, and the brute force
// and k-d tree search strategies agree bit for bit.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/pointops/pointops"
//	    "github.com/born-ml/pointops/tensor"
//	)
//
//	func main() {
//	    e := pointops.New(pointops.WithLayout(tensor.ChannelsLast))
//
//	    idx, _ := e.Sample(points, 512)           // (B, 512) int64
//	    res, _ := e.Search(points, centers, 16)   // (B, M, 16) index and distance
//	    grp, _ := e.Group(nil, centers, points, 16, true)
//	}
//
// # Errors
//
// All arguments are validated before any computation. Failures wrap one of
// the exported sentinels and can be tested with errors.Is.
package pointops

import (
	"github.com/born-ml/pointops/internal/config"
	"github.com/born-ml/pointops/internal/engine"
	"github.com/born-ml/pointops/internal/group"
	"github.com/born-ml/pointops/internal/knn"
	"github.com/born-ml/pointops/internal/normalize"
	"github.com/born-ml/pointops/internal/parallel"
)

// Engine runs point primitives and records them on its gradient tape.
type Engine = engine.Engine

// Option configures an Engine.
type Option = engine.Option

// New creates an engine.
//
// Example:
//
//	e := pointops.New(pointops.WithStrategy(pointops.KDTree))
func New(opts ...Option) *Engine {
	return engine.New(opts...)
}

// Engine options.
var (
	WithLayout          = engine.WithLayout
	WithParallel        = engine.WithParallel
	WithStrategy        = engine.WithStrategy
	WithKDTreeMinPoints = engine.WithKDTreeMinPoints
	WithLogger          = engine.WithLogger
	WithConfig          = engine.WithConfig
)

// SearchResult holds (B, M, k) neighbor indices and squared distances.
type SearchResult = knn.Result

// GroupResult holds grouped features with their neighbor indices and distances.
type GroupResult = group.Result

// NormalizeResult holds normalized points with their centroid and scale.
type NormalizeResult = normalize.Result

// Strategy selects how Search finds neighbors.
type Strategy = knn.Strategy

// Search strategies.
const (
	Auto   Strategy = knn.Auto   // k-d tree for large reference sets, brute force otherwise
	Brute  Strategy = knn.Brute  // exhaustive scan
	KDTree Strategy = knn.KDTree // gonum k-d tree
)

// ParseStrategy parses "auto", "brute" or "kdtree".
func ParseStrategy(s string) (Strategy, error) {
	return knn.ParseStrategy(s)
}

// ParallelConfig controls batch dispatch.
type ParallelConfig = parallel.Config

// DefaultParallelConfig uses every CPU.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// SequentialConfig runs everything on the calling goroutine.
func SequentialConfig() ParallelConfig {
	return parallel.Sequential()
}

// Config is the YAML configuration accepted by WithConfig.
type Config = config.Config

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML file and applies POINTOPS_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
