// Package config loads pointops settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/pointops/internal/knn"
	"github.com/born-ml/pointops/internal/parallel"
	"github.com/born-ml/pointops/internal/tensor"
)

// ErrInvalidConfig reports a setting outside its allowed range.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Layout   string         `yaml:"layout"`
	Parallel ParallelConfig `yaml:"parallel"`
	KNN      KNNConfig      `yaml:"knn"`
	Log      LogConfig      `yaml:"log"`
}

type ParallelConfig struct {
	Enabled  bool `yaml:"enabled"`
	Workers  int  `yaml:"workers"` // 0 = runtime.NumCPU()
	MinChunk int  `yaml:"min_chunk"`
}

type KNNConfig struct {
	Strategy        string `yaml:"strategy"`
	KDTreeMinPoints int    `yaml:"kdtree_min_points"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Layout: tensor.ChannelsLast.String(),
		Parallel: ParallelConfig{
			Enabled:  true,
			Workers:  0,
			MinChunk: 1,
		},
		KNN: KNNConfig{
			Strategy:        knn.Auto.String(),
			KDTreeMinPoints: knn.DefaultKDTreeMinPoints,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults, then applies POINTOPS_* environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	applyEnvironment(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Environment overrides are not applied.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if _, err := tensor.ParseLayout(c.Layout); err != nil {
		return fmt.Errorf("config: layout: %w: %w", ErrInvalidConfig, err)
	}
	if c.Parallel.Workers < 0 {
		return fmt.Errorf("config: parallel.workers = %d: %w", c.Parallel.Workers, ErrInvalidConfig)
	}
	if c.Parallel.MinChunk < 1 {
		return fmt.Errorf("config: parallel.min_chunk = %d: %w", c.Parallel.MinChunk, ErrInvalidConfig)
	}
	if _, err := knn.ParseStrategy(c.KNN.Strategy); err != nil {
		return fmt.Errorf("config: knn.strategy: %w: %w", ErrInvalidConfig, err)
	}
	if c.KNN.KDTreeMinPoints < 1 {
		return fmt.Errorf("config: knn.kdtree_min_points = %d: %w", c.KNN.KDTreeMinPoints, ErrInvalidConfig)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format %q: %w", c.Log.Format, ErrInvalidConfig)
	}
	return nil
}

// PointLayout returns the configured layout. Call Validate first.
func (c *Config) PointLayout() tensor.Layout {
	l, _ := tensor.ParseLayout(c.Layout)
	return l
}

// ParallelOptions converts the parallel section.
func (c *Config) ParallelOptions() parallel.Config {
	return parallel.Config{
		Enabled:      c.Parallel.Enabled,
		NumWorkers:   c.Parallel.Workers,
		MinChunkSize: c.Parallel.MinChunk,
	}
}

// Strategy returns the configured search strategy. Call Validate first.
func (c *Config) Strategy() knn.Strategy {
	s, _ := knn.ParseStrategy(c.KNN.Strategy)
	return s
}

// NewLogger builds a text or JSON slog logger writing to w.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Log.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return level, nil
}

func applyEnvironment(cfg *Config) {
	if v := os.Getenv("POINTOPS_LAYOUT"); v != "" {
		cfg.Layout = v
	}
	if v := os.Getenv("POINTOPS_PARALLEL_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Parallel.Enabled = b
		}
	}
	if v := os.Getenv("POINTOPS_PARALLEL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Parallel.Workers = n
		}
	}
	if v := os.Getenv("POINTOPS_KNN_STRATEGY"); v != "" {
		cfg.KNN.Strategy = v
	}
	if v := os.Getenv("POINTOPS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("POINTOPS_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
