package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/born-ml/pointops/pointops"
	"github.com/born-ml/pointops/tensor"
)

const version = "v0.1.0-dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	seed       int64
	batch      int
	points     int
	json       bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "pointops",
		Short: "Batched point cloud primitives",
		Long: `pointops runs k-nearest-neighbor search, furthest point sampling and
neighborhood grouping on seeded synthetic point clouds.

Examples:
  pointops sample --points 2048 -m 16
  pointops knn --queries 4 -k 8 --json
  pointops group --config pointops.yaml -m 8 -k 16`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to a YAML config file")
	pf.Int64Var(&g.seed, "seed", 1, "Random seed for synthetic clouds")
	pf.IntVarP(&g.batch, "batch", "b", 1, "Number of clouds per batch")
	pf.IntVarP(&g.points, "points", "n", 1024, "Points per cloud")
	pf.BoolVar(&g.json, "json", false, "Output results as JSON")

	root.AddCommand(
		newVersionCmd(),
		newSampleCmd(g),
		newKNNCmd(g),
		newGroupCmd(g),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pointops %s\n", version)
		},
	}
}

// newEngine loads config and builds an engine logging to the command's stderr.
func (g *globalFlags) newEngine(cmd *cobra.Command) (*pointops.Engine, error) {
	cfg, err := pointops.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return pointops.New(pointops.WithConfig(cfg), pointops.WithLogger(logger)), nil
}

// cloud returns a (batch, n, 3) uniform unit-cube cloud converted to layout.
func cloud(rng *rand.Rand, batch, n int, layout tensor.Layout) (*tensor.RawTensor, error) {
	if batch < 1 || n < 1 {
		return nil, fmt.Errorf("batch and points must be positive: %w", pointops.ErrInvalidArgument)
	}
	data := make([]float32, batch*n*3)
	for i := range data {
		data[i] = rng.Float32()
	}
	t, err := tensor.FromFloat32(data, tensor.Shape{batch, n, 3})
	if err != nil {
		return nil, err
	}
	if layout == tensor.ChannelsFirst {
		return tensor.ToChannelsFirst(t, tensor.ChannelsLast)
	}
	return t, nil
}

// rows splits a flat (B, ...) buffer into one slice per batch element.
func rows[T any](flat []T, batch int) [][]T {
	out := make([][]T, batch)
	per := len(flat) / batch
	for b := range out {
		out[b] = flat[b*per : (b+1)*per]
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
