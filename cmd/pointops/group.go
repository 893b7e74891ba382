package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
)

type groupOutput struct {
	Centers []int     `json:"centers_shape"`
	Grouped []int     `json:"grouped_shape"`
	Indices [][]int64 `json:"indices"`
	Elapsed string    `json:"elapsed"`
}

func newGroupCmd(g *globalFlags) *cobra.Command {
	var (
		k int
		m int
	)
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Sample centers and group their neighborhoods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.newEngine(cmd)
			if err != nil {
				return err
			}
			points, err := cloud(rand.New(rand.NewSource(g.seed)), g.batch, g.points, e.Layout())
			if err != nil {
				return err
			}

			start := time.Now()
			_, centers, err := e.SamplePoints(points, m)
			if err != nil {
				return err
			}
			res, err := e.Group(nil, centers, points, k, true)
			if err != nil {
				return err
			}
			out := groupOutput{
				Centers: centers.Shape(),
				Grouped: res.Grouped.Shape(),
				Indices: rows(res.Index.AsInt64(), g.batch*m),
				Elapsed: time.Since(start).String(),
			}

			if g.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for i, r := range out.Indices {
				fmt.Fprintf(w, "batch %d center %d: %v\n", i/m, i%m, r)
			}
			fmt.Fprintf(w, "grouped %v around %v in %s\n", out.Grouped, out.Centers, out.Elapsed)
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "neighbors", "k", 16, "Neighbors per center")
	cmd.Flags().IntVarP(&m, "samples", "m", 8, "Centers to sample per cloud")
	return cmd
}
