package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
)

type sampleOutput struct {
	Shape   []int     `json:"shape"`
	Indices [][]int64 `json:"indices"`
	Elapsed string    `json:"elapsed"`
}

func newSampleCmd(g *globalFlags) *cobra.Command {
	var m int
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Furthest point sampling on a synthetic cloud",
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
			idx, err := e.Sample(points, m)
			if err != nil {
				return err
			}
			out := sampleOutput{
				Shape:   idx.Shape(),
				Indices: rows(idx.AsInt64(), g.batch),
				Elapsed: time.Since(start).String(),
			}

			if g.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for b, r := range out.Indices {
				fmt.Fprintf(w, "batch %d: %v\n", b, r)
			}
			fmt.Fprintf(w, "sampled %v in %s\n", out.Shape, out.Elapsed)
			return nil
		},
	}
	cmd.Flags().IntVarP(&m, "samples", "m", 16, "Points to sample per cloud")
	return cmd
}
