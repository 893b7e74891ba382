package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
)

type knnOutput struct {
	Shape     []int       `json:"shape"`
	Indices   [][]int64   `json:"indices"`
	Distances [][]float32 `json:"distances"`
	Elapsed   string      `json:"elapsed"`
}

func newKNNCmd(g *globalFlags) *cobra.Command {
	var (
		k       int
		queries int
	)
	cmd := &cobra.Command{
		Use:   "knn",
		Short: "k-nearest-neighbor search on synthetic clouds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.newEngine(cmd)
			if err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(g.seed))
			reference, err := cloud(rng, g.batch, g.points, e.Layout())
			if err != nil {
				return err
			}
			query, err := cloud(rng, g.batch, queries, e.Layout())
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := e.Search(reference, query, k)
			if err != nil {
				return err
			}
			out := knnOutput{
				Shape:     res.Index.Shape(),
				Indices:   rows(res.Index.AsInt64(), g.batch*queries),
				Distances: rows(res.Distance.AsFloat32(), g.batch*queries),
				Elapsed:   time.Since(start).String(),
			}

			if g.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for i := range out.Indices {
				fmt.Fprintf(w, "batch %d query %d: %v %v\n", i/queries, i%queries, out.Indices[i], out.Distances[i])
			}
			fmt.Fprintf(w, "searched %v in %s\n", out.Shape, out.Elapsed)
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "neighbors", "k", 8, "Neighbors per query")
	cmd.Flags().IntVarP(&queries, "queries", "q", 4, "Query points per cloud")
	return cmd
}
