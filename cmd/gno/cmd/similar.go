package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/search"
)

func newSimilarCmd() *cobra.Command {
	var limit int
	var threshold float64
	var crossCollection bool
	cmd := &cobra.Command{
		Use:   "similar <uri>",
		Short: "Find documents whose embeddings resemble the given document's",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Search.Similar(ctx, args[0], search.SimilarOptions{
				Limit: limit, Threshold: threshold, CrossCollection: crossCollection,
			})
			if err != nil {
				return err
			}

			return render(cmd, results,
				func() string { return resultsMarkdown(args[0], results) },
				func() { resultsText(cmd, results) })
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultSimilarLimit, "Maximum number of results")
	cmd.Flags().Float64Var(&threshold, "threshold", search.DefaultSimilarThreshold, "Minimum cosine similarity")
	cmd.Flags().BoolVar(&crossCollection, "cross-collection", false, "Allow matches outside the source document's collection")
	return cmd
}
