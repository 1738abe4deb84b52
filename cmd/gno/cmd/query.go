package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/output"
)

func newQueryCmd() *cobra.Command {
	var flags sharedSearchFlags
	var noExpand, noRerank bool
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run hybrid lexical + semantic search with reciprocal rank fusion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			opts := flags.toOptions()
			opts.NoExpand = noExpand
			opts.NoRerank = noRerank

			results, meta, err := a.Search.Hybrid(ctx, query, opts)
			if err != nil {
				return err
			}

			return render(cmd, map[string]any{"results": results, "meta": meta},
				func() string { return resultsMarkdown(query, results) },
				func() {
					resultsText(cmd, results)
					output.New(cmd.OutOrStdout()).Statusf("i",
						"classified %s, expanded=%v, reranked=%v, candidates=%d",
						meta.QueryType, meta.Expanded, meta.Reranked, meta.CandidateCount)
				})
		},
	}
	addSharedSearchFlags(cmd, &flags)
	cmd.Flags().BoolVar(&noExpand, "no-expand", false, "Skip GenPort query-paraphrase expansion")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "Skip cross-encoder reranking")
	return cmd
}
