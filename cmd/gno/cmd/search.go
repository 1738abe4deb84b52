package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/output"
	"github.com/gnosis-index/gnosis/internal/search"
)

// sharedSearchFlags are the filter/limit flags common to search, query,
// and ask.
type sharedSearchFlags struct {
	collection string
	tagsAll    []string
	tagsAny    []string
	limit      int
	snippet    bool
}

func addSharedSearchFlags(cmd *cobra.Command, f *sharedSearchFlags) {
	cmd.Flags().StringVar(&f.collection, "collection", "", "Restrict to one collection")
	cmd.Flags().StringSliceVar(&f.tagsAll, "tags-all", nil, "Require every listed tag")
	cmd.Flags().StringSliceVar(&f.tagsAny, "tags-any", nil, "Require at least one listed tag")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	cmd.Flags().BoolVar(&f.snippet, "snippet", true, "Include a highlighted snippet per result")
}

func (f sharedSearchFlags) toOptions() search.Options {
	return search.Options{
		Collection: f.collection,
		TagsAll:    f.tagsAll,
		TagsAny:    f.tagsAny,
		Limit:      f.limit,
		Snippet:    f.snippet,
	}
}

func newSearchCmd() *cobra.Command {
	var flags sharedSearchFlags
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a pure lexical (BM25) search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			results, err := a.Search.Lexical(ctx, query, flags.toOptions())
			if err != nil {
				return err
			}

			return render(cmd, results,
				func() string { return resultsMarkdown(query, results) },
				func() { resultsText(cmd, results) })
		},
	}
	addSharedSearchFlags(cmd, &flags)
	return cmd
}

func resultsMarkdown(query string, results []search.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Results for %q\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s** — %s (score %.3f)\n", i+1, r.Title, r.URI, r.Score)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}
	return sb.String()
}

func resultsText(cmd *cobra.Command, results []search.Result) {
	w := output.New(cmd.OutOrStdout())
	if len(results) == 0 {
		w.Status("-", "no results")
		return
	}
	for i, r := range results {
		w.Statusf(fmt.Sprintf("%d.", i+1), "%s — %s (%.3f)", r.Title, r.URI, r.Score)
		if r.Snippet != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "     %s\n", r.Snippet)
		}
	}
}
