package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/output"
	"github.com/gnosis-index/gnosis/internal/search"
)

func newAskCmd() *cobra.Command {
	var flags sharedSearchFlags
	var noExpand, noRerank bool
	var maxTokens int
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run hybrid search and ask the generation port for a grounded, cited answer",
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

			ask, err := a.Search.Ask(ctx, query, opts, maxTokens)
			if err != nil {
				return err
			}

			return render(cmd, ask,
				func() string { return askMarkdown(query, ask) },
				func() { askText(cmd, ask) })
		},
	}
	addSharedSearchFlags(cmd, &flags)
	cmd.Flags().BoolVar(&noExpand, "no-expand", false, "Skip GenPort query-paraphrase expansion")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "Skip cross-encoder reranking")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", search.DefaultAskMaxTokens, "Maximum tokens in the generated answer")
	return cmd
}

func askMarkdown(query string, ask *search.AskResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", query)
	if ask.Answer != "" {
		sb.WriteString(ask.Answer)
		sb.WriteString("\n\n")
	}
	sb.WriteString("## Sources\n\n")
	for i, c := range ask.Citations {
		fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, c.Title, c.URI)
	}
	return sb.String()
}

func askText(cmd *cobra.Command, ask *search.AskResult) {
	w := output.New(cmd.OutOrStdout())
	if ask.Answer == "" {
		w.Warning("no generation port available; showing retrieved results only")
		resultsText(cmd, ask.Results)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), ask.Answer)
	w.Newline()
	for i, c := range ask.Citations {
		w.Statusf(fmt.Sprintf("[%d]", i+1), "%s — %s", c.Title, c.URI)
	}
}
