package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/output"
	"github.com/gnosis-index/gnosis/internal/store"
)

func newBacklinksCmd() *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "backlinks <uri>",
		Short: "List the documents that link to the given document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.Store.GetDocumentByURI(ctx, args[0])
			if err != nil {
				return err
			}

			backlinks, err := a.Store.GetBacklinksForDoc(ctx, doc.ID, collection)
			if err != nil {
				return err
			}

			return render(cmd, backlinks,
				func() string { return backlinksMarkdown(args[0], backlinks) },
				func() { backlinksText(cmd, backlinks) })
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "Restrict to backlinks originating in one collection")
	return cmd
}

func backlinksMarkdown(uri string, backlinks []store.Backlink) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Backlinks to %s\n\n", uri)
	for _, b := range backlinks {
		fmt.Fprintf(&sb, "- [%s](%s) (%s)\n", b.LinkText, b.SourceURI, b.LinkType)
	}
	return sb.String()
}

func backlinksText(cmd *cobra.Command, backlinks []store.Backlink) {
	w := output.New(cmd.OutOrStdout())
	if len(backlinks) == 0 {
		w.Status("-", "no backlinks")
		return
	}
	for _, b := range backlinks {
		w.Statusf(string(b.LinkType), "%s <- %s (line %d)", b.LinkText, b.SourceURI, b.StartLine)
	}
}
