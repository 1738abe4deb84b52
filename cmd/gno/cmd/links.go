package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/output"
	"github.com/gnosis-index/gnosis/internal/store"
)

func newLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "links <uri>",
		Short: "List the outgoing links found in a document",
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

			links, err := a.Store.GetLinksForDoc(ctx, doc.ID)
			if err != nil {
				return err
			}

			return render(cmd, links,
				func() string { return linksMarkdown(args[0], links) },
				func() { linksText(cmd, links) })
		},
	}
}

func linksMarkdown(uri string, links []store.Link) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Links from %s\n\n", uri)
	for _, l := range links {
		target := l.TargetRef
		if l.TargetAnchor != "" {
			target += "#" + l.TargetAnchor
		}
		fmt.Fprintf(&sb, "- [%s](%s) (%s)\n", l.LinkText, target, l.LinkType)
	}
	return sb.String()
}

func linksText(cmd *cobra.Command, links []store.Link) {
	w := output.New(cmd.OutOrStdout())
	if len(links) == 0 {
		w.Status("-", "no outgoing links")
		return
	}
	for _, l := range links {
		target := l.TargetRef
		if l.TargetAnchor != "" {
			target += "#" + l.TargetAnchor
		}
		w.Statusf(string(l.LinkType), "%s -> %s (line %d)", l.LinkText, target, l.StartLine)
	}
}
