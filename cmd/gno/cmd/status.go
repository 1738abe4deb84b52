package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/output"
	"github.com/gnosis-index/gnosis/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report per-collection document/chunk/vector counts and index health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.Store.GetStatus(ctx, a.Embed.ModelName())
			if err != nil {
				return err
			}

			return render(cmd, st,
				func() string { return statusMarkdown(st) },
				func() { statusText(cmd, st) })
		},
	}
}

func statusMarkdown(st *store.Status) string {
	var sb strings.Builder
	sb.WriteString("# Index status\n\n")
	sb.WriteString("| collection | documents | chunks | vectors |\n")
	sb.WriteString("|---|---:|---:|---:|\n")
	for _, c := range st.Collections {
		fmt.Fprintf(&sb, "| %s | %d | %d | %d |\n", c.Collection, c.DocumentCount, c.ChunkCount, c.VectorCount)
	}
	fmt.Fprintf(&sb, "\nEmbedding backlog: %d. Recent errors: %d. Healthy: %v.\n",
		st.EmbeddingBacklog, st.RecentErrorCount, st.Healthy)
	return sb.String()
}

func statusText(cmd *cobra.Command, st *store.Status) {
	w := output.New(cmd.OutOrStdout())
	for _, c := range st.Collections {
		w.Statusf("*", "%s: %d documents, %d chunks, %d vectors", c.Collection, c.DocumentCount, c.ChunkCount, c.VectorCount)
	}
	w.Statusf("*", "embedding backlog: %d, recent errors: %d", st.EmbeddingBacklog, st.RecentErrorCount)
	if st.Healthy {
		w.Success("index is healthy")
	} else {
		w.Warning("index has recent errors")
	}
}
