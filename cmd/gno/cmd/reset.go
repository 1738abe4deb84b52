package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/output"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Purge content, chunks, vectors, and FTS rows orphaned by deactivated documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Store.CleanupOrphans(ctx)
			if err != nil {
				return err
			}
			if err := a.Vector.RebuildVecIndex(ctx); err != nil {
				a.Logger.Warn("vector index rebuild after reset failed", "error", err)
			}

			return render(cmd, res,
				func() string {
					return fmt.Sprintf("# Reset\n\nremoved %d content bodies, %d chunks, %d vectors, %d fts rows\n",
						res.ContentRemoved, res.ChunksRemoved, res.VectorsRemoved, res.FtsRemoved)
				},
				func() {
					w := output.New(cmd.OutOrStdout())
					w.Successf("removed %d content bodies, %d chunks, %d vectors, %d fts rows",
						res.ContentRemoved, res.ChunksRemoved, res.VectorsRemoved, res.FtsRemoved)
				})
		},
	}
}
