package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/app"
	"github.com/gnosis-index/gnosis/internal/jobtracker"
	"github.com/gnosis-index/gnosis/internal/output"
	"github.com/gnosis-index/gnosis/internal/vectorindex"
)

const embedBatchSize = 64

// embedSummary reports how many chunks were embedded in one run.
type embedSummary struct {
	Embedded int `json:"embedded"`
}

func newEmbedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embed",
		Short: "Embed every chunk that has no vector yet under the active embedding model",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := runEmbedJob(ctx, a)
			if err != nil {
				return err
			}

			return render(cmd, summary,
				func() string { return fmt.Sprintf("# Embed\n\nembedded %d chunks\n", summary.Embedded) },
				func() { output.New(cmd.OutOrStdout()).Successf("embedded %d chunks", summary.Embedded) })
		},
	}
}

func runEmbedJob(ctx context.Context, a *app.App) (embedSummary, error) {
	id, err := a.Jobs.StartJob(jobtracker.JobEmbed, func(ctx context.Context, progress *jobtracker.ProgressReporter) (any, error) {
		total := 0
		for {
			chunks, err := a.Store.GetChunksMissingEmbedding(ctx, a.Embed.ModelName(), embedBatchSize)
			if err != nil {
				return embedSummary{Embedded: total}, err
			}
			if len(chunks) == 0 {
				break
			}

			texts := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = c.Text
			}
			vectors, err := a.Embed.EmbedBatch(ctx, texts)
			if err != nil {
				return embedSummary{Embedded: total}, err
			}

			rows := make([]vectorindex.Row, len(chunks))
			for i, c := range chunks {
				rows[i] = vectorindex.Row{MirrorHash: c.MirrorHash, Seq: c.Seq, Embedding: vectors[i]}
			}
			if err := a.Vector.UpsertVectors(ctx, rows); err != nil {
				return embedSummary{Embedded: total}, err
			}

			total += len(chunks)
			progress.Update(total, total+embedBatchSize, "")
		}
		return embedSummary{Embedded: total}, nil
	})
	if err != nil {
		return embedSummary{}, err
	}
	return waitForJob[embedSummary](a, id)
}
