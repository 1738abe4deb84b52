package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var n int
	var follow bool
	var level string
	var logFile string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Tail or follow the gno server log (~/.gnosis/logs/server.log)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := logging.FindLogFile(logFile)
			if err != nil {
				return err
			}

			v := logging.NewViewer(logging.ViewerConfig{Level: level}, cmd.OutOrStdout())

			entries, err := v.Tail(path, n)
			if err != nil {
				return fmt.Errorf("read log file: %w", err)
			}
			v.Print(entries)

			if !follow {
				return nil
			}

			ctx := cmd.Context()
			entryCh := make(chan logging.LogEntry, 64)
			go func() {
				for entry := range entryCh {
					v.Print([]logging.LogEntry{entry})
				}
			}()
			err = v.Follow(ctx, path, entryCh)
			close(entryCh)
			return err
		},
	}
	cmd.Flags().IntVar(&n, "lines", 50, "Number of trailing log lines to show before following")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new log entries as they're written")
	cmd.Flags().StringVar(&level, "level", "", "Only show entries at or above this level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFile, "file", "", "Log file path (defaults to ~/.gnosis/logs/server.log)")
	return cmd
}
