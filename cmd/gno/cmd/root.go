// Package cmd provides the CLI commands for gno, the gnosis personal
// knowledge indexer.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/app"
	"github.com/gnosis-index/gnosis/internal/logging"
	"github.com/gnosis-index/gnosis/pkg/version"
)

// Global output flags, shared by every subcommand.
var (
	jsonOutput bool
	mdOutput   bool
	dataDir    string
	offline    bool
	debug      bool
)

// NewRootCmd creates the root command for the gno CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gno",
		Short:   "A local-first personal knowledge indexer",
		Version: version.Version,
		Long: `gno indexes folders of Markdown and text documents into an embedded
database and serves hybrid lexical + semantic search, grounded answers,
and a link graph, entirely on your own machine.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "mcp" {
				// mcp wires up its own stdio-safe logging.
				return nil
			}
			if !debug {
				return nil
			}
			logger, cleanup, err := logging.Setup(logging.DebugConfig())
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			cmd.Root().PersistentPostRunE = func(*cobra.Command, []string) error {
				cleanup()
				return nil
			}
			return nil
		},
	}
	cmd.SetVersionTemplate("gno version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&mdOutput, "md", false, "Emit Markdown-formatted output")
	cmd.PersistentFlags().StringVar(&dataDir, "config", "", "Data directory (defaults to $GNOSIS_DATA_DIR or ~/.gnosis)")
	cmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use the deterministic static embedder instead of a local model server")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Write verbose JSON logs to ~/.gnosis/logs/server.log")

	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newCollectionCmd())
	cmd.AddCommand(newEmbedCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newSimilarCmd())
	cmd.AddCommand(newLinksCmd())
	cmd.AddCommand(newBacklinksCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newLogsCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// openApp opens the shared application bootstrap using the persistent
// --config/--offline flags.
func openApp(ctx context.Context) (*app.App, error) {
	return app.Open(ctx, app.Options{
		DataDir: dataDir,
		Offline: offline,
		Logger:  slog.Default(),
	})
}

// interactiveOutput reports whether progress UI should render: only when
// neither --json nor --md was requested and stdout is a real terminal.
func interactiveOutput() bool {
	if jsonOutput || mdOutput {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}
