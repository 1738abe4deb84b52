package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/logging"
	"github.com/gnosis-index/gnosis/internal/mcptools"
)

func newMCPCmd() *cobra.Command {
	var enableWrites bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the JSON-RPC tool server over stdio for MCP clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// stdout is reserved for JSON-RPC; route every log line to
			// ~/.gnosis/logs/server.log instead of stderr.
			cleanup, err := logging.SetupMCPMode()
			if err != nil {
				return fmt.Errorf("set up mcp logging: %w", err)
			}
			defer cleanup()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			capabilities := mcptools.CapabilitiesFromEnv()
			if enableWrites {
				capabilities.AllowWrites = true
			}

			srv := mcptools.New(a, a.Logger, capabilities)
			return srv.Serve(ctx, "stdio")
		},
	}
	cmd.Flags().BoolVar(&enableWrites, "enable-writes", false, "Expose write tools (capture, add/remove collection, sync) in addition to GNOSIS_MCP_ENABLE_WRITES")
	return cmd
}
