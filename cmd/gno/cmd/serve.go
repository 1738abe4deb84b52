package cmd

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/httpapi"
	"github.com/gnosis-index/gnosis/internal/lockfile"
	"github.com/gnosis-index/gnosis/internal/output"
)

func newServeCmd() *cobra.Command {
	var addr string
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the loopback HTTP+UI server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			lock := lockfile.New(filepath.Join(config.GetUserConfigDir(), "serve.lock"))
			if err := lock.Acquire(); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer lock.Release()

			if addr == "" {
				addr = a.ConfigMutex.Current().Server.HTTPAddr
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("", "listening on http://%s (Ctrl+C to stop)", addr)

			if watch {
				out.Statusf("", "watching collections for changes")
				go func() {
					if err := a.WatchCollections(ctx); err != nil {
						a.Logger.Error("collection watch stopped", "error", err)
					}
				}()
			}

			srv := httpapi.New(a, a.Logger)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Loopback address to bind (defaults to the configured server.httpAddr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Watch configured collections and re-ingest automatically on change")
	return cmd
}
