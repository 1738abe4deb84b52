package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/output"
)

func newCollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Manage registered collections",
	}
	cmd.AddCommand(newCollectionAddCmd())
	cmd.AddCommand(newCollectionRemoveCmd())
	return cmd
}

func newCollectionAddCmd() *cobra.Command {
	var pattern, updateCmd, languageHint string
	var include, exclude []string

	cmd := &cobra.Command{
		Use:   "add <name> <path>",
		Short: "Register a new collection root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			name, path := args[0], args[1]
			err = a.AddCollection(ctx, config.Collection{
				Name: name, Path: path, Pattern: pattern, Include: include, Exclude: exclude,
				UpdateCmd: updateCmd, LanguageHint: languageHint,
			})
			if err != nil {
				return err
			}

			return render(cmd, map[string]string{"name": name, "path": path},
				func() string { return fmt.Sprintf("# Collection added\n\n%s -> %s\n", name, path) },
				func() { output.New(cmd.OutOrStdout()).Successf("registered collection %q at %s", name, path) })
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "**/*", "Glob pattern matched under path")
	cmd.Flags().StringSliceVar(&include, "include", nil, "Additional include globs")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Exclude globs (defaults to the standard ignore set)")
	cmd.Flags().StringVar(&updateCmd, "update-cmd", "", "Shell command to run before each scan")
	cmd.Flags().StringVar(&languageHint, "language-hint", "", "Language hint recorded on ingested documents")
	return cmd
}

func newCollectionRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Unregister a collection (its indexed documents are not deactivated)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			name := args[0]
			if err := a.RemoveCollection(ctx, name); err != nil {
				return err
			}

			return render(cmd, map[string]string{"name": name},
				func() string { return fmt.Sprintf("# Collection removed\n\n%s\n", name) },
				func() { output.New(cmd.OutOrStdout()).Successf("removed collection %q", name) })
		},
	}
}
