package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// render emits data as JSON when --json was passed, md() when --md was
// passed, or falls back to text() for a human reading a terminal.
func render(cmd *cobra.Command, data any, md func() string, text func()) error {
	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return writeJSON(out, data)
	case mdOutput:
		fmt.Fprintln(out, md())
		return nil
	default:
		text()
		return nil
	}
}

func writeJSON(out io.Writer, data any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
