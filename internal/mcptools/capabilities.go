package mcptools

import "os"

// Capabilities gates which tools an MCP client is allowed to call. Read
// tools are always exposed; write tools (anything that mutates config or
// writes a file) are registered only when AllowWrites is set.
type Capabilities struct {
	AllowWrites bool
}

// CapabilitiesFromEnv reads GNOSIS_MCP_ENABLE_WRITES, treating any of
// "1", "true", "yes" (case-insensitive) as enabling write tools.
func CapabilitiesFromEnv() Capabilities {
	v := os.Getenv("GNOSIS_MCP_ENABLE_WRITES")
	switch v {
	case "1", "true", "True", "TRUE", "yes", "YES":
		return Capabilities{AllowWrites: true}
	default:
		return Capabilities{}
	}
}
