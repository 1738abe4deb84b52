package mcptools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilitiesFromEnv(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"true":  true,
		"yes":   true,
	}
	for v, want := range cases {
		t.Setenv("GNOSIS_MCP_ENABLE_WRITES", v)
		got := CapabilitiesFromEnv()
		assert.Equal(t, want, got.AllowWrites, "value %q", v)
	}
}
