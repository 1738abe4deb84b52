package mcptools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

func TestMapErrorNil(t *testing.T) {
	assert.Nil(t, mapError(nil))
}

func TestMapErrorCategories(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", errorcode.Validation("bad input", nil), rpcInvalidParams},
		{"not found", errorcode.NotFound("missing"), rpcNotFound},
		{"conflict", errorcode.Conflict("duplicate"), rpcConflict},
		{"forbidden", errorcode.Forbidden("nope"), rpcForbidden},
		{"unavailable", errorcode.Unavailable("no model"), rpcUnavailable},
		{"plain error", assertErr{"boom"}, rpcInternalError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapError(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.code, got.Code)
		})
	}
}

func TestMapErrorContextCanceled(t *testing.T) {
	got := mapError(context.Canceled)
	require.NotNil(t, got)
	assert.Equal(t, rpcTimeout, got.Code)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
