package llmports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

func TestNoopRerankPort_ScoreReturnsUnavailable(t *testing.T) {
	var p NoopRerankPort
	_, err := p.Score(context.Background(), "q", []string{"a"})
	require.Error(t, err)
	assert.Equal(t, errorcode.CodeUnavailable, errorcode.GetCode(err))
	assert.False(t, p.Available(context.Background()))
}

func TestNoopGenerationPort_CompleteReturnsUnavailable(t *testing.T) {
	var p NoopGenerationPort
	_, err := p.Complete(context.Background(), "prompt", GenerationOptions{})
	require.Error(t, err)
	assert.Equal(t, errorcode.CodeUnavailable, errorcode.GetCode(err))
	assert.False(t, p.Available(context.Background()))
}
