package staticembed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_DeterministicForSameInput(t *testing.T) {
	e := New()
	ctx := context.Background()
	a, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbed_DifferentInputsDiffer(t *testing.T) {
	e := New()
	ctx := context.Background()
	a, err := e.Embed(ctx, "alpha")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "completely different text about gardening")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEmbed_EmptyTextReturnsZeroVector(t *testing.T) {
	e := New()
	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, vec, Dimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbed_ReturnsUnitVector(t *testing.T) {
	e := New()
	vec, err := e.Embed(context.Background(), "normalize me please")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-4)
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	e := New()
	out, err := e.EmbedBatch(context.Background(), []string{"one", "", "three"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	var sum0, sum2 float64
	for i := range out[0] {
		sum0 += float64(out[0][i])
		sum2 += float64(out[2][i])
	}
	assert.NotZero(t, sum0)
	assert.NotZero(t, sum2)
	for _, v := range out[1] {
		assert.Zero(t, v)
	}
}

func TestEmbed_ClosedReturnsError(t *testing.T) {
	e := New()
	require.NoError(t, e.Dispose())
	_, err := e.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}

func TestDimensions_MatchesConstant(t *testing.T) {
	e := New()
	assert.Equal(t, Dimensions, e.Dimensions())
}
