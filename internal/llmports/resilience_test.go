package llmports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

func TestResilience_DoSucceedsOnFirstTry(t *testing.T) {
	r := NewResilience("test")
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestResilience_DoRetriesTransientFailures(t *testing.T) {
	r := NewResilience("test")
	r.retry.InitialDelay = 0
	r.retry.MaxDelay = 0
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestResilience_DoResultReturnsValue(t *testing.T) {
	r := NewResilience("test")
	got, err := DoResult(context.Background(), r, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestResilience_BreakerTripsAfterMaxFailures(t *testing.T) {
	r := NewResilience("test")
	r.retry.MaxRetries = 0
	for i := 0; i < 5; i++ {
		_ = r.Do(context.Background(), func() error {
			return errors.New("down")
		})
	}
	assert.False(t, r.Allow())

	err := r.Do(context.Background(), func() error {
		t.Fatal("breaker should have short-circuited the call")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errorcode.ErrCircuitOpen)
}
