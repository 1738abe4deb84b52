package configmutex

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/store"
)

func newTestMutex(t *testing.T) *Mutex {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open("", "unicode61", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m, err := New(filepath.Join(dir, "config.yaml"), filepath.Join(dir, ".config.lock"), st, slog.Default())
	require.NoError(t, err)
	return m
}

func TestMutate_PersistsAndSyncsCollection(t *testing.T) {
	m := newTestMutex(t)
	ctx := context.Background()

	_, err := m.Mutate(ctx, func(cur *config.Config) (*config.Config, error) {
		cur.Collections = append(cur.Collections, config.Collection{Name: "notes", Path: "/tmp/notes"})
		return cur, nil
	})
	require.NoError(t, err)

	require.Len(t, m.Current().Collections, 1)
	got := m.Current().Collections[0]
	require.Equal(t, "notes", got.Name)
}

func TestMutate_FnErrorLeavesConfigUnchanged(t *testing.T) {
	m := newTestMutex(t)
	ctx := context.Background()
	before := m.Current()

	_, err := m.Mutate(ctx, func(cur *config.Config) (*config.Config, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, before.FtsTokenizer, m.Current().FtsTokenizer)
}

func TestMutate_InvalidResultRejected(t *testing.T) {
	m := newTestMutex(t)
	ctx := context.Background()

	_, err := m.Mutate(ctx, func(cur *config.Config) (*config.Config, error) {
		cur.FtsTokenizer = "not-a-real-tokenizer"
		return cur, nil
	})
	require.Error(t, err)
}

func TestMutate_SerializesConcurrentCallers(t *testing.T) {
	m := newTestMutex(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := m.Mutate(ctx, func(cur *config.Config) (*config.Config, error) {
				cur.Collections = append(cur.Collections, config.Collection{
					Name: "c" + string(rune('a'+n)),
					Path: "/tmp/x",
				})
				return cur, nil
			})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Len(t, m.Current().Collections, 10)
}
