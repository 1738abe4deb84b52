package app

import (
	"context"
	"time"

	"github.com/gnosis-index/gnosis/internal/ingest"
	"github.com/gnosis-index/gnosis/internal/watcher"
)

// WatchCollections starts one HybridWatcher per configured collection and
// re-ingests a collection whenever its watcher reports a debounced batch of
// file events. It blocks until ctx is canceled, then stops every watcher.
func (a *App) WatchCollections(ctx context.Context) error {
	cfg := a.ConfigMutex.Current()
	if len(cfg.Collections) == 0 {
		a.Logger.Warn("watch: no collections configured, nothing to watch")
		<-ctx.Done()
		return nil
	}

	watchers := make([]*watcher.HybridWatcher, 0, len(cfg.Collections))
	defer func() {
		for _, w := range watchers {
			_ = w.Stop()
		}
	}()

	for _, col := range cfg.Collections {
		w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
		if err != nil {
			a.Logger.Error("watch: failed to build watcher", "collection", col.Name, "error", err)
			continue
		}
		if err := w.Start(ctx, col.Path); err != nil {
			a.Logger.Error("watch: failed to start watcher", "collection", col.Name, "path", col.Path, "error", err)
			continue
		}
		watchers = append(watchers, w)
		go a.watchCollection(ctx, col.Name, w)
	}

	<-ctx.Done()
	return nil
}

func (a *App) watchCollection(ctx context.Context, name string, w *watcher.HybridWatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.Events():
			if !ok {
				return
			}
			a.Logger.Info("watch: detected change, re-ingesting", "collection", name, "events", len(batch))
			a.reingestCollection(ctx, name)
		case err, ok := <-w.Errors():
			if !ok {
				continue
			}
			a.Logger.Warn("watch: watcher error", "collection", name, "error", err)
		}
	}
}

func (a *App) reingestCollection(ctx context.Context, name string) {
	cfg := a.ConfigMutex.Current()
	for _, col := range cfg.Collections {
		if col.Name != name {
			continue
		}
		version := ingest.NextPipelineVersion(time.Now())
		if _, err := a.Ingest.Run(ctx, col, version, false); err != nil {
			a.Logger.Error("watch: re-ingest failed", "collection", name, "error", err)
		}
		return
	}
}
