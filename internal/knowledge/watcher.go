package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
)

// SeedWatcher re-imports a seed file whenever it changes on disk.
type SeedWatcher struct {
	store    *Store
	path     string
	debounce time.Duration
	logger   *observability.Logger
	watcher  *fsnotify.Watcher

	// OnReload, when set, receives the result of every successful re-import.
	OnReload func(*ImportResult)
}

// NewSeedWatcher creates a watcher for path. The parent directory is watched
// so editors that replace the file are still observed.
func NewSeedWatcher(store *Store, path string, logger *observability.Logger) (*SeedWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create seed watcher: %w", err)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("resolve seed path: %w", err)
	}

	return &SeedWatcher{
		store:    store,
		path:     abs,
		debounce: 200 * time.Millisecond,
		logger:   logger.WithComponent("seed-watcher"),
		watcher:  w,
	}, nil
}

// Run watches until ctx ends or Stop is called.
func (sw *SeedWatcher) Run(ctx context.Context) error {
	if err := sw.watcher.Add(filepath.Dir(sw.path)); err != nil {
		return fmt.Errorf("watch seed directory: %w", err)
	}
	sw.logger.Info().Str("path", sw.path).Msg("Watching knowledge seed file")

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(sw.debounce)
			} else {
				timer.Reset(sw.debounce)
			}
			trigger = timer.C
		case <-trigger:
			trigger = nil
			sw.reload(ctx)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return nil
			}
			sw.logger.Warn().Err(err).Msg("seed watcher error")
		}
	}
}

// Stop releases the watcher.
func (sw *SeedWatcher) Stop() error {
	return sw.watcher.Close()
}

func (sw *SeedWatcher) reload(ctx context.Context) {
	result, err := sw.store.ImportFile(ctx, sw.path, nil)
	if err != nil {
		sw.logger.Error().Err(err).Str("path", sw.path).Msg("Failed to re-import knowledge seed")
		return
	}
	if sw.OnReload != nil {
		sw.OnReload(result)
	}
}
