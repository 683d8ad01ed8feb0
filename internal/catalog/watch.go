package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch calls onChange once the library directory has been quiet for debounce
// after a change. It blocks until ctx is done.
func (f *Filesystem) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(f.root); err != nil {
		return fmt.Errorf("watch %s: %w", f.root, err)
	}
	log.Info().Str("module", "catalog").Str("root", f.root).Msg("watching library")

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			log.Debug().Str("module", "catalog").Str("event", ev.String()).Msg("library changed")
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("module", "catalog").Msg("watcher error")
		case <-timer.C:
			onChange()
		}
	}
}
