package packs

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch reloads the overlay whenever the pack directory changes. Events are
// debounced because editors fire several writes per save. Watching a
// missing directory is not an error; the overlay just stays empty until the
// directory appears and Watch is restarted.
func (c *Catalog) Watch(ctx context.Context, dir string) error {
	if err := c.LoadOverlay(dir); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		log.Debug().Err(err).Str("dir", dir).Msg("Pack overlay directory not watchable, using built-ins only")
		return nil
	}

	go func() {
		defer fsw.Close()

		var pending *time.Timer
		reload := func() {
			if err := c.LoadOverlay(dir); err != nil {
				log.Error().Err(err).Str("dir", dir).Msg("Failed to reload pack overlay")
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(100*time.Millisecond, reload)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("Pack watcher error")
			}
		}
	}()

	return nil
}
