package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch re-reads the config whenever the file changes and hands each valid
// new document to apply. Invalid documents are logged and skipped, so a bad
// edit never takes down a running bot.
//
// The parent directory is watched rather than the file itself: editors and
// configuration tools usually replace the file via rename, which drops a
// plain file watch.
func Watch(ctx context.Context, path string, log zerolog.Logger, apply func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	log = log.With().Str("comp", "config").Logger()
	target, _ := filepath.Abs(path)

	// Debounce timer: write+rename sequences arrive as event bursts.
	var pending *time.Timer
	pendingC := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(ev.Name)
			if abs != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case pendingC <- struct{}{}:
				default:
				}
			})
		case <-pendingC:
			cfg, err := Load(path)
			if err != nil {
				log.Warn().Err(err).Msg("config reload rejected")
				continue
			}
			log.Info().Msg("config reloaded")
			apply(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config watch error")
		}
	}
}
