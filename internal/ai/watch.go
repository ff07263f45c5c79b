package ai

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// WatchPrompts reloads the prompts file into p whenever it changes, until ctx
// is cancelled. The parent directory is watched so that editors which replace
// the file by rename are handled. A file that fails to load is logged and the
// previous set stays active.
func WatchPrompts(ctx context.Context, p *Prompts, path string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("prompts watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("prompts watcher: stopped")
			return nil

		case <-timerCh:
			set, loadErr := LoadPromptSet(abs)
			if loadErr != nil {
				logger.Warn("prompts watcher: reload failed, keeping previous prompts",
					slog.String("error", loadErr.Error()))
				continue
			}
			p.Replace(set)
			logger.Info("prompts watcher: reloaded", slog.String("path", abs))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerCh = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("prompts watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
