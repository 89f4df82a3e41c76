package docregen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gh-download/ghpipe/pkg/logger"
)

var watchLog = logger.New("docregen:watch")

// debounce collapses editor save bursts into one regeneration.
const debounce = 200 * time.Millisecond

// Watch calls onChange every time path is written until ctx is done. The
// parent directory is watched because editors often replace files instead of
// writing them in place. Errors from onChange are passed to onError and do
// not stop the watch. Events that leave the file as onChange last left it,
// including onChange's own write, are ignored.
func Watch(ctx context.Context, path string, onChange func() error, onError func(error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	watchLog.Printf("Watching %s", abs)

	var timer *time.Timer
	var fire <-chan time.Time
	var settled []byte
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			watchLog.Printf("Change detected: %s", event)
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onError(fmt.Errorf("file watcher: %w", err))
		case <-fire:
			fire = nil
			if settled != nil {
				if current, err := os.ReadFile(abs); err == nil && bytes.Equal(current, settled) {
					watchLog.Print("Content unchanged since the last regeneration, skipping")
					continue
				}
			}
			if err := onChange(); err != nil {
				onError(err)
			}
			settled, _ = os.ReadFile(abs)
		}
	}
}
