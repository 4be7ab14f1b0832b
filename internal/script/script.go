// Package script loads command scripts from disk and replays them on
// change. A script is plain text: one command per line, "#" comments and
// blank lines ignored.
package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/timvw/term-courier/internal/model"
)

// DefaultDebounce coalesces editor save bursts (write + truncate +
// rename) into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Load reads the script file and splits it into command units in line
// order.
func Load(path string, autoEnter bool) ([]model.CommandUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return model.SplitUnits(string(data), autoEnter), nil
}

// Watch blocks until ctx is done, invoking fn after each debounced change
// to the file. The parent directory is watched rather than the file
// itself: editors typically save via rename-over, which would silently
// drop a watch held on the old inode.
func Watch(ctx context.Context, path string, debounce time.Duration, fn func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve script path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(abs)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !matches(ev, abs) {
				continue
			}
			if !timer.Stop() && pending {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			pending = true
		case <-timer.C:
			if pending {
				pending = false
				fn()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", abs, err)
		}
	}
}

// matches reports whether the event is a content change of the watched
// file (and not a sibling in the same directory).
func matches(ev fsnotify.Event, abs string) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	evAbs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return evAbs == abs
}
