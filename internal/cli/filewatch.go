package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// fileWatcher reports writes to one file. It watches the parent directory
// so editors that save by replacing the file are still seen.
type fileWatcher struct {
	path     string
	debounce time.Duration
	logger   *log.Logger
}

func newFileWatcher(path string, logOut io.Writer) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %s: %w", path, err)
	}
	return &fileWatcher{
		path:     abs,
		debounce: defaultDebounce,
		logger:   log.New(logOut, "[watch] ", log.LstdFlags),
	}, nil
}

// run calls onChange once per burst of writes until ctx ends.
func (w *fileWatcher) run(ctx context.Context, onChange func()) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("could not watch %s: %w", w.path, err)
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			onChange()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("Error: %v", err)
		}
	}
}
