package kb

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch starts a filesystem watcher on the norm directory and invalidates
// cached entries when their backing file changes, so long-running servers
// pick up norm-text updates without a restart. The returned stop function
// closes the watcher.
func (s *Store) Watch() (stop func() error, err error) {
	if s.dir == "" {
		return nil, fmt.Errorf("knowledge base directory not configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", s.dir, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".txt") {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					key := strings.TrimSuffix(filepath.Base(event.Name), ".txt")
					s.invalidate(key)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("kb watcher: %v", err)
			}
		}
	}()

	return watcher.Close, nil
}
