package brain

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher evicts cached brains whose ledger file changes on disk, so edits
// made outside the running process (restores, manual fixes) are picked up on
// the next request instead of serving stale ranges.
type Watcher struct {
	watcher *fsnotify.Watcher
	cache   *Cache
	logger  *zap.Logger
	done    chan struct{}
}

// NewWatcher watches ledgerDir and evicts on ledger writes, replacements,
// and removals.
func NewWatcher(ledgerDir string, cache *Cache, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(ledgerDir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		cache:   cache,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Create covers atomic replacement, where a temp file is
			// renamed onto the ledger and only the target sees an event.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			base := filepath.Base(event.Name)
			if !strings.HasSuffix(base, ".json") {
				continue
			}
			name := strings.TrimSuffix(base, ".json")

			w.logger.Debug("ledger changed on disk, evicting",
				zap.String("brain", name),
				zap.String("op", event.Op.String()),
			)
			w.cache.Evict(name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("ledger watcher error", zap.Error(err))
		}
	}
}

// Close stops watching and waits for the event loop to drain.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
