package cohort

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher drops cached corpora when their files change on disk, so edits made
// by the external pipeline are seen on the next assembly.
type Watcher struct {
	mu      sync.Mutex
	corpus  *FileCorpus
	watcher *fsnotify.Watcher
	dir     string
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func NewWatcher(corpus *FileCorpus) (*Watcher, error) {
	dir, err := corpus.Dir()
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		corpus:  corpus,
		watcher: fw,
		dir:     dir,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.running = true
	logger.WithField("dir", w.dir).Info("watching corpus directory")
	go w.run(ctx)
	return nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		logger.Log.WithError(err).Warn("closing corpus watcher")
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Log.WithError(err).Warn("corpus watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	w.corpus.Invalidate(name)
	logger.WithFields(logrus.Fields{
		"corpus": name,
		"op":     event.Op.String(),
	}).Debug("corpus cache invalidated")
}
