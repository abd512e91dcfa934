package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher implements Watcher using fsnotify.
//
// fsnotify loses a watch on a file once the file is removed, so the parent
// directory is watched instead and events are filtered by exact path.
type FileWatcher struct {
	mu sync.RWMutex

	watcher *fsnotify.Watcher
	config  Config
	logger  *zap.Logger

	path string
	dir  string

	events chan Event
	errors chan error

	startTime     time.Time
	totalEvents   int64
	droppedEvents int64
	totalErrors   int64
	lastError     error

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// NewFileWatcher starts watching path. The parent directory of path must
// exist; path itself need not.
func NewFileWatcher(path string, opts ...WatcherOption) (*FileWatcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(absPath)

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	bufSize := config.BufferSize
	if bufSize <= 0 {
		bufSize = 16
	}

	w := &FileWatcher{
		watcher:   fsw,
		config:    config,
		logger:    config.Logger,
		path:      absPath,
		dir:       dir,
		events:    make(chan Event, bufSize),
		errors:    make(chan error, bufSize),
		startTime: time.Now(),
		closeCh:   make(chan struct{}),
	}

	w.closedWg.Add(1)
	go w.processLoop()

	w.logger.Debug("watching file", zap.String("path", absPath))
	return w, nil
}

// Path returns the absolute path being watched.
func (w *FileWatcher) Path() string {
	return w.path
}

// Events returns the event channel.
func (w *FileWatcher) Events() <-chan Event {
	return w.events
}

// Errors returns the error channel.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher. It is safe to call Close more than once.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()

	close(w.events)
	close(w.errors)

	return w.watcher.Close()
}

// IsClosed reports whether Close has been called.
func (w *FileWatcher) IsClosed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed
}

// Stats returns watcher statistics.
func (w *FileWatcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return Stats{
		TotalEvents:   atomic.LoadInt64(&w.totalEvents),
		DroppedEvents: atomic.LoadInt64(&w.droppedEvents),
		Errors:        atomic.LoadInt64(&w.totalErrors),
		LastError:     w.lastError,
		StartTime:     w.startTime,
	}
}

func (w *FileWatcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.recordError(err)
			w.sendError(err)
		}
	}
}

func (w *FileWatcher) handleFSEvent(fsEvent fsnotify.Event) {
	if filepath.Clean(fsEvent.Name) != w.path {
		return
	}

	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}

	w.logger.Debug("watched file event",
		zap.String("path", w.path),
		zap.Stringer("op", op),
	)

	w.sendEvent(Event{
		Path:      w.path,
		Op:        op,
		Timestamp: time.Now(),
	})
}

// convertOp maps an fsnotify op set to a single Op. Removal wins over
// creation, which wins over modification.
func convertOp(fsOp fsnotify.Op) Op {
	switch {
	case fsOp.Has(fsnotify.Remove), fsOp.Has(fsnotify.Rename):
		return OpDeleted
	case fsOp.Has(fsnotify.Create):
		return OpCreated
	case fsOp.Has(fsnotify.Write), fsOp.Has(fsnotify.Chmod):
		return OpChanged
	default:
		return 0
	}
}

// sendEvent delivers an event without blocking. On a full channel the
// event is dropped; the queued events already report a change.
func (w *FileWatcher) sendEvent(event Event) {
	select {
	case w.events <- event:
		atomic.AddInt64(&w.totalEvents, 1)
	default:
		atomic.AddInt64(&w.droppedEvents, 1)
	}
}

func (w *FileWatcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func (w *FileWatcher) recordError(err error) {
	atomic.AddInt64(&w.totalErrors, 1)
	w.mu.Lock()
	w.lastError = err
	w.mu.Unlock()
	w.logger.Warn("file watcher error", zap.Error(err))
}

var _ Watcher = (*FileWatcher)(nil)
