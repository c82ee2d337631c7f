package source

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-ambient"
)

// Events dispatched by FSWatch. EventChange fires once per notification in
// addition to the operation-specific events.
const (
	EventCreate = "create"
	EventWrite  = "write"
	EventRemove = "remove"
	EventRename = "rename"
	EventChmod  = "chmod"
	EventChange = "change"
	EventError  = "error"
)

var fsEvents = []string{EventCreate, EventWrite, EventRemove, EventRename, EventChmod, EventChange, EventError}

// FileEvent is the payload of FSWatch events.
type FileEvent struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Op   string `json:"op"`
}

// FileEventFields are the condition field names of a FileEvent.
var FileEventFields = []string{"path", "name", "op"}

// FSWatchOption configures an FSWatch.
type FSWatchOption func(*FSWatch)

// WithFSLogger sets the logger used for watcher errors.
func WithFSLogger(logger *slog.Logger) FSWatchOption {
	return func(w *FSWatch) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// FSWatch is an EventSource delivering filesystem notifications. Listeners
// run on the watcher goroutine.
type FSWatch struct {
	target  *ambient.Target
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
	once    sync.Once
}

var (
	_ ambient.EventSource  = (*FSWatch)(nil)
	_ ambient.Availability = (*FSWatch)(nil)
)

// NewFSWatch starts a watcher. Call Add to watch paths and Close to stop.
func NewFSWatch(opts ...FSWatchOption) (*FSWatch, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &FSWatch{
		target:  ambient.NewTarget(ambient.WithEvents(fsEvents...)),
		watcher: watcher,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	go w.loop()
	return w, nil
}

// Add starts watching path. Watching a directory reports changes to its
// direct children.
func (w *FSWatch) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	if err := w.watcher.Add(abs); err != nil {
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}
	return nil
}

func (w *FSWatch) AddEventListener(event string, listener *ambient.Listener) error {
	return w.target.AddEventListener(event, listener)
}

func (w *FSWatch) RemoveEventListener(event string, listener *ambient.Listener) error {
	return w.target.RemoveEventListener(event, listener)
}

// Available reports false once the watcher is closed.
func (w *FSWatch) Available() bool {
	return w != nil && w.target.Available()
}

// Close stops the watcher and drops all listeners. It must not be called
// from a listener.
func (w *FSWatch) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
		<-w.done
		w.target.Close()
	})
	return err
}

func (w *FSWatch) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.dispatch(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
			w.target.Dispatch(ambient.Event{Type: EventError, Payload: err, Time: time.Now()})
		}
	}
}

func (w *FSWatch) dispatch(event fsnotify.Event) {
	now := time.Now()
	payload := FileEvent{
		Path: event.Name,
		Name: filepath.Base(event.Name),
		Op:   event.Op.String(),
	}
	for _, kind := range []struct {
		op   fsnotify.Op
		name string
	}{
		{fsnotify.Create, EventCreate},
		{fsnotify.Write, EventWrite},
		{fsnotify.Remove, EventRemove},
		{fsnotify.Rename, EventRename},
		{fsnotify.Chmod, EventChmod},
	} {
		if event.Has(kind.op) {
			w.target.Dispatch(ambient.Event{Type: kind.name, Payload: payload, Time: now})
		}
	}
	w.target.Dispatch(ambient.Event{Type: EventChange, Payload: payload, Time: now})
}
