package trigger

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/fsnotify/fsnotify"
	"github.com/juju/clock"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"gopkg.in/tomb.v2"
)

// DefaultDebounce is the quiet period before a burst of file events is reported.
const DefaultDebounce = 100 * time.Millisecond

// FileOptions configures a FileTrigger
type FileOptions struct {
	Debounce time.Duration // trailing debounce window (default 100ms)
	Clock    clock.Clock   // time source (default wall clock)
}

// FileTrigger reports changes of one file.
type FileTrigger struct {
	path     string
	debounce time.Duration
	clock    clock.Clock
	counters counters

	mu      sync.Mutex
	started bool
	tomb    *tomb.Tomb
}

// NewFileTrigger creates a trigger for path (opts may be nil). Relative paths are
// resolved against the working directory.
func NewFileTrigger(path string, opts *FileOptions) *FileTrigger {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	t := &FileTrigger{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		clock:    clock.WallClock,
		counters: newCounters(),
	}
	if opts != nil {
		if opts.Debounce > 0 {
			t.debounce = opts.Debounce
		}
		if opts.Clock != nil {
			t.clock = opts.Clock
		}
	}
	return t
}

// Start watches the parent directory of the file.
func (t *FileTrigger) Start(handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return store.Errorf(store.CodeOther, "trigger for %s already started", t.path)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return store.WrapError(store.CodeWatcher, err, "create watcher")
	}
	dir := filepath.Dir(t.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return store.WrapError(store.CodeWatcher, errors.Wrapf(err, "watch %s", dir), "")
	}

	t.started = true
	t.tomb = &tomb.Tomb{}
	t.tomb.Go(func() error {
		defer w.Close()
		return t.loop(w.Events, w.Errors, handler)
	})
	log.Infof("watching %s (debounce %s)", t.path, t.debounce)
	return nil
}

// Stop ends the watch. It is safe to call Stop more than once.
func (t *FileTrigger) Stop() error {
	t.mu.Lock()
	tb := t.tomb
	t.mu.Unlock()
	if tb == nil {
		return nil
	}
	tb.Kill(nil)
	return tb.Wait()
}

// Path returns the absolute path of the watched file.
func (t *FileTrigger) Path() string {
	return t.path
}

// Metrics returns the counters events, coalesced and fired.
func (t *FileTrigger) Metrics() metrics.Registry {
	return t.counters.registry
}

// loop filters the directory events and debounces them
func (t *FileTrigger) loop(events <-chan fsnotify.Event, errs <-chan error, handler Handler) error {
	var (
		timer   clock.Timer
		timerC  <-chan time.Time
		pending Kind
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-t.tomb.Dying():
			return tomb.ErrDying

		case ev, ok := <-events:
			if !ok {
				return store.NewError(store.CodeChannel, "watcher event channel closed")
			}
			if filepath.Clean(ev.Name) != t.path {
				continue
			}
			kind, relevant := classify(ev.Op)
			if !relevant {
				continue
			}
			t.counters.events.Inc(1)
			log.Debugf("%s: %s", t.path, ev.Op)

			if timerC != nil {
				t.counters.coalesced.Inc(1)
			}
			pending = kind
			if timer == nil {
				timer = t.clock.NewTimer(t.debounce)
			} else {
				timer.Reset(t.debounce)
			}
			timerC = timer.Chan()

		case err, ok := <-errs:
			if !ok {
				return store.NewError(store.CodeChannel, "watcher error channel closed")
			}
			log.Errorf("%s: watcher error: %v", t.path, err)

		case <-timerC:
			timerC = nil
			t.counters.fired.Inc(1)
			handler(Event{Kind: pending, Path: t.path})
		}
	}
}

// classify maps fsnotify operations to event kinds. Pure chmod events are ignored.
func classify(op fsnotify.Op) (Kind, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return Deleted, true
	case op.Has(fsnotify.Create), op.Has(fsnotify.Write):
		return Modified, true
	default:
		return 0, false
	}
}
