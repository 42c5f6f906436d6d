package loader

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/kvkit/lib/parser"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/ValentinKolb/kvkit/lib/stream"
	"github.com/ValentinKolb/kvkit/lib/trigger"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var log = logger.GetLogger("loader")

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Strategy selects how a reload reaches the store.
type Strategy string

const (
	Inplace Strategy = "inplace"
	Replace Strategy = "replace"
)

// ParseStrategy accepts "inplace" and "replace" in any case. The empty string
// selects Inplace.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case "", Inplace:
		return Inplace, nil
	case Replace:
		return Replace, nil
	default:
		return "", store.Errorf(store.CodeOther, "unknown load strategy %q", s)
	}
}

// Report summarises one reload.
type Report struct {
	Strategy Strategy      `json:"strategy"`
	Applied  int           `json:"applied"` // records written with Set
	Deleted  int           `json:"deleted"` // records applied with Delete
	Skipped  int           `json:"skipped"` // Unknown records, and Delete records under Replace
	Duration time.Duration `json:"duration"`
}

// EventKind tells listeners what happened.
type EventKind uint8

const (
	EventReloaded EventKind = iota + 1 // a reload completed
	EventDeleted                       // the source was removed, nothing was loaded
)

func (k EventKind) String() string {
	switch k {
	case EventReloaded:
		return "Reloaded"
	case EventDeleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// Event is passed to listeners. Stream is the stream that was applied, or an
// empty stream for EventDeleted.
type Event[K comparable, V any] struct {
	Kind   EventKind
	Stream stream.Stream[K, V]
	Report Report
}

// Listener observes completed reloads.
type Listener[K comparable, V any] func(ctx context.Context, ev Event[K, V]) error

// Options configures a Loader
type Options[K comparable, V any] struct {
	Strategy    Strategy            // default Inplace
	NewStore    store.Factory[K, V] // builds fresh stores, required for Replace
	Trigger     trigger.Trigger     // optional, reloads on change
	LoadOnStart bool                // Start runs one reload before arming the trigger
	BatchSize   int                 // writes per BatchSet under Replace (default 512)
	Metrics     metrics.Registry    // default: a private registry
}

const defaultBatchSize = 512

// holder boxes the active store for atomic.Pointer
type holder[K comparable, V any] struct {
	store store.Store[K, V]
}

// --------------------------------------------------------------------------
// Loader
// --------------------------------------------------------------------------

// Loader applies a stream to a store and serves reads from the active store.
type Loader[K comparable, V any] struct {
	stream    stream.Stream[K, V]
	strategy  Strategy
	newStore  store.Factory[K, V]
	trigger   trigger.Trigger
	onStart   bool
	batchSize int

	active atomic.Pointer[holder[K, V]]

	mu        sync.Mutex // serialises reloads, listeners and close
	closed    bool
	closing   atomic.Bool
	started   bool
	listeners []Listener[K, V]

	ctx    context.Context
	cancel context.CancelFunc

	registry       metrics.Registry
	reloads        metrics.Counter
	reloadErrors   metrics.Counter
	recordsApplied metrics.Counter
	reloadMillis   metrics.Histogram
}

// New creates a loader over target (opts may be nil). Nothing is loaded until
// Start or Reload is called.
func New[K comparable, V any](target store.Store[K, V], s stream.Stream[K, V], opts *Options[K, V]) (*Loader[K, V], error) {
	if target == nil {
		return nil, store.NewError(store.CodeOther, "loader needs a target store")
	}
	if s == nil {
		return nil, store.NewError(store.CodeOther, "loader needs a stream")
	}
	if opts == nil {
		opts = &Options[K, V]{}
	}
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	if strategy == Replace && opts.NewStore == nil {
		return nil, store.NewError(store.CodeOther, "replace strategy needs a store factory")
	}

	l := &Loader[K, V]{
		stream:    s,
		strategy:  strategy,
		newStore:  opts.NewStore,
		trigger:   opts.Trigger,
		onStart:   opts.LoadOnStart,
		batchSize: opts.BatchSize,
		registry:  opts.Metrics,
	}
	if l.batchSize <= 0 {
		l.batchSize = defaultBatchSize
	}
	if l.registry == nil {
		l.registry = metrics.NewRegistry()
	}
	l.reloads = metrics.GetOrRegisterCounter("reloads", l.registry)
	l.reloadErrors = metrics.GetOrRegisterCounter("reload_errors", l.registry)
	l.recordsApplied = metrics.GetOrRegisterCounter("records_applied", l.registry)
	l.reloadMillis = metrics.GetOrRegisterHistogram("reload_ms", l.registry, metrics.NewUniformSample(1028))

	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.active.Store(&holder[K, V]{store: target})
	return l, nil
}

// OnChange registers a listener. Listeners are called in registration order.
func (l *Loader[K, V]) OnChange(fn Listener[K, V]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Start runs the initial reload if LoadOnStart is set and arms the trigger.
// With a trigger a failed initial reload is only logged, the next trigger
// event retries it. Without one the error is returned.
func (l *Loader[K, V]) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return store.NewError(store.CodeOther, "loader closed")
	}
	if l.started {
		l.mu.Unlock()
		return store.NewError(store.CodeOther, "loader already started")
	}
	l.started = true
	l.mu.Unlock()

	if l.onStart {
		if _, err := l.Reload(ctx); err != nil {
			if l.trigger == nil {
				return err
			}
			log.Warningf("initial load failed, waiting for the next change: %v", err)
		}
	}
	if l.trigger != nil {
		if err := l.trigger.Start(l.handleTrigger); err != nil {
			return err
		}
	}
	return nil
}

// handleTrigger runs on the trigger goroutine
func (l *Loader[K, V]) handleTrigger(ev trigger.Event) {
	if l.closing.Load() {
		return
	}
	switch ev.Kind {
	case trigger.Modified:
		report, err := l.Reload(l.ctx)
		if err != nil {
			if l.closing.Load() {
				return
			}
			log.Errorf("reload after change of %s failed: %v", ev.Path, err)
			return
		}
		log.Infof("reloaded %s: %d applied, %d deleted, %d skipped in %s",
			ev.Path, report.Applied, report.Deleted, report.Skipped, report.Duration)
	case trigger.Deleted:
		log.Warningf("source %s deleted, keeping current data", ev.Path)
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.closed {
			return
		}
		l.notify(l.ctx, Event[K, V]{Kind: EventDeleted, Stream: stream.EmptyStream[K, V]{}})
	}
}

// Reload applies the whole stream with the configured strategy.
func (l *Loader[K, V]) Reload(ctx context.Context) (Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Report{}, store.NewError(store.CodeOther, "loader closed")
	}

	start := time.Now()
	var report Report
	var err error
	switch l.strategy {
	case Replace:
		report, err = l.replace(ctx)
	default:
		report, err = l.inplace(ctx)
	}
	report.Strategy = l.strategy
	report.Duration = time.Since(start)

	l.reloads.Inc(1)
	l.recordsApplied.Inc(int64(report.Applied + report.Deleted))
	if err != nil {
		l.reloadErrors.Inc(1)
		return report, err
	}
	l.reloadMillis.Update(report.Duration.Milliseconds())

	l.notify(ctx, Event[K, V]{Kind: EventReloaded, Stream: l.stream, Report: report})
	return report, nil
}

// inplace patches the live store record by record
func (l *Loader[K, V]) inplace(ctx context.Context) (Report, error) {
	var report Report
	target := l.current()
	err := l.stream.Each(ctx, func(rec parser.Record[K, V]) error {
		switch rec.Type {
		case parser.ChangeAdd, parser.ChangeUpdate:
			if err := target.Set(ctx, rec.Key, rec.Value); err != nil {
				return err
			}
			report.Applied++
		case parser.ChangeDelete:
			if err := target.Delete(ctx, rec.Key); err != nil {
				return err
			}
			report.Deleted++
		default:
			report.Skipped++
		}
		return nil
	})
	return report, err
}

// replace builds a fresh store and swaps it in
func (l *Loader[K, V]) replace(ctx context.Context) (Report, error) {
	var report Report
	fresh, err := l.newStore()
	if err != nil {
		return report, store.WrapError(store.CodeOther, err, "create store")
	}

	keys := make([]K, 0, l.batchSize)
	values := make([]V, 0, l.batchSize)
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		errs, err := fresh.BatchSet(ctx, keys, values)
		if err != nil {
			return err
		}
		for _, e := range errs {
			if e != nil {
				return e
			}
		}
		report.Applied += len(keys)
		keys, values = keys[:0], values[:0]
		return nil
	}

	err = l.stream.Each(ctx, func(rec parser.Record[K, V]) error {
		switch rec.Type {
		case parser.ChangeAdd, parser.ChangeUpdate:
			keys = append(keys, rec.Key)
			values = append(values, rec.Value)
			if len(keys) >= l.batchSize {
				return flush()
			}
		default:
			report.Skipped++
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		if cerr := fresh.Close(); cerr != nil {
			log.Warningf("closing discarded store: %v", cerr)
		}
		return report, err
	}

	old := l.active.Swap(&holder[K, V]{store: fresh})
	if err := old.store.Close(); err != nil {
		log.Warningf("closing replaced store: %v", err)
	}
	return report, nil
}

// notify calls every listener, l.mu must be held
func (l *Loader[K, V]) notify(ctx context.Context, ev Event[K, V]) {
	var result *multierror.Error
	for _, fn := range l.listeners {
		if err := fn(ctx, ev); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		log.Errorf("listeners failed after %s event: %v", ev.Kind, err)
	}
}

// current returns the active store
func (l *Loader[K, V]) current() store.Store[K, V] {
	return l.active.Load().store
}

// Store returns the active store.
func (l *Loader[K, V]) Store() store.Store[K, V] {
	return l.current()
}

// Strategy returns the configured strategy.
func (l *Loader[K, V]) Strategy() Strategy {
	return l.strategy
}

// Metrics returns the registry holding reloads, reload_errors, records_applied
// and reload_ms.
func (l *Loader[K, V]) Metrics() metrics.Registry {
	return l.registry
}

// Close stops the trigger, waits for a running reload and closes the active
// store. It is safe to call Close more than once.
func (l *Loader[K, V]) Close() error {
	if !l.closing.CompareAndSwap(false, true) {
		return nil
	}
	l.cancel()

	var result *multierror.Error
	if l.trigger != nil {
		if err := l.trigger.Stop(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if err := l.current().Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// --------------------------------------------------------------------------
// store.Store
// --------------------------------------------------------------------------

func (l *Loader[K, V]) Get(ctx context.Context, key K) (V, error) {
	return l.current().Get(ctx, key)
}

func (l *Loader[K, V]) Set(ctx context.Context, key K, value V, opts ...store.Option) error {
	return l.current().Set(ctx, key, value, opts...)
}

func (l *Loader[K, V]) Delete(ctx context.Context, key K) error {
	return l.current().Delete(ctx, key)
}

func (l *Loader[K, V]) BatchSet(ctx context.Context, keys []K, values []V, opts ...store.Option) ([]error, error) {
	return l.current().BatchSet(ctx, keys, values, opts...)
}

func (l *Loader[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	return l.current().BatchGet(ctx, keys)
}

func (l *Loader[K, V]) BatchDelete(ctx context.Context, keys []K) ([]error, error) {
	return l.current().BatchDelete(ctx, keys)
}
