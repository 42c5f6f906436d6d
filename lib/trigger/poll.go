package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/juju/clock"
	"github.com/rcrowley/go-metrics"
	"gopkg.in/tomb.v2"
)

// DefaultInterval is the default poll interval.
const DefaultInterval = 5 * time.Second

// Probe reports the current version of a resource. A missing resource returns
// exists == false and no error.
type Probe func(ctx context.Context) (version string, exists bool, err error)

// PollOptions configures a PollTrigger
type PollOptions struct {
	Interval time.Duration // time between probes (default 5s)
	Clock    clock.Clock   // time source (default wall clock)
}

// PollTrigger reports version changes observed by a Probe.
type PollTrigger struct {
	name     string
	probe    Probe
	interval time.Duration
	clock    clock.Clock
	counters counters

	mu      sync.Mutex
	started bool
	tomb    *tomb.Tomb
}

// NewPollTrigger creates a polling trigger. name is reported as Event.Path.
func NewPollTrigger(name string, probe Probe, opts *PollOptions) *PollTrigger {
	t := &PollTrigger{
		name:     name,
		probe:    probe,
		interval: DefaultInterval,
		clock:    clock.WallClock,
		counters: newCounters(),
	}
	if opts != nil {
		if opts.Interval > 0 {
			t.interval = opts.Interval
		}
		if opts.Clock != nil {
			t.clock = opts.Clock
		}
	}
	return t
}

// Start takes a first probe as baseline and polls from then on. A failing
// baseline probe fails Start with a Watcher error.
func (t *PollTrigger) Start(handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return store.Errorf(store.CodeOther, "trigger for %s already started", t.name)
	}

	version, exists, err := t.probe(context.Background())
	if err != nil {
		return store.WrapError(store.CodeWatcher, err, "initial probe of "+t.name)
	}

	t.started = true
	t.tomb = &tomb.Tomb{}
	t.tomb.Go(func() error {
		return t.loop(version, exists, handler)
	})
	log.Infof("polling %s every %s", t.name, t.interval)
	return nil
}

// Stop ends polling. It is safe to call Stop more than once.
func (t *PollTrigger) Stop() error {
	t.mu.Lock()
	tb := t.tomb
	t.mu.Unlock()
	if tb == nil {
		return nil
	}
	tb.Kill(nil)
	return tb.Wait()
}

// Metrics returns the counters events, coalesced and fired.
func (t *PollTrigger) Metrics() metrics.Registry {
	return t.counters.registry
}

func (t *PollTrigger) loop(version string, exists bool, handler Handler) error {
	ctx := t.tomb.Context(nil)
	for {
		select {
		case <-t.tomb.Dying():
			return tomb.ErrDying
		case <-t.clock.After(t.interval):
		}

		next, nowExists, err := t.probe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return tomb.ErrDying
			}
			log.Warningf("%s: probe failed: %v", t.name, err)
			continue
		}

		var kind Kind
		switch {
		case exists && !nowExists:
			kind = Deleted
		case nowExists && (!exists || next != version):
			kind = Modified
		}
		version, exists = next, nowExists
		if kind == 0 {
			continue
		}

		t.counters.events.Inc(1)
		t.counters.fired.Inc(1)
		handler(Event{Kind: kind, Path: t.name})
	}
}
