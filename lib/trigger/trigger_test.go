package trigger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/fsnotify/fsnotify"
	"github.com/juju/clock/testclock"
	"github.com/natefinch/atomic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/tomb.v2"
)

// recorder collects handler calls
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) count() int {
	return len(r.snapshot())
}

// startWithChannels runs the debounce loop of t on injected channels
func startWithChannels(t *FileTrigger, events chan fsnotify.Event, errs chan error, handler Handler) {
	t.started = true
	t.tomb = &tomb.Tomb{}
	t.tomb.Go(func() error {
		return t.loop(events, errs, handler)
	})
}

// --------------------------------------------------------------------------
// Debounce (deterministic clock)
// --------------------------------------------------------------------------

func TestFileTriggerDebounceCoalesces(t *testing.T) {
	defer goleak.VerifyNone(t)

	clk := testclock.NewClock(time.Now())
	trig := NewFileTrigger(filepath.Join(t.TempDir(), "data.tsv"), &FileOptions{Clock: clk})
	events := make(chan fsnotify.Event)
	rec := &recorder{}
	startWithChannels(trig, events, make(chan error), rec.handle)

	events <- fsnotify.Event{Name: trig.Path(), Op: fsnotify.Create}
	events <- fsnotify.Event{Name: trig.Path(), Op: fsnotify.Write}
	events <- fsnotify.Event{Name: trig.Path() + ".tmp", Op: fsnotify.Remove} // other file
	events <- fsnotify.Event{Name: trig.Path(), Op: fsnotify.Write}

	require.NoError(t, clk.WaitAdvance(DefaultDebounce, time.Second, 1))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Event{Kind: Modified, Path: trig.Path()}, rec.snapshot()[0])

	assert.Equal(t, int64(3), trig.Metrics().Get("events").(interface{ Count() int64 }).Count())
	assert.Equal(t, int64(2), trig.Metrics().Get("coalesced").(interface{ Count() int64 }).Count())

	require.NoError(t, trig.Stop())
	assert.Equal(t, 1, rec.count())
}

func TestFileTriggerLastKindWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	clk := testclock.NewClock(time.Now())
	trig := NewFileTrigger(filepath.Join(t.TempDir(), "data.tsv"), &FileOptions{Clock: clk, Debounce: time.Second})
	events := make(chan fsnotify.Event)
	rec := &recorder{}
	startWithChannels(trig, events, make(chan error), rec.handle)
	defer trig.Stop()

	events <- fsnotify.Event{Name: trig.Path(), Op: fsnotify.Write}
	events <- fsnotify.Event{Name: trig.Path(), Op: fsnotify.Remove}
	events <- fsnotify.Event{Name: trig.Path(), Op: fsnotify.Chmod} // ignored

	require.NoError(t, clk.WaitAdvance(time.Second, time.Second, 1))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Deleted, rec.snapshot()[0].Kind)

	// a later burst fires again
	events <- fsnotify.Event{Name: trig.Path(), Op: fsnotify.Create}
	require.NoError(t, clk.WaitAdvance(time.Second, time.Second, 1))
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Modified, rec.snapshot()[1].Kind)
}

func TestFileTriggerNoFireBeforeWindow(t *testing.T) {
	defer goleak.VerifyNone(t)

	clk := testclock.NewClock(time.Now())
	trig := NewFileTrigger(filepath.Join(t.TempDir(), "data.tsv"), &FileOptions{Clock: clk})
	events := make(chan fsnotify.Event)
	rec := &recorder{}
	startWithChannels(trig, events, make(chan error), rec.handle)

	events <- fsnotify.Event{Name: trig.Path(), Op: fsnotify.Write}
	require.NoError(t, clk.WaitAdvance(DefaultDebounce/2, time.Second, 1))
	assert.Never(t, func() bool { return rec.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	// no handler call may happen after Stop returns
	require.NoError(t, trig.Stop())
	clk.Advance(time.Hour)
	assert.Equal(t, 0, rec.count())
}

func TestFileTriggerChannelClosed(t *testing.T) {
	defer goleak.VerifyNone(t)

	trig := NewFileTrigger(filepath.Join(t.TempDir(), "data.tsv"), nil)
	events := make(chan fsnotify.Event)
	startWithChannels(trig, events, make(chan error), func(Event) {})

	close(events)
	// the loop ends on its own before Stop kills it
	<-trig.tomb.Dead()
	err := trig.Stop()
	require.Error(t, err)
	assert.Equal(t, store.CodeChannel, store.CodeOf(err))
}

// --------------------------------------------------------------------------
// fsnotify integration (wall clock)
// --------------------------------------------------------------------------

func TestFileTriggerWatchesFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "data.tsv")
	trig := NewFileTrigger(path, &FileOptions{Debounce: 20 * time.Millisecond})
	rec := &recorder{}
	require.NoError(t, trig.Start(rec.handle))

	// the file does not exist yet, creation by rename is still observed
	require.NoError(t, atomic.WriteFile(path, strings.NewReader("a\t1\n")))
	require.Eventually(t, func() bool { return rec.count() >= 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, Modified, rec.snapshot()[rec.count()-1].Kind)

	seen := rec.count()
	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return rec.count() > seen }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, Deleted, rec.snapshot()[rec.count()-1].Kind)

	require.NoError(t, trig.Stop())
	require.NoError(t, trig.Stop())

	after := rec.count()
	require.NoError(t, os.WriteFile(path, []byte("b\t2\n"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, rec.count())
}

func TestFileTriggerStartErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	missingDir := NewFileTrigger(filepath.Join(t.TempDir(), "missing", "data.tsv"), nil)
	err := missingDir.Start(func(Event) {})
	require.Error(t, err)
	assert.Equal(t, store.CodeWatcher, store.CodeOf(err))
	require.NoError(t, missingDir.Stop())

	trig := NewFileTrigger(filepath.Join(t.TempDir(), "data.tsv"), nil)
	require.NoError(t, trig.Start(func(Event) {}))
	err = trig.Start(func(Event) {})
	require.Error(t, err)
	assert.Equal(t, store.CodeOther, store.CodeOf(err))
	require.NoError(t, trig.Stop())
}

// --------------------------------------------------------------------------
// PollTrigger
// --------------------------------------------------------------------------

// fakeProbe serves a mutable version
type fakeProbe struct {
	mu      sync.Mutex
	version string
	exists  bool
	err     error
}

func (p *fakeProbe) set(version string, exists bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.version, p.exists, p.err = version, exists, err
}

func (p *fakeProbe) probe(context.Context) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version, p.exists, p.err
}

func TestPollTrigger(t *testing.T) {
	defer goleak.VerifyNone(t)

	clk := testclock.NewClock(time.Now())
	probe := &fakeProbe{version: "v1", exists: true}
	trig := NewPollTrigger("s3://data/users.tsv", probe.probe, &PollOptions{Clock: clk, Interval: time.Minute})
	rec := &recorder{}
	require.NoError(t, trig.Start(rec.handle))

	// unchanged
	require.NoError(t, clk.WaitAdvance(time.Minute, time.Second, 1))
	// changed
	probe.set("v2", true, nil)
	require.NoError(t, clk.WaitAdvance(time.Minute, time.Second, 1))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Event{Kind: Modified, Path: "s3://data/users.tsv"}, rec.snapshot()[0])

	// probe failures are skipped
	probe.set("v3", true, errors.New("timeout"))
	require.NoError(t, clk.WaitAdvance(time.Minute, time.Second, 1))

	// removed
	probe.set("", false, nil)
	require.NoError(t, clk.WaitAdvance(time.Minute, time.Second, 1))
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Deleted, rec.snapshot()[1].Kind)

	// recreated
	probe.set("v4", true, nil)
	require.NoError(t, clk.WaitAdvance(time.Minute, time.Second, 1))
	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Modified, rec.snapshot()[2].Kind)

	require.NoError(t, trig.Stop())
	assert.Equal(t, 3, rec.count())
}

func TestPollTriggerInitialProbeFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	probe := &fakeProbe{err: errors.New("unreachable")}
	trig := NewPollTrigger("x", probe.probe, nil)
	err := trig.Start(func(Event) {})
	require.Error(t, err)
	assert.Equal(t, store.CodeWatcher, store.CodeOf(err))
	require.NoError(t, trig.Stop())
}
