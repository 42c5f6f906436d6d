package trigger

import (
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var log = logger.GetLogger("trigger")

// Kind classifies a change.
type Kind uint8

const (
	Modified Kind = iota + 1 // created or written
	Deleted                  // removed or renamed away
)

func (k Kind) String() string {
	switch k {
	case Modified:
		return "Modified"
	case Deleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// Event is delivered to the handler of a trigger.
type Event struct {
	Kind Kind
	Path string // watched path or object name
}

// Handler receives debounced events. It must not call Stop of its own trigger.
type Handler func(Event)

// Trigger watches one resource.
type Trigger interface {
	// Start begins watching. It fails if the watch can not be set up or the
	// trigger was started before.
	Start(handler Handler) error
	// Stop ends the watch and waits for the watch goroutine. It returns the error
	// that ended the watch early, if any.
	Stop() error
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// counters shared by the implementations
type counters struct {
	registry  metrics.Registry
	events    metrics.Counter // raw events for the watched resource
	coalesced metrics.Counter // events absorbed by a pending debounce
	fired     metrics.Counter // handler calls
}

func newCounters() counters {
	r := metrics.NewRegistry()
	return counters{
		registry:  r,
		events:    metrics.GetOrRegisterCounter("events", r),
		coalesced: metrics.GetOrRegisterCounter("coalesced", r),
		fired:     metrics.GetOrRegisterCounter("fired", r),
	}
}
