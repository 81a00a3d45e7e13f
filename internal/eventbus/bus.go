// Package eventbus distributes device events to in-process subscribers.
//
// The set of event kinds is fixed. Each subscriber gets its own buffered
// queue drained by a dedicated goroutine, so Publish never blocks the
// notification path; when a subscriber falls behind, events for it are
// dropped and logged.
package eventbus

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/cgd1/internal/logging"
	"github.com/muurk/cgd1/internal/protocol"
)

// Kind enumerates the events the device publishes
type Kind int

const (
	Connected Kind = iota
	Disconnected
	ConfigurationUpdated
	AlarmsUpdated
)

func (k Kind) String() string {
	switch k {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case ConfigurationUpdated:
		return "configuration_updated"
	case AlarmsUpdated:
		return "alarms_updated"
	default:
		return "unknown"
	}
}

// Event is a single published occurrence. Configuration is set for
// ConfigurationUpdated; Alarms (ordered by slot) and Partial for AlarmsUpdated.
type Event struct {
	Kind          Kind
	At            time.Time
	Address       string
	Configuration *protocol.Configuration
	Alarms        []protocol.Alarm
	Partial       bool
}

// Handler receives events on the subscriber's own goroutine
type Handler func(Event)

// DefaultQueueSize is the per-subscriber buffer
const DefaultQueueSize = 64

// Subscription is the handle returned by Subscribe
type Subscription struct {
	id    uint64
	bus   *Bus
	kinds map[Kind]bool
	queue chan Event
	done  chan struct{}
}

// Unsubscribe detaches the subscription and waits for its goroutine to
// finish the event it is currently handling. Safe to call more than once.
// Must not be called from inside the subscription's own handler.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s)
	<-s.done
}

func (s *Subscription) wants(k Kind) bool {
	return len(s.kinds) == 0 || s.kinds[k]
}

// Bus is the publish/subscribe register
type Bus struct {
	mu        sync.RWMutex
	subs      map[uint64]*Subscription
	nextID    uint64
	queueSize int
	closed    bool
}

// New creates a bus with DefaultQueueSize buffers
func New() *Bus {
	return NewWithQueueSize(DefaultQueueSize)
}

// NewWithQueueSize creates a bus with the given per-subscriber buffer
func NewWithQueueSize(size int) *Bus {
	if size < 1 {
		size = 1
	}
	return &Bus{subs: make(map[uint64]*Subscription), queueSize: size}
}

// Subscribe registers handler for the given kinds (all kinds when none given)
func (b *Bus) Subscribe(handler Handler, kinds ...Kind) *Subscription {
	s := &Subscription{
		bus:   b,
		kinds: make(map[Kind]bool, len(kinds)),
		queue: make(chan Event, b.queueSize),
		done:  make(chan struct{}),
	}
	for _, k := range kinds {
		s.kinds[k] = true
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.done)
		return s
	}
	b.nextID++
	s.id = b.nextID
	b.subs[s.id] = s
	b.mu.Unlock()

	go func() {
		defer close(s.done)
		for ev := range s.queue {
			handler(ev)
		}
	}()
	return s
}

// Publish delivers ev to every interested subscriber without blocking
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		if !s.wants(ev.Kind) {
			continue
		}
		select {
		case s.queue <- ev:
		default:
			logging.Warn("Event dropped, subscriber queue full",
				zap.String("kind", ev.Kind.String()),
				zap.Uint64("subscriber", s.id),
			)
		}
	}
}

// Subscribers returns the number of live subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unsubscribes everyone. Publishing after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*Subscription)
	for _, s := range subs {
		close(s.queue)
	}
	b.mu.Unlock()

	for _, s := range subs {
		<-s.done
	}
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s.id]; ok {
		delete(b.subs, s.id)
		close(s.queue)
	}
}
