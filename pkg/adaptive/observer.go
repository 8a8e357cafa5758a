package adaptive

import (
	"github.com/google/uuid"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

// SwitchListener receives every executed switch decision.
type SwitchListener func(Decision)

// PerformanceListener receives every accepted performance update.
type PerformanceListener func(protocol.ID, PerformanceRecord)

// Subscription represents a registered listener. Unsubscribe stops delivery;
// it is safe to call more than once.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// Unsubscribe removes the listener.
	Unsubscribe()
}

type subscription struct {
	id     string
	cancel func()
}

func (s *subscription) ID() string { return s.id }

func (s *subscription) Unsubscribe() { s.cancel() }

// switchSubscribers holds registered switch listeners. Access is serialized
// by the owning engine's mutex; snapshots are taken under the lock and
// listeners are invoked after it is released.
type switchSubscribers struct {
	listeners map[string]SwitchListener
}

func newSwitchSubscribers() *switchSubscribers {
	return &switchSubscribers{listeners: make(map[string]SwitchListener)}
}

func (s *switchSubscribers) add(fn SwitchListener) string {
	id := uuid.NewString()
	s.listeners[id] = fn
	return id
}

func (s *switchSubscribers) remove(id string) {
	delete(s.listeners, id)
}

func (s *switchSubscribers) snapshot() []SwitchListener {
	out := make([]SwitchListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

// perfSubscribers holds registered performance listeners.
type perfSubscribers struct {
	listeners map[string]PerformanceListener
}

func newPerfSubscribers() *perfSubscribers {
	return &perfSubscribers{listeners: make(map[string]PerformanceListener)}
}

func (s *perfSubscribers) add(fn PerformanceListener) string {
	id := uuid.NewString()
	s.listeners[id] = fn
	return id
}

func (s *perfSubscribers) remove(id string) {
	delete(s.listeners, id)
}

func (s *perfSubscribers) snapshot() []PerformanceListener {
	out := make([]PerformanceListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}
