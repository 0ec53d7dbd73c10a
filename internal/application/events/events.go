// Package events carries calendar notifications from the session to whoever listens:
// the HTTP layer (to open the package sheet), logs, and tests.
package events

import (
	"slices"
	"sync"
	"time"
)

// Kind names what happened.
type Kind string

// Event kinds emitted by the calendar session.
const (
	KindCodeActivated         Kind = "code_activated"
	KindCodeRejected          Kind = "code_rejected"
	KindAccessReset           Kind = "access_reset"
	KindDayLocked             Kind = "day_locked"
	KindDayOpened             Kind = "day_opened"
	KindCompletionToggled     Kind = "completion_toggled"
	KindSelectionChanged      Kind = "selection_changed"
	KindStartDateChanged      Kind = "start_date_changed"
	KindPackageSheetRequested Kind = "package_sheet_requested"
)

// Event is one notification. Fields not relevant to a kind are left zero.
type Event struct {
	Kind       Kind
	At         time.Time
	Tier       string
	Category   string
	AgeGroupID string
	Day        int
	Completed  bool
	LockReason string
	StartDate  string
}

// Emitter receives events from the session.
type Emitter interface {
	Emit(e Event)
}

// Observer handles events delivered by a Bus.
type Observer interface {
	Notify(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// Notify calls f(e).
func (f ObserverFunc) Notify(e Event) { f(e) }

// Bus fans every emitted event out to its observers, synchronously and in subscription order.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	observers []subscription
}

type subscription struct {
	id       int
	observer Observer
}

// Compile-time check that *Bus satisfies Emitter.
var _ Emitter = (*Bus)(nil)

// NewBus creates a bus with the given observers already subscribed.
func NewBus(observers ...Observer) *Bus {
	b := &Bus{}
	for _, o := range observers {
		b.Subscribe(o)
	}
	return b
}

// Subscribe adds an observer. The returned func removes it again and is safe to call twice.
func (b *Bus) Subscribe(o Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, subscription{id: id, observer: o})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.observers = slices.DeleteFunc(b.observers, func(s subscription) bool { return s.id == id })
	}
}

// Emit delivers e to every observer.
// INVARIANT: observers may Subscribe or unsubscribe from inside Notify without deadlocking
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	snapshot := slices.Clone(b.observers)
	b.mu.RUnlock()
	for _, s := range snapshot {
		s.observer.Notify(e)
	}
}

// Len returns the number of subscribed observers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Discard drops every event.
type Discard struct{}

// Emit implements Emitter.
func (Discard) Emit(Event) {}

// Recorder keeps every event it sees. Used by the HTTP layer to collect the events
// of one request, and by tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Notify implements Observer.
func (r *Recorder) Notify(e Event) { r.Emit(e) }

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Has reports whether an event of kind k was recorded.
func (r *Recorder) Has(k Kind) bool {
	for _, e := range r.Events() {
		if e.Kind == k {
			return true
		}
	}
	return false
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
