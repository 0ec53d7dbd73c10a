package orchestrators

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	calendarStore "github.com/utamadigital/30-hari-new/internal/adapters/storage/calendar"
	"github.com/utamadigital/30-hari-new/internal/application/events"
)

// DefaultSessionIdle is how long an untouched session stays mounted.
const DefaultSessionIdle = 24 * time.Hour

// sweepInterval bounds how often WithSession scans for idle sessions.
const sweepInterval = time.Minute

// ErrEmptyVisitor is returned when no visitor id is given.
var ErrEmptyVisitor = errors.New("visitor id is required")

// SessionRegistryDeps holds dependencies for a SessionRegistry.
type SessionRegistryDeps struct {
	// NewStore returns the persistence adapter scoped to one visitor.
	NewStore func(visitorID string) calendarStore.Store
	// Emitter receives the events of every session. Optional.
	Emitter  events.Emitter
	Logger   *zap.Logger
	Now      func() time.Time
	Location *time.Location
	// Idle defaults to DefaultSessionIdle.
	Idle time.Duration
}

type sessionEntry struct {
	mu       sync.Mutex
	session  *CalendarSession
	recorder *events.Recorder
	lastUsed time.Time
}

// SessionRegistry keeps one mounted CalendarSession per visitor.
// Expired sessions are unmounted from memory; their persisted state is untouched.
type SessionRegistry struct {
	deps SessionRegistryDeps

	mu        sync.Mutex
	entries   map[string]*sessionEntry
	lastSweep time.Time
}

// NewSessionRegistry creates an empty registry.
// PRE: deps.NewStore is non-nil
func NewSessionRegistry(deps SessionRegistryDeps) *SessionRegistry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Idle <= 0 {
		deps.Idle = DefaultSessionIdle
	}
	return &SessionRegistry{deps: deps, entries: make(map[string]*sessionEntry)}
}

// WithSession runs fn against the visitor's session, mounting it on first use.
// PRE: visitorID is non-empty
// POST: fn runs while holding the session lock; returns the events emitted during fn
func (r *SessionRegistry) WithSession(ctx context.Context, visitorID string, fn func(s *CalendarSession) error) ([]events.Event, error) {
	if visitorID == "" {
		return nil, ErrEmptyVisitor
	}
	entry, err := r.entry(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.recorder.Reset()
	entry.lastUsed = r.deps.Now()
	fnErr := fn(entry.session)
	return entry.recorder.Events(), fnErr
}

// entry returns the mounted entry for visitorID, mounting a new session if needed.
func (r *SessionRegistry) entry(ctx context.Context, visitorID string) (*sessionEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.deps.Now()
	if now.Sub(r.lastSweep) >= sweepInterval {
		r.sweepLocked(now)
	}
	if e, ok := r.entries[visitorID]; ok {
		return e, nil
	}
	if r.deps.NewStore == nil {
		return nil, ErrNoCalendarStore
	}

	rec := &events.Recorder{}
	bus := events.NewBus(rec)
	if r.deps.Emitter != nil {
		bus.Subscribe(events.ObserverFunc(r.deps.Emitter.Emit))
	}
	session, err := NewCalendarSession(ctx, CalendarSessionDeps{
		Store:    r.deps.NewStore(visitorID),
		Emitter:  bus,
		Logger:   r.deps.Logger.With(zap.String("visitor_id", visitorID)),
		Now:      r.deps.Now,
		Location: r.deps.Location,
	})
	if err != nil {
		return nil, err
	}
	e := &sessionEntry{session: session, recorder: rec, lastUsed: now}
	r.entries[visitorID] = e
	r.deps.Logger.Debug("calendar_session_mounted", zap.String("visitor_id", visitorID))
	return e, nil
}

// Sweep unmounts sessions idle for longer than the configured idle time.
// POST: Returns the number of sessions unmounted
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.deps.Now())
}

func (r *SessionRegistry) sweepLocked(now time.Time) int {
	r.lastSweep = now
	removed := 0
	for id, e := range r.entries {
		// Busy sessions are in use right now and therefore not idle.
		if !e.mu.TryLock() {
			continue
		}
		idle := now.Sub(e.lastUsed) > r.deps.Idle
		e.mu.Unlock()
		if idle {
			delete(r.entries, id)
			removed++
		}
	}
	if removed > 0 {
		r.deps.Logger.Debug("calendar_sessions_unmounted", zap.Int("count", removed))
	}
	return removed
}

// Unmount drops a visitor's session from memory.
func (r *SessionRegistry) Unmount(visitorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, visitorID)
}

// Len returns the number of mounted sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
