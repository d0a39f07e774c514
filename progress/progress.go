// Package progress provides a lightweight tracker that keeps aggregated
// case counters (total, passed, failed, …) for a single conformance session.
// The tracker instance lives in the session context – every component that
// receives the context can atomically update the counters via the Delta
// helper without requiring a global registry.

package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted as the harness
// schedules and finishes cases.  The fields are signed and therefore can be
// either positive (increment) or negative (decrement).
type Delta struct {
	Total   int
	Passed  int
	Failed  int
	Running int
}

// Progress keeps aggregated case counters for one session.  It is safe for
// concurrent use.
type Progress struct {
	// Identification – informative only, filled when the session starts.
	SessionID string
	Fixtures  string
	StartedAt time.Time

	mux      sync.Mutex
	counters Snapshot
	onChange func(Snapshot)
}

// Snapshot is a read-only copy of the tracker state suitable for inspection
// outside the tracker's lock.
type Snapshot struct {
	SessionID string
	Fixtures  string
	StartedAt time.Time

	TotalCases   int
	PassedCases  int
	FailedCases  int
	RunningCases int
}

// Update applies the supplied delta to the tracker.  It is safe to call from
// multiple goroutines.  If an onChange callback has been registered it will be
// invoked with a copy of the updated counters outside the critical section so
// that the callback can perform slow operations (e.g. terminal writes)
// without blocking the session.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.mux.Lock()

	p.counters.TotalCases += d.Total
	p.counters.PassedCases += d.Passed
	p.counters.FailedCases += d.Failed
	p.counters.RunningCases += d.Running

	snapshot := p.snapshot()
	cb := p.onChange

	p.mux.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker state suitable for read-only
// inspection.
func (p *Progress) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.snapshot()
}

// snapshot assembles the copy; callers must hold the lock.
func (p *Progress) snapshot() Snapshot {
	s := p.counters
	s.SessionID = p.SessionID
	s.Fixtures = p.Fixtures
	s.StartedAt = p.StartedAt
	return s
}

// OnChange registers a callback that is invoked after every successful
// Update.  Passing nil disables the callback.  Only one callback can be
// active; subsequent calls overwrite the previous value.
func (p *Progress) OnChange(cb func(Snapshot)) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.onChange = cb
	p.mux.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Progress tracker, embeds it in a derived
// context and returns both.  The caller may optionally pass an onChange
// callback that will be invoked after every counter update.
func WithNewTracker(ctx context.Context, sessionID, fixtures string, onChange func(Snapshot)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		SessionID: sessionID,
		Fixtures:  fixtures,
		StartedAt: time.Now(),
		onChange:  onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the Progress tracker from ctx.  It returns (tracker,
// ok).  The second return value is false when the context carries no tracker.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// GetSnapshot is a convenience wrapper that combines FromContext and
// Snapshot.  The boolean return value is false when the context does not
// carry a tracker.
func GetSnapshot(ctx context.Context) (Snapshot, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Snapshot{}, false
}

// UpdateCtx is a helper that looks up the tracker in ctx (if any) and applies
// the supplied delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
