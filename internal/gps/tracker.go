package gps

import (
	"context"
	"sync"
	"time"

	"backend-mileagehub/internal/stream"
)

const DefaultFirstFixTimeout = 15 * time.Second

// Tracker owns the single active-session slot. All session lifecycle goes
// through it; callers never hold a Session directly.
type Tracker struct {
	provider        Provider
	hub             *stream.Hub
	maxSpeedMps     float64
	firstFixTimeout time.Duration

	mu     sync.Mutex
	active *Session
	last   TrackingRecord
}

func NewTracker(provider Provider, hub *stream.Hub, maxSpeedMps float64, firstFixTimeout time.Duration) *Tracker {
	if firstFixTimeout <= 0 {
		firstFixTimeout = DefaultFirstFixTimeout
	}
	return &Tracker{
		provider:        provider,
		hub:             hub,
		maxSpeedMps:     maxSpeedMps,
		firstFixTimeout: firstFixTimeout,
	}
}

// Start reserves the active slot, then brings the session up. On failure the
// slot is released and any already-running session is untouched.
func (t *Tracker) Start(ctx context.Context) (TrackingRecord, error) {
	sess := newSession(t.provider, t.hub, t.maxSpeedMps, t.firstFixTimeout)

	t.mu.Lock()
	if t.active != nil {
		t.mu.Unlock()
		return TrackingRecord{}, ErrAlreadyActive
	}
	t.active = sess
	t.mu.Unlock()

	if err := sess.Start(ctx); err != nil {
		t.mu.Lock()
		if t.active == sess {
			t.active = nil
		}
		t.mu.Unlock()
		return TrackingRecord{}, err
	}
	return sess.Snapshot(), nil
}

// Stop finalizes the active session and frees the slot. With no active
// session it returns the last finalized record; stopping twice is a no-op.
func (t *Tracker) Stop() (TrackingRecord, error) {
	t.mu.Lock()
	sess := t.active
	t.mu.Unlock()

	if sess == nil {
		t.mu.Lock()
		rec := t.last
		t.mu.Unlock()
		return rec, nil
	}

	rec := sess.Stop()

	t.mu.Lock()
	if t.active == sess {
		t.active = nil
	}
	if rec.IsComplete {
		t.last = rec
	} else {
		// Stopping a session that never went Active; keep the previous
		// finalized record.
		rec = t.last
	}
	t.mu.Unlock()
	return rec, nil
}

func (t *Tracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active != nil
}

// Snapshot returns the in-flight record of the active session, or the last
// finalized one.
func (t *Tracker) Snapshot() (TrackingRecord, bool) {
	t.mu.Lock()
	sess := t.active
	last := t.last
	t.mu.Unlock()

	if sess == nil {
		return last, false
	}
	return sess.Snapshot(), true
}

func (t *Tracker) CurrentDistanceKm() float64 {
	rec, _ := t.Snapshot()
	return rec.TotalKm
}

func (t *Tracker) CurrentQuality() QualityMetrics {
	rec, _ := t.Snapshot()
	return rec.Quality
}
