package gps

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"backend-mileagehub/internal/stream"

	"github.com/google/uuid"
)

type State int

const (
	StateIdle State = iota
	StateActive
	StateStopped
)

const (
	// First fixes worse than this accuracy are treated as a weak signal.
	weakSignalAccuracyM = 100.0

	// Cap on the debug point buffer kept on the record.
	maxDebugPoints = 500
)

var nowFn = time.Now

// DistanceUpdate is the payload broadcast to stream subscribers on every
// accepted sample.
type DistanceUpdate struct {
	TrackingID string  `json:"tracking_id"`
	DeltaKm    float64 `json:"delta_km"`
	TotalKm    float64 `json:"total_km"`
	ValidRate  float64 `json:"validity_rate"`
}

// Session is one tracking interval: Idle -> Active -> Stopped, no re-entry.
// A stopped session is finished for good; the Tracker creates a fresh one
// per recording.
type Session struct {
	mu       sync.Mutex
	state    State
	record   TrackingRecord
	acc      *Accumulator
	provider Provider
	hub      *stream.Hub

	firstFixTimeout time.Duration
	cancel          context.CancelFunc
	done            chan struct{}
}

func newSession(provider Provider, hub *stream.Hub, maxSpeedMps float64, firstFixTimeout time.Duration) *Session {
	return &Session{
		acc:             NewAccumulator(maxSpeedMps),
		provider:        provider,
		hub:             hub,
		firstFixTimeout: firstFixTimeout,
	}
}

// Start transitions Idle -> Active. On any failure the session stays Idle
// with nothing half-initialized, and the error carries a typed code the
// caller uses to fall back to manual recording.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	s.mu.Unlock()

	perm, err := s.provider.CheckPermission(ctx)
	if err != nil {
		return &StartError{Code: StartUnknown, Err: err}
	}
	switch perm {
	case PermissionDenied:
		return &StartError{Code: StartPermissionDenied}
	case PermissionServiceDisabled:
		return &StartError{Code: StartServiceDisabled}
	}

	fixCtx, cancelFix := context.WithTimeout(ctx, s.firstFixTimeout)
	first, err := s.provider.CurrentPosition(fixCtx)
	cancelFix()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &StartError{Code: StartTimeout, Err: err}
		}
		return &StartError{Code: StartUnknown, Err: err}
	}
	if first.AccuracyM != nil && *first.AccuracyM > weakSignalAccuracyM {
		return &StartError{Code: StartSignalWeak}
	}

	// The stream outlives the start request; it is bound to Stop, not to
	// the caller's ctx.
	streamCtx, cancel := context.WithCancel(context.Background())
	points, err := s.provider.Positions(streamCtx)
	if err != nil {
		cancel()
		return &StartError{Code: StartUnknown, Err: err}
	}

	// Stop may have poisoned the session while the permission check or the
	// first fix was still in flight; never go Active after that.
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		cancel()
		return &StartError{Code: StartCancelled}
	}
	s.state = StateActive
	s.record = TrackingRecord{
		TrackingID: uuid.NewString(),
		StartTime:  nowFn(),
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.consume(points)
	return nil
}

func (s *Session) consume(points <-chan LocationPoint) {
	defer close(s.done)
	for point := range points {
		s.mu.Lock()
		if s.state != StateActive {
			// Stop already requested; drain and drop.
			s.mu.Unlock()
			continue
		}
		if point.Timestamp.IsZero() {
			point.Timestamp = nowFn()
		}
		upd := s.acc.Feed(point)
		s.record.TotalKm = upd.TotalKm
		s.record.Quality = upd.Metrics
		if len(s.record.LocationPoints) < maxDebugPoints {
			s.record.LocationPoints = append(s.record.LocationPoints, point)
		}
		trackingID := s.record.TrackingID
		s.mu.Unlock()

		if s.hub != nil && upd.Accepted {
			payload, _ := json.Marshal(DistanceUpdate{
				TrackingID: trackingID,
				DeltaKm:    upd.DeltaKm,
				TotalKm:    upd.TotalKm,
				ValidRate:  upd.Metrics.ValidityRate(),
			})
			s.hub.Broadcast(trackingID, payload)
		}
	}
}

// Stop finalizes the session. On an Idle session it moves straight to
// Stopped, which aborts a Start still negotiating its first fix. Calling it
// again returns the last known record without error.
func (s *Session) Stop() TrackingRecord {
	s.mu.Lock()
	if s.state != StateActive {
		s.state = StateStopped
		rec := s.record
		s.mu.Unlock()
		return rec
	}
	s.state = StateStopped
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	end := nowFn()
	s.record.EndTime = &end
	s.record.IsComplete = true
	s.record.TotalKm = s.acc.TotalKm()
	s.record.Quality = s.acc.Metrics()
	rec := s.record
	s.mu.Unlock()
	return rec
}

func (s *Session) Snapshot() TrackingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

func (s *Session) StateNow() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
