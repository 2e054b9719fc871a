package mileage

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"backend-mileagehub/internal/gps"

	"github.com/google/uuid"
)

var ErrNoStartRecord = errors.New("no start record exists for today")

// Clock is injected so day bucketing and audit timestamps are deterministic
// in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Tracking is the slice of the GPS tracker the orchestrator drives.
// *gps.Tracker satisfies it.
type Tracking interface {
	Start(ctx context.Context) (gps.TrackingRecord, error)
	Stop() (gps.TrackingRecord, error)
	IsTracking() bool
}

// Service owns all record creation and mutation. Every mutating call is
// append-then-update: the audit entry describing the action is durably
// written before the record upsert, so the ledger records intent even if
// the process dies between the two writes.
type Service struct {
	store   Store
	tracker Tracking
	clock   Clock
	th      Thresholds

	mu       sync.Mutex
	dayLocks map[string]*sync.Mutex
}

func NewService(store Store, tracker Tracking, clock Clock, th Thresholds) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}
	return &Service{
		store:    store,
		tracker:  tracker,
		clock:    clock,
		th:       th,
		dayLocks: map[string]*sync.Mutex{},
	}
}

type StartInput struct {
	DriverID   string
	MileageKm  float64
	GPSEnabled bool
	DeviceInfo string
}

type EndInput struct {
	DriverID      string
	MileageKm     float64
	Source        Source
	GPSDistanceKm *float64
	DeviceInfo    string
}

// lockDay serializes mutating calls per (driver, date) so concurrent starts
// cannot break the one-record-per-day invariant.
func (s *Service) lockDay(driverID string, day time.Time) func() {
	key := driverID + "|" + day.Format("2006-01-02")
	s.mu.Lock()
	m, ok := s.dayLocks[key]
	if !ok {
		m = &sync.Mutex{}
		s.dayLocks[key] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// RecordStart opens (or re-opens) today's record. When GPS start fails the
// record is still persisted in manual mode and the GPS error is returned
// alongside it so the caller can offer the manual fallback.
func (s *Service) RecordStart(ctx context.Context, in StartInput) (Record, error) {
	if err := CheckRange(in.MileageKm); err != nil {
		return Record{}, err
	}

	now := s.clock.Now()
	day := DayOf(now)
	unlock := s.lockDay(in.DriverID, day)
	defer unlock()

	existing, err := s.store.GetByDate(ctx, in.DriverID, day)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	action := AuditCreate
	var oldStart *float64
	if existing != nil {
		rec = *existing
		action = AuditModify
		prev := rec.StartMileage
		oldStart = &prev
	} else {
		rec = Record{
			ID:        uuid.NewString(),
			DriverID:  in.DriverID,
			Date:      day,
			CreatedAt: now,
		}
	}

	rec.StartMileage = in.MileageKm
	rec.Source = SourceManual
	if in.GPSEnabled {
		rec.Source = SourceGPS
	}
	rec.UpdatedAt = now

	newStart := in.MileageKm
	entry := AuditEntry{
		ID:         uuid.NewString(),
		RecordID:   rec.ID,
		Timestamp:  now,
		Action:     action,
		OldValue:   oldStart,
		NewValue:   &newStart,
		Reason:     "start mileage recorded",
		UserID:     in.DriverID,
		DeviceInfo: in.DeviceInfo,
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		return Record{}, err
	}
	rec, err = s.store.Upsert(ctx, rec)
	if err != nil {
		return Record{}, err
	}

	if in.GPSEnabled {
		trk, gpsErr := s.tracker.Start(ctx)
		if gpsErr != nil {
			rec.Source = SourceManual
			rec.UpdatedAt = s.clock.Now()
			fallback := AuditEntry{
				ID:         uuid.NewString(),
				RecordID:   rec.ID,
				Timestamp:  rec.UpdatedAt,
				Action:     AuditGPSStart,
				Reason:     "gps start failed (" + string(gps.StartErrorCodeOf(gpsErr)) + "); falling back to manual tracking",
				UserID:     in.DriverID,
				DeviceInfo: in.DeviceInfo,
			}
			if err := s.store.AppendAudit(ctx, fallback); err != nil {
				log.Printf("audit append failed after gps fallback: %v", err)
			}
			if updated, err := s.store.Upsert(ctx, rec); err != nil {
				log.Printf("record upsert failed after gps fallback: %v", err)
			} else {
				rec = updated
			}
			return rec, gpsErr
		}

		started := AuditEntry{
			ID:         uuid.NewString(),
			RecordID:   rec.ID,
			Timestamp:  s.clock.Now(),
			Action:     AuditGPSStart,
			Reason:     "gps tracking started: " + trk.TrackingID,
			UserID:     in.DriverID,
			DeviceInfo: in.DeviceInfo,
		}
		if err := s.store.AppendAudit(ctx, started); err != nil {
			return Record{}, err
		}
	}

	return rec, nil
}

// RecordEnd closes today's record. A running GPS session is stopped first;
// stop failures are logged and do not block completion, the manual reading
// stays authoritative.
func (s *Service) RecordEnd(ctx context.Context, in EndInput) (Record, error) {
	if err := CheckRange(in.MileageKm); err != nil {
		return Record{}, err
	}

	now := s.clock.Now()
	day := DayOf(now)
	unlock := s.lockDay(in.DriverID, day)
	defer unlock()

	existing, err := s.store.GetByDate(ctx, in.DriverID, day)
	if err != nil {
		return Record{}, err
	}
	if existing == nil {
		return Record{}, ErrNoStartRecord
	}
	rec := *existing

	distance := in.MileageKm - rec.StartMileage
	if in.Source == SourceGPS && in.GPSDistanceKm != nil {
		distance = *in.GPSDistanceKm
	}
	gpsDistance := in.GPSDistanceKm

	if s.tracker.IsTracking() {
		trk, stopErr := s.tracker.Stop()
		if stopErr != nil {
			log.Printf("gps stop failed, completing with manual value: %v", stopErr)
		} else {
			total := trk.TotalKm
			if gpsDistance == nil {
				gpsDistance = &total
				if in.Source == SourceGPS {
					distance = total
				}
			}
			stopped := AuditEntry{
				ID:         uuid.NewString(),
				RecordID:   rec.ID,
				Timestamp:  now,
				Action:     AuditGPSStop,
				NewValue:   &total,
				Reason:     "gps tracking stopped: " + trk.TrackingID,
				UserID:     in.DriverID,
				DeviceInfo: in.DeviceInfo,
			}
			if err := s.store.AppendAudit(ctx, stopped); err != nil {
				return Record{}, err
			}
		}
	}

	res := Validate(rec.StartMileage, &in.MileageKm, gpsDistance, s.th)
	for i, flag := range res.Flags {
		entry := AuditEntry{
			ID:         uuid.NewString(),
			RecordID:   rec.ID,
			Timestamp:  now,
			Action:     AuditValidate,
			Reason:     string(flag) + ": " + res.Warnings[i],
			UserID:     in.DriverID,
			DeviceInfo: in.DeviceInfo,
		}
		if err := s.store.AppendAudit(ctx, entry); err != nil {
			return Record{}, err
		}
	}

	oldEnd := rec.EndMileage
	newEnd := in.MileageKm
	rec.EndMileage = &newEnd
	rec.Distance = &distance
	rec.Source = in.Source
	rec.UpdatedAt = now

	modify := AuditEntry{
		ID:         uuid.NewString(),
		RecordID:   rec.ID,
		Timestamp:  now,
		Action:     AuditModify,
		OldValue:   oldEnd,
		NewValue:   &newEnd,
		Reason:     "end mileage recorded",
		UserID:     in.DriverID,
		DeviceInfo: in.DeviceInfo,
	}
	if err := s.store.AppendAudit(ctx, modify); err != nil {
		return Record{}, err
	}
	return s.store.Upsert(ctx, rec)
}

// CurrentDayRecord returns the record for the given date (today when nil),
// with its audit trail attached, or nil when none exists.
func (s *Service) CurrentDayRecord(ctx context.Context, driverID string, date *time.Time) (*Record, error) {
	day := DayOf(s.clock.Now())
	if date != nil {
		day = DayOf(*date)
	}
	rec, err := s.store.GetByDate(ctx, driverID, day)
	if err != nil || rec == nil {
		return nil, err
	}
	trail, err := s.store.AuditTrail(ctx, driverID, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.AuditLog = trail
	return rec, nil
}

func (s *Service) History(ctx context.Context, driverID string, from, to time.Time) ([]Record, error) {
	return s.store.QueryRange(ctx, driverID, from, to)
}

func (s *Service) DetectAnomalies(ctx context.Context, driverID string, from, to time.Time) ([]AnomalyReport, error) {
	records, err := s.store.QueryRange(ctx, driverID, from, to)
	if err != nil {
		return nil, err
	}
	return DetectAnomalies(records, s.th), nil
}

// ValidateMileage runs the rule engine without touching any record.
func (s *Service) ValidateMileage(start float64, end, gpsDistanceKm *float64) (ValidationResult, error) {
	if err := CheckRange(start); err != nil {
		return ValidationResult{}, err
	}
	if end != nil {
		if err := CheckRange(*end); err != nil {
			return ValidationResult{}, err
		}
	}
	return Validate(start, end, gpsDistanceKm, s.th), nil
}

func (s *Service) AuditTrail(ctx context.Context, driverID, recordID string) ([]AuditEntry, error) {
	return s.store.AuditTrail(ctx, driverID, recordID)
}
