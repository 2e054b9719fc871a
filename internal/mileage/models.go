package mileage

import "time"

type Source string

const (
	SourceManual Source = "manual"
	SourceGPS    Source = "gps"
	SourceHybrid Source = "hybrid"
)

type AuditAction string

const (
	AuditCreate   AuditAction = "create"
	AuditModify   AuditAction = "modify"
	AuditDelete   AuditAction = "delete"
	AuditGPSStart AuditAction = "gpsStart"
	AuditGPSStop  AuditAction = "gpsStop"
	AuditValidate AuditAction = "validate"
)

// Record is one driver's odometer readings for one calendar date. There is
// never more than one per (driver, date); a second start on the same day
// updates the existing row.
type Record struct {
	ID           string       `json:"id"`
	DriverID     string       `json:"driver_id"`
	Date         time.Time    `json:"date"`
	StartMileage float64      `json:"start_mileage"`
	EndMileage   *float64     `json:"end_mileage,omitempty"`
	Distance     *float64     `json:"distance,omitempty"`
	Source       Source       `json:"source"`
	AuditLog     []AuditEntry `json:"audit_log,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CalculatedDistance prefers the odometer difference; the GPS-derived
// distance only stands in while the end reading is absent.
func (r Record) CalculatedDistance() float64 {
	switch {
	case r.EndMileage != nil:
		return *r.EndMileage - r.StartMileage
	case r.Distance != nil:
		return *r.Distance
	default:
		return 0
	}
}

func (r Record) IsComplete() bool {
	return r.EndMileage != nil || (r.Source == SourceGPS && r.Distance != nil)
}

func (r Record) HasMeterReversal() bool {
	return r.EndMileage != nil && *r.EndMileage < r.StartMileage
}

// HasAnomalies reports whether the derived distance falls outside the
// plausible daily window.
func (r Record) HasAnomalies(dailyCeilingKm float64) bool {
	d := r.CalculatedDistance()
	return d > dailyCeilingKm || d < 0
}

// AuditEntry is one immutable ledger row. Entries are only ever appended;
// replaying them in order reconstructs how a record reached its state.
type AuditEntry struct {
	ID         string      `json:"id"`
	RecordID   string      `json:"record_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Action     AuditAction `json:"action"`
	OldValue   *float64    `json:"old_value,omitempty"`
	NewValue   *float64    `json:"new_value,omitempty"`
	Reason     string      `json:"reason"`
	UserID     string      `json:"user_id,omitempty"`
	DeviceInfo string      `json:"device_info,omitempty"`
}

// DayOf normalizes a timestamp to its calendar date bucket (midnight UTC).
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
