package mileage

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestCalculatedDistancePrecedence(t *testing.T) {
	rec := Record{StartMileage: 100, EndMileage: f(150), Distance: f(42)}
	if got := rec.CalculatedDistance(); got != 50 {
		t.Fatalf("odometer difference wins: got %v", got)
	}
	rec = Record{StartMileage: 100, Distance: f(42)}
	if got := rec.CalculatedDistance(); got != 42 {
		t.Fatalf("gps distance stands in: got %v", got)
	}
	rec = Record{StartMileage: 100}
	if got := rec.CalculatedDistance(); got != 0 {
		t.Fatalf("nothing recorded yet: got %v", got)
	}
}

func TestDerivedFlags(t *testing.T) {
	rec := Record{StartMileage: 100, EndMileage: f(150)}
	if rec.HasMeterReversal() {
		t.Fatalf("end >= start is not a reversal")
	}
	if !rec.IsComplete() {
		t.Fatalf("record with end reading is complete")
	}

	rec = Record{StartMileage: 200, EndMileage: f(150)}
	if !rec.HasMeterReversal() {
		t.Fatalf("end < start is a reversal")
	}
	if !rec.HasAnomalies(1000) {
		t.Fatalf("negative distance is anomalous")
	}

	rec = Record{StartMileage: 100, Source: SourceGPS, Distance: f(30)}
	if !rec.IsComplete() {
		t.Fatalf("gps record with distance is complete")
	}
	rec.Source = SourceManual
	if rec.IsComplete() {
		t.Fatalf("manual record without end reading is incomplete")
	}
}

func TestDayOf(t *testing.T) {
	at := time.Date(2026, 3, 15, 22, 45, 11, 0, time.FixedZone("JST", 9*3600))
	got := DayOf(at)
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if DayOf(got) != got {
		t.Fatalf("normalizing twice must be stable")
	}
}

func TestRecordJSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC)
	rec := Record{
		ID:           "rec-1",
		DriverID:     "driver-1",
		Date:         DayOf(now),
		StartMileage: 100,
		EndMileage:   f(150),
		Distance:     f(50),
		Source:       SourceHybrid,
		AuditLog: []AuditEntry{
			{ID: "a-1", RecordID: "rec-1", Timestamp: now, Action: AuditCreate, NewValue: f(100), Reason: "start mileage recorded", UserID: "driver-1", DeviceInfo: "pixel-8"},
			{ID: "a-2", RecordID: "rec-1", Timestamp: now.Add(8 * time.Hour), Action: AuditModify, OldValue: nil, NewValue: f(150), Reason: "end mileage recorded"},
		},
		CreatedAt: now,
		UpdatedAt: now.Add(8 * time.Hour),
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Record
	if err := json.Unmarshal(payload, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(rec, back) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", rec, back)
	}
}

func TestEnumJSONSpelling(t *testing.T) {
	payload, _ := json.Marshal(AuditEntry{Action: AuditGPSStart})
	if want := `"action":"gpsStart"`; !strings.Contains(string(payload), want) {
		t.Fatalf("expected %s in %s", want, payload)
	}
	payload, _ = json.Marshal(Record{Source: SourceManual})
	if want := `"source":"manual"`; !strings.Contains(string(payload), want) {
		t.Fatalf("expected %s in %s", want, payload)
	}
}
