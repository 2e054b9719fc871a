package gps

import (
	"testing"
	"time"
)

func pt(lat, lng float64, at time.Time) LocationPoint {
	return LocationPoint{Timestamp: at, Latitude: lat, Longitude: lng}
}

func TestAccumulatorFirstSample(t *testing.T) {
	acc := NewAccumulator(0)
	upd := acc.Feed(pt(35.0, 139.0, time.Now()))
	if !upd.Accepted {
		t.Fatalf("first sample should be accepted")
	}
	if upd.TotalKm != 0 {
		t.Fatalf("no distance from a single sample, got %v", upd.TotalKm)
	}
	if upd.Metrics.TotalLocationPoints != 1 || upd.Metrics.ValidLocationPoints != 1 {
		t.Fatalf("unexpected point counts: %+v", upd.Metrics)
	}
}

func TestAccumulatorRejectsTeleport(t *testing.T) {
	acc := NewAccumulator(0)
	base := time.Now()
	acc.Feed(pt(35.0, 139.0, base))

	// ~500 m north in one second: 500 m/s, way past the filter.
	upd := acc.Feed(pt(35.0045, 139.0, base.Add(time.Second)))
	if upd.Accepted {
		t.Fatalf("teleport sample should be rejected")
	}
	if acc.TotalKm() != 0 {
		t.Fatalf("rejected sample must not accumulate, got %v", acc.TotalKm())
	}
	m := acc.Metrics()
	if m.TotalLocationPoints != 2 || m.ValidLocationPoints != 1 {
		t.Fatalf("unexpected counts: %+v", m)
	}
}

func TestAccumulatorAcceptsPlausibleSpeed(t *testing.T) {
	acc := NewAccumulator(0)
	base := time.Now()
	acc.Feed(pt(35.0, 139.0, base))

	// ~50 m in five seconds: 10 m/s.
	upd := acc.Feed(pt(35.00045, 139.0, base.Add(5*time.Second)))
	if !upd.Accepted {
		t.Fatalf("plausible sample should be accepted")
	}
	if upd.TotalKm < 0.045 || upd.TotalKm > 0.055 {
		t.Fatalf("expected ~0.05 km, got %v", upd.TotalKm)
	}
}

func TestAccumulatorPrevAdvancesOnReject(t *testing.T) {
	acc := NewAccumulator(0)
	base := time.Now()
	acc.Feed(pt(35.0, 139.0, base))
	acc.Feed(pt(35.0045, 139.0, base.Add(time.Second))) // rejected jump

	// Close to the rejected fix, so measured from it, not the first one.
	upd := acc.Feed(pt(35.00455, 139.0, base.Add(2*time.Second)))
	if !upd.Accepted {
		t.Fatalf("sample near last fix should be accepted")
	}
	if upd.TotalKm > 0.01 {
		t.Fatalf("delta should come from the advanced pointer, got %v km", upd.TotalKm)
	}
}

func TestAccumulatorMissingTimestampDefaultsOneSecond(t *testing.T) {
	acc := NewAccumulator(0)
	at := time.Now()
	acc.Feed(pt(35.0, 139.0, at))

	// Same timestamp: elapsed defaults to 1s, so 50 m reads as 50 m/s.
	upd := acc.Feed(pt(35.00045, 139.0, at))
	if !upd.Accepted {
		t.Fatalf("50 m/s is under the filter, should accept")
	}
}

func TestQualityMetricsDerived(t *testing.T) {
	m := QualityMetrics{AccuracyPercentage: 80, SignalQuality: 0.6, TotalLocationPoints: 10, ValidLocationPoints: 7}
	if got := m.QualityScore(); got != 70 {
		t.Fatalf("quality score: got %v", got)
	}
	if got := m.ValidityRate(); got != 0.7 {
		t.Fatalf("validity rate: got %v", got)
	}
	empty := QualityMetrics{}
	if empty.ValidityRate() != 0 {
		t.Fatalf("validity rate with no points must be 0")
	}
}

func TestAccumulatorAccuracyTracking(t *testing.T) {
	acc := NewAccumulator(0)
	good := 5.0
	bad := 80.0
	base := time.Now()
	acc.Feed(LocationPoint{Timestamp: base, Latitude: 35, Longitude: 139, AccuracyM: &good})
	m := acc.Feed(LocationPoint{Timestamp: base.Add(5 * time.Second), Latitude: 35.00001, Longitude: 139, AccuracyM: &bad}).Metrics
	if m.AccuracyPercentage != 50 {
		t.Fatalf("one of two fixes is good, got %v%%", m.AccuracyPercentage)
	}
	if m.SignalQuality <= 0 || m.SignalQuality >= 1 {
		t.Fatalf("signal quality out of range: %v", m.SignalQuality)
	}
	if m.BatteryImpact <= 0 || m.BatteryImpact > 1 {
		t.Fatalf("battery impact out of range: %v", m.BatteryImpact)
	}
}
