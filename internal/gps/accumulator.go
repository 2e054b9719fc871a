package gps

import (
	"backend-mileagehub/internal/shared/geo"
)

const (
	// DefaultMaxSampleSpeedMps filters jitter and teleport fixes; 100 m/s
	// is 360 km/h, well above anything a road vehicle does.
	DefaultMaxSampleSpeedMps = 100.0

	// Fixes better than this accuracy count toward the accuracy percentage.
	goodFixAccuracyM = 20.0

	// Accuracy readings are mapped onto [0,1] signal quality against this span.
	signalAccuracySpanM = 50.0

	// Rough per-fix battery cost estimate, capped at 1.
	batteryCostPerPoint = 0.001
)

// Update describes the accumulator state after one sample.
type Update struct {
	Accepted bool           `json:"accepted"`
	DeltaKm  float64        `json:"delta_km"`
	TotalKm  float64        `json:"total_km"`
	Metrics  QualityMetrics `json:"metrics"`
}

// Accumulator consumes position samples in arrival order, rejects implausible
// jumps and keeps the running distance and quality tally for one session.
// It is not safe for concurrent use; the session feeds it from a single
// consumer goroutine.
type Accumulator struct {
	maxSpeedMps float64
	prev        *LocationPoint
	totalKm     float64
	metrics     QualityMetrics
	signalSum   float64
	goodFixes   int
}

func NewAccumulator(maxSpeedMps float64) *Accumulator {
	if maxSpeedMps <= 0 {
		maxSpeedMps = DefaultMaxSampleSpeedMps
	}
	return &Accumulator{maxSpeedMps: maxSpeedMps}
}

func (a *Accumulator) Feed(p LocationPoint) Update {
	a.metrics.TotalLocationPoints++

	if p.AccuracyM != nil {
		q := 1 - *p.AccuracyM/signalAccuracySpanM
		if q < 0 {
			q = 0
		}
		a.signalSum += q
		if *p.AccuracyM <= goodFixAccuracyM {
			a.goodFixes++
		}
	} else {
		// No accuracy estimate from the provider; assume a middling fix.
		a.signalSum += 0.5
		a.goodFixes++
	}

	deltaKm := 0.0
	accepted := true
	if a.prev != nil {
		deltaKm = geo.HaversineKm(a.prev.Latitude, a.prev.Longitude, p.Latitude, p.Longitude)
		elapsed := p.Timestamp.Sub(a.prev.Timestamp).Seconds()
		if elapsed <= 0 {
			elapsed = 1
		}
		if deltaKm*1000/elapsed >= a.maxSpeedMps {
			accepted = false
			deltaKm = 0
		}
	}

	// The previous pointer always advances so one bad fix cannot poison
	// every later delta.
	point := p
	a.prev = &point

	if accepted {
		a.totalKm += deltaKm
		a.metrics.ValidLocationPoints++
	}

	return Update{
		Accepted: accepted,
		DeltaKm:  deltaKm,
		TotalKm:  a.totalKm,
		Metrics:  a.snapshotMetrics(),
	}
}

func (a *Accumulator) TotalKm() float64 {
	return a.totalKm
}

func (a *Accumulator) Metrics() QualityMetrics {
	return a.snapshotMetrics()
}

func (a *Accumulator) snapshotMetrics() QualityMetrics {
	m := a.metrics
	if m.TotalLocationPoints > 0 {
		m.AccuracyPercentage = 100 * float64(a.goodFixes) / float64(m.TotalLocationPoints)
		m.SignalQuality = a.signalSum / float64(m.TotalLocationPoints)
	}
	m.BatteryImpact = float64(m.TotalLocationPoints) * batteryCostPerPoint
	if m.BatteryImpact > 1 {
		m.BatteryImpact = 1
	}
	return m
}
