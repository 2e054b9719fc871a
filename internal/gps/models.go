package gps

import "time"

// LocationPoint is a single raw fix from a location provider. Points are
// immutable once created.
type LocationPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	AccuracyM *float64  `json:"accuracy,omitempty"`
	SpeedMps  *float64  `json:"speed,omitempty"`
}

type QualityMetrics struct {
	AccuracyPercentage  float64 `json:"accuracy_percentage"`
	SignalQuality       float64 `json:"signal_quality"`
	BatteryImpact       float64 `json:"battery_impact"`
	TotalLocationPoints int     `json:"total_location_points"`
	ValidLocationPoints int     `json:"valid_location_points"`
}

func (m QualityMetrics) QualityScore() float64 {
	return (m.AccuracyPercentage + m.SignalQuality*100) / 2
}

func (m QualityMetrics) ValidityRate() float64 {
	if m.TotalLocationPoints == 0 {
		return 0
	}
	return float64(m.ValidLocationPoints) / float64(m.TotalLocationPoints)
}

// TrackingRecord is the finalized (or in-flight) result of one tracking
// session. LocationPoints is a bounded debug buffer, not the full trace.
type TrackingRecord struct {
	TrackingID     string          `json:"tracking_id"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        *time.Time      `json:"end_time,omitempty"`
	TotalKm        float64         `json:"total_distance_km"`
	IsComplete     bool            `json:"is_complete"`
	Quality        QualityMetrics  `json:"quality_metrics"`
	LocationPoints []LocationPoint `json:"location_points,omitempty"`
}
