package mileage

import (
	"errors"
	"fmt"
)

// Odometer readings outside this window are rejected outright, before any
// of the softer validation rules run.
const (
	MinMileageKm = 0.0
	MaxMileageKm = 999_999.0
)

var ErrMileageOutOfRange = errors.New("mileage value out of range")

func CheckRange(valueKm float64) error {
	if valueKm < MinMileageKm || valueKm > MaxMileageKm {
		return fmt.Errorf("%w: %v km not in [%v, %v]", ErrMileageOutOfRange, valueKm, MinMileageKm, MaxMileageKm)
	}
	return nil
}

// Thresholds are the business limits the validation rules run against.
// Config can override the stock values per deployment.
type Thresholds struct {
	MaxDailyDistanceKm float64
	MismatchRelative   float64
	MismatchMinKm      float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxDailyDistanceKm: 1000,
		MismatchRelative:   0.10,
		MismatchMinKm:      5.0,
	}
}

type Flag string

const (
	FlagMeterReversal     Flag = "METER_REVERSAL"
	FlagExcessiveDistance Flag = "EXCESSIVE_DISTANCE"
	FlagGPSMismatch       Flag = "GPS_MILEAGE_MISMATCH"

	// Raised only by the anomaly scan, for negative GPS-derived distances
	// on records without an end reading.
	FlagNegativeDistance Flag = "NEGATIVE_DISTANCE"
)

type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Warnings []string `json:"warnings"`
	Flags    []Flag   `json:"flags"`
}

func (r ValidationResult) HasFlag(f Flag) bool {
	for _, have := range r.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// Validate evaluates a candidate (start, end, gpsDistance) triple. The rules
// are independent; several flags can fire on one triple. Flags never block
// persistence, they mark the record for human review.
func Validate(start float64, end, gpsDistanceKm *float64, th Thresholds) ValidationResult {
	res := ValidationResult{IsValid: true}

	if end != nil {
		manual := *end - start
		if manual < 0 {
			res.IsValid = false
			res.Flags = append(res.Flags, FlagMeterReversal)
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("end mileage %.1f is below start mileage %.1f; the odometer may have been replaced or rolled back", *end, start))
		}
		if manual > th.MaxDailyDistanceKm {
			res.IsValid = false
			res.Flags = append(res.Flags, FlagExcessiveDistance)
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("daily distance %.1f km exceeds the %.0f km ceiling", manual, th.MaxDailyDistanceKm))
		}
		if gpsDistanceKm != nil {
			threshold := manual * th.MismatchRelative
			if threshold < th.MismatchMinKm {
				threshold = th.MismatchMinKm
			}
			diff := manual - *gpsDistanceKm
			if diff < 0 {
				diff = -diff
			}
			if diff > threshold {
				res.IsValid = false
				res.Flags = append(res.Flags, FlagGPSMismatch)
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("manual distance %.1f km and GPS distance %.1f km differ by %.1f km (tolerance %.1f km)", manual, *gpsDistanceKm, diff, threshold))
			}
		}
	}

	return res
}
