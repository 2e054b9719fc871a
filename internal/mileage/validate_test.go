package mileage

import (
	"errors"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestCheckRange(t *testing.T) {
	for _, v := range []float64{0, 1, 123456.7, 999_999} {
		if err := CheckRange(v); err != nil {
			t.Fatalf("value %v should be in range: %v", v, err)
		}
	}
	for _, v := range []float64{-0.1, -100, 1_000_000} {
		if err := CheckRange(v); !errors.Is(err, ErrMileageOutOfRange) {
			t.Fatalf("value %v should be rejected, got %v", v, err)
		}
	}
}

func TestValidateCleanTriple(t *testing.T) {
	res := Validate(100, f(150), nil, DefaultThresholds())
	if !res.IsValid || len(res.Flags) != 0 || len(res.Warnings) != 0 {
		t.Fatalf("expected clean result: %+v", res)
	}
}

func TestValidateMeterReversal(t *testing.T) {
	res := Validate(200, f(150), nil, DefaultThresholds())
	if res.IsValid {
		t.Fatalf("reversal must invalidate")
	}
	if !res.HasFlag(FlagMeterReversal) {
		t.Fatalf("expected METER_REVERSAL: %+v", res.Flags)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a replacement warning")
	}
}

func TestValidateExcessiveDistance(t *testing.T) {
	res := Validate(0, f(1500), nil, DefaultThresholds())
	if res.IsValid || !res.HasFlag(FlagExcessiveDistance) {
		t.Fatalf("expected EXCESSIVE_DISTANCE: %+v", res)
	}
}

func TestValidateGPSMismatch(t *testing.T) {
	// manual = 100, tolerance = max(10, 5) = 10, diff = 50.
	res := Validate(100, f(200), f(50), DefaultThresholds())
	if res.IsValid || !res.HasFlag(FlagGPSMismatch) {
		t.Fatalf("expected GPS_MILEAGE_MISMATCH: %+v", res)
	}
}

func TestValidateGPSMismatchBoundary(t *testing.T) {
	// diff = 8 < tolerance 10: no flag.
	res := Validate(100, f(200), f(92), DefaultThresholds())
	if !res.IsValid || res.HasFlag(FlagGPSMismatch) {
		t.Fatalf("diff inside tolerance must pass: %+v", res)
	}
}

func TestValidateAbsoluteFloorForShortTrips(t *testing.T) {
	// manual = 10 km, 10% would be 1 km but the 5 km floor applies.
	res := Validate(100, f(110), f(6), DefaultThresholds())
	if !res.IsValid {
		t.Fatalf("4 km diff under the 5 km floor must pass: %+v", res)
	}
	res = Validate(100, f(110), f(4), DefaultThresholds())
	if !res.HasFlag(FlagGPSMismatch) {
		t.Fatalf("6 km diff over the 5 km floor must flag: %+v", res.Flags)
	}
}

func TestValidateMultipleFlags(t *testing.T) {
	// Reversal and mismatch at once: rules are independent.
	res := Validate(2000, f(500), f(100), DefaultThresholds())
	if !res.HasFlag(FlagMeterReversal) || !res.HasFlag(FlagGPSMismatch) {
		t.Fatalf("expected both flags: %+v", res.Flags)
	}
	if len(res.Warnings) != len(res.Flags) {
		t.Fatalf("one warning per flag: %+v", res)
	}
}

func TestValidateNoEndReading(t *testing.T) {
	res := Validate(100, nil, f(50), DefaultThresholds())
	if !res.IsValid || len(res.Flags) != 0 {
		t.Fatalf("no end reading means nothing to flag: %+v", res)
	}
}

func TestValidateCustomThresholds(t *testing.T) {
	th := Thresholds{MaxDailyDistanceKm: 300, MismatchRelative: 0.05, MismatchMinKm: 1}
	res := Validate(0, f(400), nil, th)
	if !res.HasFlag(FlagExcessiveDistance) {
		t.Fatalf("custom ceiling should fire: %+v", res)
	}
	// manual = 100, tolerance = max(5, 1) = 5, diff = 6.
	res = Validate(0, f(100), f(94), th)
	if !res.HasFlag(FlagGPSMismatch) {
		t.Fatalf("custom tolerance should fire: %+v", res)
	}
}
