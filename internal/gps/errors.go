package gps

import (
	"errors"
	"fmt"
)

// ErrAlreadyActive is returned by Tracker.Start while another session holds
// the single active-session slot.
var ErrAlreadyActive = errors.New("a tracking session is already active")

type StartErrorCode string

const (
	StartPermissionDenied StartErrorCode = "permission_denied"
	StartServiceDisabled  StartErrorCode = "service_disabled"
	StartSignalWeak       StartErrorCode = "signal_weak"
	StartTimeout          StartErrorCode = "timeout"
	StartCancelled        StartErrorCode = "cancelled"
	StartUnknown          StartErrorCode = "unknown"
)

// StartError reports why a session could not reach the active state. All of
// these are recoverable: the caller records mileage manually instead.
type StartError struct {
	Code StartErrorCode
	Err  error
}

func (e *StartError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gps start failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("gps start failed (%s)", e.Code)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// StartErrorCodeOf extracts the failure code, mapping unknown errors to
// StartUnknown.
func StartErrorCodeOf(err error) StartErrorCode {
	var se *StartError
	if errors.As(err, &se) {
		return se.Code
	}
	return StartUnknown
}
