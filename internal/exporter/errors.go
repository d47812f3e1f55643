package exporter

import (
	"errors"
	"fmt"
)

// Sentinel errors the controller reports at its boundary. All of them are
// converted to a user-visible status string; none crash the preview loop.
var (
	// ErrNoPlan is returned when an export is requested before a plan
	// exists. No session is created.
	ErrNoPlan = errors.New("no render plan is loaded; generate or import a plan first")

	// ErrCaptureUnavailable is returned when the host lacks any usable
	// capture primitive.
	ErrCaptureUnavailable = errors.New("no usable video capture source")

	// ErrEmptyCapture is returned when capture completed but produced no
	// data. No file is offered.
	ErrEmptyCapture = errors.New("capture produced no data")

	// ErrConcurrentExport is returned when a second export is requested
	// while one is active. The current session is unaffected.
	ErrConcurrentExport = errors.New("an export is already in progress")
)

// RecorderFaultError wraps a fault the underlying encoding session
// reported mid-capture.
type RecorderFaultError struct {
	Err error
}

func (e *RecorderFaultError) Error() string {
	return fmt.Sprintf("encoding session fault: %v", e.Err)
}

func (e *RecorderFaultError) Unwrap() error {
	return e.Err
}
