package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when trigger configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrTriggerNotConfigured is returned when a trigger is built without its syncer or marker
	ErrTriggerNotConfigured = errors.New("trigger dependencies not configured")

	// ErrRunInProgress is returned by RunOnce while another pass is executing
	ErrRunInProgress = errors.New("currency sync already in progress")
)
