package automation

import "errors"

// Domain errors for the automation package.
var (
	// ErrTriggerExists is returned when registering a trigger id twice.
	ErrTriggerExists = errors.New("trigger: already exists")

	// ErrInvalidTrigger is returned when a trigger has no id or no condition.
	ErrInvalidTrigger = errors.New("trigger: invalid")

	// ErrInvalidThresholds is returned when the high humidity threshold is
	// not above the low one.
	ErrInvalidThresholds = errors.New("trigger: high threshold must exceed low threshold")

	// ErrEngineRunning is returned when registering after Run started, or
	// when Run is called twice.
	ErrEngineRunning = errors.New("trigger: engine already running")
)
