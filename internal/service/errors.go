package service

import "errors"

// Validation and state errors surfaced synchronously to callers. None of
// them leave persisted state changed.
var (
	ErrInvalidDuration        = errors.New("duration must be greater than zero")
	ErrOutletOff              = errors.New("outlet is powered off")
	ErrConflictingTimerSource = errors.New("a timer from a different source is already running")
	ErrTimerRunning           = errors.New("timer is currently running")
	ErrNotFound               = errors.New("not found")
	ErrAlreadyResolved        = errors.New("request already resolved")
	ErrActuatorFailure        = errors.New("relay actuator call failed")
)
