package models

import "time"

// Timer sources.
const (
	SourceManual   = "MANUAL"
	SourceGeofence = "GEOFENCE"
)

// TimerRecord is the single countdown embedded in an outlet row.
// IsActive implies EndsAt is non-nil and DurationSeconds > 0.
type TimerRecord struct {
	IsActive        bool       `json:"is_active"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	EndsAt          *time.Time `json:"ends_at,omitempty"` // nil when inactive
	Source          string     `json:"source,omitempty"`  // MANUAL | GEOFENCE
}

// OutletState is the current snapshot of one switched outlet.
type OutletState struct {
	ID                     string      `json:"id"`
	Name                   string      `json:"name"`
	PowerstripID           string      `json:"powerstrip_id"`
	PoweredOn              bool        `json:"powered_on"`
	DefaultDurationSeconds int         `json:"default_duration_seconds,omitempty"` // preset for future manual starts
	Timer                  TimerRecord `json:"timer"`
	UpdatedAt              time.Time   `json:"updated_at"`
}
