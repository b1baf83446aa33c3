package service

import (
	"time"

	"outlet_control/internal/models"
)

// StartOpts tunes timer start conflict handling.
type StartOpts struct {
	AllowReplace bool   // replace an active timer even when sources differ
	Force        bool   // stop whatever is running unconditionally
	Note         string // carried into the audit log
}

// StopOpts tunes timer stop behavior.
type StopOpts struct {
	Status           string // audit log status; defaults to STOPPED
	Note             string
	ExpectedSource   string // no-op when set and the live timer's source differs
	WarnWhenInactive bool   // log a warning when no timer is active
}

// TimerStatus is a point-in-time view of one outlet's countdown.
// RemainingSeconds is always recomputed from EndsAt, never stored.
type TimerStatus struct {
	OutletID         string     `json:"outlet_id"`
	IsActive         bool       `json:"is_active"`
	DurationSeconds  int        `json:"duration_seconds,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
	Source           string     `json:"source,omitempty"`
}

// Evaluation is the outcome of one location report.
type Evaluation struct {
	Zone               string                      `json:"zone"`
	DistanceMeters     float64                     `json:"distance_meters"`
	CountdownActive    bool                        `json:"countdown_active"`
	CountdownEndsAt    *time.Time                  `json:"countdown_ends_at,omitempty"`
	RemainingSeconds   int                         `json:"remaining_seconds"`
	TriggeredOutletIDs []string                    `json:"triggered_outlet_ids,omitempty"`
	PendingRequest     *models.AutoShutdownRequest `json:"pending_request,omitempty"`
}

// GeofenceParams is the caller-settable part of GeofenceSettings.
type GeofenceParams struct {
	Enabled             bool     `json:"enabled"`
	HomeLatitude        *float64 `json:"home_latitude,omitempty"`
	HomeLongitude       *float64 `json:"home_longitude,omitempty"`
	RadiusMeters        float64  `json:"radius_meters"`
	AutoShutdownSeconds int      `json:"auto_shutdown_seconds"`
}

// Resolution summarizes a confirmed or cancelled auto-shutdown request batch.
type Resolution struct {
	Request          models.AutoShutdownRequest `json:"request"`
	ResolvedSiblings int                        `json:"resolved_siblings"`
	AffectedOutlets  []string                   `json:"affected_outlets,omitempty"`
}

// LogFilter narrows timer log listings.
type LogFilter struct {
	OutletID string
	Status   string
	Limit    int
}
