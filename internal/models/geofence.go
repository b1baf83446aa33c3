package models

import "time"

// Zones relative to the configured home radius.
const (
	ZoneInside  = "INSIDE"
	ZoneOutside = "OUTSIDE"
)

// GeofenceSettings is the per-powerstrip geofence row. LastZone and the
// countdown fields are owned by the orchestrator; the rest is user
// configuration.
type GeofenceSettings struct {
	PowerstripID        string     `json:"powerstrip_id"`
	Enabled             bool       `json:"enabled"`
	HomeLatitude        *float64   `json:"home_latitude,omitempty"`
	HomeLongitude       *float64   `json:"home_longitude,omitempty"`
	RadiusMeters        float64    `json:"radius_meters"`
	AutoShutdownSeconds int        `json:"auto_shutdown_seconds"`
	LastZone            string     `json:"last_zone"` // INSIDE | OUTSIDE
	CountdownActive     bool       `json:"countdown_active"`
	CountdownStartedAt  *time.Time `json:"countdown_started_at,omitempty"`
	CountdownEndsAt     *time.Time `json:"countdown_ends_at,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
