package models

import "time"

// Auto-shutdown request statuses.
const (
	RequestPending   = "PENDING"
	RequestConfirmed = "CONFIRMED"
	RequestCancelled = "CANCELLED"
)

// AutoShutdownRequest defers a shutdown decision to the user. A request is
// resolved exactly once; resolving one also closes sibling PENDING requests
// for the same powerstrip.
type AutoShutdownRequest struct {
	ID           string     `json:"id"`
	PowerstripID string     `json:"powerstrip_id"`
	OutletID     string     `json:"outlet_id,omitempty"`
	Status       string     `json:"status"` // PENDING | CONFIRMED | CANCELLED
	InitiatedAt  time.Time  `json:"initiated_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Note         string     `json:"note,omitempty"`
}
