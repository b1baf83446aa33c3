package models

import "time"

// Notification severities.
const (
	SeverityStandard = "standard"
	SeverityCritical = "critical"
)

// NotificationRecord is an append-only dispatched message, kept both for user
// display and for the orchestrator's dedup window lookups.
type NotificationRecord struct {
	ID        string    `json:"id"`
	OutletID  string    `json:"outlet_id"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}
