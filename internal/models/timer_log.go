package models

import "time"

// Timer log statuses.
const (
	LogStarted       = "STARTED"
	LogStopped       = "STOPPED"
	LogCompleted     = "COMPLETED"
	LogAutoCancelled = "AUTO_CANCELLED"
	LogPowerOff      = "POWER_OFF"
	LogReplaced      = "REPLACED"
)

// TimerLogEntry is a single audit row. Entries are append-only; they are
// never mutated or deleted.
type TimerLogEntry struct {
	ID               string    `json:"id"`
	OutletID         string    `json:"outlet_id"`
	Status           string    `json:"status"` // STARTED | STOPPED | COMPLETED | AUTO_CANCELLED | POWER_OFF | REPLACED
	DurationSeconds  int       `json:"duration_seconds"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Source           string    `json:"source"`
	Note             string    `json:"note,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
