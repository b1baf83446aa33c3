package service

import (
	"context"
	"time"

	"outlet_control/internal/logger"
	"outlet_control/internal/models"
	"outlet_control/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Timers is the per-outlet countdown engine.
type Timers interface {
	Start(ctx context.Context, outletID string, durationSeconds int, source string, opts StartOpts) (TimerStatus, error)
	Stop(ctx context.Context, outletID string, opts StopOpts) (TimerStatus, error)
	Status(ctx context.Context, outletID string) (TimerStatus, error)
	UpdatePreset(ctx context.Context, outletID string, durationSeconds int) error
	OnOutletPoweredOff(ctx context.Context, outletID string) error
	Restore(ctx context.Context) error
	Shutdown()
}

// Geofence turns location reports into zone transitions and countdowns.
type Geofence interface {
	Evaluate(ctx context.Context, powerstripID string, lat, lon float64) (Evaluation, error)
	Settings(ctx context.Context, powerstripID string) (models.GeofenceSettings, error)
	UpdateSettings(ctx context.Context, powerstripID string, p GeofenceParams) (models.GeofenceSettings, error)
}

// ShutdownRequests is the confirmation ledger for deferred shutdown
// decisions.
type ShutdownRequests interface {
	Open(ctx context.Context, powerstripID, outletID, note string, expiresAt *time.Time) (models.AutoShutdownRequest, error)
	Confirm(ctx context.Context, requestID string) (Resolution, error)
	Cancel(ctx context.Context, requestID string) (Resolution, error)
	ListPending(ctx context.Context, powerstripID string) ([]models.AutoShutdownRequest, error)
}

// Outlets is the outlet registry plus the external power-toggle path.
type Outlets interface {
	Save(ctx context.Context, o models.OutletState) (models.OutletState, error)
	Get(ctx context.Context, id string) (models.OutletState, error)
	ListByPowerstrip(ctx context.Context, powerstripID string) ([]models.OutletState, error)
	SetPower(ctx context.Context, id string, on bool) (models.OutletState, error)
}

// EventLog exposes the append-only timer audit trail.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.TimerLogEntry, error)
}

// Actuator drives the physical relay. Implementations must be bounded in
// time; failures are the caller's to log, never to retry.
type Actuator interface {
	SetPower(ctx context.Context, outletID string, on bool) error
}

// Notifier delivers user-facing messages with a severity flag.
type Notifier interface {
	Send(ctx context.Context, outletIDs []string, message, severity string) error
	SendDeduped(ctx context.Context, outletIDs []string, message, severity string, window time.Duration) error
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Timers
	Geofence
	ShutdownRequests
	Outlets
	EventLog
	Authorization
}

// NewService wires the repository layer into concrete services. The timer
// engine and the geofence orchestrator reference each other: the orchestrator
// starts/stops timers, and GEOFENCE-sourced completions report back into the
// orchestrator's bookkeeping hook.
func NewService(repos *repository.Repository, actuator Actuator, signingKey string, log *logger.Logger) *Service {
	notifier := NewNotifyService(repos.Notifications, log)
	timers := NewTimerService(repos.Outlets, repos.TimerLogs, repos, actuator, notifier, log)
	geofence := NewGeofenceService(repos.Geofence, repos.Outlets, repos.Requests, timers, notifier, log)
	timers.SetGeofenceCompletionHook(geofence.OnGeofenceTimerDone)

	return &Service{
		Timers:           timers,
		Geofence:         geofence,
		ShutdownRequests: NewShutdownRequestService(repos.Requests, repos.Outlets, repos.Geofence, repos, actuator, notifier, log),
		Outlets:          NewOutletService(repos.Outlets, timers, actuator, log),
		EventLog:         NewEventLogService(repos.TimerLogs),
		Authorization:    NewAuthService(repos.Auth, signingKey),
	}
}
