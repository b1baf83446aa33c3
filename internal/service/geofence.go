package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"outlet_control/internal/logger"
	"outlet_control/internal/models"
	"outlet_control/internal/repository"
)

const (
	earthRadiusMeters = 6371000.0

	// Identical return-home notifications inside this window are dropped.
	notifyDedupWindow = 30 * time.Second
)

var errInvalidGeofenceCfg = errors.New("invalid geofence settings: radius_meters > 0 and auto_shutdown_seconds > 0 are required")

// GeofenceService turns location reports into zone transitions and drives
// per-outlet timers in bulk. At most one countdown is live per powerstrip:
// concurrent reports are serialized per strip in-process, and the conditional
// countdown activation in the store guards across processes.
type GeofenceService struct {
	geofence repository.GeofenceRepo
	outlets  repository.OutletRepo
	requests repository.RequestRepo
	timers   Timers
	notifier Notifier
	log      *logger.Logger

	now func() time.Time

	mu        sync.Mutex
	completed map[string][]string    // powerstrip id -> outlets completed during the live countdown
	locks     map[string]*sync.Mutex // per-powerstrip evaluation locks
}

func NewGeofenceService(geofence repository.GeofenceRepo, outlets repository.OutletRepo, requests repository.RequestRepo, timers Timers, notifier Notifier, log *logger.Logger) *GeofenceService {
	return &GeofenceService{
		geofence:  geofence,
		outlets:   outlets,
		requests:  requests,
		timers:    timers,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
		completed: make(map[string][]string),
		locks:     make(map[string]*sync.Mutex),
	}
}

// stripLock serializes evaluation and completion bookkeeping per powerstrip
// within this process. The conditional countdown update in the store remains
// the cross-process guard.
func (s *GeofenceService) stripLock(powerstripID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[powerstripID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[powerstripID] = l
	}
	return l
}

// Evaluate processes one location report for a powerstrip.
func (s *GeofenceService) Evaluate(ctx context.Context, powerstripID string, lat, lon float64) (Evaluation, error) {
	lock := s.stripLock(powerstripID)
	lock.Lock()
	defer lock.Unlock()

	settings, err := s.geofence.Load(ctx, powerstripID)
	if err != nil {
		return Evaluation{}, err
	}
	if settings.PowerstripID == "" {
		return Evaluation{}, fmt.Errorf("powerstrip %q geofence: %w", powerstripID, ErrNotFound)
	}
	if !settings.Enabled || settings.HomeLatitude == nil || settings.HomeLongitude == nil {
		return Evaluation{Zone: models.ZoneInside}, nil
	}

	now := s.now().UTC()
	distance := haversineMeters(lat, lon, *settings.HomeLatitude, *settings.HomeLongitude)
	zone := models.ZoneInside
	if distance > settings.RadiusMeters {
		zone = models.ZoneOutside
	}

	// An unresolved shutdown decision freezes countdown evaluation: a fresh
	// countdown must not race the user's pending answer.
	pending, err := s.requests.ListPending(ctx, powerstripID)
	if err != nil {
		return Evaluation{}, err
	}
	if len(pending) > 0 {
		if settings.LastZone != zone {
			if err := s.geofence.SetLastZone(ctx, powerstripID, zone); err != nil {
				return Evaluation{}, err
			}
		}
		return Evaluation{
			Zone:           zone,
			DistanceMeters: distance,
			PendingRequest: &pending[0],
		}, nil
	}

	if zone == models.ZoneOutside {
		return s.evaluateOutside(ctx, settings, distance, now)
	}
	return s.evaluateInside(ctx, settings, distance)
}

func (s *GeofenceService) evaluateOutside(ctx context.Context, settings models.GeofenceSettings, distance float64, now time.Time) (Evaluation, error) {
	ev := Evaluation{Zone: models.ZoneOutside, DistanceMeters: distance}
	psID := settings.PowerstripID

	freshExit := !settings.CountdownActive || settings.LastZone != models.ZoneOutside
	if !freshExit {
		// Countdown running while we stay outside: drop it once nothing
		// powered-on still carries a geofence timer.
		stillArmed, err := s.anyArmedOutlet(ctx, psID)
		if err != nil {
			return Evaluation{}, err
		}
		if !stillArmed {
			if err := s.geofence.DeactivateCountdown(ctx, psID, models.ZoneOutside); err != nil {
				return Evaluation{}, err
			}
			return ev, nil
		}
		ev.CountdownActive = true
		ev.CountdownEndsAt = settings.CountdownEndsAt
		ev.RemainingSeconds = remainingSeconds(settings.CountdownEndsAt, now)
		return ev, nil
	}

	powered, err := s.poweredOnOutlets(ctx, psID)
	if err != nil {
		return Evaluation{}, err
	}
	if len(powered) == 0 {
		// Nothing to protect.
		if err := s.geofence.DeactivateCountdown(ctx, psID, models.ZoneOutside); err != nil {
			return Evaluation{}, err
		}
		return ev, nil
	}

	endsAt := now.Add(time.Duration(settings.AutoShutdownSeconds) * time.Second)
	won, err := s.geofence.ActivateCountdown(ctx, psID, now, endsAt)
	if err != nil {
		return Evaluation{}, err
	}
	if !won {
		// A concurrent report already started the countdown; reflect the
		// now-current state without starting duplicate timers.
		current, err := s.geofence.Load(ctx, psID)
		if err != nil {
			return Evaluation{}, err
		}
		ev.CountdownActive = current.CountdownActive
		ev.CountdownEndsAt = current.CountdownEndsAt
		ev.RemainingSeconds = remainingSeconds(current.CountdownEndsAt, now)
		return ev, nil
	}
	if err := s.geofence.SetLastZone(ctx, psID, models.ZoneOutside); err != nil {
		return Evaluation{}, err
	}
	s.resetCompleted(psID)

	var triggered []string
	for _, o := range powered {
		// Re-verify right before acting: the outlet may have been switched
		// off between the initial read and the activation lock.
		fresh, err := s.outlets.Get(ctx, o.ID)
		if err != nil || fresh.ID == "" || !fresh.PoweredOn {
			continue
		}
		_, err = s.timers.Start(ctx, o.ID, settings.AutoShutdownSeconds, models.SourceGeofence, StartOpts{
			AllowReplace: fresh.Timer.Source == models.SourceGeofence,
			Note:         "left home area",
		})
		if err != nil {
			s.log.Warnw("geofence_timer_start_failed", "outlet_id", o.ID, "err", err)
			continue
		}
		triggered = append(triggered, o.ID)
	}

	// One notification for the whole batch. Leaving home with outlets on is
	// the critical case; a countdown starting because outlets were switched
	// on while already outside is routine.
	severity := models.SeverityStandard
	message := "Outlets switched on outside the home area; auto-shutdown countdown started"
	if settings.LastZone == models.ZoneInside {
		severity = models.SeverityCritical
		message = "You left home with outlets still on; auto-shutdown countdown started"
	}
	if len(triggered) > 0 {
		if err := s.notifier.Send(ctx, triggered, message, severity); err != nil {
			s.log.Warnw("geofence_notify_failed", "err", err)
		}
	}

	ev.CountdownActive = true
	ev.CountdownEndsAt = &endsAt
	ev.RemainingSeconds = remainingSeconds(&endsAt, now)
	ev.TriggeredOutletIDs = triggered
	return ev, nil
}

func (s *GeofenceService) evaluateInside(ctx context.Context, settings models.GeofenceSettings, distance float64) (Evaluation, error) {
	ev := Evaluation{Zone: models.ZoneInside, DistanceMeters: distance}
	psID := settings.PowerstripID

	if !settings.CountdownActive {
		if settings.LastZone == models.ZoneOutside {
			if err := s.geofence.SetLastZone(ctx, psID, models.ZoneInside); err != nil {
				return Evaluation{}, err
			}
		}
		return ev, nil
	}

	outlets, err := s.outlets.ListByPowerstrip(ctx, psID)
	if err != nil {
		return Evaluation{}, err
	}

	var cancelled []string
	for _, o := range outlets {
		if !o.Timer.IsActive || o.Timer.Source != models.SourceGeofence {
			continue
		}
		// User returned before expiry: AUTO_CANCELLED, not completed.
		if _, err := s.timers.Stop(ctx, o.ID, StopOpts{
			Status:         models.LogAutoCancelled,
			Note:           "returned to home area",
			ExpectedSource: models.SourceGeofence,
		}); err != nil {
			s.log.Warnw("geofence_timer_cancel_failed", "outlet_id", o.ID, "err", err)
			continue
		}
		cancelled = append(cancelled, o.ID)
	}

	if err := s.geofence.DeactivateCountdown(ctx, psID, models.ZoneInside); err != nil {
		return Evaluation{}, err
	}
	s.resetCompleted(psID)

	if len(cancelled) > 0 {
		if err := s.notifier.SendDeduped(ctx, cancelled,
			"Returned to the home area; auto-shutdown cancelled",
			models.SeverityStandard, notifyDedupWindow); err != nil {
			s.log.Warnw("geofence_notify_failed", "err", err)
		}
	}
	return ev, nil
}

// OnGeofenceTimerDone aggregates natural GEOFENCE completions so one
// countdown produces one notification instead of one per outlet. Called by
// the timer engine after the relay switched the outlet off.
func (s *GeofenceService) OnGeofenceTimerDone(ctx context.Context, outletID string) {
	outlet, err := s.outlets.Get(ctx, outletID)
	if err != nil || outlet.ID == "" {
		return
	}
	psID := outlet.PowerstripID

	lock := s.stripLock(psID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	s.completed[psID] = append(s.completed[psID], outletID)
	s.mu.Unlock()

	stillArmed, err := s.anyArmedOutlet(ctx, psID)
	if err != nil {
		s.log.Errorw("geofence_completion_check_failed", "powerstrip_id", psID, "err", err)
		return
	}
	if stillArmed {
		return
	}

	s.mu.Lock()
	done := s.completed[psID]
	delete(s.completed, psID)
	s.mu.Unlock()

	if err := s.geofence.DeactivateCountdown(ctx, psID, models.ZoneOutside); err != nil {
		s.log.Errorw("geofence_countdown_reset_failed", "powerstrip_id", psID, "err", err)
	}
	if len(done) > 0 {
		_ = s.notifier.Send(ctx, done,
			fmt.Sprintf("Auto-shutdown finished; %d outlet(s) switched off", len(done)),
			models.SeverityStandard)
	}
}

// Settings returns the geofence configuration for a powerstrip.
func (s *GeofenceService) Settings(ctx context.Context, powerstripID string) (models.GeofenceSettings, error) {
	settings, err := s.geofence.Load(ctx, powerstripID)
	if err != nil {
		return models.GeofenceSettings{}, err
	}
	if settings.PowerstripID == "" {
		return models.GeofenceSettings{}, fmt.Errorf("powerstrip %q geofence: %w", powerstripID, ErrNotFound)
	}
	return settings, nil
}

// UpdateSettings replaces the user-configurable fields. Orchestrator-owned
// fields (last zone, countdown bookkeeping) survive configuration updates.
func (s *GeofenceService) UpdateSettings(ctx context.Context, powerstripID string, p GeofenceParams) (models.GeofenceSettings, error) {
	if p.Enabled {
		if p.RadiusMeters <= 0 || p.AutoShutdownSeconds <= 0 {
			return models.GeofenceSettings{}, errInvalidGeofenceCfg
		}
		if (p.HomeLatitude == nil) != (p.HomeLongitude == nil) {
			return models.GeofenceSettings{}, errors.New("home latitude and longitude must be set together")
		}
	}

	current, err := s.geofence.Load(ctx, powerstripID)
	if err != nil {
		return models.GeofenceSettings{}, err
	}

	next := models.GeofenceSettings{
		PowerstripID:        powerstripID,
		Enabled:             p.Enabled,
		HomeLatitude:        p.HomeLatitude,
		HomeLongitude:       p.HomeLongitude,
		RadiusMeters:        p.RadiusMeters,
		AutoShutdownSeconds: p.AutoShutdownSeconds,
		LastZone:            models.ZoneInside,
		UpdatedAt:           s.now().UTC(),
	}
	if current.PowerstripID != "" {
		next.LastZone = current.LastZone
		next.CountdownActive = current.CountdownActive
		next.CountdownStartedAt = current.CountdownStartedAt
		next.CountdownEndsAt = current.CountdownEndsAt
	}

	if err := s.geofence.Save(ctx, next); err != nil {
		return models.GeofenceSettings{}, err
	}
	return next, nil
}

func (s *GeofenceService) poweredOnOutlets(ctx context.Context, powerstripID string) ([]models.OutletState, error) {
	outlets, err := s.outlets.ListByPowerstrip(ctx, powerstripID)
	if err != nil {
		return nil, err
	}
	on := outlets[:0]
	for _, o := range outlets {
		if o.PoweredOn {
			on = append(on, o)
		}
	}
	return on, nil
}

// anyArmedOutlet reports whether any powered-on outlet of the powerstrip
// still carries an active geofence timer.
func (s *GeofenceService) anyArmedOutlet(ctx context.Context, powerstripID string) (bool, error) {
	outlets, err := s.outlets.ListByPowerstrip(ctx, powerstripID)
	if err != nil {
		return false, err
	}
	for _, o := range outlets {
		if o.PoweredOn && o.Timer.IsActive && o.Timer.Source == models.SourceGeofence {
			return true, nil
		}
	}
	return false, nil
}

func (s *GeofenceService) resetCompleted(powerstripID string) {
	s.mu.Lock()
	delete(s.completed, powerstripID)
	s.mu.Unlock()
}

// haversineMeters returns the great-circle distance between two coordinates,
// rounded to the nearest meter.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return math.Round(earthRadiusMeters * c)
}
