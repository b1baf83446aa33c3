package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outlet_control/internal/logger"
	"outlet_control/internal/models"
	"outlet_control/internal/repository"

	"github.com/google/uuid"
)

// Default preset for newly registered outlets: one hour.
const defaultPresetSeconds = 3600

var errMissingPowerstripID = errors.New("powerstrip_id is required")

// OutletService is the outlet registry plus the external power-toggle path.
type OutletService struct {
	outlets  repository.OutletRepo
	timers   Timers
	actuator Actuator
	log      *logger.Logger
	now      func() time.Time
}

func NewOutletService(outlets repository.OutletRepo, timers Timers, actuator Actuator, log *logger.Logger) *OutletService {
	return &OutletService{
		outlets:  outlets,
		timers:   timers,
		actuator: actuator,
		log:      log,
		now:      time.Now,
	}
}

// Save registers or renames an outlet. Timer and power state are owned by
// the engine and the toggle path; an upsert never clobbers them.
func (s *OutletService) Save(ctx context.Context, o models.OutletState) (models.OutletState, error) {
	if o.PowerstripID == "" {
		return models.OutletState{}, errMissingPowerstripID
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.DefaultDurationSeconds <= 0 {
		o.DefaultDurationSeconds = defaultPresetSeconds
	}

	existing, err := s.outlets.Get(ctx, o.ID)
	if err != nil {
		return models.OutletState{}, err
	}
	if existing.ID != "" {
		o.Timer = existing.Timer
		o.PoweredOn = existing.PoweredOn
	} else {
		o.Timer = models.TimerRecord{}
	}
	o.UpdatedAt = s.now().UTC()

	if err := s.outlets.Save(ctx, o); err != nil {
		return models.OutletState{}, fmt.Errorf("save outlet %q: %w", o.ID, err)
	}
	return o, nil
}

func (s *OutletService) Get(ctx context.Context, id string) (models.OutletState, error) {
	outlet, err := s.outlets.Get(ctx, id)
	if err != nil {
		return models.OutletState{}, err
	}
	if outlet.ID == "" {
		return models.OutletState{}, fmt.Errorf("outlet %q: %w", id, ErrNotFound)
	}
	return outlet, nil
}

func (s *OutletService) ListByPowerstrip(ctx context.Context, powerstripID string) ([]models.OutletState, error) {
	return s.outlets.ListByPowerstrip(ctx, powerstripID)
}

// SetPower is the user toggle path. Powering off also clears any running
// timer with a POWER_OFF audit entry (the expected case, no warning).
func (s *OutletService) SetPower(ctx context.Context, id string, on bool) (models.OutletState, error) {
	outlet, err := s.outlets.Get(ctx, id)
	if err != nil {
		return models.OutletState{}, err
	}
	if outlet.ID == "" {
		return models.OutletState{}, fmt.Errorf("outlet %q: %w", id, ErrNotFound)
	}
	if outlet.PoweredOn == on {
		return outlet, nil
	}

	if err := s.actuator.SetPower(ctx, id, on); err != nil {
		return models.OutletState{}, fmt.Errorf("%w: %v", ErrActuatorFailure, err)
	}
	if err := s.outlets.SetPowered(ctx, id, on); err != nil {
		return models.OutletState{}, err
	}

	if !on {
		if err := s.timers.OnOutletPoweredOff(ctx, id); err != nil {
			s.log.Warnw("power_off_timer_stop_failed", "outlet_id", id, "err", err)
		}
		outlet.Timer = models.TimerRecord{}
	}
	outlet.PoweredOn = on
	outlet.UpdatedAt = s.now().UTC()
	return outlet, nil
}
