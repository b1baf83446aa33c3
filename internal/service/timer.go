package service

import (
	"context"
	"fmt"
	"time"

	"outlet_control/internal/logger"
	"outlet_control/internal/models"
	"outlet_control/internal/repository"

	"github.com/google/uuid"
)

const completionTimeout = 15 * time.Second

// TimerService manages one independent countdown per outlet. Completions run
// as scheduled callbacks that re-read persisted state before acting, so a
// callback racing a concurrent stop resolves to a no-op.
type TimerService struct {
	outlets  repository.OutletRepo
	logs     repository.TimerLogRepo
	tx       repository.TxRunner
	actuator Actuator
	notifier Notifier
	log      *logger.Logger

	scheduler Scheduler
	now       func() time.Time

	// onGeofenceDone lets the orchestrator aggregate GEOFENCE-sourced
	// completions into a single notification per countdown.
	onGeofenceDone func(ctx context.Context, outletID string)
}

func NewTimerService(outlets repository.OutletRepo, logs repository.TimerLogRepo, tx repository.TxRunner, actuator Actuator, notifier Notifier, log *logger.Logger) *TimerService {
	return &TimerService{
		outlets:   outlets,
		logs:      logs,
		tx:        tx,
		actuator:  actuator,
		notifier:  notifier,
		log:       log,
		scheduler: newTimerScheduler(),
		now:       time.Now,
	}
}

// SetGeofenceCompletionHook wires the orchestrator's bookkeeping callback.
// Must be called during wiring, before any timer can complete.
func (s *TimerService) SetGeofenceCompletionHook(fn func(ctx context.Context, outletID string)) {
	s.onGeofenceDone = fn
}

// Start begins (or replaces) the countdown for an outlet. A zero duration
// falls back to the outlet's preset. An active timer with the same source is
// always replaced; a different source requires AllowReplace or Force.
func (s *TimerService) Start(ctx context.Context, outletID string, durationSeconds int, source string, opts StartOpts) (TimerStatus, error) {
	if durationSeconds < 0 {
		return TimerStatus{}, ErrInvalidDuration
	}
	if source == "" {
		source = models.SourceManual
	}

	outlet, err := s.outlets.Get(ctx, outletID)
	if err != nil {
		return TimerStatus{}, err
	}
	if outlet.ID == "" {
		return TimerStatus{}, fmt.Errorf("outlet %q: %w", outletID, ErrNotFound)
	}
	if durationSeconds == 0 {
		durationSeconds = outlet.DefaultDurationSeconds
	}
	if durationSeconds <= 0 {
		return TimerStatus{}, ErrInvalidDuration
	}
	if !outlet.PoweredOn {
		return TimerStatus{}, ErrOutletOff
	}

	now := s.now().UTC()
	replacing := false
	if outlet.Timer.IsActive {
		if outlet.Timer.Source != source && !opts.AllowReplace && !opts.Force {
			return TimerStatus{}, ErrConflictingTimerSource
		}
		replacing = true
	}

	endsAt := now.Add(time.Duration(durationSeconds) * time.Second)
	record := models.TimerRecord{
		IsActive:        true,
		DurationSeconds: durationSeconds,
		EndsAt:          &endsAt,
		Source:          source,
	}

	err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
		if replacing {
			if err := st.TimerLogs.Append(ctx, models.TimerLogEntry{
				ID:               uuid.NewString(),
				OutletID:         outletID,
				Status:           models.LogReplaced,
				DurationSeconds:  outlet.Timer.DurationSeconds,
				RemainingSeconds: remainingSeconds(outlet.Timer.EndsAt, now),
				Source:           outlet.Timer.Source,
				Note:             "replaced by new " + source + " timer",
				CreatedAt:        now,
			}); err != nil {
				return err
			}
		}
		if err := st.Outlets.SaveTimer(ctx, outletID, record); err != nil {
			return err
		}
		return st.TimerLogs.Append(ctx, models.TimerLogEntry{
			ID:               uuid.NewString(),
			OutletID:         outletID,
			Status:           models.LogStarted,
			DurationSeconds:  durationSeconds,
			RemainingSeconds: durationSeconds,
			Source:           source,
			Note:             opts.Note,
			CreatedAt:        now,
		})
	})
	if err != nil {
		return TimerStatus{}, err
	}

	s.scheduler.Schedule(outletID, endsAt.Sub(now), func() { s.complete(outletID) })
	return statusFrom(outletID, record, now), nil
}

// Stop cancels an active countdown. It is a no-op when nothing is running or
// when ExpectedSource is set and the live timer was started by someone else
// (protects stale callers racing a newer timer).
func (s *TimerService) Stop(ctx context.Context, outletID string, opts StopOpts) (TimerStatus, error) {
	outlet, err := s.outlets.Get(ctx, outletID)
	if err != nil {
		return TimerStatus{}, err
	}
	if outlet.ID == "" {
		return TimerStatus{}, fmt.Errorf("outlet %q: %w", outletID, ErrNotFound)
	}

	now := s.now().UTC()
	if !outlet.Timer.IsActive {
		if opts.WarnWhenInactive {
			s.log.Warnw("timer_stop_inactive", "outlet_id", outletID)
		}
		return statusFrom(outletID, outlet.Timer, now), nil
	}
	if opts.ExpectedSource != "" && opts.ExpectedSource != outlet.Timer.Source {
		return statusFrom(outletID, outlet.Timer, now), nil
	}

	s.scheduler.Cancel(outletID)

	status := opts.Status
	if status == "" {
		status = models.LogStopped
	}
	remaining := remainingSeconds(outlet.Timer.EndsAt, now)

	err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
		if err := st.Outlets.ClearTimer(ctx, outletID); err != nil {
			return err
		}
		return st.TimerLogs.Append(ctx, models.TimerLogEntry{
			ID:               uuid.NewString(),
			OutletID:         outletID,
			Status:           status,
			DurationSeconds:  outlet.Timer.DurationSeconds,
			RemainingSeconds: remaining,
			Source:           outlet.Timer.Source,
			Note:             opts.Note,
			CreatedAt:        now,
		})
	})
	if err != nil {
		return TimerStatus{}, err
	}

	return TimerStatus{OutletID: outletID}, nil
}

// Status is a pure read; remaining time is recomputed from the wall clock.
func (s *TimerService) Status(ctx context.Context, outletID string) (TimerStatus, error) {
	outlet, err := s.outlets.Get(ctx, outletID)
	if err != nil {
		return TimerStatus{}, err
	}
	if outlet.ID == "" {
		return TimerStatus{}, fmt.Errorf("outlet %q: %w", outletID, ErrNotFound)
	}
	return statusFrom(outletID, outlet.Timer, s.now().UTC()), nil
}

// UpdatePreset changes the default duration used by future manual starts.
func (s *TimerService) UpdatePreset(ctx context.Context, outletID string, durationSeconds int) error {
	if durationSeconds <= 0 {
		return ErrInvalidDuration
	}
	outlet, err := s.outlets.Get(ctx, outletID)
	if err != nil {
		return err
	}
	if outlet.ID == "" {
		return fmt.Errorf("outlet %q: %w", outletID, ErrNotFound)
	}
	if outlet.Timer.IsActive {
		return ErrTimerRunning
	}
	if outlet.DefaultDurationSeconds == durationSeconds {
		return nil
	}

	now := s.now().UTC()
	return s.tx.WithinTx(ctx, func(st repository.Stores) error {
		if err := st.Outlets.SetDefaultDuration(ctx, outletID, durationSeconds); err != nil {
			return err
		}
		return st.TimerLogs.Append(ctx, models.TimerLogEntry{
			ID:              uuid.NewString(),
			OutletID:        outletID,
			Status:          models.LogReplaced,
			DurationSeconds: durationSeconds,
			Source:          models.SourceManual,
			Note:            fmt.Sprintf("preset changed from %ds to %ds", outlet.DefaultDurationSeconds, durationSeconds),
			CreatedAt:       now,
		})
	})
}

// OnOutletPoweredOff is called by the external power-toggle path. An inactive
// timer is the expected case here, so the warning is suppressed.
func (s *TimerService) OnOutletPoweredOff(ctx context.Context, outletID string) error {
	_, err := s.Stop(ctx, outletID, StopOpts{
		Status: models.LogPowerOff,
		Note:   "outlet powered off",
	})
	return err
}

// Restore reschedules completion callbacks for timers that survived a process
// restart. Overdue timers complete immediately; no timer silently disappears.
func (s *TimerService) Restore(ctx context.Context) error {
	outlets, err := s.outlets.ListWithActiveTimer(ctx)
	if err != nil {
		return fmt.Errorf("list active timers: %w", err)
	}

	now := s.now()
	for _, o := range outlets {
		if o.Timer.EndsAt == nil {
			continue
		}
		outletID := o.ID
		if delay := o.Timer.EndsAt.Sub(now); delay <= 0 {
			s.complete(outletID)
		} else {
			s.scheduler.Schedule(outletID, delay, func() { s.complete(outletID) })
		}
	}
	if len(outlets) > 0 {
		s.log.Infow("timers_restored", "count", len(outlets))
	}
	return nil
}

// Shutdown cancels all scheduled callbacks. Active timer rows stay persisted
// and are picked up again by Restore.
func (s *TimerService) Shutdown() {
	s.scheduler.CancelAll()
}

// complete resolves a due timer. It re-reads persisted state first: a timer
// already cleared by a concurrent stop turns this into a no-op.
func (s *TimerService) complete(outletID string) {
	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	outlet, err := s.outlets.Get(ctx, outletID)
	if err != nil {
		s.log.Errorw("timer_complete_load_failed", "outlet_id", outletID, "err", err)
		return
	}
	if outlet.ID == "" || !outlet.Timer.IsActive {
		return
	}

	now := s.now().UTC()
	source := outlet.Timer.Source

	err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
		if err := st.Outlets.ClearTimer(ctx, outletID); err != nil {
			return err
		}
		return st.TimerLogs.Append(ctx, models.TimerLogEntry{
			ID:              uuid.NewString(),
			OutletID:        outletID,
			Status:          models.LogCompleted,
			DurationSeconds: outlet.Timer.DurationSeconds,
			Source:          source,
			CreatedAt:       now,
		})
	})
	if err != nil {
		s.log.Errorw("timer_complete_persist_failed", "outlet_id", outletID, "err", err)
		return
	}

	if err := s.actuator.SetPower(ctx, outletID, false); err != nil {
		// Fire-and-log: record the failed cutoff and leave the power bit
		// untouched for manual intervention. No automatic retry.
		s.log.Errorw("timer_complete_actuator_failed", "outlet_id", outletID, "err", err)
		_ = s.logs.Append(ctx, models.TimerLogEntry{
			ID:              uuid.NewString(),
			OutletID:        outletID,
			Status:          models.LogAutoCancelled,
			DurationSeconds: outlet.Timer.DurationSeconds,
			Source:          source,
			Note:            "relay power-off failed: " + err.Error(),
			CreatedAt:       now,
		})
		_ = s.notifier.Send(ctx, []string{outletID},
			"Timer finished but the outlet could not be switched off", models.SeverityCritical)
		return
	}

	if err := s.outlets.SetPowered(ctx, outletID, false); err != nil {
		s.log.Errorw("timer_complete_power_bit_failed", "outlet_id", outletID, "err", err)
	}

	if source == models.SourceGeofence && s.onGeofenceDone != nil {
		s.onGeofenceDone(ctx, outletID)
		return
	}
	_ = s.notifier.Send(ctx, []string{outletID},
		"Timer finished; outlet switched off", models.SeverityStandard)
}

// remainingSeconds derives the live remainder from the stored deadline; a
// stored remaining value is never trusted.
func remainingSeconds(endsAt *time.Time, now time.Time) int {
	if endsAt == nil {
		return 0
	}
	rem := int(endsAt.Sub(now) / time.Second)
	if rem < 0 {
		return 0
	}
	return rem
}

func statusFrom(outletID string, t models.TimerRecord, now time.Time) TimerStatus {
	st := TimerStatus{OutletID: outletID, IsActive: t.IsActive, Source: t.Source}
	if t.IsActive {
		st.DurationSeconds = t.DurationSeconds
		st.EndsAt = t.EndsAt
		st.RemainingSeconds = remainingSeconds(t.EndsAt, now)
	}
	return st
}
