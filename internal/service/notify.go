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

// NotifyService records one NotificationRecord per outlet and logs the
// dispatch. Handing the message to an actual push transport is the outer
// layer's job; the core only guarantees at-most-one-per-event.
type NotifyService struct {
	store repository.NotificationRepo
	log   *logger.Logger
	now   func() time.Time
}

func NewNotifyService(store repository.NotificationRepo, log *logger.Logger) *NotifyService {
	return &NotifyService{store: store, log: log, now: time.Now}
}

func (s *NotifyService) Send(ctx context.Context, outletIDs []string, message, severity string) error {
	now := s.now().UTC()
	for _, id := range outletIDs {
		if err := s.store.Append(ctx, models.NotificationRecord{
			ID:        uuid.NewString(),
			OutletID:  id,
			Message:   message,
			Severity:  severity,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("append notification for outlet %q: %w", id, err)
		}
	}
	if severity == models.SeverityCritical {
		s.log.Warnw("notification_dispatched", "severity", severity, "message", message, "outlets", outletIDs)
	} else {
		s.log.Infow("notification_dispatched", "severity", severity, "message", message, "outlets", outletIDs)
	}
	return nil
}

// SendDeduped drops the dispatch when an identical message was already sent
// for any of the outlets within the window. Lookup-then-create, not a unique
// constraint: a rare duplicate is acceptable, a hard failure is not.
func (s *NotifyService) SendDeduped(ctx context.Context, outletIDs []string, message, severity string, window time.Duration) error {
	since := s.now().UTC().Add(-window)
	for _, id := range outletIDs {
		dup, err := s.store.ExistsSince(ctx, id, message, since)
		if err != nil {
			return err
		}
		if dup {
			s.log.Debugw("notification_deduped", "outlet_id", id, "message", message)
			return nil
		}
	}
	return s.Send(ctx, outletIDs, message, severity)
}
