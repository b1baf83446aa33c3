package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"outlet_control/internal/logger"
	"outlet_control/internal/models"
	"outlet_control/internal/repository"

	"github.com/google/uuid"
)

var errMissingPowerstrip = errors.New("powerstrip_id is required")

// ShutdownRequestService is the confirmation ledger used when a shutdown
// decision is deferred to the user instead of an automatic cutoff. Requests
// resolve exactly once; one decision resolves every sibling PENDING request
// for the same powerstrip.
type ShutdownRequestService struct {
	requests repository.RequestRepo
	outlets  repository.OutletRepo
	geofence repository.GeofenceRepo
	tx       repository.TxRunner
	actuator Actuator
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewShutdownRequestService(requests repository.RequestRepo, outlets repository.OutletRepo, geofence repository.GeofenceRepo, tx repository.TxRunner, actuator Actuator, notifier Notifier, log *logger.Logger) *ShutdownRequestService {
	return &ShutdownRequestService{
		requests: requests,
		outlets:  outlets,
		geofence: geofence,
		tx:       tx,
		actuator: actuator,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Open creates a PENDING request. The decision of *when* a shutdown needs
// user confirmation belongs to the surrounding policy layer; the orchestrator
// never calls this.
func (s *ShutdownRequestService) Open(ctx context.Context, powerstripID, outletID, note string, expiresAt *time.Time) (models.AutoShutdownRequest, error) {
	if strings.TrimSpace(powerstripID) == "" {
		return models.AutoShutdownRequest{}, errMissingPowerstrip
	}
	req := models.AutoShutdownRequest{
		ID:           uuid.NewString(),
		PowerstripID: powerstripID,
		OutletID:     outletID,
		Status:       models.RequestPending,
		InitiatedAt:  s.now().UTC(),
		ExpiresAt:    expiresAt,
		Note:         note,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return models.AutoShutdownRequest{}, fmt.Errorf("create auto-shutdown request: %w", err)
	}
	return req, nil
}

// Confirm resolves the request and every sibling PENDING request as
// CONFIRMED, then fulfils the shutdown: every still-powered outlet on the
// powerstrip is switched off, its timer state cleared, and the powerstrip's
// countdown bookkeeping reset.
func (s *ShutdownRequestService) Confirm(ctx context.Context, requestID string) (Resolution, error) {
	req, err := s.loadPending(ctx, requestID)
	if err != nil {
		return Resolution{}, err
	}

	now := s.now().UTC()
	var (
		affected []string
		siblings int64
	)
	err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
		if err := st.Requests.Resolve(ctx, req.ID, models.RequestConfirmed); err != nil {
			return err
		}
		n, err := st.Requests.ResolveSiblings(ctx, req.PowerstripID, req.ID, models.RequestConfirmed)
		if err != nil {
			return err
		}
		siblings = n

		outlets, err := st.Outlets.ListByPowerstrip(ctx, req.PowerstripID)
		if err != nil {
			return err
		}
		for _, o := range outlets {
			if !o.PoweredOn {
				continue
			}
			if err := st.Outlets.ClearTimer(ctx, o.ID); err != nil {
				return err
			}
			if err := st.Outlets.SetPowered(ctx, o.ID, false); err != nil {
				return err
			}
			if err := st.TimerLogs.Append(ctx, models.TimerLogEntry{
				ID:               uuid.NewString(),
				OutletID:         o.ID,
				Status:           models.LogPowerOff,
				DurationSeconds:  o.Timer.DurationSeconds,
				RemainingSeconds: remainingSeconds(o.Timer.EndsAt, now),
				Source:           o.Timer.Source,
				Note:             "auto-shutdown confirmed",
				CreatedAt:        now,
			}); err != nil {
				return err
			}
			affected = append(affected, o.ID)
		}
		return st.Geofence.DeactivateCountdown(ctx, req.PowerstripID, models.ZoneOutside)
	})
	if err != nil {
		return Resolution{}, err
	}

	// Relay calls stay outside the transaction: fire-and-log. Any callback
	// still scheduled for a cleared timer re-reads state and no-ops.
	for _, id := range affected {
		if err := s.actuator.SetPower(ctx, id, false); err != nil {
			s.log.Errorw("request_confirm_actuator_failed", "outlet_id", id, "err", err)
		}
	}
	if len(affected) > 0 {
		_ = s.notifier.Send(ctx, affected,
			"Auto-shutdown confirmed; switched off: "+strings.Join(affected, ", "),
			models.SeverityStandard)
	}

	req.Status = models.RequestConfirmed
	return Resolution{Request: req, ResolvedSiblings: int(siblings), AffectedOutlets: affected}, nil
}

// Cancel resolves the request batch as CANCELLED and leaves every outlet
// untouched.
func (s *ShutdownRequestService) Cancel(ctx context.Context, requestID string) (Resolution, error) {
	req, err := s.loadPending(ctx, requestID)
	if err != nil {
		return Resolution{}, err
	}

	var siblings int64
	err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
		if err := st.Requests.Resolve(ctx, req.ID, models.RequestCancelled); err != nil {
			return err
		}
		n, err := st.Requests.ResolveSiblings(ctx, req.PowerstripID, req.ID, models.RequestCancelled)
		if err != nil {
			return err
		}
		siblings = n
		return nil
	})
	if err != nil {
		return Resolution{}, err
	}

	var ids []string
	if req.OutletID != "" {
		ids = []string{req.OutletID}
	}
	_ = s.notifier.Send(ctx, ids, "Auto-shutdown declined; outlets remain on", models.SeverityStandard)

	req.Status = models.RequestCancelled
	return Resolution{Request: req, ResolvedSiblings: int(siblings)}, nil
}

func (s *ShutdownRequestService) ListPending(ctx context.Context, powerstripID string) ([]models.AutoShutdownRequest, error) {
	return s.requests.ListPending(ctx, powerstripID)
}

func (s *ShutdownRequestService) loadPending(ctx context.Context, requestID string) (models.AutoShutdownRequest, error) {
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return models.AutoShutdownRequest{}, err
	}
	if req.ID == "" {
		return models.AutoShutdownRequest{}, fmt.Errorf("request %q: %w", requestID, ErrNotFound)
	}
	if req.Status != models.RequestPending {
		return models.AutoShutdownRequest{}, ErrAlreadyResolved
	}
	return req, nil
}
