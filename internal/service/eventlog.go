package service

import (
	"context"
	"strings"

	"outlet_control/internal/models"
	"outlet_control/internal/repository"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 500
)

// EventLogService exposes the append-only timer audit trail.
type EventLogService struct {
	logs repository.TimerLogRepo
}

func NewEventLogService(logs repository.TimerLogRepo) *EventLogService {
	return &EventLogService{logs: logs}
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.TimerLogEntry, error) {
	limit := f.Limit
	if limit <= 0 || limit > maxLogLimit {
		limit = defaultLogLimit
	}
	return s.logs.List(ctx, repository.LogQuery{
		OutletID: strings.TrimSpace(f.OutletID),
		Status:   strings.ToUpper(strings.TrimSpace(f.Status)),
		Limit:    limit,
	})
}
