package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"outlet_control/internal/models"

	"github.com/google/uuid"
)

type TimerLogSQLite struct {
	db queryer
}

func NewTimerLogSQLite(db queryer) *TimerLogSQLite { return &TimerLogSQLite{db: db} }

const insertTimerLogSQL = `
	INSERT INTO timer_logs (id, outlet_id, status, duration_s, remaining_s, source, note, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Append inserts a new audit row. If ID or CreatedAt are empty, they're set.
func (r *TimerLogSQLite) Append(ctx context.Context, e models.TimerLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}

	var note *string
	if e.Note != "" {
		note = &e.Note
	}

	_, err := r.db.ExecContext(ctx, insertTimerLogSQL,
		e.ID,
		e.OutletID,
		strings.ToUpper(strings.TrimSpace(e.Status)),
		e.DurationSeconds,
		e.RemainingSeconds,
		strings.ToUpper(strings.TrimSpace(e.Source)),
		note,
		e.CreatedAt,
	)
	return err
}

// List returns entries filtered by outlet and/or status, newest first.
func (r *TimerLogSQLite) List(ctx context.Context, q LogQuery) ([]models.TimerLogEntry, error) {
	var (
		conds []string
		args  []any
	)

	if q.OutletID != "" {
		conds = append(conds, "outlet_id = ?")
		args = append(args, q.OutletID)
	}
	if status := strings.ToUpper(strings.TrimSpace(q.Status)); status != "" {
		conds = append(conds, "status = ?")
		args = append(args, status)
	}

	query := `SELECT id, outlet_id, status, duration_s, remaining_s, source, note, created_at FROM timer_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.TimerLogEntry, 0, 32)
	for rows.Next() {
		var (
			e    models.TimerLogEntry
			note sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OutletID, &e.Status, &e.DurationSeconds, &e.RemainingSeconds, &e.Source, &note, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Note = note.String
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
