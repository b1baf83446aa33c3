package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"outlet_control/internal/models"
)

type OutletSQLite struct {
	db queryer
}

func NewOutletSQLite(db queryer) *OutletSQLite {
	return &OutletSQLite{db: db}
}

const (
	outletColumns = `id, name, powerstrip_id, powered_on, default_duration_s,
		timer_active, timer_duration_s, timer_ends_at, timer_source, updated_at`

	upsertOutletSQL = `
		INSERT INTO outlets (id, name, powerstrip_id, powered_on, default_duration_s,
			timer_active, timer_duration_s, timer_ends_at, timer_source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			powerstrip_id=excluded.powerstrip_id,
			powered_on=excluded.powered_on,
			default_duration_s=excluded.default_duration_s,
			timer_active=excluded.timer_active,
			timer_duration_s=excluded.timer_duration_s,
			timer_ends_at=excluded.timer_ends_at,
			timer_source=excluded.timer_source,
			updated_at=excluded.updated_at
	`

	selectOutletSQL = `SELECT ` + outletColumns + ` FROM outlets WHERE id=?`

	selectByPowerstripSQL = `SELECT ` + outletColumns + ` FROM outlets WHERE powerstrip_id=? ORDER BY id ASC`

	selectActiveTimersSQL = `SELECT ` + outletColumns + ` FROM outlets WHERE timer_active=1`

	updateTimerSQL = `
		UPDATE outlets
		SET timer_active=?, timer_duration_s=?, timer_ends_at=?, timer_source=?, updated_at=?
		WHERE id=?
	`

	clearTimerSQL = `
		UPDATE outlets
		SET timer_active=0, timer_duration_s=0, timer_ends_at=NULL, timer_source='', updated_at=?
		WHERE id=?
	`

	updatePoweredSQL = `UPDATE outlets SET powered_on=?, updated_at=? WHERE id=?`

	updateDefaultDurationSQL = `UPDATE outlets SET default_duration_s=?, updated_at=? WHERE id=?`
)

// Save upserts the full outlet row, timer fields included.
func (r *OutletSQLite) Save(ctx context.Context, o models.OutletState) error {
	ts := o.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	var endsAt any
	if o.Timer.EndsAt != nil {
		endsAt = o.Timer.EndsAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertOutletSQL,
		o.ID,
		o.Name,
		o.PowerstripID,
		o.PoweredOn,
		o.DefaultDurationSeconds,
		o.Timer.IsActive,
		o.Timer.DurationSeconds,
		endsAt,
		o.Timer.Source,
		ts,
	)
	return err
}

// Get fetches one outlet. Returns a zero value (empty ID) when missing.
func (r *OutletSQLite) Get(ctx context.Context, id string) (models.OutletState, error) {
	row := r.db.QueryRowContext(ctx, selectOutletSQL, id)
	o, err := scanOutlet(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.OutletState{}, nil
		}
		return models.OutletState{}, err
	}
	return o, nil
}

func (r *OutletSQLite) ListByPowerstrip(ctx context.Context, powerstripID string) ([]models.OutletState, error) {
	rows, err := r.db.QueryContext(ctx, selectByPowerstripSQL, powerstripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOutlets(rows)
}

func (r *OutletSQLite) ListWithActiveTimer(ctx context.Context) ([]models.OutletState, error) {
	rows, err := r.db.QueryContext(ctx, selectActiveTimersSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOutlets(rows)
}

func (r *OutletSQLite) SaveTimer(ctx context.Context, outletID string, t models.TimerRecord) error {
	var endsAt any
	if t.EndsAt != nil {
		endsAt = t.EndsAt.UTC()
	}
	_, err := r.db.ExecContext(ctx, updateTimerSQL,
		t.IsActive, t.DurationSeconds, endsAt, t.Source, time.Now().UTC(), outletID)
	return err
}

func (r *OutletSQLite) ClearTimer(ctx context.Context, outletID string) error {
	_, err := r.db.ExecContext(ctx, clearTimerSQL, time.Now().UTC(), outletID)
	return err
}

func (r *OutletSQLite) SetPowered(ctx context.Context, outletID string, on bool) error {
	_, err := r.db.ExecContext(ctx, updatePoweredSQL, on, time.Now().UTC(), outletID)
	return err
}

func (r *OutletSQLite) SetDefaultDuration(ctx context.Context, outletID string, seconds int) error {
	_, err := r.db.ExecContext(ctx, updateDefaultDurationSQL, seconds, time.Now().UTC(), outletID)
	return err
}

func scanOutlet(scan func(dest ...any) error) (models.OutletState, error) {
	var (
		o      models.OutletState
		endsAt sql.NullTime
	)
	if err := scan(
		&o.ID,
		&o.Name,
		&o.PowerstripID,
		&o.PoweredOn,
		&o.DefaultDurationSeconds,
		&o.Timer.IsActive,
		&o.Timer.DurationSeconds,
		&endsAt,
		&o.Timer.Source,
		&o.UpdatedAt,
	); err != nil {
		return models.OutletState{}, err
	}
	if endsAt.Valid {
		t := endsAt.Time.UTC()
		o.Timer.EndsAt = &t
	}
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

func collectOutlets(rows *sql.Rows) ([]models.OutletState, error) {
	out := make([]models.OutletState, 0, 8)
	for rows.Next() {
		o, err := scanOutlet(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
