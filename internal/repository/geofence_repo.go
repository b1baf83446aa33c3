package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"outlet_control/internal/models"
)

type GeofenceSQLite struct {
	db queryer
}

func NewGeofenceSQLite(db queryer) *GeofenceSQLite { return &GeofenceSQLite{db: db} }

const (
	upsertGeofenceSQL = `
		INSERT INTO geofence_settings (powerstrip_id, enabled, home_lat, home_lon, radius_m,
			auto_shutdown_s, last_zone, countdown_active, countdown_started_at, countdown_ends_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(powerstrip_id) DO UPDATE SET
			enabled=excluded.enabled,
			home_lat=excluded.home_lat,
			home_lon=excluded.home_lon,
			radius_m=excluded.radius_m,
			auto_shutdown_s=excluded.auto_shutdown_s,
			last_zone=excluded.last_zone,
			countdown_active=excluded.countdown_active,
			countdown_started_at=excluded.countdown_started_at,
			countdown_ends_at=excluded.countdown_ends_at,
			updated_at=excluded.updated_at
	`

	selectGeofenceSQL = `
		SELECT powerstrip_id, enabled, home_lat, home_lon, radius_m, auto_shutdown_s,
			last_zone, countdown_active, countdown_started_at, countdown_ends_at, updated_at
		FROM geofence_settings WHERE powerstrip_id=?
	`

	updateLastZoneSQL = `UPDATE geofence_settings SET last_zone=?, updated_at=? WHERE powerstrip_id=?`

	// The WHERE countdown_active=0 clause is the activation lock: under
	// concurrent location reports exactly one update affects a row.
	activateCountdownSQL = `
		UPDATE geofence_settings
		SET countdown_active=1, countdown_started_at=?, countdown_ends_at=?, updated_at=?
		WHERE powerstrip_id=? AND countdown_active=0
	`

	deactivateCountdownSQL = `
		UPDATE geofence_settings
		SET countdown_active=0, countdown_started_at=NULL, countdown_ends_at=NULL, last_zone=?, updated_at=?
		WHERE powerstrip_id=?
	`
)

// Load fetches the settings row. Returns a zero value (empty PowerstripID)
// when the powerstrip has no geofence configured.
func (r *GeofenceSQLite) Load(ctx context.Context, powerstripID string) (models.GeofenceSettings, error) {
	row := r.db.QueryRowContext(ctx, selectGeofenceSQL, powerstripID)

	var (
		s          models.GeofenceSettings
		lat, lon   sql.NullFloat64
		started    sql.NullTime
		ends       sql.NullTime
	)
	if err := row.Scan(
		&s.PowerstripID,
		&s.Enabled,
		&lat,
		&lon,
		&s.RadiusMeters,
		&s.AutoShutdownSeconds,
		&s.LastZone,
		&s.CountdownActive,
		&started,
		&ends,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.GeofenceSettings{}, nil
		}
		return models.GeofenceSettings{}, err
	}

	if lat.Valid {
		v := lat.Float64
		s.HomeLatitude = &v
	}
	if lon.Valid {
		v := lon.Float64
		s.HomeLongitude = &v
	}
	if started.Valid {
		t := started.Time.UTC()
		s.CountdownStartedAt = &t
	}
	if ends.Valid {
		t := ends.Time.UTC()
		s.CountdownEndsAt = &t
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *GeofenceSQLite) Save(ctx context.Context, s models.GeofenceSettings) error {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	var lat, lon, started, ends any
	if s.HomeLatitude != nil {
		lat = *s.HomeLatitude
	}
	if s.HomeLongitude != nil {
		lon = *s.HomeLongitude
	}
	if s.CountdownStartedAt != nil {
		started = s.CountdownStartedAt.UTC()
	}
	if s.CountdownEndsAt != nil {
		ends = s.CountdownEndsAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertGeofenceSQL,
		s.PowerstripID,
		s.Enabled,
		lat,
		lon,
		s.RadiusMeters,
		s.AutoShutdownSeconds,
		s.LastZone,
		s.CountdownActive,
		started,
		ends,
		ts,
	)
	return err
}

func (r *GeofenceSQLite) SetLastZone(ctx context.Context, powerstripID, zone string) error {
	_, err := r.db.ExecContext(ctx, updateLastZoneSQL, zone, time.Now().UTC(), powerstripID)
	return err
}

func (r *GeofenceSQLite) ActivateCountdown(ctx context.Context, powerstripID string, startedAt, endsAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, activateCountdownSQL,
		startedAt.UTC(), endsAt.UTC(), time.Now().UTC(), powerstripID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GeofenceSQLite) DeactivateCountdown(ctx context.Context, powerstripID, lastZone string) error {
	_, err := r.db.ExecContext(ctx, deactivateCountdownSQL, lastZone, time.Now().UTC(), powerstripID)
	return err
}
