package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"outlet_control/internal/models"
)

type RequestSQLite struct {
	db queryer
}

func NewRequestSQLite(db queryer) *RequestSQLite { return &RequestSQLite{db: db} }

const (
	insertRequestSQL = `
		INSERT INTO auto_shutdown_requests (id, powerstrip_id, outlet_id, status, initiated_at, expires_at, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectRequestSQL = `
		SELECT id, powerstrip_id, outlet_id, status, initiated_at, expires_at, note
		FROM auto_shutdown_requests WHERE id=?
	`

	selectPendingSQL = `
		SELECT id, powerstrip_id, outlet_id, status, initiated_at, expires_at, note
		FROM auto_shutdown_requests
		WHERE powerstrip_id=? AND status=?
		ORDER BY initiated_at ASC
	`

	resolveRequestSQL = `UPDATE auto_shutdown_requests SET status=? WHERE id=?`

	resolveSiblingsSQL = `
		UPDATE auto_shutdown_requests
		SET status=?
		WHERE powerstrip_id=? AND id<>? AND status=?
	`
)

func (r *RequestSQLite) Create(ctx context.Context, req models.AutoShutdownRequest) error {
	if req.InitiatedAt.IsZero() {
		req.InitiatedAt = time.Now().UTC()
	} else {
		req.InitiatedAt = req.InitiatedAt.UTC()
	}

	var expires any
	if req.ExpiresAt != nil {
		expires = req.ExpiresAt.UTC()
	}
	var note *string
	if req.Note != "" {
		note = &req.Note
	}

	_, err := r.db.ExecContext(ctx, insertRequestSQL,
		req.ID, req.PowerstripID, req.OutletID, req.Status, req.InitiatedAt, expires, note)
	return err
}

// Get fetches one request. Returns a zero value (empty ID) when missing.
func (r *RequestSQLite) Get(ctx context.Context, id string) (models.AutoShutdownRequest, error) {
	row := r.db.QueryRowContext(ctx, selectRequestSQL, id)
	req, err := scanRequest(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AutoShutdownRequest{}, nil
		}
		return models.AutoShutdownRequest{}, err
	}
	return req, nil
}

func (r *RequestSQLite) ListPending(ctx context.Context, powerstripID string) ([]models.AutoShutdownRequest, error) {
	rows, err := r.db.QueryContext(ctx, selectPendingSQL, powerstripID, models.RequestPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.AutoShutdownRequest, 0, 4)
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RequestSQLite) Resolve(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, resolveRequestSQL, status, id)
	return err
}

func (r *RequestSQLite) ResolveSiblings(ctx context.Context, powerstripID, excludeID, status string) (int64, error) {
	res, err := r.db.ExecContext(ctx, resolveSiblingsSQL, status, powerstripID, excludeID, models.RequestPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRequest(scan func(dest ...any) error) (models.AutoShutdownRequest, error) {
	var (
		req      models.AutoShutdownRequest
		outletID sql.NullString
		expires  sql.NullTime
		note     sql.NullString
	)
	if err := scan(&req.ID, &req.PowerstripID, &outletID, &req.Status, &req.InitiatedAt, &expires, &note); err != nil {
		return models.AutoShutdownRequest{}, err
	}
	req.OutletID = outletID.String
	req.Note = note.String
	req.InitiatedAt = req.InitiatedAt.UTC()
	if expires.Valid {
		t := expires.Time.UTC()
		req.ExpiresAt = &t
	}
	return req, nil
}
