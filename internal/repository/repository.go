package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"outlet_control/internal/models"
	dbpkg "outlet_control/internal/repository/db"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

type OutletRepo interface {
	Save(ctx context.Context, o models.OutletState) error
	Get(ctx context.Context, id string) (models.OutletState, error)
	ListByPowerstrip(ctx context.Context, powerstripID string) ([]models.OutletState, error)
	ListWithActiveTimer(ctx context.Context) ([]models.OutletState, error)
	SaveTimer(ctx context.Context, outletID string, t models.TimerRecord) error
	ClearTimer(ctx context.Context, outletID string) error
	SetPowered(ctx context.Context, outletID string, on bool) error
	SetDefaultDuration(ctx context.Context, outletID string, seconds int) error
}

// LogQuery narrows timer log listings.
type LogQuery struct {
	OutletID string
	Status   string
	Limit    int
}

type TimerLogRepo interface {
	Append(ctx context.Context, e models.TimerLogEntry) error
	List(ctx context.Context, q LogQuery) ([]models.TimerLogEntry, error)
}

type GeofenceRepo interface {
	Load(ctx context.Context, powerstripID string) (models.GeofenceSettings, error)
	Save(ctx context.Context, s models.GeofenceSettings) error
	SetLastZone(ctx context.Context, powerstripID, zone string) error
	// ActivateCountdown is the activation lock: a conditional update that
	// succeeds only while countdown_active is still false. Returns whether
	// this caller won the race.
	ActivateCountdown(ctx context.Context, powerstripID string, startedAt, endsAt time.Time) (bool, error)
	DeactivateCountdown(ctx context.Context, powerstripID, lastZone string) error
}

type RequestRepo interface {
	Create(ctx context.Context, r models.AutoShutdownRequest) error
	Get(ctx context.Context, id string) (models.AutoShutdownRequest, error)
	ListPending(ctx context.Context, powerstripID string) ([]models.AutoShutdownRequest, error)
	Resolve(ctx context.Context, id, status string) error
	// ResolveSiblings moves every other still-PENDING request for the
	// powerstrip to status and returns how many rows changed.
	ResolveSiblings(ctx context.Context, powerstripID, excludeID, status string) (int64, error)
}

type NotificationRepo interface {
	Append(ctx context.Context, n models.NotificationRecord) error
	ExistsSince(ctx context.Context, outletID, message string, since time.Time) (bool, error)
	List(ctx context.Context, limit int) ([]models.NotificationRecord, error)
}

// Stores groups the per-aggregate repositories so transactional code can run
// against tx-bound instances.
type Stores struct {
	Outlets       OutletRepo
	TimerLogs     TimerLogRepo
	Geofence      GeofenceRepo
	Requests      RequestRepo
	Notifications NotificationRepo
}

// TxRunner executes fn against stores bound to one database transaction, so
// multi-row writes are never observed partially applied.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(s Stores) error) error
}

type Repository struct {
	Stores
	Auth Authorization
	db   *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Stores: newStores(db),
		Auth:   NewUserRepository(db),
		db:     db,
	}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func newStores(q queryer) Stores {
	return Stores{
		Outlets:       NewOutletSQLite(q),
		TimerLogs:     NewTimerLogSQLite(q),
		Geofence:      NewGeofenceSQLite(q),
		Requests:      NewRequestSQLite(q),
		Notifications: NewNotificationSQLite(q),
	}
}

// WithinTx runs fn with tx-bound stores; the transaction commits only when fn
// returns nil.
func (r *Repository) WithinTx(ctx context.Context, fn func(s Stores) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(newStores(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// InitDB opens the SQLite store and bootstraps the schema.
func InitDB(path string) (*sql.DB, error) {
	return dbpkg.InitDB(path)
}
