package service

import (
	"context"
	"sync"
	"time"

	"outlet_control/internal/logger"
	"outlet_control/internal/models"
	"outlet_control/internal/repository"
)

// Shared in-memory fakes for the service tests. They implement the repository
// interfaces over maps guarded by a mutex so the concurrency tests can hammer
// them from multiple goroutines.

type fakeOutletRepo struct {
	mu      sync.Mutex
	outlets map[string]models.OutletState
	getErr  error
	saveErr error
}

func newFakeOutletRepo(outlets ...models.OutletState) *fakeOutletRepo {
	f := &fakeOutletRepo{outlets: make(map[string]models.OutletState)}
	for _, o := range outlets {
		f.outlets[o.ID] = o
	}
	return f
}

func (f *fakeOutletRepo) Save(ctx context.Context, o models.OutletState) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outlets[o.ID] = o
	return nil
}

func (f *fakeOutletRepo) Get(ctx context.Context, id string) (models.OutletState, error) {
	if f.getErr != nil {
		return models.OutletState{}, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outlets[id], nil
}

func (f *fakeOutletRepo) ListByPowerstrip(ctx context.Context, powerstripID string) ([]models.OutletState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OutletState
	for _, o := range f.outlets {
		if o.PowerstripID == powerstripID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOutletRepo) ListWithActiveTimer(ctx context.Context) ([]models.OutletState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OutletState
	for _, o := range f.outlets {
		if o.Timer.IsActive {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOutletRepo) SaveTimer(ctx context.Context, outletID string, t models.TimerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.outlets[outletID]
	o.Timer = t
	f.outlets[outletID] = o
	return nil
}

func (f *fakeOutletRepo) ClearTimer(ctx context.Context, outletID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.outlets[outletID]
	o.Timer = models.TimerRecord{}
	f.outlets[outletID] = o
	return nil
}

func (f *fakeOutletRepo) SetPowered(ctx context.Context, outletID string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.outlets[outletID]
	o.PoweredOn = on
	f.outlets[outletID] = o
	return nil
}

func (f *fakeOutletRepo) SetDefaultDuration(ctx context.Context, outletID string, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.outlets[outletID]
	o.DefaultDurationSeconds = seconds
	f.outlets[outletID] = o
	return nil
}

func (f *fakeOutletRepo) get(id string) models.OutletState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outlets[id]
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []models.TimerLogEntry
}

func (f *fakeLogRepo) Append(ctx context.Context, e models.TimerLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLogRepo) List(ctx context.Context, q repository.LogQuery) ([]models.TimerLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TimerLogEntry
	for _, e := range f.entries {
		if q.OutletID != "" && e.OutletID != q.OutletID {
			continue
		}
		if q.Status != "" && e.Status != q.Status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeLogRepo) byStatus(status string) []models.TimerLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TimerLogEntry
	for _, e := range f.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

type fakeGeofenceRepo struct {
	mu       sync.Mutex
	settings map[string]models.GeofenceSettings
}

func newFakeGeofenceRepo(settings ...models.GeofenceSettings) *fakeGeofenceRepo {
	f := &fakeGeofenceRepo{settings: make(map[string]models.GeofenceSettings)}
	for _, s := range settings {
		f.settings[s.PowerstripID] = s
	}
	return f
}

func (f *fakeGeofenceRepo) Load(ctx context.Context, powerstripID string) (models.GeofenceSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings[powerstripID], nil
}

func (f *fakeGeofenceRepo) Save(ctx context.Context, s models.GeofenceSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[s.PowerstripID] = s
	return nil
}

func (f *fakeGeofenceRepo) SetLastZone(ctx context.Context, powerstripID, zone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.settings[powerstripID]
	s.LastZone = zone
	f.settings[powerstripID] = s
	return nil
}

// ActivateCountdown mirrors the conditional update in the sqlite store: it
// succeeds only while countdown_active is still false.
func (f *fakeGeofenceRepo) ActivateCountdown(ctx context.Context, powerstripID string, startedAt, endsAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.settings[powerstripID]
	if s.CountdownActive {
		return false, nil
	}
	s.CountdownActive = true
	s.CountdownStartedAt = &startedAt
	s.CountdownEndsAt = &endsAt
	f.settings[powerstripID] = s
	return true, nil
}

func (f *fakeGeofenceRepo) DeactivateCountdown(ctx context.Context, powerstripID, lastZone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.settings[powerstripID]
	s.CountdownActive = false
	s.CountdownStartedAt = nil
	s.CountdownEndsAt = nil
	s.LastZone = lastZone
	f.settings[powerstripID] = s
	return nil
}

func (f *fakeGeofenceRepo) get(powerstripID string) models.GeofenceSettings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings[powerstripID]
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[string]models.AutoShutdownRequest
}

func newFakeRequestRepo(requests ...models.AutoShutdownRequest) *fakeRequestRepo {
	f := &fakeRequestRepo{requests: make(map[string]models.AutoShutdownRequest)}
	for _, r := range requests {
		f.requests[r.ID] = r
	}
	return f
}

func (f *fakeRequestRepo) Create(ctx context.Context, r models.AutoShutdownRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.ID] = r
	return nil
}

func (f *fakeRequestRepo) Get(ctx context.Context, id string) (models.AutoShutdownRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[id], nil
}

func (f *fakeRequestRepo) ListPending(ctx context.Context, powerstripID string) ([]models.AutoShutdownRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AutoShutdownRequest
	for _, r := range f.requests {
		if r.PowerstripID == powerstripID && r.Status == models.RequestPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) Resolve(ctx context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.requests[id]
	r.Status = status
	f.requests[id] = r
	return nil
}

func (f *fakeRequestRepo) ResolveSiblings(ctx context.Context, powerstripID, excludeID, status string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.requests {
		if r.PowerstripID == powerstripID && id != excludeID && r.Status == models.RequestPending {
			r.Status = status
			f.requests[id] = r
			n++
		}
	}
	return n, nil
}

func (f *fakeRequestRepo) get(id string) models.AutoShutdownRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[id]
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	records []models.NotificationRecord
}

func (f *fakeNotificationRepo) Append(ctx context.Context, n models.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, n)
	return nil
}

func (f *fakeNotificationRepo) ExistsSince(ctx context.Context, outletID, message string, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.OutletID == outletID && r.Message == message && !r.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationRepo) List(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.NotificationRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

// fakeTx runs the callback against the same fakes the service already holds;
// the fakes apply writes immediately, which is enough for behavior tests.
type fakeTx struct {
	stores repository.Stores
	err    error
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(s repository.Stores) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(f.stores)
}

type actuatorCall struct {
	outletID string
	on       bool
}

type fakeActuator struct {
	mu    sync.Mutex
	calls []actuatorCall
	err   error
}

func (f *fakeActuator) SetPower(ctx context.Context, outletID string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, actuatorCall{outletID: outletID, on: on})
	return f.err
}

func (f *fakeActuator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type sentNotification struct {
	outletIDs []string
	message   string
	severity  string
	deduped   bool
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Send(ctx context.Context, outletIDs []string, message, severity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{outletIDs: outletIDs, message: message, severity: severity})
	return nil
}

func (f *fakeNotifier) SendDeduped(ctx context.Context, outletIDs []string, message, severity string, window time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{outletIDs: outletIDs, message: message, severity: severity, deduped: true})
	return nil
}

func (f *fakeNotifier) all() []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentNotification, len(f.sent))
	copy(out, f.sent)
	return out
}

// manualScheduler records callbacks instead of arming real timers; tests fire
// them explicitly.
type manualScheduler struct {
	mu        sync.Mutex
	callbacks map[string]func()
	delays    map[string]time.Duration
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{
		callbacks: make(map[string]func()),
		delays:    make(map[string]time.Duration),
	}
}

func (s *manualScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[key] = fn
	s.delays[key] = delay
}

func (s *manualScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.callbacks, key)
	delete(s.delays, key)
}

func (s *manualScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = make(map[string]func())
	s.delays = make(map[string]time.Duration)
}

func (s *manualScheduler) fire(key string) bool {
	s.mu.Lock()
	fn, ok := s.callbacks[key]
	delete(s.callbacks, key)
	delete(s.delays, key)
	s.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

func (s *manualScheduler) scheduled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.callbacks[key]
	return ok
}

func testLogger() *logger.Logger {
	return logger.Get(logger.ErrorLevel)
}

func ptrFloat(v float64) *float64 { return &v }

func ptrTime(t time.Time) *time.Time { return &t }
