package handlers

import (
	"context"
	"net/http"
	"time"

	"outlet_control/internal/models"
	"outlet_control/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockTimers struct {
	status    service.TimerStatus
	startErr  error
	stopErr   error
	statusErr error
	presetErr error

	startCalls  int
	stopCalls   int
	presetCalls int

	lastOutletID string
	lastDuration int
	lastSource   string
	lastStart    service.StartOpts
	lastStop     service.StopOpts
	lastPreset   int
}

func (m *mockTimers) Start(ctx context.Context, outletID string, durationSeconds int, source string, opts service.StartOpts) (service.TimerStatus, error) {
	m.startCalls++
	m.lastOutletID = outletID
	m.lastDuration = durationSeconds
	m.lastSource = source
	m.lastStart = opts
	return m.status, m.startErr
}
func (m *mockTimers) Stop(ctx context.Context, outletID string, opts service.StopOpts) (service.TimerStatus, error) {
	m.stopCalls++
	m.lastOutletID = outletID
	m.lastStop = opts
	return m.status, m.stopErr
}
func (m *mockTimers) Status(ctx context.Context, outletID string) (service.TimerStatus, error) {
	m.lastOutletID = outletID
	return m.status, m.statusErr
}
func (m *mockTimers) UpdatePreset(ctx context.Context, outletID string, durationSeconds int) error {
	m.presetCalls++
	m.lastOutletID = outletID
	m.lastPreset = durationSeconds
	return m.presetErr
}
func (m *mockTimers) OnOutletPoweredOff(ctx context.Context, outletID string) error { return nil }
func (m *mockTimers) Restore(ctx context.Context) error                             { return nil }
func (m *mockTimers) Shutdown()                                                     {}

type mockGeofence struct {
	evaluation service.Evaluation
	settings   models.GeofenceSettings
	evalErr    error
	getErr     error
	updateErr  error

	lastPowerstripID string
	lastLat, lastLon float64
	lastParams       service.GeofenceParams
}

func (m *mockGeofence) Evaluate(ctx context.Context, powerstripID string, lat, lon float64) (service.Evaluation, error) {
	m.lastPowerstripID = powerstripID
	m.lastLat, m.lastLon = lat, lon
	return m.evaluation, m.evalErr
}
func (m *mockGeofence) Settings(ctx context.Context, powerstripID string) (models.GeofenceSettings, error) {
	m.lastPowerstripID = powerstripID
	return m.settings, m.getErr
}
func (m *mockGeofence) UpdateSettings(ctx context.Context, powerstripID string, p service.GeofenceParams) (models.GeofenceSettings, error) {
	m.lastPowerstripID = powerstripID
	m.lastParams = p
	return m.settings, m.updateErr
}

type mockRequests struct {
	request    models.AutoShutdownRequest
	resolution service.Resolution
	pending    []models.AutoShutdownRequest
	openErr    error
	confirmErr error
	cancelErr  error
	listErr    error

	lastPowerstripID string
	lastOutletID     string
	lastNote         string
	lastExpiresAt    *time.Time
	lastRequestID    string
}

func (m *mockRequests) Open(ctx context.Context, powerstripID, outletID, note string, expiresAt *time.Time) (models.AutoShutdownRequest, error) {
	m.lastPowerstripID = powerstripID
	m.lastOutletID = outletID
	m.lastNote = note
	m.lastExpiresAt = expiresAt
	return m.request, m.openErr
}
func (m *mockRequests) Confirm(ctx context.Context, requestID string) (service.Resolution, error) {
	m.lastRequestID = requestID
	return m.resolution, m.confirmErr
}
func (m *mockRequests) Cancel(ctx context.Context, requestID string) (service.Resolution, error) {
	m.lastRequestID = requestID
	return m.resolution, m.cancelErr
}
func (m *mockRequests) ListPending(ctx context.Context, powerstripID string) ([]models.AutoShutdownRequest, error) {
	m.lastPowerstripID = powerstripID
	return m.pending, m.listErr
}

type mockOutlets struct {
	outlet   models.OutletState
	outlets  []models.OutletState
	saveErr  error
	getErr   error
	listErr  error
	powerErr error

	lastSaved models.OutletState
	lastID    string
	lastOn    bool
}

func (m *mockOutlets) Save(ctx context.Context, o models.OutletState) (models.OutletState, error) {
	m.lastSaved = o
	return m.outlet, m.saveErr
}
func (m *mockOutlets) Get(ctx context.Context, id string) (models.OutletState, error) {
	m.lastID = id
	return m.outlet, m.getErr
}
func (m *mockOutlets) ListByPowerstrip(ctx context.Context, powerstripID string) ([]models.OutletState, error) {
	m.lastID = powerstripID
	return m.outlets, m.listErr
}
func (m *mockOutlets) SetPower(ctx context.Context, id string, on bool) (models.OutletState, error) {
	m.lastID = id
	m.lastOn = on
	return m.outlet, m.powerErr
}

type mockEventLog struct {
	resp       []models.TimerLogEntry
	err        error
	lastFilter service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.TimerLogEntry, error) {
	m.lastFilter = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
