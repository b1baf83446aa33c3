package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"outlet_control/internal/models"
	"outlet_control/internal/repository"
)

type requestFixture struct {
	svc      *ShutdownRequestService
	requests *fakeRequestRepo
	outlets  *fakeOutletRepo
	geo      *fakeGeofenceRepo
	logs     *fakeLogRepo
	actuator *fakeActuator
	notifier *fakeNotifier
	now      time.Time
}

func newRequestFixture(requests []models.AutoShutdownRequest, outlets ...models.OutletState) *requestFixture {
	reqRepo := newFakeRequestRepo(requests...)
	outletRepo := newFakeOutletRepo(outlets...)
	geoRepo := newFakeGeofenceRepo(models.GeofenceSettings{PowerstripID: "strip-1", CountdownActive: true})
	logs := &fakeLogRepo{}
	act := &fakeActuator{}
	notif := &fakeNotifier{}
	tx := &fakeTx{stores: repository.Stores{
		Outlets:   outletRepo,
		TimerLogs: logs,
		Geofence:  geoRepo,
		Requests:  reqRepo,
	}}

	svc := NewShutdownRequestService(reqRepo, outletRepo, geoRepo, tx, act, notif, testLogger())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &requestFixture{
		svc:      svc,
		requests: reqRepo,
		outlets:  outletRepo,
		geo:      geoRepo,
		logs:     logs,
		actuator: act,
		notifier: notif,
		now:      now,
	}
}

func pendingRequest(id string) models.AutoShutdownRequest {
	return models.AutoShutdownRequest{
		ID:           id,
		PowerstripID: "strip-1",
		Status:       models.RequestPending,
		InitiatedAt:  time.Date(2025, 6, 1, 11, 55, 0, 0, time.UTC),
	}
}

func TestShutdownRequestService_Open_RequiresPowerstrip(t *testing.T) {
	fx := newRequestFixture(nil)
	_, err := fx.svc.Open(context.Background(), "  ", "", "", nil)
	if err == nil {
		t.Fatalf("expected error for missing powerstrip id")
	}
}

func TestShutdownRequestService_Open_CreatesPending(t *testing.T) {
	fx := newRequestFixture(nil)
	req, err := fx.svc.Open(context.Background(), "strip-1", "o1", "left stove on", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ID == "" || req.Status != models.RequestPending {
		t.Fatalf("unexpected request: %+v", req)
	}
	if fx.requests.get(req.ID).Status != models.RequestPending {
		t.Fatalf("request not persisted")
	}
}

func TestShutdownRequestService_Confirm_UnknownRequest(t *testing.T) {
	fx := newRequestFixture(nil)
	_, err := fx.svc.Confirm(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestShutdownRequestService_Confirm_AlreadyResolved(t *testing.T) {
	done := pendingRequest("req-1")
	done.Status = models.RequestConfirmed
	fx := newRequestFixture([]models.AutoShutdownRequest{done})

	_, err := fx.svc.Confirm(context.Background(), "req-1")
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

func TestShutdownRequestService_Confirm_ResolvesBatchAndPowersOff(t *testing.T) {
	armed := poweredOutlet("o1")
	armed.Timer = activeTimer(900, models.SourceGeofence, time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC))
	off := poweredOutlet("o3")
	off.PoweredOn = false

	fx := newRequestFixture(
		[]models.AutoShutdownRequest{pendingRequest("req-1"), pendingRequest("req-2"), pendingRequest("req-3")},
		armed, poweredOutlet("o2"), off,
	)

	res, err := fx.svc.Confirm(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Request.Status != models.RequestConfirmed {
		t.Fatalf("expected CONFIRMED, got %q", res.Request.Status)
	}
	if res.ResolvedSiblings != 2 {
		t.Fatalf("expected 2 resolved siblings, got %d", res.ResolvedSiblings)
	}
	for _, id := range []string{"req-1", "req-2", "req-3"} {
		if got := fx.requests.get(id).Status; got != models.RequestConfirmed {
			t.Fatalf("request %s not confirmed: %q", id, got)
		}
	}

	if len(res.AffectedOutlets) != 2 {
		t.Fatalf("expected the two powered outlets affected, got %v", res.AffectedOutlets)
	}
	for _, id := range []string{"o1", "o2"} {
		o := fx.outlets.get(id)
		if o.PoweredOn {
			t.Fatalf("outlet %s must be off after confirmation", id)
		}
		if o.Timer.IsActive {
			t.Fatalf("outlet %s timer must be cleared", id)
		}
	}
	if fx.outlets.get("o3").PoweredOn {
		t.Fatalf("already-off outlet must stay untouched")
	}

	if got := len(fx.logs.byStatus(models.LogPowerOff)); got != 2 {
		t.Fatalf("expected 2 POWER_OFF logs, got %d", got)
	}
	if fx.actuator.callCount() != 2 {
		t.Fatalf("expected 2 relay calls, got %d", fx.actuator.callCount())
	}
	if fx.geo.get("strip-1").CountdownActive {
		t.Fatalf("countdown bookkeeping must be reset")
	}

	sent := fx.notifier.all()
	if len(sent) != 1 {
		t.Fatalf("expected one aggregated notification, got %d", len(sent))
	}
	if len(sent[0].outletIDs) != 2 {
		t.Fatalf("notification must name the affected outlets, got %v", sent[0].outletIDs)
	}
}

func TestShutdownRequestService_Confirm_ActuatorFailureIsLoggedNotFatal(t *testing.T) {
	fx := newRequestFixture([]models.AutoShutdownRequest{pendingRequest("req-1")}, poweredOutlet("o1"))
	fx.actuator.err = errors.New("relay unreachable")

	res, err := fx.svc.Confirm(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("relay failure must not fail the confirmation: %v", err)
	}
	if res.Request.Status != models.RequestConfirmed {
		t.Fatalf("expected CONFIRMED, got %q", res.Request.Status)
	}
}

func TestShutdownRequestService_Cancel_LeavesOutletsOn(t *testing.T) {
	armed := poweredOutlet("o1")
	armed.Timer = activeTimer(900, models.SourceGeofence, time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC))
	fx := newRequestFixture(
		[]models.AutoShutdownRequest{pendingRequest("req-1"), pendingRequest("req-2")},
		armed,
	)

	res, err := fx.svc.Cancel(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Request.Status != models.RequestCancelled || res.ResolvedSiblings != 1 {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if fx.requests.get("req-2").Status != models.RequestCancelled {
		t.Fatalf("sibling not cancelled")
	}

	o := fx.outlets.get("o1")
	if !o.PoweredOn || !o.Timer.IsActive {
		t.Fatalf("cancel must leave the outlet untouched: %+v", o)
	}
	if fx.actuator.callCount() != 0 {
		t.Fatalf("cancel must not touch the relay")
	}
	if len(fx.notifier.all()) != 1 {
		t.Fatalf("expected a declined notification")
	}
}

func TestShutdownRequestService_ListPending(t *testing.T) {
	fx := newRequestFixture([]models.AutoShutdownRequest{pendingRequest("req-1")})
	list, err := fx.svc.ListPending(context.Background(), "strip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ID != "req-1" {
		t.Fatalf("unexpected pending list: %+v", list)
	}
}
