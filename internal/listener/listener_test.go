package listener

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"ipsagent/internal"
	"ipsagent/internal/config"
	"ipsagent/internal/notify"
	"ipsagent/internal/storage"
)

type fakeBackend struct {
	requests   []internal.MaterialRequest
	deliveries []internal.Delivery
	err        error
}

func (f *fakeBackend) AllRequests(context.Context) ([]internal.MaterialRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.requests, nil
}

func (f *fakeBackend) DeliveriesByDriver(context.Context, int64) ([]internal.Delivery, error) {
	return f.deliveries, nil
}

type captureNotifier struct {
	titles []string
}

func (c *captureNotifier) Show(title, body, tag string) {
	c.titles = append(c.titles, title)
}

func newTestService(t *testing.T, backend *fakeBackend, role string) (*Service, *captureNotifier) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg, _ := config.Load()
	cfg.NotifyRole = role
	cfg.NotifyDesktop = false
	cfg.NotifyAutoExport = false
	cfg.NotifyDriverID = 0

	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := NewService(db, cfg, backend, log)
	capture := &captureNotifier{}
	svc.notifiers = []notify.Notifier{capture}
	return svc, capture
}

func pendingRequest(id int64) internal.MaterialRequest {
	return internal.MaterialRequest{
		ID:                id,
		Status:            internal.StatusPending,
		Project:           internal.Project{ID: 1, Name: "Riverside Tower"},
		Material:          internal.Material{ID: "cement", Name: "Cement"},
		RequestedQuantity: 10,
	}
}

func TestCycleNotifiesOnlyOnChange(t *testing.T) {
	backend := &fakeBackend{requests: []internal.MaterialRequest{pendingRequest(1)}}
	svc, capture := newTestService(t, backend, "HEAD_DRIVER")
	ctx := context.Background()

	// First cycle seeds the tracker.
	if err := svc.runCycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(capture.titles) != 0 {
		t.Fatalf("first cycle notified: %v", capture.titles)
	}

	// Unchanged snapshot stays silent.
	if err := svc.runCycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(capture.titles) != 0 {
		t.Fatalf("unchanged snapshot notified: %v", capture.titles)
	}

	// A new pending request is notifiable for the head driver.
	backend.requests = append(backend.requests, pendingRequest(2))
	if err := svc.runCycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(capture.titles) != 0 {
		t.Fatalf("first observation of a new entity must be silent: %v", capture.titles)
	}

	backend.requests[0].Status = internal.StatusAssigned
	backend.requests[0].Driver = &internal.Driver{ID: 2, Name: "Marat"}
	if err := svc.runCycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(capture.titles) != 1 || capture.titles[0] != "New Delivery Assignment" {
		t.Fatalf("titles: %v", capture.titles)
	}
}

func TestCycleKeepsStateOnFetchError(t *testing.T) {
	backend := &fakeBackend{requests: []internal.MaterialRequest{pendingRequest(1)}}
	svc, capture := newTestService(t, backend, "HEAD_DRIVER")
	ctx := context.Background()

	if err := svc.runCycle(ctx); err != nil {
		t.Fatal(err)
	}

	backend.err = errors.New("connection refused")
	if err := svc.runCycle(ctx); err == nil {
		t.Fatal("expected cycle error")
	}

	// Recovery diffs against the state from before the failure, so the
	// transition is still detected exactly once.
	backend.err = nil
	backend.requests[0].Status = internal.StatusAssigned
	if err := svc.runCycle(ctx); err != nil {
		t.Fatal(err)
	}
	if len(capture.titles) != 1 {
		t.Fatalf("titles: %v", capture.titles)
	}
}

func TestRoleFallsBackToConfig(t *testing.T) {
	backend := &fakeBackend{}
	svc, _ := newTestService(t, backend, "PROJECT_MANAGER")
	if got := svc.role(); got != internal.RoleProjectManager {
		t.Fatalf("role=%s", got)
	}

	if err := svc.db.SetSession(storage.SessionRole, "DRIVER"); err != nil {
		t.Fatal(err)
	}
	if got := svc.role(); got != internal.RoleDriver {
		t.Fatalf("session role must win, got %s", got)
	}
}
