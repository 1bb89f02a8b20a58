package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/palisadehq/palisade/internal/entities"
	"github.com/palisadehq/palisade/internal/services/privileges"
)

type mockConfigRepository struct {
	snapshot *entities.ConfigSnapshot
	err      error
	loads    int
}

func (m *mockConfigRepository) Load(ctx context.Context) (*entities.ConfigSnapshot, error) {
	m.loads++
	return m.snapshot, m.err
}

type recordingListener struct {
	models []*privileges.Model
}

func (l *recordingListener) OnModelChanged(model *privileges.Model) {
	l.models = append(l.models, model)
}

func testSnapshot(version string) *entities.ConfigSnapshot {
	return &entities.ConfigSnapshot{
		Version: version,
		Roles: map[string]*entities.Role{
			"reader": {
				Name: "reader",
				IndexPermissions: []*entities.IndexPermission{
					{IndexPattern: "logs-*", TypePermissions: map[string][]string{"*": {"indices:data/read/*"}}},
				},
			},
		},
		RoleMappings: []*entities.RoleMapping{{Name: "reader", Users: []string{"alice"}}},
		Tenants:      map[string]*entities.Tenant{},
		Dynamic:      entities.DefaultDynamicSettings(),
	}
}

func TestSnapshotService_ApplyNotifiesListeners(t *testing.T) {
	svc := NewSnapshotService(nil, 2, time.Second, nil, nil)
	listener := &recordingListener{}
	svc.Subscribe(listener)

	if err := svc.Apply(context.Background(), testSnapshot("v1")); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if len(listener.models) != 1 {
		t.Fatalf("expected 1 model notification, got %d", len(listener.models))
	}
	if listener.models[0].Version() != "v1" {
		t.Errorf("model version = %q, want v1", listener.models[0].Version())
	}
	if svc.CurrentVersion() != "v1" {
		t.Errorf("CurrentVersion() = %q, want v1", svc.CurrentVersion())
	}
}

func TestSnapshotService_ApplySameVersionIsIdempotent(t *testing.T) {
	svc := NewSnapshotService(nil, 2, time.Second, nil, nil)
	listener := &recordingListener{}
	svc.Subscribe(listener)

	if err := svc.Apply(context.Background(), testSnapshot("v1")); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := svc.Apply(context.Background(), testSnapshot("v1")); err != nil {
		t.Fatalf("Apply (repeat): %v", err)
	}

	if len(listener.models) != 1 {
		t.Errorf("unchanged snapshot must not be rebuilt, got %d notifications", len(listener.models))
	}

	if err := svc.Apply(context.Background(), testSnapshot("v2")); err != nil {
		t.Fatalf("Apply v2: %v", err)
	}
	if len(listener.models) != 2 {
		t.Errorf("new version should notify, got %d notifications", len(listener.models))
	}
}

func TestSnapshotService_Reload(t *testing.T) {
	repo := &mockConfigRepository{snapshot: testSnapshot("v7")}
	svc := NewSnapshotService(repo, 2, time.Second, nil, nil)
	listener := &recordingListener{}
	svc.Subscribe(listener)

	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if repo.loads != 1 {
		t.Errorf("expected one repository load, got %d", repo.loads)
	}
	if svc.CurrentVersion() != "v7" {
		t.Errorf("CurrentVersion() = %q, want v7", svc.CurrentVersion())
	}
}

func TestSnapshotService_ReloadFailureKeepsPrevious(t *testing.T) {
	repo := &mockConfigRepository{snapshot: testSnapshot("v1")}
	svc := NewSnapshotService(repo, 2, time.Second, nil, nil)
	listener := &recordingListener{}
	svc.Subscribe(listener)

	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	repo.snapshot = nil
	repo.err = errors.New("store unavailable")
	if err := svc.Reload(context.Background()); err == nil {
		t.Fatal("expected reload failure")
	}

	if svc.CurrentVersion() != "v1" {
		t.Errorf("failed reload must keep the previous version, got %q", svc.CurrentVersion())
	}
	if len(listener.models) != 1 {
		t.Errorf("failed reload must not notify listeners, got %d notifications", len(listener.models))
	}
}
