package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/palisadehq/palisade/internal/entities"
	"github.com/palisadehq/palisade/internal/repositories"
	"github.com/palisadehq/palisade/internal/services/privileges"
)

// ModelListener is notified whenever a new evaluation model has been
// built and published. The evaluator implements this to swap its
// model pointer.
type ModelListener interface {
	OnModelChanged(model *privileges.Model)
}

// ReloadRecorder receives configuration reload metrics.
type ReloadRecorder interface {
	RecordReload(success bool)
	RecordTenantRebuildDuration(seconds float64)
}

type nopReloadRecorder struct{}

func (nopReloadRecorder) RecordReload(bool)                   {}
func (nopReloadRecorder) RecordTenantRebuildDuration(float64) {}

// SnapshotService owns the configuration lifecycle: it accepts parsed
// snapshots (pushed by the host or pulled from a repository), compiles
// them into evaluation models off to the side, and fans the finished
// model out to listeners. If compilation fails, the previous model
// stays authoritative everywhere; a partial model is never published.
type SnapshotService struct {
	repo          repositories.ConfigRepository
	tenantWorkers int
	tenantTimeout time.Duration
	recorder      ReloadRecorder
	logger        *slog.Logger

	mu             sync.Mutex // Serializes publishes and listener changes
	listeners      []ModelListener
	currentVersion string
}

// NewSnapshotService creates a snapshot service. The repository may be
// nil when snapshots are only ever pushed via Apply.
func NewSnapshotService(repo repositories.ConfigRepository, tenantWorkers int,
	tenantTimeout time.Duration, recorder ReloadRecorder, logger *slog.Logger) *SnapshotService {
	if recorder == nil {
		recorder = nopReloadRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotService{
		repo:          repo,
		tenantWorkers: tenantWorkers,
		tenantTimeout: tenantTimeout,
		recorder:      recorder,
		logger:        logger,
	}
}

// Subscribe registers a listener. Listeners added after a snapshot was
// published do not receive it retroactively; call Reload or Apply
// afterwards if needed.
func (s *SnapshotService) Subscribe(listener ModelListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// CurrentVersion returns the version of the last published snapshot,
// or the empty string if none was published yet.
func (s *SnapshotService) CurrentVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentVersion
}

// Reload loads the configuration from the repository and applies it.
func (s *SnapshotService) Reload(ctx context.Context) error {
	if s.repo == nil {
		return fmt.Errorf("snapshot service: no config repository configured")
	}
	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		s.recorder.RecordReload(false)
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return s.Apply(ctx, snapshot)
}

// Apply compiles and publishes a snapshot. Applying the version that
// is already live is a no-op, so repeated delivery of an unchanged
// snapshot is safe. On compilation failure nothing is published and
// the error is returned.
func (s *SnapshotService) Apply(ctx context.Context, snapshot *entities.ConfigSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot service: nil snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.Version != "" && snapshot.Version == s.currentVersion {
		s.logger.Debug("snapshot version unchanged, skipping rebuild", "version", snapshot.Version)
		return nil
	}

	start := time.Now()
	model, err := privileges.BuildModel(ctx, snapshot, s.tenantWorkers, s.tenantTimeout)
	s.recorder.RecordTenantRebuildDuration(time.Since(start).Seconds())
	if err != nil {
		s.recorder.RecordReload(false)
		s.logger.Error("snapshot rebuild failed, previous configuration stays live",
			"version", snapshot.Version, "error", err)
		return fmt.Errorf("failed to build model for snapshot %s: %w", snapshot.Version, err)
	}

	s.currentVersion = snapshot.Version
	for _, listener := range s.listeners {
		listener.OnModelChanged(model)
	}
	s.recorder.RecordReload(true)
	s.logger.Info("configuration snapshot published",
		"version", snapshot.Version,
		"roles", len(snapshot.Roles),
		"mappings", len(snapshot.RoleMappings),
		"tenants", len(snapshot.Tenants))
	return nil
}
