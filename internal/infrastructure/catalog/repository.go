package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

var (
	_ mission.Catalog      = (*Repository)(nil)
	_ mission.EventCatalog = (*Repository)(nil)
	_ mission.Reloader     = (*Repository)(nil)
)

// Repository serves the current catalog snapshot. Readers never see a
// partially loaded catalog: Reload swaps the whole snapshot or nothing.
type Repository struct {
	loader Loader
	log    *logger.Logger

	mu   sync.RWMutex
	snap *Snapshot
}

// NewRepository loads the catalog once and returns a repository over it.
func NewRepository(ctx context.Context, loader Loader, log *logger.Logger) (*Repository, error) {
	r := &Repository{loader: loader, log: log.With(logger.Component("catalog"))}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// NewStaticRepository wraps already built missions and events. Used by tests
// and by callers that assemble catalogs in code.
func NewStaticRepository(missions []*mission.Mission, events []*mission.Event) *Repository {
	byID := make(map[string]*mission.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	return &Repository{log: logger.Nop(), snap: newSnapshot(sortedMissions(missions), byID, nil)}
}

// Reload re-reads the catalog files. On failure the previous snapshot stays
// in place.
func (r *Repository) Reload(ctx context.Context) error {
	snap, err := r.loader.Load(ctx)
	if err != nil {
		metrics.RecordCatalogReload(err, 0)
		r.log.Error("catalog reload failed", logger.Err(err))
		return err
	}

	for _, w := range snap.Warnings {
		r.log.Warn("catalog warning", logger.String("detail", w))
	}

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()

	metrics.RecordCatalogReload(nil, snap.MissionCount())
	r.log.Info("catalog loaded",
		logger.Int("missions", snap.MissionCount()),
		logger.Int("events", snap.EventCount()),
	)
	return nil
}

// Snapshot returns the current snapshot.
func (r *Repository) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Stats returns the mission and event counts of the current snapshot.
func (r *Repository) Stats() (missions, events int) {
	snap := r.Snapshot()
	return snap.MissionCount(), snap.EventCount()
}

// Get returns a mission by ID.
func (r *Repository) Get(id string) (*mission.Mission, error) {
	m, ok := r.Snapshot().byID[id]
	if !ok {
		return nil, shared.ErrMissionNotFound
	}
	return m, nil
}

// List returns every mission ordered by ID.
func (r *Repository) List() []*mission.Mission {
	src := r.Snapshot().missions
	out := make([]*mission.Mission, len(src))
	copy(out, src)
	return out
}

// ListByConcept returns the missions of one concept ordered by ID.
func (r *Repository) ListByConcept(concept string) []*mission.Mission {
	src := r.Snapshot().byConcept[concept]
	out := make([]*mission.Mission, len(src))
	copy(out, src)
	return out
}

// GetEvent returns an event by ID.
func (r *Repository) GetEvent(id string) (*mission.Event, error) {
	e, ok := r.Snapshot().events[id]
	if !ok {
		return nil, shared.ErrEventNotFound
	}
	return e, nil
}

func sortedMissions(in []*mission.Mission) []*mission.Mission {
	out := make([]*mission.Mission, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
