package command

import (
	"context"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RELOAD CATALOG COMMAND
// Re-reads the mission and event catalogs and announces the new size.
// ══════════════════════════════════════════════════════════════════════════════

// ReloadableCatalog is a catalog that can be re-read and sized.
type ReloadableCatalog interface {
	mission.Reloader
	Stats() (missions, events int)
}

// ReloadCatalogResult reports the catalog size after the reload.
type ReloadCatalogResult struct {
	Missions int `json:"missions"`
	Events   int `json:"events"`
}

// ReloadCatalogHandler handles catalog reloads. It also satisfies
// mission.Reloader so file watchers can drive it.
type ReloadCatalogHandler struct {
	catalog   ReloadableCatalog
	publisher shared.EventPublisher
	log       *logger.Logger
}

var _ mission.Reloader = (*ReloadCatalogHandler)(nil)

// NewReloadCatalogHandler creates the handler. publisher may be nil.
func NewReloadCatalogHandler(catalog ReloadableCatalog, publisher shared.EventPublisher, log *logger.Logger) *ReloadCatalogHandler {
	return &ReloadCatalogHandler{
		catalog:   catalog,
		publisher: publisher,
		log:       log.With(logger.Component("reload_catalog")),
	}
}

// Handle reloads the catalog. On failure the previous catalog stays active.
func (h *ReloadCatalogHandler) Handle(ctx context.Context) (res *ReloadCatalogResult, err error) {
	done := metrics.Track("reload_catalog")
	defer func() { done(err) }()

	if err := h.catalog.Reload(ctx); err != nil {
		return nil, err
	}
	missions, events := h.catalog.Stats()
	res = &ReloadCatalogResult{Missions: missions, Events: events}

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, shared.NewCatalogReloadedEvent(missions, events)); err != nil {
			h.log.Warn("catalog reload not announced", logger.Err(err))
		}
	}
	return res, nil
}

// Reload implements mission.Reloader.
func (h *ReloadCatalogHandler) Reload(ctx context.Context) error {
	_, err := h.Handle(ctx)
	return err
}
