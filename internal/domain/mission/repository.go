package mission

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG INTERFACES
// Read-only providers loaded once at startup. Implementations live in
// infrastructure/catalog.
// ══════════════════════════════════════════════════════════════════════════════

// Catalog provides mission definitions.
type Catalog interface {
	// Get returns a mission by ID, or shared.ErrMissionNotFound.
	Get(id string) (*Mission, error)

	// List returns every mission, ordered by ID.
	List() []*Mission

	// ListByConcept returns the missions of one concept, ordered by ID.
	ListByConcept(concept string) []*Mission
}

// EventCatalog provides event definitions.
type EventCatalog interface {
	// GetEvent returns an event by ID, or shared.ErrEventNotFound.
	GetEvent(id string) (*Event, error)
}

// Reloader re-reads the catalog from its source.
type Reloader interface {
	Reload(ctx context.Context) error
}
