package recommendation

import (
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

// ══════════════════════════════════════════════════════════════════════════════
// ELIGIBILITY GATE
// A concept unlocks tier N+1 once the student has completed enough of tier N.
// ══════════════════════════════════════════════════════════════════════════════

// TierProgress is the completion count of one tier inside a concept.
type TierProgress struct {
	Level     mission.Level
	Completed int
	Total     int
}

// ConceptUnlock is the computed gating state of one concept.
type ConceptUnlock struct {
	Concept string
	Unlock  mission.Level
	Tiers   [len(mission.Levels)]TierProgress
}

// Gate computes unlock tiers and filters the catalog.
type Gate struct {
	threshold float64
}

// NewGate creates a gate with the configured completion threshold.
func NewGate(cfg tuning.GateTuning) *Gate {
	return &Gate{threshold: cfg.CompletionThreshold}
}

// cleared reports whether a tier is done. Empty tiers are always cleared.
func (g *Gate) cleared(p TierProgress) bool {
	if p.Total == 0 {
		return true
	}
	return float64(p.Completed)/float64(p.Total) >= g.threshold
}

// Unlock computes the gating state of concept from its missions.
func (g *Gate) Unlock(concept string, missions []*mission.Mission, done map[string]struct{}) ConceptUnlock {
	cu := ConceptUnlock{Concept: concept}
	for i, lvl := range mission.Levels {
		cu.Tiers[i].Level = lvl
	}
	for _, m := range missions {
		if m.Concept != concept || !m.Level.IsValid() {
			continue
		}
		cu.Tiers[m.Level].Total++
		if _, ok := done[m.ID]; ok {
			cu.Tiers[m.Level].Completed++
		}
	}

	cu.Unlock = mission.Levels[len(mission.Levels)-1]
	for _, p := range cu.Tiers {
		if !g.cleared(p) {
			cu.Unlock = p.Level
			break
		}
	}
	return cu
}

// Eligible returns the missions of the allowed concepts whose tier is at or
// below the concept's unlock tier and that are not completed yet. Concepts are
// visited in the given order; missions keep catalog order.
func (g *Gate) Eligible(catalog mission.Catalog, concepts []string, done map[string]struct{}) ([]*mission.Mission, []ConceptUnlock) {
	var (
		pool    []*mission.Mission
		unlocks = make([]ConceptUnlock, 0, len(concepts))
	)
	for _, concept := range concepts {
		missions := catalog.ListByConcept(concept)
		cu := g.Unlock(concept, missions, done)
		unlocks = append(unlocks, cu)

		for _, m := range missions {
			if !m.Level.IsValid() || m.Level > cu.Unlock {
				continue
			}
			if _, ok := done[m.ID]; ok {
				continue
			}
			pool = append(pool, m)
		}
	}
	return pool, unlocks
}
