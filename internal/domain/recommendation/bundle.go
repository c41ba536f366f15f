package recommendation

import (
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
)

// Breakdown holds the raw (unweighted) scoring terms of one mission.
type Breakdown struct {
	Goal      float64
	Gap       float64
	Diversity float64
	Pacing    float64
	GoalGap   float64
}

// ScoredMission is one ranked bundle entry.
type ScoredMission struct {
	Mission        *mission.Mission
	Score          float64
	Breakdown      Breakdown
	ExpectedImpact mission.Impact
	Why            []string
	HasEvent       bool
	// EventID is the first catalog-registered event of the mission, if any.
	EventID string
}

// CardKindEventContext marks a card that previews a market event.
const CardKindEventContext = "event_context"

// Card is an auxiliary display card attached to a bundle.
type Card struct {
	Kind       string
	MissionID  string
	EventID    string
	EventTitle string
}

// Tip is a behavioral hint shown alongside a bundle.
type Tip struct {
	ID       string
	Audience profiling.TiltLabel
	Text     string
}

// Bundle is the ranked recommendation result.
type Bundle struct {
	Tilt        profiling.TiltLabel
	Goal        Goal
	TrackLabel  string
	Missions    []ScoredMission
	Cards       []Card
	Tip         *Tip
	Explanation string
}

// IsEmpty reports whether nothing could be recommended.
func (b *Bundle) IsEmpty() bool {
	return len(b.Missions) == 0
}

// MissionIDs returns the ids of the ranked missions in order.
func (b *Bundle) MissionIDs() []string {
	ids := make([]string, len(b.Missions))
	for i, sm := range b.Missions {
		ids[i] = sm.Mission.ID
	}
	return ids
}
