package profiling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

type catalogStub map[string]*mission.Mission

func (c catalogStub) Get(id string) (*mission.Mission, error) {
	if m, ok := c[id]; ok {
		return m, nil
	}
	return nil, shared.ErrMissionNotFound
}

func (c catalogStub) List() []*mission.Mission { return nil }

func (c catalogStub) ListByConcept(string) []*mission.Mission { return nil }

func TestAssemble(t *testing.T) {
	catalog := catalogStub{
		"m1": {
			ID:      "m1",
			Concept: "Marché Boursier",
			Level:   mission.LevelIntermediate,
			Options: map[string]mission.Option{
				"A": {Key: "A", Impact: mission.Impact{mission.MetricStress: 2}},
				"B": {Key: "B", Impact: mission.Impact{mission.MetricCashflow: 3}},
			},
		},
	}
	completions := []student.Completion{
		{MissionID: "m1", ChosenOption: "B", TimeSpentSeconds: 42, ActiveEventIDs: []string{"e1"}, Flags: student.LearningFlags{EventViewed: true}},
		{MissionID: "gone", Concept: "Old", Level: "avancé", ChosenOption: "A"},
		{MissionID: "m1", ChosenOption: "Z"},
	}

	got := Assemble(completions, catalog)
	require.Len(t, got, 3)

	assert.Equal(t, "Marché Boursier", got[0].Concept)
	assert.Equal(t, mission.LevelIntermediate, got[0].Level)
	assert.Equal(t, 3.0, got[0].ChosenImpact.Get(mission.MetricCashflow))
	assert.Len(t, got[0].OptionImpacts, 2)
	assert.Equal(t, 42.0, got[0].TimeSpentSeconds)
	assert.True(t, got[0].HadEvent())
	assert.True(t, got[0].Flags.EventViewed)

	assert.Equal(t, "Old", got[1].Concept)
	assert.Equal(t, mission.LevelAdvanced, got[1].Level)
	assert.Empty(t, got[1].ChosenImpact)
	assert.Empty(t, got[2].ChosenImpact, "unknown option keys read as no impact")

	// Missing missions carry no impact and never reach the window.
	v := NewExtractor(tuning.Default().Features, nil).Compute(got[1:])
	assert.True(t, v.IsZero())
}
