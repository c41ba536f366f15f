package profiling

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

type eventsStub map[string]*mission.Event

func (s eventsStub) GetEvent(id string) (*mission.Event, error) {
	if ev, ok := s[id]; ok {
		return ev, nil
	}
	return nil, shared.ErrEventNotFound
}

func newTestExtractor(events mission.EventCatalog) *Extractor {
	return NewExtractor(tuning.Default().Features, events)
}

func interaction(concept, key string, imp mission.Impact) Interaction {
	return Interaction{
		MissionID:        concept + "-" + key,
		Concept:          concept,
		ChosenOption:     key,
		ChosenImpact:     imp,
		OptionImpacts:    []mission.Impact{imp},
		TimeSpentSeconds: 60,
	}
}

func TestCompute_EmptyHistory(t *testing.T) {
	v := newTestExtractor(nil).Compute(nil)

	assert.True(t, v.IsZero())
	m := v.Map()
	assert.Len(t, m, FeatureCount)
	for _, name := range FeatureNames {
		val, ok := m[name]
		assert.True(t, ok, name)
		assert.Equal(t, 0.0, val, name)
	}
}

func TestCompute_AllNoise(t *testing.T) {
	history := []Interaction{
		interaction("c1", "A", mission.Impact{mission.MetricStress: 1}),
		interaction("c1", "B", mission.Impact{mission.MetricCashflow: 0.4, mission.MetricControl: -0.4}),
	}
	v := newTestExtractor(nil).Compute(history)
	assert.True(t, v.IsZero())
}

func TestCompute_StressUpFraction(t *testing.T) {
	history := []Interaction{
		interaction("c1", "A", mission.Impact{mission.MetricStress: 5, mission.MetricCashflow: -2}),
		interaction("c1", "B", mission.Impact{mission.MetricStress: 8, mission.MetricCashflow: -3}),
		interaction("c2", "C", mission.Impact{mission.MetricStress: -1, mission.MetricCashflow: 1}),
	}
	e := newTestExtractor(nil)

	window := e.window(history)
	require.Len(t, window, 3)
	var up int
	for _, r := range window {
		if r.adjusted.Get(mission.MetricStress) > 0 {
			up++
		}
	}
	assert.InDelta(t, 2.0/3.0, float64(up)/float64(len(window)), 1e-12)

	// Weighted by recency, the older two stress-up entries count for less.
	v := e.Compute(history)
	assert.InDelta(t, 0.6075, v[FeaturePctStressUp], 1e-3)
	assert.Equal(t, 2.0, v[FeatureConceptCoverage])
	assert.InDelta(t, math.Log2(3), v[FeatureChoiceEntropy], 1e-12)
}

func TestCompute_WindowKeepsMostRecent(t *testing.T) {
	var history []Interaction
	for i := 0; i < 10; i++ {
		history = append(history, interaction(fmt.Sprintf("c%d", i), "A", mission.Impact{mission.MetricProfitability: 2}))
	}
	e := newTestExtractor(nil)

	window := e.window(history)
	require.Len(t, window, 8)
	assert.Equal(t, "c2", window[0].Concept)
	assert.Equal(t, "c9", window[7].Concept)

	v := e.Compute(history)
	assert.Equal(t, 8.0, v[FeatureConceptCoverage])
	assert.Equal(t, 0.0, v[FeatureChoiceEntropy])
}

func TestCompute_EventModifierAppliedBeforeFilter(t *testing.T) {
	events := eventsStub{
		"crash": {
			ID: "crash",
			ModifiesChoice: map[string]mission.Impact{
				"A": {mission.MetricStress: 2},
			},
		},
	}
	r := interaction("c1", "A", mission.Impact{mission.MetricStress: 0.5})
	r.ActiveEventIDs = []string{"crash", "unknown"}

	without := newTestExtractor(nil).Compute([]Interaction{r})
	assert.True(t, without.IsZero(), "intensity 0.5 is noise without the modifier")

	e := newTestExtractor(events)
	adj := e.AdjustedImpact(r)
	assert.Equal(t, 2.5, adj.Get(mission.MetricStress))
	assert.Equal(t, 0.5, r.ChosenImpact.Get(mission.MetricStress), "chosen impact must not be mutated")

	v := e.Compute([]Interaction{r})
	assert.Equal(t, 1.0, v[FeaturePctStressUp])
	assert.Equal(t, 1.0, v[FeatureEventExposureRate])
}

func TestCompute_EventViewRate(t *testing.T) {
	withEvent := interaction("c1", "A", mission.Impact{mission.MetricProfitability: 3})
	withEvent.ActiveEventIDs = []string{"e1"}
	withEvent.Flags = student.LearningFlags{EventViewed: true, QuickCheckCorrect: true}

	noEvent := interaction("c2", "B", mission.Impact{mission.MetricProfitability: 3})
	// Viewing without an active event does not count.
	noEvent.Flags = student.LearningFlags{EventViewed: true}

	v := newTestExtractor(nil).Compute([]Interaction{withEvent, noEvent})
	assert.Equal(t, 1.0, v[FeatureEventViewRate])
	assert.Equal(t, 0.5, v[FeatureEventExposureRate])

	w := DecayWeights(2, 4)
	assert.InDelta(t, w[0], v[FeatureQuickCheckCorrectRate], 1e-12)

	v = newTestExtractor(nil).Compute([]Interaction{noEvent})
	assert.Equal(t, 0.0, v[FeatureEventViewRate])
}

func TestCompute_TimeZ(t *testing.T) {
	mk := func(sec float64) Interaction {
		r := interaction("c1", "A", mission.Impact{mission.MetricProfitability: 2})
		r.TimeSpentSeconds = sec
		return r
	}

	v := newTestExtractor(nil).Compute([]Interaction{mk(30), mk(30), mk(30)})
	assert.Equal(t, 0.0, v[FeatureTimeZ])

	// MAD is zero, so the denominator falls back to 1.4826.
	v = newTestExtractor(nil).Compute([]Interaction{mk(10), mk(10), mk(40)})
	w := DecayWeights(3, 4)
	assert.InDelta(t, w[2]*30/1.4826, v[FeatureTimeZ], 1e-9)
	assert.Greater(t, v[FeatureTimeZ], 0.0)
}

func TestCompute_TradeoffAndSacrifice(t *testing.T) {
	r := interaction("c1", "A", mission.Impact{
		mission.MetricProfitability: 4,
		mission.MetricCashflow:      -1,
		mission.MetricControl:       -1,
	})
	v := newTestExtractor(nil).Compute([]Interaction{r})

	// (4 - 2) / 6
	assert.InDelta(t, 1.0/3.0, v[FeatureMedianNetTradeoff], 1e-12)
	assert.Equal(t, 1.0, v[FeatureRatioReturnVsSacrifice])
}

func TestCompute_FiniteValues(t *testing.T) {
	r := interaction("c1", "A", mission.Impact{mission.MetricStress: 3})
	r.TimeSpentSeconds = math.NaN()
	v := newTestExtractor(nil).Compute([]Interaction{r, r})
	for i, f := range v {
		assert.False(t, math.IsNaN(f) || math.IsInf(f, 0), FeatureNames[i])
	}
}

func TestRiskRank(t *testing.T) {
	e := newTestExtractor(nil)
	risky := mission.Impact{mission.MetricProfitability: 5, mission.MetricCashflow: -3}
	safe := mission.Impact{mission.MetricStress: -1, mission.MetricCashflow: 1}
	mid := mission.Impact{mission.MetricProfitability: 3}
	options := []mission.Impact{risky, safe, mid}

	assert.Equal(t, 2, e.RiskRank(risky, options))
	assert.Equal(t, 0, e.RiskRank(safe, options))
	assert.Equal(t, 1, e.RiskRank(mid, options))
}

func TestRiskRank_TiesRankZero(t *testing.T) {
	e := newTestExtractor(nil)
	options := []mission.Impact{
		{mission.MetricCashflow: 1},
		{mission.MetricControl: 2},
		{mission.MetricReputation: 3},
	}
	for _, o := range options {
		assert.Equal(t, 0, e.RiskRank(o, options))
	}
}

func TestRiskRank_AvgAndStdWithinBounds(t *testing.T) {
	risky := mission.Impact{mission.MetricProfitability: 5, mission.MetricCashflow: -3}
	safe := mission.Impact{mission.MetricCashflow: 2}
	options := []mission.Impact{risky, safe}

	a := interaction("c1", "A", risky)
	a.OptionImpacts = options
	b := interaction("c1", "B", safe)
	b.OptionImpacts = options

	v := newTestExtractor(nil).Compute([]Interaction{a, b, a, b})
	assert.GreaterOrEqual(t, v[FeatureAvgRiskRank], 0.0)
	assert.LessOrEqual(t, v[FeatureAvgRiskRank], 2.0)
	assert.Greater(t, v[FeatureRiskRankStd], 0.0)
	assert.InDelta(t, 1.0, v[FeaturePctHighRisk]+v[FeaturePctLowRisk], 1e-12)
}

func TestCompute_ConstantRankStdIsFloored(t *testing.T) {
	r := interaction("c1", "A", mission.Impact{mission.MetricStress: 3})
	v := newTestExtractor(nil).Compute([]Interaction{r, r, r})

	assert.Equal(t, 0.0, v[FeatureAvgRiskRank])
	assert.InDelta(t, math.Sqrt(1e-9), v[FeatureRiskRankStd], 1e-15)
}

func TestFeatureVectorFromMap(t *testing.T) {
	v := FeatureVectorFromMap(map[string]float64{
		"pct_stress_up": 0.5,
		"time_z":        math.Inf(1),
		"not_a_feature": 3,
	})
	assert.Equal(t, 0.5, v[FeaturePctStressUp])
	assert.Equal(t, 0.0, v[FeatureTimeZ])
	assert.Len(t, v.Slice(), FeatureCount)
}
