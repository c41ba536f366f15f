package query

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
)

func missionIDs(ms []MissionDTO) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ELIGIBLE MISSIONS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetEligibleMissions_BeginnerTierFirst(t *testing.T) {
	e := newEnv(t)
	res, err := e.eligible().Handle(context.Background(), GetEligibleMissionsQuery{StudentID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, string(student.TrackPortfolioManagement), res.Track)
	assert.Equal(t, []string{"stk-b1", "stk-b2", "fx-b1", "fx-b2"}, missionIDs(res.Missions))
	assert.NotContains(t, missionIDs(res.Missions), "cf-b1", "other track's concept")
}

func TestGetEligibleMissions_UnlocksNextTier(t *testing.T) {
	e := newEnv(t)
	e.complete(t, "s1", "stk-b1", "stk-b2")

	res, err := e.eligible().Handle(context.Background(), GetEligibleMissionsQuery{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"stk-i1", "fx-b1", "fx-b2"}, missionIDs(res.Missions))

	require.NotEmpty(t, res.Concepts)
	assert.Equal(t, conceptStocks, res.Concepts[0].Concept)
	assert.Equal(t, "intermediate", res.Concepts[0].Unlock)
	assert.Equal(t, TierDTO{Level: "beginner", Completed: 2, Total: 2}, res.Concepts[0].Tiers[0])
}

func TestGetEligibleMissions_OverridesAndWhitelist(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.eligible().Handle(ctx, GetEligibleMissionsQuery{StudentID: "s1", Whitelist: []string{conceptFX, conceptCorpFi}})
	require.NoError(t, err)
	assert.Equal(t, []string{"fx-b1", "fx-b2"}, missionIDs(res.Missions), "whitelist intersects the track")

	res, err = e.eligible().Handle(ctx, GetEligibleMissionsQuery{StudentID: "s1", Track: "ANALYSTE_FINANCE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cf-b1"}, missionIDs(res.Missions))

	_, err = e.eligible().Handle(ctx, GetEligibleMissionsQuery{StudentID: "s1", Track: "ASTRONAUT"})
	assert.ErrorIs(t, err, shared.ErrUnknownTrack)

	_, err = e.eligible().Handle(ctx, GetEligibleMissionsQuery{StudentID: "ghost"})
	assert.True(t, shared.IsNotFound(err))

	_, err = e.eligible().Handle(ctx, GetEligibleMissionsQuery{})
	assert.True(t, shared.IsValidation(err))
}

func TestGetEligibleMissions_UnknownStoredTrackFallsBack(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, "s2", student.Track("LEGACY"), "")

	res, err := e.eligible().Handle(context.Background(), GetEligibleMissionsQuery{StudentID: "s2"})
	require.NoError(t, err)
	assert.Equal(t, string(student.DefaultTrack), res.Track)
}

// ══════════════════════════════════════════════════════════════════════════════
// FEATURES AND TILT
// ══════════════════════════════════════════════════════════════════════════════

func TestComputeFeatures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.features().Handle(ctx, ComputeFeaturesQuery{StudentID: "s1"})
	require.NoError(t, err)
	assert.Zero(t, res.HistorySize)
	assert.Len(t, res.Vector, profiling.FeatureCount)
	assert.Len(t, res.Features, profiling.FeatureCount)
	for _, v := range res.Vector {
		assert.Zero(t, v)
	}

	e.complete(t, "s1", "stk-b1", "stk-b2", "fx-b1")
	res, err = e.features().Handle(ctx, ComputeFeaturesQuery{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.HistorySize)
	assert.InDelta(t, 1.0, res.Features["pct_stress_up"], 1e-9, "every pick raised stress")

	_, err = e.features().Handle(ctx, ComputeFeaturesQuery{StudentID: "ghost"})
	assert.True(t, shared.IsNotFound(err))
}

func TestPredictTilt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	h := NewPredictTiltHandler(profiling.NewClassifier(fixedArtifact{cluster: 0}), e.features(), e.log)
	res, err := h.Handle(ctx, PredictTiltQuery{Vector: make([]float64, profiling.FeatureCount)})
	require.NoError(t, err)
	assert.Equal(t, "cautious", res.Tilt)

	res, err = h.Handle(ctx, PredictTiltQuery{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "cautious", res.Tilt)

	_, err = h.Handle(ctx, PredictTiltQuery{Vector: []float64{1, 2}})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, PredictTiltQuery{})
	assert.True(t, shared.IsValidation(err))

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		vec := make([]float64, profiling.FeatureCount)
		vec[0] = bad
		_, err = h.Handle(ctx, PredictTiltQuery{Vector: vec})
		assert.True(t, shared.IsValidation(err), "non-finite %v is caller input", bad)
		assert.False(t, shared.IsModelUnavailable(err))
	}

	missing := NewPredictTiltHandler(profiling.NewClassifier(nil), nil, e.log)
	_, err = missing.Handle(ctx, PredictTiltQuery{Vector: make([]float64, profiling.FeatureCount)})
	assert.True(t, shared.IsModelUnavailable(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// SUGGEST BUNDLE
// ══════════════════════════════════════════════════════════════════════════════

func TestSuggestBundle_RanksEligiblePool(t *testing.T) {
	e := newEnv(t)
	e.complete(t, "s1", "stk-b1")

	res, err := e.suggest(fixedArtifact{cluster: 2}).Handle(context.Background(), SuggestBundleQuery{
		StudentID: "s1",
		Goal:      "reduce_stress",
	})
	require.NoError(t, err)

	assert.Equal(t, "speculative", res.Tilt)
	assert.Equal(t, "reduce_stress", res.Goal)
	assert.Equal(t, "Gestionnaire de Portefeuille", res.TrackLabel)
	require.NotEmpty(t, res.Missions)
	assert.LessOrEqual(t, len(res.Missions), DefaultMaxBundle)

	eligible := map[string]bool{"stk-b2": true, "fx-b1": true, "fx-b2": true}
	for i, m := range res.Missions {
		assert.True(t, eligible[m.MissionID], "mission %s is not eligible", m.MissionID)
		assert.NotEmpty(t, m.Why)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Missions[i-1].Score, m.Score)
		}
	}
}

func TestSuggestBundle_MaxBundleAndWhitelist(t *testing.T) {
	e := newEnv(t)
	res, err := e.suggest(fixedArtifact{cluster: 1}).Handle(context.Background(), SuggestBundleQuery{
		StudentID: "s1",
		Goal:      "balance",
		MaxBundle: 1,
		Whitelist: []string{conceptFX},
	})
	require.NoError(t, err)
	require.Len(t, res.Missions, 1)
	assert.Equal(t, conceptFX, res.Missions[0].Concept)
}

func TestSuggestBundle_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.suggest(fixedArtifact{}).Handle(ctx, SuggestBundleQuery{StudentID: "ghost", Goal: "get_rich"})
	assert.ErrorIs(t, err, shared.ErrInvalidGoal, "goal checked before any lookup")

	_, err = e.suggest(fixedArtifact{}).Handle(ctx, SuggestBundleQuery{StudentID: "ghost", Goal: "balance"})
	assert.True(t, shared.IsNotFound(err))

	_, err = e.suggest(nil).Handle(ctx, SuggestBundleQuery{StudentID: "s1", Goal: "balance"})
	assert.True(t, shared.IsModelUnavailable(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// STRATEGIC CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type failingFeatures struct{ err error }

func (f failingFeatures) Features(context.Context, string) (profiling.FeatureVector, error) {
	return profiling.FeatureVector{}, f.err
}

func TestStrategicContext_ColdStart(t *testing.T) {
	e := newEnv(t)
	res, err := e.strategic(nil).Handle(context.Background(), GetStrategicContextQuery{StudentID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, "cold_start", res.Stage)
	assert.Zero(t, res.Completed)
	assert.Equal(t, "analysis in progress", res.Tilt)
	assert.Nil(t, res.Advanced)
}

func TestStrategicContext_PrefersCachedTilt(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, "s2", student.TrackPortfolioManagement, "cautious")
	e.complete(t, "s2", "stk-b1")
	require.NoError(t, e.store.SetTilt(context.Background(), "s2", "speculative", 0))

	res, err := e.strategic(nil).Handle(context.Background(), GetStrategicContextQuery{StudentID: "s2"})
	require.NoError(t, err)
	assert.Equal(t, "early", res.Stage)
	assert.Equal(t, "speculative", res.Tilt)
	assert.Equal(t, 1, res.Concepts.Explored)
}

func TestStrategicContext_FeatureFailures(t *testing.T) {
	e := newEnv(t)
	boom := errors.New("history store down")
	ctx := context.Background()

	e.complete(t, "s1", "stk-b1")
	res, err := e.strategic(failingFeatures{err: boom}).Handle(ctx, GetStrategicContextQuery{StudentID: "s1"})
	require.NoError(t, err, "early stage tolerates missing features")
	assert.Equal(t, "early", res.Stage)

	e.complete(t, "s1", "stk-b2", "stk-i1", "fx-b1", "fx-b2", "cf-b1")
	_, err = e.strategic(failingFeatures{err: boom}).Handle(ctx, GetStrategicContextQuery{StudentID: "s1"})
	assert.ErrorIs(t, err, boom, "experienced stage needs features")

	res, err = e.strategic(nil).Handle(ctx, GetStrategicContextQuery{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "experienced", res.Stage)
	assert.Equal(t, 6, res.Completed)
	assert.NotNil(t, res.Advanced)
	assert.NotEmpty(t, res.TopGoal)
	assert.NotEmpty(t, res.GoalRecommendations)
}
