package guidance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/recommendation"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

func newTestBuilder() *Builder {
	return NewBuilder(tuning.Default())
}

func portfolio() recommendation.TrackInfo {
	return recommendation.ResolveTrack(student.TrackPortfolioManagement)
}

func explored(concepts ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(concepts))
	for _, c := range concepts {
		out[c] = struct{}{}
	}
	return out
}

func TestStageFor(t *testing.T) {
	assert.Equal(t, StageColdStart, StageFor(0, 6))
	assert.Equal(t, StageEarly, StageFor(1, 6))
	assert.Equal(t, StageEarly, StageFor(5, 6))
	assert.Equal(t, StageExperienced, StageFor(6, 6))
	assert.Equal(t, StageExperienced, StageFor(40, 6))
}

func TestBuild_ColdStart(t *testing.T) {
	ctx := newTestBuilder().Build(Input{Track: portfolio()})

	assert.Equal(t, StageColdStart, ctx.Stage)
	assert.Equal(t, pendingTilt, ctx.Tilt)
	require.NotNil(t, ctx.Welcome)
	assert.Contains(t, ctx.Welcome.Title, "Gestionnaire de Portefeuille")
	assert.Len(t, ctx.OnboardingTips, 3)
	assert.Empty(t, ctx.Alerts)
	require.Len(t, ctx.Opportunities, 1)
	assert.Equal(t, "discovery", ctx.Opportunities[0].Type)

	assert.Equal(t, GoalPriority{Priority: 2, Badge: "🎯"}, ctx.GoalRecommendations[recommendation.GoalBalance])
	assert.Equal(t, 0, ctx.GoalRecommendations[recommendation.GoalReduceStress].Priority)
	assert.Equal(t, recommendation.GoalBalance, ctx.TopGoal())

	assert.Equal(t, 0, ctx.Concepts.Explored)
	assert.Equal(t, 7, ctx.Concepts.Total)
	assert.Len(t, ctx.Concepts.UnexploredPreview, 3)
	assert.Nil(t, ctx.Advanced)
}

func TestBuild_EarlyWithoutFeatures(t *testing.T) {
	ctx := newTestBuilder().Build(Input{
		Completed: 2,
		Tilt:      profiling.TiltBalanced,
		Track:     portfolio(),
		Explored:  explored("Marché Boursier"),
	})

	assert.Equal(t, StageEarly, ctx.Stage)
	assert.Equal(t, "balanced", ctx.Tilt)
	require.NotNil(t, ctx.Progress)
	assert.Equal(t, progressMessages[2], ctx.Progress.Text)
	assert.Equal(t, 4, ctx.Progress.MissionsToFullAnalysis)
	assert.Empty(t, ctx.Alerts)
	require.Len(t, ctx.Opportunities, 1)
	assert.Equal(t, "learning", ctx.Opportunities[0].Type)
	assert.Equal(t, 1, ctx.Concepts.Explored)
	assert.Equal(t, "You have explored 1 concept", ctx.Concepts.Message)
	assert.NotContains(t, ctx.Concepts.UnexploredPreview, "Marché Boursier")
	assert.Nil(t, ctx.Tip)
}

func TestBuild_EarlyAlertsAndDiversity(t *testing.T) {
	var f profiling.FeatureVector
	f[profiling.FeaturePctStressUp] = 0.75

	ctx := newTestBuilder().Build(Input{
		Completed:   3,
		Track:       portfolio(),
		Explored:    explored("Marché Boursier"),
		Features:    f,
		HasFeatures: true,
	})

	require.Len(t, ctx.Alerts, 1)
	assert.Equal(t, "💡", ctx.Alerts[0].Icon)
	assert.Equal(t, recommendation.GoalReduceStress, ctx.Alerts[0].SuggestedGoal)

	require.Len(t, ctx.Opportunities, 2)
	assert.Equal(t, "diversity", ctx.Opportunities[1].Type)

	goals := ctx.GoalRecommendations
	assert.Equal(t, GoalPriority{Priority: 2, Badge: "💡"}, goals[recommendation.GoalReduceStress])
	assert.Equal(t, GoalPriority{Priority: 1, Badge: "🌟"}, goals[recommendation.GoalBalance])
	assert.Equal(t, recommendation.GoalReduceStress, ctx.TopGoal())
	require.NotNil(t, ctx.Tip)
}

func TestBuild_EarlyUnknownCountUsesDefaultMessage(t *testing.T) {
	b := NewBuilder(func() tuning.Tuning {
		t := tuning.Default()
		t.Guidance.ExperiencedAt = 10
		return t
	}())
	ctx := b.Build(Input{Completed: 7, Track: portfolio()})
	assert.Equal(t, defaultProgressMessage, ctx.Progress.Text)
	assert.Equal(t, 3, ctx.Progress.MissionsToFullAnalysis)
}

func TestBuild_ExperiencedDetectors(t *testing.T) {
	var f profiling.FeatureVector
	f[profiling.FeaturePctStressUp] = 0.6
	f[profiling.FeatureRatioReturnVsSacrifice] = 0.7
	f[profiling.FeatureChoiceEntropy] = 0.2
	f[profiling.FeatureConceptCoverage] = 2
	f[profiling.FeaturePctHighRisk] = 0.456
	f[profiling.FeatureAvgRiskRank] = 1.2345
	f[profiling.FeatureEventViewRate] = 0.8
	f[profiling.FeatureQuickCheckCorrectRate] = 0.9
	f[profiling.FeatureTimeZ] = 2

	ctx := newTestBuilder().Build(Input{
		Completed:   12,
		Tilt:        profiling.TiltSpeculative,
		Track:       portfolio(),
		Explored:    explored("Marché Boursier", "Marché des Changes"),
		Features:    f,
		HasFeatures: true,
	})

	assert.Equal(t, StageExperienced, ctx.Stage)
	icons := make([]string, 0, len(ctx.Alerts))
	for _, a := range ctx.Alerts {
		icons = append(icons, a.Icon)
	}
	assert.Equal(t, []string{"⚠️", "💰", "🔄", "📚"}, icons)
	assert.Equal(t, 0.456, ctx.Alerts[0].Details["pct_high_risk"])

	types := make([]string, 0, len(ctx.Opportunities))
	for _, o := range ctx.Opportunities {
		types = append(types, o.Type)
	}
	// Stress is too high for momentum or stability.
	assert.Equal(t, []string{"mastery", "pacing"}, types)

	goals := ctx.GoalRecommendations
	assert.Equal(t, GoalPriority{Priority: 2, Badge: "⚠️"}, goals[recommendation.GoalReduceStress])
	assert.Equal(t, GoalPriority{Priority: 2, Badge: "💰"}, goals[recommendation.GoalPreserveLiquidity])
	assert.Equal(t, GoalPriority{Priority: 4, Badge: "📚"}, goals[recommendation.GoalBalance])
	assert.Equal(t, recommendation.GoalBalance, ctx.TopGoal())

	require.NotNil(t, ctx.Advanced)
	assert.Equal(t, 45, ctx.Advanced.HighRiskPct)
	assert.Equal(t, 1.23, ctx.Advanced.AvgRiskRank)
	assert.True(t, ctx.Advanced.PaceShift)
	assert.Equal(t, 28, ctx.Concepts.CoveragePct)
	assert.Equal(t, 2, ctx.Concepts.Explored)
	assert.Len(t, ctx.Concepts.UnexploredPreview, 3)
}

func TestBuild_ExperiencedCalmStudent(t *testing.T) {
	var f profiling.FeatureVector
	f[profiling.FeatureAvgRiskRank] = 0.5
	f[profiling.FeatureChoiceEntropy] = 1.5
	f[profiling.FeatureConceptCoverage] = 5

	ctx := newTestBuilder().Build(Input{
		Completed:   6,
		Track:       portfolio(),
		Features:    f,
		HasFeatures: true,
	})

	assert.Empty(t, ctx.Alerts)
	require.Len(t, ctx.Opportunities, 2)
	assert.Equal(t, "momentum", ctx.Opportunities[0].Type)
	assert.Equal(t, "stable", ctx.Opportunities[1].Type)
	assert.Equal(t, GoalPriority{Priority: 1, Badge: "⚡"}, ctx.GoalRecommendations[recommendation.GoalBoostProfit])
	assert.Nil(t, ctx.Tip)
}

func TestGoalRecommendations_OpportunityKeepsAlertBadge(t *testing.T) {
	alerts := []Alert{{SuggestedGoal: recommendation.GoalBalance, Icon: "🔄"}}
	opps := []Opportunity{
		{SuggestedGoal: recommendation.GoalBalance, Icon: "🎯"},
		{Icon: "🏆"},
	}
	goals := GoalRecommendations(alerts, opps)

	assert.Len(t, goals, 4)
	assert.Equal(t, GoalPriority{Priority: 3, Badge: "🔄"}, goals[recommendation.GoalBalance])
}
