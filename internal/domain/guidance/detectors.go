package guidance

import (
	"fmt"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/recommendation"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

// signals is what every detector reads.
type signals struct {
	f   profiling.FeatureVector
	cfg tuning.GuidanceTuning

	// coverage is the share of the track's concepts present in the window.
	coverage float64

	explored  int
	completed int
}

type alertDetector func(s signals) *Alert

type opportunityDetector func(s signals) *Opportunity

// Detector sets per stage, in display order.
var (
	experiencedAlerts = []alertDetector{
		detectStress,
		detectSacrifice,
		detectPredictability,
		detectNarrowCoverage,
	}
	earlyAlerts = []alertDetector{
		detectEarlyStress,
	}

	experiencedOpportunities = []opportunityDetector{
		detectMomentum,
		detectStability,
		detectMastery,
		detectPacing,
	}
	earlyOpportunities = []opportunityDetector{
		detectSingleConcept,
	}
)

func runAlerts(detectors []alertDetector, s signals) []Alert {
	out := make([]Alert, 0, len(detectors))
	for _, d := range detectors {
		if a := d(s); a != nil {
			out = append(out, *a)
		}
	}
	return out
}

func runOpportunities(detectors []opportunityDetector, s signals) []Opportunity {
	out := make([]Opportunity, 0, len(detectors))
	for _, d := range detectors {
		if o := d(s); o != nil {
			out = append(out, *o)
		}
	}
	return out
}

// ── Alerts ───────────────────────────────────────────────────────────────────

func detectStress(s signals) *Alert {
	pct := s.f[profiling.FeaturePctStressUp]
	if pct < s.cfg.StressAlert {
		return nil
	}
	return &Alert{
		Severity:      SeverityWarning,
		Metric:        "stress",
		Text:          fmt.Sprintf("Your stress rises in %d%% of your recent missions", int(pct*100)),
		SuggestedGoal: recommendation.GoalReduceStress,
		Icon:          "⚠️",
		Details: map[string]float64{
			"pct_high_risk": s.f[profiling.FeaturePctHighRisk],
			"avg_risk_rank": s.f[profiling.FeatureAvgRiskRank],
		},
	}
}

func detectSacrifice(s signals) *Alert {
	if s.f[profiling.FeatureRatioReturnVsSacrifice] < s.cfg.SacrificeAlert {
		return nil
	}
	return &Alert{
		Severity:      SeverityWarning,
		Metric:        "cashflow",
		Text:          "You often sacrifice cash flow or control for profitability",
		SuggestedGoal: recommendation.GoalPreserveLiquidity,
		Icon:          "💰",
	}
}

func detectPredictability(s signals) *Alert {
	if s.f[profiling.FeatureChoiceEntropy] >= s.cfg.EntropyAlert {
		return nil
	}
	return &Alert{
		Severity:      SeverityInfo,
		Metric:        "strategy",
		Text:          "Your choices are very predictable, try varying your strategies",
		SuggestedGoal: recommendation.GoalBalance,
		Icon:          "🔄",
	}
}

func detectNarrowCoverage(s signals) *Alert {
	if s.coverage >= s.cfg.CoverageAlert {
		return nil
	}
	return &Alert{
		Severity:      SeverityInfo,
		Metric:        "learning",
		Text:          fmt.Sprintf("Your recent missions cover only %d%% of the concepts available", int(s.coverage*100)),
		SuggestedGoal: recommendation.GoalBalance,
		Icon:          "📚",
	}
}

func detectEarlyStress(s signals) *Alert {
	if s.f[profiling.FeaturePctStressUp] < s.cfg.EarlyStressAlert {
		return nil
	}
	return &Alert{
		Severity:      SeverityInfo,
		Metric:        "stress",
		Text:          "Your first missions raised stress a lot",
		SuggestedGoal: recommendation.GoalReduceStress,
		Icon:          "💡",
	}
}

// ── Opportunities ────────────────────────────────────────────────────────────

func detectMomentum(s signals) *Opportunity {
	if s.f[profiling.FeatureAvgRiskRank] <= 0 || s.f[profiling.FeaturePctStressUp] >= s.cfg.MomentumMaxStress {
		return nil
	}
	return &Opportunity{
		Type:          "momentum",
		Text:          "You manage risk well. Good time to push profitability",
		SuggestedGoal: recommendation.GoalBoostProfit,
		Icon:          "⚡",
	}
}

func detectStability(s signals) *Opportunity {
	if s.f[profiling.FeaturePctStressUp] >= s.cfg.StableMaxStress ||
		s.f[profiling.FeatureRatioReturnVsSacrifice] >= s.cfg.StableMaxRatio {
		return nil
	}
	return &Opportunity{
		Type:          "stable",
		Text:          "Stable situation, a good moment to explore new concepts",
		SuggestedGoal: recommendation.GoalBalance,
		Icon:          "🎯",
	}
}

func detectMastery(s signals) *Opportunity {
	if s.f[profiling.FeatureEventViewRate] < s.cfg.MasteryViewRate ||
		s.f[profiling.FeatureQuickCheckCorrectRate] < s.cfg.MasteryCheckRate {
		return nil
	}
	return &Opportunity{
		Type: "mastery",
		Text: "You handle market events well, keep going",
		Icon: "🏆",
	}
}

func detectPacing(s signals) *Opportunity {
	if s.f[profiling.FeatureTimeZ] <= s.cfg.RushTimeZ {
		return nil
	}
	return &Opportunity{
		Type: "pacing",
		Text: "Your pace has shifted a lot lately; a steady rhythm could improve your scores",
		Icon: "⏱️",
	}
}

func detectSingleConcept(s signals) *Opportunity {
	if s.explored != 1 || s.completed < s.cfg.DiversityMinCount {
		return nil
	}
	return &Opportunity{
		Type:          "diversity",
		Text:          "Try a new concept to broaden your skills",
		SuggestedGoal: recommendation.GoalBalance,
		Icon:          "🌟",
	}
}
