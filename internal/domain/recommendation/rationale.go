package recommendation

import (
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

// whys explains a recommendation in at most MaxReasons short lines.
func (s *Scorer) whys(g Goal, exp mission.Impact, f profiling.FeatureVector, tilt profiling.TiltLabel) []string {
	var out []string
	switch g {
	case GoalReduceStress:
		if exp.Get(mission.MetricStress) <= 0 {
			out = append(out, "Goal reduce stress: expected stress impact is zero or lower")
		}
		if exp.Get(mission.MetricCashflow) >= 0 {
			out = append(out, "Does not add pressure on cash flow")
		}
	case GoalBoostProfit:
		if exp.Get(mission.MetricProfitability) > 0 {
			out = append(out, "Goal boost profitability: expected to lift profitability")
		}
	case GoalPreserveLiquidity:
		if exp.Get(mission.MetricCashflow) >= 0 {
			out = append(out, "Goal preserve liquidity: keeps cash flow intact")
		}
	case GoalBalance:
		if s.goalGapTerm(g, exp, f) > 0 {
			out = append(out, "Goal balance: no tracked indicator is expected to worsen")
		}
	}
	if f[profiling.FeaturePctStressUp] >= s.cfg.StressGapThreshold {
		out = append(out, "Your recent history shows too many stress increases")
	}
	if f[profiling.FeatureRatioReturnVsSacrifice] >= s.cfg.SacrificeGapThreshold {
		out = append(out, "You often trade control or cash flow for returns")
	}
	out = append(out, "Suited to a "+string(tilt)+" profile")

	if limit := s.cfg.MaxReasons; limit > 0 && len(out) > limit {
		// The tilt line is always kept.
		out = append(out[:limit-1], out[len(out)-1])
	}
	return out
}

// SelectTip returns the most pressing behavioral tip, or nil.
func SelectTip(f profiling.FeatureVector, tilt profiling.TiltLabel, cfg tuning.ScoringTuning) *Tip {
	switch {
	case f[profiling.FeaturePctStressUp] >= cfg.StressGapThreshold:
		return &Tip{
			ID:       "too_much_stress",
			Audience: tilt,
			Text:     "You accept too many stress increases; consider hedging before taking on more risk.",
		}
	case f[profiling.FeatureRatioReturnVsSacrifice] >= cfg.SacrificeGapThreshold:
		return &Tip{
			ID:       "sacrifice_for_returns",
			Audience: tilt,
			Text:     "Chasing returns at the expense of cash flow and control erodes your margin for error.",
		}
	case !f.IsZero() && f[profiling.FeatureConceptCoverage] > 1 && f[profiling.FeatureChoiceEntropy] < cfg.PredictableEntropy:
		return &Tip{
			ID:       "predictable_choices",
			Audience: tilt,
			Text:     "Your choices are very predictable; try an option you would not usually pick.",
		}
	}
	return nil
}
