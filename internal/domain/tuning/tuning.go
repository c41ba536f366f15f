// Package tuning gathers every tunable literal of the profiling and
// recommendation engine in one structure.
package tuning

import "fmt"

// Tuning is the full set of engine knobs.
type Tuning struct {
	Features FeatureTuning
	Gate     GateTuning
	Scoring  ScoringTuning
	Guidance GuidanceTuning

	// TiltRecomputeEvery triggers a tilt recompute each time the completed
	// mission count reaches a multiple of this value.
	TiltRecomputeEvery int
}

// FeatureTuning drives the feature extractor.
type FeatureTuning struct {
	WindowSize         int
	HalfLife           float64
	IntensityThreshold float64
	LowTertile         float64
	HighTertile        float64
	MADScale           float64
	// HistoryLimit is how many completions are fetched before noise filtering.
	HistoryLimit int
	RiskWeights  RiskWeights
}

// RiskWeights weight each metric in the per-option raw-risk score.
type RiskWeights struct {
	ProfitGain     float64
	StressGain     float64
	CashflowLoss   float64
	ControlLoss    float64
	ReputationLoss float64
}

// GateTuning drives the eligibility gate.
type GateTuning struct {
	CompletionThreshold float64
}

// ScoringTuning drives the suggestion scorer.
type ScoringTuning struct {
	Weights     ScoreWeights
	Goals       map[string]GoalWeights
	MaxBundle   int
	MaxReasons  int
	RecentDepth int

	StressGapThreshold    float64
	SacrificeGapThreshold float64
	StressGapBonus        float64
	SacrificeGapBonus     float64
	DiversityBonus        float64
	PacingBonus           float64
	PredictableEntropy    float64
}

// ScoreWeights combine the scoring terms.
type ScoreWeights struct {
	Goal      float64
	Gap       float64
	Diversity float64
	Pacing    float64
	GoalGap   float64
}

// GoalWeights weight each metric for one goal. Stress is applied to stress relief.
type GoalWeights struct {
	Cashflow      float64
	Control       float64
	Stress        float64
	Profitability float64
	Reputation    float64
}

// GuidanceTuning drives the strategic context builder.
type GuidanceTuning struct {
	ExperiencedAt int

	StressAlert       float64
	SacrificeAlert    float64
	EntropyAlert      float64
	CoverageAlert     float64
	EarlyStressAlert  float64
	MomentumMaxStress float64
	StableMaxStress   float64
	StableMaxRatio    float64
	MasteryViewRate   float64
	MasteryCheckRate  float64
	RushTimeZ         float64
	DiversityMinCount int
	UnexploredPreview int
}

// Default returns the production defaults.
func Default() Tuning {
	return Tuning{
		Features: FeatureTuning{
			WindowSize:         8,
			HalfLife:           4,
			IntensityThreshold: 1.5,
			LowTertile:         1.0 / 3.0,
			HighTertile:        2.0 / 3.0,
			MADScale:           1.4826,
			HistoryLimit:       32,
			RiskWeights: RiskWeights{
				ProfitGain:     0.5,
				StressGain:     0.3,
				CashflowLoss:   0.3,
				ControlLoss:    0.2,
				ReputationLoss: 0.1,
			},
		},
		Gate: GateTuning{CompletionThreshold: 1.0},
		Scoring: ScoringTuning{
			Weights: ScoreWeights{
				Goal:      0.45,
				Gap:       0.2,
				Diversity: 0.15,
				Pacing:    0.1,
				GoalGap:   0.1,
			},
			Goals: map[string]GoalWeights{
				"reduce_stress":      {Stress: 1.0, Cashflow: 0.3, Control: 0.2, Profitability: 0.1},
				"boost_rentabilite":  {Profitability: 1.0, Cashflow: 0.2, Reputation: 0.2},
				"preserve_liquidity": {Cashflow: 1.0, Control: 0.4, Stress: 0.2},
				"balance":            {Profitability: 0.6, Cashflow: 0.4, Control: 0.3, Stress: 0.3},
			},
			MaxBundle:             6,
			MaxReasons:            3,
			RecentDepth:           5,
			StressGapThreshold:    0.45,
			SacrificeGapThreshold: 0.5,
			StressGapBonus:        0.6,
			SacrificeGapBonus:     0.4,
			DiversityBonus:        0.2,
			PacingBonus:           0.1,
			PredictableEntropy:    0.4,
		},
		Guidance: GuidanceTuning{
			ExperiencedAt:     6,
			StressAlert:       0.5,
			SacrificeAlert:    0.6,
			EntropyAlert:      0.4,
			CoverageAlert:     0.4,
			EarlyStressAlert:  0.6,
			MomentumMaxStress: 0.3,
			StableMaxStress:   0.3,
			StableMaxRatio:    0.4,
			MasteryViewRate:   0.7,
			MasteryCheckRate:  0.6,
			RushTimeZ:         1.5,
			DiversityMinCount: 3,
			UnexploredPreview: 3,
		},
		TiltRecomputeEvery: 6,
	}
}

// Validate checks structural constraints that would break the algorithms.
func (t Tuning) Validate() error {
	f := t.Features
	switch {
	case f.WindowSize < 1:
		return fmt.Errorf("tuning: window size must be >= 1, got %d", f.WindowSize)
	case f.HalfLife <= 0:
		return fmt.Errorf("tuning: half-life must be > 0, got %v", f.HalfLife)
	case f.IntensityThreshold < 0:
		return fmt.Errorf("tuning: intensity threshold must be >= 0, got %v", f.IntensityThreshold)
	case !(0 < f.LowTertile && f.LowTertile < f.HighTertile && f.HighTertile <= 1):
		return fmt.Errorf("tuning: tertiles must satisfy 0 < low < high <= 1, got %v/%v", f.LowTertile, f.HighTertile)
	case f.MADScale <= 0:
		return fmt.Errorf("tuning: MAD scale must be > 0, got %v", f.MADScale)
	case f.HistoryLimit < f.WindowSize:
		return fmt.Errorf("tuning: history limit %d is smaller than window %d", f.HistoryLimit, f.WindowSize)
	}
	if t.Gate.CompletionThreshold <= 0 || t.Gate.CompletionThreshold > 1 {
		return fmt.Errorf("tuning: completion threshold must be in (0, 1], got %v", t.Gate.CompletionThreshold)
	}
	if t.Scoring.MaxBundle < 1 || t.Scoring.MaxBundle > 6 {
		return fmt.Errorf("tuning: max bundle must be in [1, 6], got %d", t.Scoring.MaxBundle)
	}
	if t.Scoring.MaxReasons < 1 || t.Scoring.MaxReasons > 3 {
		return fmt.Errorf("tuning: max reasons must be in [1, 3], got %d", t.Scoring.MaxReasons)
	}
	for _, g := range []string{"reduce_stress", "boost_rentabilite", "preserve_liquidity", "balance"} {
		if _, ok := t.Scoring.Goals[g]; !ok {
			return fmt.Errorf("tuning: missing goal weights for %q", g)
		}
	}
	if t.TiltRecomputeEvery < 1 {
		return fmt.Errorf("tuning: tilt recompute cadence must be >= 1, got %d", t.TiltRecomputeEvery)
	}
	return nil
}
