package recommendation

import (
	"fmt"
	"sort"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUGGESTION SCORER
// ══════════════════════════════════════════════════════════════════════════════

// maxBundleCap is the hard upper bound on bundle length.
const maxBundleCap = 6

// ScoreInput is everything the scorer needs for one ranking.
type ScoreInput struct {
	Pool     []*mission.Mission
	Tilt     profiling.TiltLabel
	Goal     Goal
	Features profiling.FeatureVector

	// RecentConcepts are the concepts of recent completions, oldest to newest.
	RecentConcepts []string

	// LastConcept is the concept of the latest completion. Empty means none.
	LastConcept string

	MaxBundle int
}

// Scorer ranks an eligible pool. It is safe for concurrent use.
type Scorer struct {
	cfg    tuning.ScoringTuning
	events mission.EventCatalog
}

// NewScorer creates a scorer. events may be nil, in which case no mission
// is flagged as carrying an event.
func NewScorer(cfg tuning.ScoringTuning, events mission.EventCatalog) *Scorer {
	return &Scorer{cfg: cfg, events: events}
}

// ClampBundleSize clips a requested bundle size to [1, upper] with upper <= 6.
func ClampBundleSize(requested, upper int) int {
	if upper <= 0 || upper > maxBundleCap {
		upper = maxBundleCap
	}
	switch {
	case requested < 1:
		return 1
	case requested > upper:
		return upper
	default:
		return requested
	}
}

// Score ranks the pool and returns the bundle. An empty pool yields an empty
// bundle, not an error.
func (s *Scorer) Score(in ScoreInput) (*Bundle, error) {
	if !in.Goal.IsValid() {
		return nil, shared.ErrInvalidGoal
	}
	weights, ok := s.cfg.Goals[string(in.Goal)]
	if !ok {
		return nil, shared.ErrInvalidGoal
	}

	recent := recentDistinct(in.RecentConcepts, s.cfg.RecentDepth)

	scored := make([]ScoredMission, 0, len(in.Pool))
	for _, m := range in.Pool {
		exp, ok := ExpectedImpact(m, in.Tilt)
		if !ok {
			continue
		}

		b := Breakdown{
			Goal:      goalScore(exp, weights),
			Gap:       s.gapBonus(exp, in.Features),
			Diversity: s.diversityBonus(m.Concept, recent),
			Pacing:    s.pacingBonus(m.Concept, in.LastConcept),
			GoalGap:   s.goalGapTerm(in.Goal, exp, in.Features),
		}
		w := s.cfg.Weights
		score := w.Goal*b.Goal + w.Gap*b.Gap + w.Diversity*b.Diversity + w.Pacing*b.Pacing + w.GoalGap*b.GoalGap

		sm := ScoredMission{
			Mission:        m,
			Score:          score,
			Breakdown:      b,
			ExpectedImpact: exp,
		}
		sm.EventID, sm.HasEvent = s.firstRegisteredEvent(m)
		scored = append(scored, sm)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Mission.ID < scored[j].Mission.ID
	})

	limit := ClampBundleSize(in.MaxBundle, s.cfg.MaxBundle)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	bundle := &Bundle{
		Tilt:     in.Tilt,
		Goal:     in.Goal,
		Missions: scored,
	}
	for i := range bundle.Missions {
		sm := &bundle.Missions[i]
		sm.Why = s.whys(in.Goal, sm.ExpectedImpact, in.Features, in.Tilt)
		if sm.HasEvent {
			bundle.Cards = append(bundle.Cards, s.eventCard(sm))
		}
	}
	bundle.Tip = SelectTip(in.Features, in.Tilt, s.cfg)
	bundle.Explanation = fmt.Sprintf("Mini-bundle aligned on %s, respecting per-concept prerequisites.", in.Goal)
	return bundle, nil
}

// ExpectedImpact simulates the option the student would likely pick: options
// are ordered by risk proxy (2·stress − cashflow + profitability) and the tilt
// rank selects the position, clipped to the option count. ok is false when the
// mission has no usable option data.
func ExpectedImpact(m *mission.Mission, tilt profiling.TiltLabel) (mission.Impact, bool) {
	if m == nil || !m.HasOptions() {
		return nil, false
	}
	keys := m.OptionKeys()
	proxy := func(k string) float64 {
		imp := m.Options[k].Impact
		return 2*imp.Get(mission.MetricStress) - imp.Get(mission.MetricCashflow) + imp.Get(mission.MetricProfitability)
	}
	sort.SliceStable(keys, func(i, j int) bool { return proxy(keys[i]) < proxy(keys[j]) })

	idx := tilt.Rank()
	if idx > len(keys)-1 {
		idx = len(keys) - 1
	}
	imp := m.Options[keys[idx]].Impact
	if len(imp) == 0 {
		return nil, false
	}
	return imp, true
}

func (s *Scorer) gapBonus(exp mission.Impact, f profiling.FeatureVector) float64 {
	var bonus float64
	if f[profiling.FeaturePctStressUp] >= s.cfg.StressGapThreshold && exp.Get(mission.MetricStress) <= 0 {
		bonus += s.cfg.StressGapBonus
	}
	if f[profiling.FeatureRatioReturnVsSacrifice] >= s.cfg.SacrificeGapThreshold &&
		exp.Get(mission.MetricCashflow) >= 0 && exp.Get(mission.MetricControl) >= 0 {
		bonus += s.cfg.SacrificeGapBonus
	}
	return bonus
}

func (s *Scorer) diversityBonus(concept string, recent map[string]struct{}) float64 {
	if _, seen := recent[concept]; seen {
		return 0
	}
	return s.cfg.DiversityBonus
}

func (s *Scorer) pacingBonus(concept, last string) float64 {
	switch {
	case last == "":
		return 0
	case concept == last:
		return -s.cfg.PacingBonus
	default:
		return s.cfg.PacingBonus
	}
}

// goalGapTerm rewards missions whose expected impact corrects the very gap the
// goal targets.
func (s *Scorer) goalGapTerm(g Goal, exp mission.Impact, f profiling.FeatureVector) float64 {
	switch g {
	case GoalReduceStress:
		if f[profiling.FeaturePctStressUp] >= s.cfg.StressGapThreshold && exp.Get(mission.MetricStress) < 0 {
			return 1
		}
	case GoalPreserveLiquidity:
		if f[profiling.FeatureRatioReturnVsSacrifice] >= s.cfg.SacrificeGapThreshold &&
			exp.Get(mission.MetricCashflow) > 0 && exp.Get(mission.MetricControl) >= 0 {
			return 1
		}
	case GoalBalance:
		for _, m := range mission.TrackedMetrics {
			if m == mission.MetricStress {
				if exp.Get(m) > 0 {
					return 0
				}
				continue
			}
			if exp.Get(m) < 0 {
				return 0
			}
		}
		return 0.5
	}
	return 0
}

func (s *Scorer) firstRegisteredEvent(m *mission.Mission) (string, bool) {
	if s.events == nil {
		return "", false
	}
	for _, id := range m.PossibleEvents {
		if _, err := s.events.GetEvent(id); err == nil {
			return id, true
		}
	}
	return "", false
}

func (s *Scorer) eventCard(sm *ScoredMission) Card {
	card := Card{Kind: CardKindEventContext, MissionID: sm.Mission.ID, EventID: sm.EventID}
	if ev, err := s.events.GetEvent(sm.EventID); err == nil {
		card.EventTitle = ev.Title
	}
	return card
}

// recentDistinct returns up to depth distinct concepts, walking from the newest.
func recentDistinct(concepts []string, depth int) map[string]struct{} {
	out := make(map[string]struct{}, depth)
	for i := len(concepts) - 1; i >= 0 && len(out) < depth; i-- {
		if c := concepts[i]; c != "" {
			out[c] = struct{}{}
		}
	}
	return out
}
