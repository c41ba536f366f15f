// Package profiling turns a student's mission history into a behavioral
// fingerprint and classifies it into a risk tilt.
package profiling

import (
	"math"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEATURE SCHEMA
// The order below is the order the tilt model was trained on. Never reorder.
// ══════════════════════════════════════════════════════════════════════════════

const (
	FeaturePctHighRisk = iota
	FeaturePctLowRisk
	FeatureAvgRiskRank
	FeatureRiskRankStd
	FeatureRatioReturnVsSacrifice
	FeaturePctStressUp
	FeatureMedianNetTradeoff
	FeatureTimeZ
	FeatureEventViewRate
	FeatureQuickCheckCorrectRate
	FeatureConceptCoverage
	FeatureChoiceEntropy
	FeatureEventExposureRate

	FeatureCount
)

// FeatureNames lists the wire names of the features in schema order.
var FeatureNames = [FeatureCount]string{
	"pct_high_risk",
	"pct_low_risk",
	"avg_risk_rank",
	"risk_rank_std",
	"ratio_ret_up_vs_ctrl_cf_down",
	"pct_stress_up",
	"median_net_tradeoff",
	"time_z",
	"event_view_rate",
	"quick_check_correct_rate",
	"concept_coverage",
	"choice_entropy",
	"event_exposure_rate",
}

// FeatureVector is the fixed 13-dimension behavioral fingerprint.
// The zero value is the vector of an empty history.
type FeatureVector [FeatureCount]float64

// Get returns a feature by its index constant.
func (v FeatureVector) Get(i int) float64 { return v[i] }

// Slice returns the vector as a fresh slice in schema order.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// Map returns the vector keyed by feature name. All 13 keys are always present.
func (v FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, FeatureCount)
	for i, name := range FeatureNames {
		out[name] = v[i]
	}
	return out
}

// IsZero reports whether every feature is zero.
func (v FeatureVector) IsZero() bool {
	return v == FeatureVector{}
}

// FeatureVectorFromMap rebuilds a vector from named values. Missing names read as zero.
func FeatureVectorFromMap(m map[string]float64) FeatureVector {
	var v FeatureVector
	for i, name := range FeatureNames {
		v[i] = sanitize(m[name])
	}
	return v
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERACTION
// ══════════════════════════════════════════════════════════════════════════════

// Interaction is one completed mission as seen by the extractor.
type Interaction struct {
	MissionID        string
	Concept          string
	Level            mission.Level
	ChosenOption     string
	ChosenImpact     mission.Impact
	OptionImpacts    []mission.Impact
	TimeSpentSeconds float64
	ActiveEventIDs   []string
	Flags            student.LearningFlags
}

// HadEvent reports whether at least one event was active.
func (i Interaction) HadEvent() bool {
	return len(i.ActiveEventIDs) > 0
}

// ══════════════════════════════════════════════════════════════════════════════
// EXTRACTOR
// ══════════════════════════════════════════════════════════════════════════════

// Extractor computes feature vectors. It is stateless and safe for concurrent use.
type Extractor struct {
	cfg    tuning.FeatureTuning
	events mission.EventCatalog
}

// NewExtractor creates an extractor. events may be nil, in which case event
// modifiers are ignored.
func NewExtractor(cfg tuning.FeatureTuning, events mission.EventCatalog) *Extractor {
	return &Extractor{cfg: cfg, events: events}
}

// windowEntry is an interaction that survived the noise filter.
type windowEntry struct {
	Interaction
	adjusted mission.Impact
}

// Compute returns the feature vector for a history ordered oldest to newest.
func (e *Extractor) Compute(history []Interaction) FeatureVector {
	window := e.window(history)
	if len(window) == 0 {
		return FeatureVector{}
	}

	n := len(window)
	w := DecayWeights(n, e.cfg.HalfLife)

	var (
		ranks     = make([]float64, n)
		highRisk  = make([]float64, n)
		lowRisk   = make([]float64, n)
		tradeoffs = make([]float64, n)
		stressUp  = make([]float64, n)
		retVsCost = make([]float64, n)
		times     = make([]float64, n)
		quickOK   = make([]float64, n)
		keys      = make([]string, n)
		concepts  = make(map[string]struct{}, n)

		viewNum, viewDen float64
		exposed          int
	)

	for i, r := range window {
		adj := r.adjusted
		options := r.OptionImpacts
		if len(options) == 0 {
			options = []mission.Impact{adj}
		}
		rank := e.RiskRank(adj, options)
		ranks[i] = float64(rank)
		highRisk[i] = indicator(rank == 2)
		lowRisk[i] = indicator(rank == 0)

		profit := adj.Get(mission.MetricProfitability)
		cash := adj.Get(mission.MetricCashflow)
		ctrl := adj.Get(mission.MetricControl)

		intensity := adj.Intensity()
		if intensity == 0 {
			intensity = 1
		}
		cost := math.Max(0, -cash) + math.Max(0, -ctrl)
		tradeoffs[i] = (math.Max(0, profit) - cost) / intensity

		stressUp[i] = indicator(adj.Get(mission.MetricStress) > 0)
		retVsCost[i] = indicator(profit > 0 && (cash < 0 || ctrl < 0))
		times[i] = r.TimeSpentSeconds
		quickOK[i] = indicator(r.Flags.QuickCheckCorrect)
		keys[i] = r.ChosenOption
		concepts[r.Concept] = struct{}{}

		if r.HadEvent() {
			exposed++
			viewDen += w[i]
			if r.Flags.EventViewed {
				viewNum += w[i]
			}
		}
	}

	var v FeatureVector
	v[FeaturePctHighRisk] = weightedMean(highRisk, w)
	v[FeaturePctLowRisk] = weightedMean(lowRisk, w)
	v[FeatureAvgRiskRank] = weightedMean(ranks, w)
	v[FeatureRiskRankStd] = weightedStd(ranks, w)
	v[FeatureRatioReturnVsSacrifice] = weightedMean(retVsCost, w)
	v[FeaturePctStressUp] = weightedMean(stressUp, w)
	v[FeatureMedianNetTradeoff] = Median(tradeoffs)
	v[FeatureTimeZ] = e.timeZ(times, w)
	if viewDen > 0 {
		v[FeatureEventViewRate] = viewNum / viewDen
	}
	v[FeatureQuickCheckCorrectRate] = weightedMean(quickOK, w)
	v[FeatureConceptCoverage] = float64(len(concepts))
	v[FeatureChoiceEntropy] = Entropy(keys)
	v[FeatureEventExposureRate] = float64(exposed) / float64(n)

	for i := range v {
		v[i] = sanitize(v[i])
	}
	return v
}

// window applies event modifiers, drops noise and keeps the most recent entries.
func (e *Extractor) window(history []Interaction) []windowEntry {
	kept := make([]windowEntry, 0, len(history))
	for _, r := range history {
		adj := e.AdjustedImpact(r)
		if adj.Intensity() < e.cfg.IntensityThreshold {
			continue
		}
		kept = append(kept, windowEntry{Interaction: r, adjusted: adj})
	}
	if len(kept) > e.cfg.WindowSize {
		kept = kept[len(kept)-e.cfg.WindowSize:]
	}
	return kept
}

// AdjustedImpact returns the chosen impact with every active event's modifier
// for the chosen option added. Unknown events are ignored.
func (e *Extractor) AdjustedImpact(r Interaction) mission.Impact {
	adj := r.ChosenImpact.Clone()
	if e.events == nil {
		return adj
	}
	for _, id := range r.ActiveEventIDs {
		ev, err := e.events.GetEvent(id)
		if err != nil || ev == nil {
			continue
		}
		if mod, ok := ev.ModifierFor(r.ChosenOption); ok {
			adj = adj.Add(mod)
		}
	}
	return adj
}

// RawRisk scores how risky an option is.
func (e *Extractor) RawRisk(imp mission.Impact) float64 {
	rw := e.cfg.RiskWeights
	return rw.ProfitGain*math.Max(0, imp.Get(mission.MetricProfitability)) +
		rw.StressGain*math.Max(0, imp.Get(mission.MetricStress)) +
		rw.CashflowLoss*math.Max(0, -imp.Get(mission.MetricCashflow)) +
		rw.ControlLoss*math.Max(0, -imp.Get(mission.MetricControl)) +
		rw.ReputationLoss*math.Max(0, -imp.Get(mission.MetricReputation))
}

// RiskRank buckets the chosen impact into 0 (safe), 1 (mid) or 2 (risky)
// relative to the mission's own options. When every option ties, the rank is 0.
func (e *Extractor) RiskRank(chosen mission.Impact, options []mission.Impact) int {
	s := e.RawRisk(chosen)
	if len(options) == 0 {
		return 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, o := range options {
		r := e.RawRisk(o)
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	// Event modifiers can push the chosen score outside [lo, hi]; the
	// buckets below absorb that.
	var x float64
	if hi > lo {
		x = (s - lo) / (hi - lo)
	}
	switch {
	case x < e.cfg.LowTertile:
		return 0
	case x < e.cfg.HighTertile:
		return 1
	default:
		return 2
	}
}

// timeZ is the recency-weighted sum of robust z-scores of time spent.
func (e *Extractor) timeZ(times, w []float64) float64 {
	med := Median(times)
	mad := MAD(times, med)
	if mad == 0 {
		mad = 1
	}
	den := e.cfg.MADScale * mad
	var z float64
	for i, t := range times {
		z += w[i] * (t - med) / den
	}
	return z
}

func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
