// Package mission contains the content catalog model: missions, their options
// and the market events that modify option impacts.
package mission

import (
	"sort"
	"strconv"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metric is one of the five tracked business indicators.
type Metric string

const (
	MetricCashflow      Metric = "cashflow"
	MetricControl       Metric = "control"
	MetricStress        Metric = "stress"
	MetricProfitability Metric = "profitability"
	MetricReputation    Metric = "reputation"
)

// TrackedMetrics lists the metrics in their canonical order.
var TrackedMetrics = [...]Metric{
	MetricCashflow,
	MetricControl,
	MetricStress,
	MetricProfitability,
	MetricReputation,
}

// ParseMetric normalizes a metric name, accepting the legacy French keys.
func ParseMetric(s string) (Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cashflow":
		return MetricCashflow, true
	case "control", "controle", "contrôle":
		return MetricControl, true
	case "stress":
		return MetricStress, true
	case "profitability", "rentabilite", "rentabilité":
		return MetricProfitability, true
	case "reputation", "réputation":
		return MetricReputation, true
	default:
		return "", false
	}
}

// Impact maps a metric to its delta. Missing metrics read as zero.
type Impact map[Metric]float64

// Get returns the delta for a metric (zero when absent).
func (i Impact) Get(m Metric) float64 {
	return i[m]
}

// Clone returns a copy of the impact.
func (i Impact) Clone() Impact {
	out := make(Impact, len(i))
	for k, v := range i {
		out[k] = v
	}
	return out
}

// Add returns a new impact with delta applied additively.
func (i Impact) Add(delta Impact) Impact {
	out := i.Clone()
	for k, v := range delta {
		out[k] += v
	}
	return out
}

// Intensity is the sum of absolute deltas across the tracked metrics.
func (i Impact) Intensity() float64 {
	var sum float64
	for _, m := range TrackedMetrics {
		v := i[m]
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return sum
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVELS
// ══════════════════════════════════════════════════════════════════════════════

// Level is the difficulty tier of a mission inside its concept.
type Level int

const (
	LevelBeginner Level = iota
	LevelIntermediate
	LevelAdvanced
)

// Levels lists the tiers from lowest to highest.
var Levels = [...]Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// IsValid reports whether the level is one of the three tiers.
func (l Level) IsValid() bool {
	return l >= LevelBeginner && l <= LevelAdvanced
}

// String returns the canonical name of the level.
func (l Level) String() string {
	switch l {
	case LevelBeginner:
		return "beginner"
	case LevelIntermediate:
		return "intermediate"
	case LevelAdvanced:
		return "advanced"
	default:
		return "unknown"
	}
}

// ParseLevel accepts English, French and numeric spellings of a tier.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner", "débutant", "debutant", "tier0":
		return LevelBeginner, true
	case "intermediate", "intermédiaire", "intermediaire", "tier1":
		return LevelIntermediate, true
	case "advanced", "avancé", "avance", "tier2":
		return LevelAdvanced, true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		l := Level(n)
		return l, l.IsValid()
	}
	return 0, false
}

// ══════════════════════════════════════════════════════════════════════════════
// MISSION
// ══════════════════════════════════════════════════════════════════════════════

// Option is one answer of a mission.
type Option struct {
	Key         string
	Description string
	Impact      Impact
}

// Mission is a decision exercise from the catalog.
type Mission struct {
	ID             string
	Title          string
	Concept        string
	Level          Level
	Options        map[string]Option
	PossibleEvents []string
}

// OptionKeys returns option keys in sorted order.
func (m *Mission) OptionKeys() []string {
	keys := make([]string, 0, len(m.Options))
	for k := range m.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OptionImpacts returns the impacts of all options, ordered by option key.
func (m *Mission) OptionImpacts() []Impact {
	keys := m.OptionKeys()
	out := make([]Impact, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.Options[k].Impact)
	}
	return out
}

// HasOptions reports whether the mission carries usable option data.
func (m *Mission) HasOptions() bool {
	return len(m.Options) > 0
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT
// ══════════════════════════════════════════════════════════════════════════════

// Event is a market event that can be active during a mission and shifts the
// impact of specific options.
type Event struct {
	ID             string
	Title          string
	Description    string
	ModifiesChoice map[string]Impact
}

// ModifierFor returns the impact delta this event applies to an option key.
func (e *Event) ModifierFor(optionKey string) (Impact, bool) {
	mod, ok := e.ModifiesChoice[optionKey]
	return mod, ok && len(mod) > 0
}
