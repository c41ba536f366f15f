// Package guidance builds the stage-adaptive strategic context shown to a
// student: alerts, opportunities, goal priorities and tips.
package guidance

import (
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/recommendation"
)

// Stage is the experience stage of a student.
type Stage string

const (
	StageColdStart   Stage = "cold_start"
	StageEarly       Stage = "early"
	StageExperienced Stage = "experienced"
)

// StageFor classifies a completed-mission count.
func StageFor(completed, experiencedAt int) Stage {
	switch {
	case completed <= 0:
		return StageColdStart
	case completed < experiencedAt:
		return StageEarly
	default:
		return StageExperienced
	}
}

// Severity grades an alert.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Alert flags a behavioral gap.
type Alert struct {
	Severity      Severity
	Metric        string
	Text          string
	SuggestedGoal recommendation.Goal
	Icon          string
	Details       map[string]float64
}

// Opportunity highlights something the student does well or could try next.
// SuggestedGoal may be empty.
type Opportunity struct {
	Type          string
	Text          string
	SuggestedGoal recommendation.Goal
	Icon          string
}

// GoalPriority ranks one goal for display.
type GoalPriority struct {
	Priority int
	Badge    string
}

// Message is a short piece of display copy.
type Message struct {
	Title string
	Text  string
	Icon  string
}

// Progress is shown to early-stage students.
type Progress struct {
	Text                   string
	MissionsToFullAnalysis int
	Icon                   string
}

// ConceptCoverage reports explored concepts against the track's concepts.
type ConceptCoverage struct {
	Explored          int
	Total             int
	UnexploredPreview []string
	Message           string
	// CoveragePct is only filled for experienced students.
	CoveragePct int
}

// AdvancedMetrics is the experienced-stage behavioral summary.
type AdvancedMetrics struct {
	HighRiskPct      int
	AvgRiskRank      float64
	Entropy          float64
	TimeZ            float64
	PaceShift        bool
	EventViewPct     int
	QuickCheckPct    int
	EventExposurePct int
}

// StrategicContext is the full guidance payload.
type StrategicContext struct {
	Stage      Stage
	Tilt       string
	TrackLabel string

	Welcome        *Message
	OnboardingTips []Message
	Progress       *Progress

	Alerts              []Alert
	Opportunities       []Opportunity
	GoalRecommendations map[recommendation.Goal]GoalPriority
	Concepts            ConceptCoverage
	Advanced            *AdvancedMetrics
	Tip                 *recommendation.Tip
}

// TopGoal returns the goal with the highest priority. Ties resolve in the
// canonical goal order.
func (c *StrategicContext) TopGoal() recommendation.Goal {
	best := recommendation.GoalBalance
	bestPriority := -1
	for _, g := range recommendation.Goals {
		if p := c.GoalRecommendations[g].Priority; p > bestPriority {
			best, bestPriority = g, p
		}
	}
	return best
}

// GoalRecommendations derives goal priorities: each alert adds 2 and sets the
// badge; each opportunity adds 1 and sets the badge only when unset.
func GoalRecommendations(alerts []Alert, opportunities []Opportunity) map[recommendation.Goal]GoalPriority {
	out := make(map[recommendation.Goal]GoalPriority, len(recommendation.Goals))
	for _, g := range recommendation.Goals {
		out[g] = GoalPriority{}
	}
	for _, a := range alerts {
		if a.SuggestedGoal == "" {
			continue
		}
		gp := out[a.SuggestedGoal]
		gp.Priority += 2
		gp.Badge = a.Icon
		out[a.SuggestedGoal] = gp
	}
	for _, o := range opportunities {
		if o.SuggestedGoal == "" {
			continue
		}
		gp := out[o.SuggestedGoal]
		gp.Priority++
		if gp.Badge == "" {
			gp.Badge = o.Icon
		}
		out[o.SuggestedGoal] = gp
	}
	return out
}
