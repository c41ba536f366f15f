package guidance

import (
	"fmt"
	"math"
	"sort"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/recommendation"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

// pendingTilt is displayed until a tilt has been computed.
const pendingTilt = "analysis in progress"

var progressMessages = map[int]string{
	1: "First mission done! Keep the momentum going",
	2: "You are finding your feet, well done!",
	3: "Your investor profile is starting to take shape...",
	4: "A few more missions to unlock the full analysis",
	5: "Soon you will have access to every advanced recommendation!",
}

const defaultProgressMessage = "Keep it up!"

var onboardingTips = []Message{
	{Icon: "🎯", Text: "Each goal moves your indicators differently"},
	{Icon: "📊", Text: "Your choices will shape your investor profile"},
	{Icon: "🔓", Text: "Complete beginner missions to unlock advanced tiers"},
}

// Input is what the builder needs about one student.
type Input struct {
	Completed int
	// Tilt is empty until the first tilt computation.
	Tilt  profiling.TiltLabel
	Track recommendation.TrackInfo

	// Explored holds the concepts of every completed mission.
	Explored map[string]struct{}

	// Features is only read when HasFeatures is set.
	Features    profiling.FeatureVector
	HasFeatures bool
}

// Builder assembles strategic contexts. It is pure and safe for concurrent use.
type Builder struct {
	cfg     tuning.GuidanceTuning
	scoring tuning.ScoringTuning
}

// NewBuilder creates a builder.
func NewBuilder(t tuning.Tuning) *Builder {
	return &Builder{cfg: t.Guidance, scoring: t.Scoring}
}

// Stage classifies a completed-mission count with the configured threshold.
func (b *Builder) Stage(completed int) Stage {
	return StageFor(completed, b.cfg.ExperiencedAt)
}

// Build returns the strategic context for the student's stage.
func (b *Builder) Build(in Input) *StrategicContext {
	switch b.Stage(in.Completed) {
	case StageColdStart:
		return b.coldStart(in)
	case StageEarly:
		return b.early(in)
	default:
		return b.experienced(in)
	}
}

func (b *Builder) coldStart(in Input) *StrategicContext {
	concepts := append([]string(nil), in.Track.Concepts...)
	sort.Strings(concepts)

	opportunities := []Opportunity{{
		Type:          "discovery",
		Text:          "Start with a balanced goal to discover the game",
		SuggestedGoal: recommendation.GoalBalance,
		Icon:          "🎯",
	}}
	goals := GoalRecommendations(nil, nil)
	goals[recommendation.GoalBalance] = GoalPriority{Priority: 2, Badge: "🎯"}

	return &StrategicContext{
		Stage:      StageColdStart,
		Tilt:       tiltDisplay(in.Tilt),
		TrackLabel: in.Track.Label,
		Welcome: &Message{
			Title: fmt.Sprintf("Welcome to your career as %s!", in.Track.Label),
			Text:  "Start by exploring the core concepts to unlock more complex missions.",
			Icon:  "🚀",
		},
		OnboardingTips:      append([]Message(nil), onboardingTips...),
		Alerts:              []Alert{},
		Opportunities:       opportunities,
		GoalRecommendations: goals,
		Concepts: ConceptCoverage{
			Total:             len(concepts),
			UnexploredPreview: preview(concepts, b.cfg.UnexploredPreview),
			Message:           "Every concept is waiting for you!",
		},
	}
}

func (b *Builder) early(in Input) *StrategicContext {
	msg, ok := progressMessages[in.Completed]
	if !ok {
		msg = defaultProgressMessage
	}

	var f profiling.FeatureVector
	if in.HasFeatures {
		f = in.Features
	}
	explored, unexplored := b.coverage(in)
	s := signals{f: f, cfg: b.cfg, explored: explored, completed: in.Completed}

	alerts := runAlerts(earlyAlerts, s)
	opportunities := append(
		[]Opportunity{{Type: "learning", Text: msg, Icon: "📈"}},
		runOpportunities(earlyOpportunities, s)...,
	)

	plural := ""
	if explored > 1 {
		plural = "s"
	}
	ctx := &StrategicContext{
		Stage:      StageEarly,
		Tilt:       tiltDisplay(in.Tilt),
		TrackLabel: in.Track.Label,
		Progress: &Progress{
			Text:                   msg,
			MissionsToFullAnalysis: max(0, b.cfg.ExperiencedAt-in.Completed),
			Icon:                   "🌱",
		},
		Alerts:              alerts,
		Opportunities:       opportunities,
		GoalRecommendations: GoalRecommendations(alerts, opportunities),
		Concepts: ConceptCoverage{
			Explored:          explored,
			Total:             len(in.Track.Concepts),
			UnexploredPreview: preview(unexplored, b.cfg.UnexploredPreview),
			Message:           fmt.Sprintf("You have explored %d concept%s", explored, plural),
		},
	}
	if in.HasFeatures {
		ctx.Tip = recommendation.SelectTip(f, in.Tilt, b.scoring)
	}
	return ctx
}

func (b *Builder) experienced(in Input) *StrategicContext {
	f := in.Features
	explored, unexplored := b.coverage(in)
	s := signals{
		f:         f,
		cfg:       b.cfg,
		coverage:  coverageRatio(f, len(in.Track.Concepts)),
		explored:  explored,
		completed: in.Completed,
	}

	alerts := runAlerts(experiencedAlerts, s)
	opportunities := runOpportunities(experiencedOpportunities, s)

	return &StrategicContext{
		Stage:               StageExperienced,
		Tilt:                tiltDisplay(in.Tilt),
		TrackLabel:          in.Track.Label,
		Alerts:              alerts,
		Opportunities:       opportunities,
		GoalRecommendations: GoalRecommendations(alerts, opportunities),
		Concepts: ConceptCoverage{
			Explored:          explored,
			Total:             len(in.Track.Concepts),
			UnexploredPreview: preview(unexplored, b.cfg.UnexploredPreview),
			CoveragePct:       int(s.coverage * 100),
		},
		Advanced: &AdvancedMetrics{
			HighRiskPct:      int(f[profiling.FeaturePctHighRisk] * 100),
			AvgRiskRank:      round2(f[profiling.FeatureAvgRiskRank]),
			Entropy:          round2(f[profiling.FeatureChoiceEntropy]),
			TimeZ:            round2(f[profiling.FeatureTimeZ]),
			PaceShift:        f[profiling.FeatureTimeZ] > 1,
			EventViewPct:     int(f[profiling.FeatureEventViewRate] * 100),
			QuickCheckPct:    int(f[profiling.FeatureQuickCheckCorrectRate] * 100),
			EventExposurePct: int(f[profiling.FeatureEventExposureRate] * 100),
		},
		Tip: recommendation.SelectTip(f, in.Tilt, b.scoring),
	}
}

// coverage counts explored track concepts and lists the unexplored ones, sorted.
func (b *Builder) coverage(in Input) (int, []string) {
	var (
		explored   int
		unexplored []string
	)
	for _, c := range in.Track.Concepts {
		if _, ok := in.Explored[c]; ok {
			explored++
			continue
		}
		unexplored = append(unexplored, c)
	}
	sort.Strings(unexplored)
	return explored, unexplored
}

// coverageRatio turns the distinct-concept count of the window into a share of
// the track's concepts.
func coverageRatio(f profiling.FeatureVector, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Min(1, f[profiling.FeatureConceptCoverage]/float64(total))
}

func preview(names []string, n int) []string {
	if len(names) > n {
		names = names[:n]
	}
	return append([]string{}, names...)
}

func tiltDisplay(t profiling.TiltLabel) string {
	if t == "" {
		return pendingTilt
	}
	return string(t)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
