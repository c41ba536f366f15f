package query

import (
	"context"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/guidance"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/recommendation"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STRATEGIC CONTEXT QUERY
// Stage-aware guidance: alerts, opportunities and goal priorities.
// ══════════════════════════════════════════════════════════════════════════════

// GetStrategicContextQuery identifies the student.
type GetStrategicContextQuery struct {
	StudentID string `validate:"required"`
}

// AlertDTO is a behavioral alert.
type AlertDTO struct {
	Type          string             `json:"type"`
	Metric        string             `json:"metric"`
	Message       string             `json:"message"`
	SuggestedGoal string             `json:"suggested_goal,omitempty"`
	Icon          string             `json:"icon"`
	Details       map[string]float64 `json:"details,omitempty"`
}

// OpportunityDTO is a positive signal.
type OpportunityDTO struct {
	Type          string `json:"type"`
	Message       string `json:"message"`
	SuggestedGoal string `json:"suggested_goal,omitempty"`
	Icon          string `json:"icon"`
}

// GoalPriorityDTO ranks one goal.
type GoalPriorityDTO struct {
	Priority int    `json:"priority"`
	Badge    string `json:"badge"`
}

// MessageDTO is display copy.
type MessageDTO struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"message"`
	Icon  string `json:"icon"`
}

// ProgressDTO is the early-stage progress line.
type ProgressDTO struct {
	Message                string `json:"message"`
	MissionsToFullAnalysis int    `json:"missions_to_full_analysis"`
	Icon                   string `json:"icon"`
}

// ConceptsDTO is concept coverage.
type ConceptsDTO struct {
	Explored          int      `json:"explored"`
	Total             int      `json:"total"`
	UnexploredPreview []string `json:"unexplored_preview"`
	Message           string   `json:"message,omitempty"`
	CoveragePct       int      `json:"coverage_pct,omitempty"`
}

// AdvancedMetricsDTO is the experienced-stage summary.
type AdvancedMetricsDTO struct {
	RiskTakingPct    int     `json:"risk_taking"`
	AvgRiskRank      float64 `json:"avg_risk_rank"`
	DecisionEntropy  float64 `json:"decision_entropy"`
	TimeZ            float64 `json:"time_z"`
	PaceShift        bool    `json:"pace_shift"`
	EventViewPct     int     `json:"event_view_rate"`
	QuickCheckPct    int     `json:"quick_check_rate"`
	EventExposurePct int     `json:"event_exposure_rate"`
}

// StrategicContextResult is the guidance payload.
type StrategicContextResult struct {
	StudentID           string                     `json:"student_id"`
	Stage               string                     `json:"stage"`
	Completed           int                        `json:"missions_completed"`
	Tilt                string                     `json:"profile_tilt"`
	TrackLabel          string                     `json:"job"`
	Welcome             *MessageDTO                `json:"welcome_message,omitempty"`
	OnboardingTips      []MessageDTO               `json:"onboarding_tips,omitempty"`
	Progress            *ProgressDTO               `json:"progress,omitempty"`
	Alerts              []AlertDTO                 `json:"alerts"`
	Opportunities       []OpportunityDTO           `json:"opportunities"`
	GoalRecommendations map[string]GoalPriorityDTO `json:"goal_recommendations"`
	TopGoal             string                     `json:"top_goal"`
	Concepts            ConceptsDTO                `json:"concepts"`
	Advanced            *AdvancedMetricsDTO        `json:"advanced_metrics,omitempty"`
	Tip                 *TipDTO                    `json:"tip,omitempty"`
}

// GetStrategicContextHandler serves GetStrategicContextQuery.
type GetStrategicContextHandler struct {
	students student.Repository
	progress student.ProgressStore
	cache    student.TiltCache
	catalog  mission.Catalog
	features FeatureSource
	builder  *guidance.Builder
	log      *logger.Logger
}

// NewGetStrategicContextHandler creates the handler. cache may be nil.
func NewGetStrategicContextHandler(
	students student.Repository,
	progress student.ProgressStore,
	cache student.TiltCache,
	catalog mission.Catalog,
	features FeatureSource,
	builder *guidance.Builder,
	log *logger.Logger,
) *GetStrategicContextHandler {
	return &GetStrategicContextHandler{
		students: students,
		progress: progress,
		cache:    cache,
		catalog:  catalog,
		features: features,
		builder:  builder,
		log:      log.With(logger.Component("strategic_context")),
	}
}

// Handle builds the strategic context.
func (h *GetStrategicContextHandler) Handle(ctx context.Context, q GetStrategicContextQuery) (res *StrategicContextResult, err error) {
	done := metrics.Track("get_strategic_context")
	defer func() { done(err) }()

	if err := validateQuery("GetStrategicContext", q); err != nil {
		return nil, err
	}

	st, err := h.students.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, lookupError("GetStrategicContext", "student", err)
	}
	doneIDs, err := h.progress.CompletedIDs(ctx, q.StudentID)
	if err != nil {
		return nil, lookupError("GetStrategicContext", "progress", err)
	}

	in := guidance.Input{
		Completed: len(doneIDs),
		Tilt:      h.tilt(ctx, st),
		Track:     recommendation.ResolveTrack(st.Track),
		Explored:  h.explored(doneIDs),
	}

	stage := h.builder.Stage(in.Completed)
	switch stage {
	case guidance.StageEarly:
		v, ferr := h.features.Features(ctx, q.StudentID)
		if ferr != nil {
			h.log.Warn("early-stage features unavailable", logger.StudentID(q.StudentID), logger.Err(ferr))
			break
		}
		in.Features, in.HasFeatures = v, true
	case guidance.StageExperienced:
		if in.Features, err = h.features.Features(ctx, q.StudentID); err != nil {
			return nil, err
		}
		in.HasFeatures = true
	}

	sc := h.builder.Build(in)
	metrics.RecordStage(string(sc.Stage))

	h.log.Info("strategic context built",
		logger.StudentID(q.StudentID),
		logger.Stage(string(sc.Stage)),
		logger.Int("completed", in.Completed),
		logger.Int("alerts", len(sc.Alerts)),
		logger.Int("opportunities", len(sc.Opportunities)),
	)

	return toStrategicContextResult(q.StudentID, in.Completed, sc), nil
}

// tilt prefers the cached label and falls back to the student record. Cache
// failures are logged and ignored.
func (h *GetStrategicContextHandler) tilt(ctx context.Context, st *student.Student) profiling.TiltLabel {
	raw := ""
	if h.cache != nil {
		cached, err := h.cache.GetTilt(ctx, st.ID)
		if err != nil {
			h.log.Warn("tilt cache read failed", logger.StudentID(st.ID), logger.Err(err))
		}
		raw = cached
	}
	if raw == "" {
		raw = st.Tilt
	}
	if raw == "" {
		return ""
	}
	label, _ := profiling.ParseTilt(raw)
	return label
}

func (h *GetStrategicContextHandler) explored(doneIDs map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(doneIDs))
	for id := range doneIDs {
		if m, err := h.catalog.Get(id); err == nil {
			out[m.Concept] = struct{}{}
		}
	}
	return out
}

func toStrategicContextResult(studentID string, completed int, sc *guidance.StrategicContext) *StrategicContextResult {
	res := &StrategicContextResult{
		StudentID:           studentID,
		Stage:               string(sc.Stage),
		Completed:           completed,
		Tilt:                sc.Tilt,
		TrackLabel:          sc.TrackLabel,
		Alerts:              make([]AlertDTO, 0, len(sc.Alerts)),
		Opportunities:       make([]OpportunityDTO, 0, len(sc.Opportunities)),
		GoalRecommendations: make(map[string]GoalPriorityDTO, len(sc.GoalRecommendations)),
		TopGoal:             string(sc.TopGoal()),
		Concepts: ConceptsDTO{
			Explored:          sc.Concepts.Explored,
			Total:             sc.Concepts.Total,
			UnexploredPreview: sc.Concepts.UnexploredPreview,
			Message:           sc.Concepts.Message,
			CoveragePct:       sc.Concepts.CoveragePct,
		},
	}
	if sc.Welcome != nil {
		res.Welcome = &MessageDTO{Title: sc.Welcome.Title, Text: sc.Welcome.Text, Icon: sc.Welcome.Icon}
	}
	for _, m := range sc.OnboardingTips {
		res.OnboardingTips = append(res.OnboardingTips, MessageDTO{Title: m.Title, Text: m.Text, Icon: m.Icon})
	}
	if sc.Progress != nil {
		res.Progress = &ProgressDTO{
			Message:                sc.Progress.Text,
			MissionsToFullAnalysis: sc.Progress.MissionsToFullAnalysis,
			Icon:                   sc.Progress.Icon,
		}
	}
	for _, a := range sc.Alerts {
		res.Alerts = append(res.Alerts, AlertDTO{
			Type:          string(a.Severity),
			Metric:        a.Metric,
			Message:       a.Text,
			SuggestedGoal: string(a.SuggestedGoal),
			Icon:          a.Icon,
			Details:       a.Details,
		})
	}
	for _, o := range sc.Opportunities {
		res.Opportunities = append(res.Opportunities, OpportunityDTO{
			Type:          o.Type,
			Message:       o.Text,
			SuggestedGoal: string(o.SuggestedGoal),
			Icon:          o.Icon,
		})
	}
	for g, p := range sc.GoalRecommendations {
		res.GoalRecommendations[string(g)] = GoalPriorityDTO(p)
	}
	if a := sc.Advanced; a != nil {
		res.Advanced = &AdvancedMetricsDTO{
			RiskTakingPct:    a.HighRiskPct,
			AvgRiskRank:      a.AvgRiskRank,
			DecisionEntropy:  a.Entropy,
			TimeZ:            a.TimeZ,
			PaceShift:        a.PaceShift,
			EventViewPct:     a.EventViewPct,
			QuickCheckPct:    a.QuickCheckPct,
			EventExposurePct: a.EventExposurePct,
		}
	}
	if sc.Tip != nil {
		res.Tip = &TipDTO{ID: sc.Tip.ID, Audience: string(sc.Tip.Audience), Text: sc.Tip.Text}
	}
	return res
}
