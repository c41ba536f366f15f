package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/recommendation"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUGGEST BUNDLE QUERY
// Ranks the eligible pool against a goal and returns a short mission bundle.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultMaxBundle is used when the query leaves MaxBundle at zero.
const DefaultMaxBundle = 3

// SuggestBundleQuery asks for a goal-aligned bundle.
type SuggestBundleQuery struct {
	StudentID string   `validate:"required"`
	Goal      string   `validate:"required"`
	MaxBundle int      `validate:"omitempty"`
	Whitelist []string `validate:"omitempty,dive,required"`
}

// SuggestedMissionDTO is one bundle entry.
type SuggestedMissionDTO struct {
	MissionID string   `json:"mission_id"`
	Title     string   `json:"title"`
	Concept   string   `json:"concept"`
	Level     string   `json:"level"`
	Score     float64  `json:"score"`
	Why       []string `json:"why"`
	HasEvent  bool     `json:"has_event"`
}

// CardDTO is an auxiliary display card.
type CardDTO struct {
	Kind       string `json:"kind"`
	MissionID  string `json:"mission_id"`
	EventID    string `json:"event_id"`
	EventTitle string `json:"event_title,omitempty"`
}

// TipDTO is a behavioral hint.
type TipDTO struct {
	ID       string `json:"id"`
	Audience string `json:"audience"`
	Text     string `json:"text"`
}

// BundleResult is the recommendation response.
type BundleResult struct {
	StudentID   string                `json:"student_id"`
	Tilt        string                `json:"profile_tilt"`
	Goal        string                `json:"goal"`
	Track       string                `json:"track"`
	TrackLabel  string                `json:"job"`
	Missions    []SuggestedMissionDTO `json:"missions"`
	Cards       []CardDTO             `json:"cards"`
	Tip         *TipDTO               `json:"tip,omitempty"`
	Explanation string                `json:"explanation"`
}

// SuggestBundleHandler serves SuggestBundleQuery.
type SuggestBundleHandler struct {
	students     student.Repository
	progress     student.ProgressStore
	catalog      mission.Catalog
	extractor    *profiling.Extractor
	classifier   *profiling.Classifier
	gate         *recommendation.Gate
	scorer       *recommendation.Scorer
	historyLimit int
	log          *logger.Logger
}

// NewSuggestBundleHandler creates the handler.
func NewSuggestBundleHandler(
	students student.Repository,
	progress student.ProgressStore,
	catalog mission.Catalog,
	extractor *profiling.Extractor,
	classifier *profiling.Classifier,
	gate *recommendation.Gate,
	scorer *recommendation.Scorer,
	historyLimit int,
	log *logger.Logger,
) *SuggestBundleHandler {
	return &SuggestBundleHandler{
		students:     students,
		progress:     progress,
		catalog:      catalog,
		extractor:    extractor,
		classifier:   classifier,
		gate:         gate,
		scorer:       scorer,
		historyLimit: historyLimit,
		log:          log.With(logger.Component("suggest_bundle")),
	}
}

// Handle builds the bundle. The goal is rejected before any data is read.
func (h *SuggestBundleHandler) Handle(ctx context.Context, q SuggestBundleQuery) (res *BundleResult, err error) {
	done := metrics.Track("suggest_bundle")
	defer func() { done(err) }()

	if err := validateQuery("SuggestBundle", q); err != nil {
		return nil, err
	}
	goal, err := recommendation.ParseGoal(q.Goal)
	if err != nil {
		return nil, err
	}
	if q.MaxBundle == 0 {
		q.MaxBundle = DefaultMaxBundle
	}

	var (
		st          *student.Student
		doneIDs     map[string]struct{}
		completions []student.Completion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if st, err = h.students.GetByID(gctx, q.StudentID); err != nil {
			return lookupError("SuggestBundle", "student", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if doneIDs, err = h.progress.CompletedIDs(gctx, q.StudentID); err != nil {
			return lookupError("SuggestBundle", "progress", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if completions, err = h.progress.RecentCompletions(gctx, q.StudentID, h.historyLimit); err != nil {
			return lookupError("SuggestBundle", "history", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	history := profiling.Assemble(completions, h.catalog)
	features := h.extractor.Compute(history)

	tilt, err := h.classifier.Predict(features)
	if err != nil {
		h.log.Error("tilt unavailable, bundle aborted", logger.StudentID(q.StudentID), logger.Err(err))
		return nil, err
	}
	metrics.RecordTilt(string(tilt))

	track := recommendation.ResolveTrack(st.Track)
	pool, _ := h.gate.Eligible(h.catalog, track.AllowedConcepts(q.Whitelist), doneIDs)

	in := recommendation.ScoreInput{
		Pool:      pool,
		Tilt:      tilt,
		Goal:      goal,
		Features:  features,
		MaxBundle: q.MaxBundle,
	}
	for _, r := range history {
		in.RecentConcepts = append(in.RecentConcepts, r.Concept)
	}
	if n := len(history); n > 0 {
		in.LastConcept = history[n-1].Concept
	}

	bundle, err := h.scorer.Score(in)
	if err != nil {
		return nil, shared.WrapError("query", "SuggestBundle", shared.ErrInvalidInput, "scoring failed", err)
	}
	bundle.TrackLabel = track.Label
	metrics.RecordBundle(string(goal), len(bundle.Missions))

	for _, sm := range bundle.Missions {
		h.log.Debug("mission scored",
			logger.StudentID(q.StudentID),
			logger.MissionID(sm.Mission.ID),
			logger.Float64("score", sm.Score),
			logger.Float64("goal", sm.Breakdown.Goal),
			logger.Float64("gap", sm.Breakdown.Gap),
			logger.Float64("diversity", sm.Breakdown.Diversity),
			logger.Float64("pacing", sm.Breakdown.Pacing),
		)
	}
	h.log.Info("bundle suggested",
		logger.StudentID(q.StudentID),
		logger.Goal(string(goal)),
		logger.Tilt(string(tilt)),
		logger.Int("pool", len(pool)),
		logger.Int("size", len(bundle.Missions)),
	)

	return toBundleResult(q.StudentID, track, bundle), nil
}

func toBundleResult(studentID string, track recommendation.TrackInfo, b *recommendation.Bundle) *BundleResult {
	res := &BundleResult{
		StudentID:   studentID,
		Tilt:        string(b.Tilt),
		Goal:        string(b.Goal),
		Track:       string(track.Track),
		TrackLabel:  b.TrackLabel,
		Missions:    make([]SuggestedMissionDTO, 0, len(b.Missions)),
		Cards:       make([]CardDTO, 0, len(b.Cards)),
		Explanation: b.Explanation,
	}
	for _, sm := range b.Missions {
		res.Missions = append(res.Missions, SuggestedMissionDTO{
			MissionID: sm.Mission.ID,
			Title:     sm.Mission.Title,
			Concept:   sm.Mission.Concept,
			Level:     sm.Mission.Level.String(),
			Score:     sm.Score,
			Why:       sm.Why,
			HasEvent:  sm.HasEvent,
		})
	}
	for _, c := range b.Cards {
		res.Cards = append(res.Cards, CardDTO(c))
	}
	if b.Tip != nil {
		res.Tip = &TipDTO{ID: b.Tip.ID, Audience: string(b.Tip.Audience), Text: b.Tip.Text}
	}
	return res
}
