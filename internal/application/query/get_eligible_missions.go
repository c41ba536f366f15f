package query

import (
	"context"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/recommendation"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ELIGIBLE MISSIONS QUERY
// Lists the missions a student can attempt right now, per concept unlock tier.
// ══════════════════════════════════════════════════════════════════════════════

// GetEligibleMissionsQuery selects the student, an optional track override and
// an optional concept whitelist.
type GetEligibleMissionsQuery struct {
	StudentID string   `validate:"required"`
	Track     string   `validate:"omitempty"`
	Whitelist []string `validate:"omitempty,dive,required"`
}

// MissionDTO is a catalog mission as shown to clients.
type MissionDTO struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Concept string   `json:"concept"`
	Level   string   `json:"level"`
	Options []string `json:"options"`
	Events  []string `json:"possible_events,omitempty"`
}

// ConceptUnlockDTO is the gating state of one concept.
type ConceptUnlockDTO struct {
	Concept string    `json:"concept"`
	Unlock  string    `json:"unlock_tier"`
	Tiers   []TierDTO `json:"tiers"`
}

// TierDTO is the completion count of one tier.
type TierDTO struct {
	Level     string `json:"level"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// EligibleMissionsResult is the eligible pool.
type EligibleMissionsResult struct {
	StudentID  string             `json:"student_id"`
	Track      string             `json:"track"`
	TrackLabel string             `json:"track_label"`
	Missions   []MissionDTO       `json:"missions"`
	Concepts   []ConceptUnlockDTO `json:"concepts"`
}

// GetEligibleMissionsHandler serves GetEligibleMissionsQuery.
type GetEligibleMissionsHandler struct {
	students student.Repository
	progress student.ProgressStore
	catalog  mission.Catalog
	gate     *recommendation.Gate
	log      *logger.Logger
}

// NewGetEligibleMissionsHandler creates the handler.
func NewGetEligibleMissionsHandler(
	students student.Repository,
	progress student.ProgressStore,
	catalog mission.Catalog,
	gate *recommendation.Gate,
	log *logger.Logger,
) *GetEligibleMissionsHandler {
	return &GetEligibleMissionsHandler{
		students: students,
		progress: progress,
		catalog:  catalog,
		gate:     gate,
		log:      log.With(logger.Component("eligible_missions")),
	}
}

// Handle computes the eligible pool.
func (h *GetEligibleMissionsHandler) Handle(ctx context.Context, q GetEligibleMissionsQuery) (res *EligibleMissionsResult, err error) {
	done := metrics.Track("get_eligible_missions")
	defer func() { done(err) }()

	if err := validateQuery("GetEligibleMissions", q); err != nil {
		return nil, err
	}

	st, err := h.students.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, lookupError("GetEligibleMissions", "student", err)
	}
	track, err := resolveTrack(st, q.Track)
	if err != nil {
		return nil, err
	}

	doneIDs, err := h.progress.CompletedIDs(ctx, q.StudentID)
	if err != nil {
		return nil, lookupError("GetEligibleMissions", "progress", err)
	}

	concepts := track.AllowedConcepts(q.Whitelist)
	pool, unlocks := h.gate.Eligible(h.catalog, concepts, doneIDs)

	h.log.Info("eligible missions computed",
		logger.StudentID(q.StudentID),
		logger.String("track", string(track.Track)),
		logger.Int("concepts", len(concepts)),
		logger.Int("eligible", len(pool)),
	)

	res = &EligibleMissionsResult{
		StudentID:  q.StudentID,
		Track:      string(track.Track),
		TrackLabel: track.Label,
		Missions:   make([]MissionDTO, 0, len(pool)),
		Concepts:   make([]ConceptUnlockDTO, 0, len(unlocks)),
	}
	for _, m := range pool {
		res.Missions = append(res.Missions, toMissionDTO(m))
	}
	for _, cu := range unlocks {
		res.Concepts = append(res.Concepts, toConceptUnlockDTO(cu))
	}
	return res, nil
}

// resolveTrack applies an explicit override, else the student's own track.
// An unknown override is rejected; an unknown stored track falls back to the default.
func resolveTrack(st *student.Student, override string) (recommendation.TrackInfo, error) {
	if override != "" {
		info, ok := recommendation.LookupTrack(student.Track(override))
		if !ok {
			return recommendation.TrackInfo{}, shared.WrapError("query", "ResolveTrack", shared.ErrInvalidInput, "unknown track "+override, shared.ErrUnknownTrack)
		}
		return info, nil
	}
	return recommendation.ResolveTrack(st.Track), nil
}

func toMissionDTO(m *mission.Mission) MissionDTO {
	return MissionDTO{
		ID:      m.ID,
		Title:   m.Title,
		Concept: m.Concept,
		Level:   m.Level.String(),
		Options: m.OptionKeys(),
		Events:  m.PossibleEvents,
	}
}

func toConceptUnlockDTO(cu recommendation.ConceptUnlock) ConceptUnlockDTO {
	dto := ConceptUnlockDTO{
		Concept: cu.Concept,
		Unlock:  cu.Unlock.String(),
		Tiers:   make([]TierDTO, 0, len(cu.Tiers)),
	}
	for _, t := range cu.Tiers {
		dto.Tiers = append(dto.Tiers, TierDTO{Level: t.Level.String(), Completed: t.Completed, Total: t.Total})
	}
	return dto
}
