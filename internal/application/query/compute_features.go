package query

import (
	"context"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPUTE FEATURES QUERY
// Builds the 13-dimension behavioral vector from the student's recent history.
// ══════════════════════════════════════════════════════════════════════════════

// ComputeFeaturesQuery identifies the student to profile.
type ComputeFeaturesQuery struct {
	StudentID string `validate:"required"`
}

// FeaturesResult is the feature vector in both named and ordered form.
type FeaturesResult struct {
	StudentID string             `json:"student_id"`
	Features  map[string]float64 `json:"features"`
	Vector    []float64          `json:"vector"`
	// HistorySize is the number of completions read before noise filtering.
	HistorySize int `json:"history_size"`
}

// ComputeFeaturesHandler serves ComputeFeaturesQuery.
type ComputeFeaturesHandler struct {
	students     student.Repository
	progress     student.ProgressStore
	catalog      mission.Catalog
	extractor    *profiling.Extractor
	historyLimit int
	log          *logger.Logger
}

// NewComputeFeaturesHandler creates the handler.
func NewComputeFeaturesHandler(
	students student.Repository,
	progress student.ProgressStore,
	catalog mission.Catalog,
	extractor *profiling.Extractor,
	historyLimit int,
	log *logger.Logger,
) *ComputeFeaturesHandler {
	return &ComputeFeaturesHandler{
		students:     students,
		progress:     progress,
		catalog:      catalog,
		extractor:    extractor,
		historyLimit: historyLimit,
		log:          log.With(logger.Component("compute_features")),
	}
}

// Handle computes the feature vector of an existing student.
func (h *ComputeFeaturesHandler) Handle(ctx context.Context, q ComputeFeaturesQuery) (res *FeaturesResult, err error) {
	done := metrics.Track("compute_features")
	defer func() { done(err) }()

	if err := validateQuery("ComputeFeatures", q); err != nil {
		return nil, err
	}
	if _, err := h.students.GetByID(ctx, q.StudentID); err != nil {
		return nil, lookupError("ComputeFeatures", "student", err)
	}

	v, n, err := h.compute(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}

	h.log.Debug("features computed",
		logger.StudentID(q.StudentID),
		logger.Int("history_size", n),
		logger.Float64("pct_stress_up", v[profiling.FeaturePctStressUp]),
	)
	return &FeaturesResult{
		StudentID:   q.StudentID,
		Features:    v.Map(),
		Vector:      v.Slice(),
		HistorySize: n,
	}, nil
}

// Features computes the vector without checking that the student exists.
func (h *ComputeFeaturesHandler) Features(ctx context.Context, studentID string) (profiling.FeatureVector, error) {
	v, _, err := h.compute(ctx, studentID)
	return v, err
}

func (h *ComputeFeaturesHandler) compute(ctx context.Context, studentID string) (profiling.FeatureVector, int, error) {
	completions, err := h.progress.RecentCompletions(ctx, studentID, h.historyLimit)
	if err != nil {
		return profiling.FeatureVector{}, 0, lookupError("ComputeFeatures", "history", err)
	}
	history := profiling.Assemble(completions, h.catalog)
	return h.extractor.Compute(history), len(completions), nil
}
