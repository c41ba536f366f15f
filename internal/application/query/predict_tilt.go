package query

import (
	"context"
	"fmt"
	"math"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PREDICT TILT QUERY
// Classifies a feature vector. Either a raw vector or a student id is given;
// with a student id the vector is computed from the student's history.
// ══════════════════════════════════════════════════════════════════════════════

// PredictTiltQuery carries the vector to classify.
type PredictTiltQuery struct {
	Vector    []float64 `validate:"omitempty,len=13"`
	StudentID string    `validate:"required_without=Vector"`
}

// TiltResult is the classification outcome.
type TiltResult struct {
	Tilt   string    `json:"tilt"`
	Vector []float64 `json:"vector"`
}

// FeatureSource computes a student's feature vector.
type FeatureSource interface {
	Features(ctx context.Context, studentID string) (profiling.FeatureVector, error)
}

// PredictTiltHandler serves PredictTiltQuery.
type PredictTiltHandler struct {
	classifier *profiling.Classifier
	features   FeatureSource
	log        *logger.Logger
}

// NewPredictTiltHandler creates the handler. features may be nil when only raw
// vectors are classified.
func NewPredictTiltHandler(classifier *profiling.Classifier, features FeatureSource, log *logger.Logger) *PredictTiltHandler {
	return &PredictTiltHandler{
		classifier: classifier,
		features:   features,
		log:        log.With(logger.Component("predict_tilt")),
	}
}

// Handle classifies the vector. ModelUnavailable is surfaced, never masked.
func (h *PredictTiltHandler) Handle(ctx context.Context, q PredictTiltQuery) (res *TiltResult, err error) {
	done := metrics.Track("predict_tilt")
	defer func() { done(err) }()

	if err := validateQuery("PredictTilt", q); err != nil {
		return nil, err
	}

	var v profiling.FeatureVector
	if len(q.Vector) > 0 {
		for i, x := range q.Vector {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, shared.NewDomainError("query", "PredictTilt", shared.ErrValidation,
					fmt.Sprintf("feature %s is not a finite number", profiling.FeatureNames[i]))
			}
		}
		copy(v[:], q.Vector)
	} else {
		if h.features == nil {
			return nil, shared.NewDomainError("query", "PredictTilt", shared.ErrInvalidInput, "a feature vector is required")
		}
		if v, err = h.features.Features(ctx, q.StudentID); err != nil {
			return nil, err
		}
	}

	label, err := h.classifier.Predict(v)
	if err != nil {
		h.log.Error("tilt prediction failed", logger.StudentID(q.StudentID), logger.Err(err))
		return nil, err
	}
	metrics.RecordTilt(string(label))

	return &TiltResult{Tilt: string(label), Vector: v.Slice()}, nil
}
