// Package eventhandler contains the domain event handlers.
package eventhandler

import (
	"context"
	"time"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON MISSION COMPLETED HANDLER
// Recomputes the student's tilt every N completed missions, persists it as
// the student's advisory label, refreshes the cache and announces the result.
// ═══════════════════════════════════════════════════════════════════════════

// FeatureSource computes a student's feature vector.
type FeatureSource interface {
	Features(ctx context.Context, studentID string) (profiling.FeatureVector, error)
}

// TiltRecomputeConfig configures OnMissionCompletedHandler.
type TiltRecomputeConfig struct {
	// Every is the completed-mission cadence.
	Every int

	// CacheTTL is the lifetime of the cached label. Zero uses the cache default.
	CacheTTL time.Duration
}

// OnMissionCompletedHandler handles shared.MissionCompletedEvent.
type OnMissionCompletedHandler struct {
	students   student.Repository
	cache      student.TiltCache
	features   FeatureSource
	classifier *profiling.Classifier
	publisher  shared.EventPublisher
	config     TiltRecomputeConfig
	log        *logger.Logger
	now        func() time.Time
}

// NewOnMissionCompletedHandler creates the handler. cache and publisher may
// be nil.
func NewOnMissionCompletedHandler(
	students student.Repository,
	cache student.TiltCache,
	features FeatureSource,
	classifier *profiling.Classifier,
	publisher shared.EventPublisher,
	config TiltRecomputeConfig,
	log *logger.Logger,
) *OnMissionCompletedHandler {
	return &OnMissionCompletedHandler{
		students:   students,
		cache:      cache,
		features:   features,
		classifier: classifier,
		publisher:  publisher,
		config:     config,
		log:        log.With(logger.Component("on_mission_completed")),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle implements shared.EventHandler.
func (h *OnMissionCompletedHandler) Handle(ctx context.Context, event shared.Event) (err error) {
	ev, ok := event.(shared.MissionCompletedEvent)
	if !ok {
		h.log.Warn("unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}
	if !profiling.RecomputeDue(ev.CompletedCount, h.config.Every) {
		return nil
	}

	done := metrics.Track("recompute_tilt")
	defer func() { done(err) }()

	st, err := h.students.GetByID(ctx, ev.StudentID)
	if err != nil {
		return shared.WrapError("eventhandler", "RecomputeTilt", shared.ErrServiceUnavailable, "failed to load student", err)
	}

	v, err := h.features.Features(ctx, ev.StudentID)
	if err != nil {
		return err
	}
	label, err := h.classifier.Predict(v)
	if err != nil {
		h.log.Error("tilt recompute failed",
			logger.StudentID(ev.StudentID),
			logger.Int("completed", ev.CompletedCount),
			logger.Err(err),
		)
		return err
	}
	metrics.RecordTilt(string(label))

	if err := h.students.UpdateTilt(ctx, ev.StudentID, string(label), h.now()); err != nil {
		return shared.WrapError("eventhandler", "RecomputeTilt", shared.ErrServiceUnavailable, "failed to store tilt", err)
	}

	if h.cache != nil {
		if err := h.cache.SetTilt(ctx, ev.StudentID, string(label), h.config.CacheTTL); err != nil {
			h.log.Warn("tilt cache write failed", logger.StudentID(ev.StudentID), logger.Err(err))
		}
	}

	h.log.Info("tilt recomputed",
		logger.StudentID(ev.StudentID),
		logger.Tilt(string(label)),
		logger.String("previous", st.Tilt),
		logger.Int("completed", ev.CompletedCount),
	)

	if h.publisher != nil {
		updated := shared.NewTiltUpdatedEvent(ev.StudentID, st.Tilt, string(label), ev.CompletedCount)
		if err := h.publisher.Publish(ctx, updated); err != nil {
			h.log.Warn("tilt update not announced", logger.StudentID(ev.StudentID), logger.Err(err))
		}
	}
	return nil
}
