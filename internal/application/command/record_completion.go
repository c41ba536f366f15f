package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD COMPLETION COMMAND
// Stores a finished mission and announces it. The tilt recompute runs in the
// MissionCompleted subscribers.
// ══════════════════════════════════════════════════════════════════════════════

// RecordCompletionCommand contains one finished mission.
type RecordCompletionCommand struct {
	StudentID         string   `validate:"required"`
	MissionID         string   `validate:"required"`
	ChosenOption      string   `validate:"required"`
	TimeSpentSeconds  float64  `validate:"gte=0"`
	ActiveEventIDs    []string `validate:"dive,required"`
	EventViewed       bool
	QuickCheckCorrect bool

	// CompletedAt defaults to now.
	CompletedAt time.Time

	CorrelationID string
}

// Validate validates the command.
func (c RecordCompletionCommand) Validate() error {
	return validateCommand("RecordCompletion", c)
}

// RecordCompletionResult describes the stored completion.
type RecordCompletionResult struct {
	CompletionID   string    `json:"completion_id"`
	StudentID      string    `json:"student_id"`
	MissionID      string    `json:"mission_id"`
	Concept        string    `json:"concept"`
	CompletedCount int       `json:"completed_count"`
	TiltDue        bool      `json:"tilt_due"`
	Tilt           string    `json:"tilt,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
}

// RecordCompletionHandler handles RecordCompletionCommand.
type RecordCompletionHandler struct {
	students  student.Repository
	progress  student.ProgressStore
	catalog   mission.Catalog
	publisher shared.EventPublisher
	tiltEvery int
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
}

// NewRecordCompletionHandler creates the handler. publisher may be nil.
func NewRecordCompletionHandler(
	students student.Repository,
	progress student.ProgressStore,
	catalog mission.Catalog,
	publisher shared.EventPublisher,
	tiltEvery int,
	log *logger.Logger,
) *RecordCompletionHandler {
	return &RecordCompletionHandler{
		students:  students,
		progress:  progress,
		catalog:   catalog,
		publisher: publisher,
		tiltEvery: tiltEvery,
		log:       log.With(logger.Component("record_completion")),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Handle stores the completion and publishes MissionCompletedEvent.
//
// When a subscriber fails (for example the tilt model is unavailable) the
// completion is already stored: the result is returned together with the
// error.
func (h *RecordCompletionHandler) Handle(ctx context.Context, cmd RecordCompletionCommand) (res *RecordCompletionResult, err error) {
	done := metrics.Track("record_completion")
	defer func() { done(err) }()

	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if _, err := h.students.GetByID(ctx, cmd.StudentID); err != nil {
		return nil, lookupError("RecordCompletion", "student", err)
	}
	m, err := h.catalog.Get(cmd.MissionID)
	if err != nil {
		return nil, lookupError("RecordCompletion", "mission", err)
	}
	if _, ok := m.Options[cmd.ChosenOption]; m.HasOptions() && !ok {
		return nil, shared.WrapError("command", "RecordCompletion", shared.ErrInvalidInput,
			"option "+cmd.ChosenOption+" is not offered by mission "+m.ID, shared.ErrInvalidOption)
	}

	at := cmd.CompletedAt
	if at.IsZero() {
		at = h.now()
	}
	c := &student.Completion{
		ID:               h.newID(),
		StudentID:        cmd.StudentID,
		MissionID:        m.ID,
		Concept:          m.Concept,
		Level:            m.Level.String(),
		ChosenOption:     cmd.ChosenOption,
		TimeSpentSeconds: cmd.TimeSpentSeconds,
		ActiveEventIDs:   cmd.ActiveEventIDs,
		Flags: student.LearningFlags{
			EventViewed:       cmd.EventViewed,
			QuickCheckCorrect: cmd.QuickCheckCorrect,
		},
		CompletedAt: at,
	}
	if err := h.progress.SaveCompletion(ctx, c); err != nil {
		if shared.IsAlreadyExists(err) || shared.IsNotFound(err) {
			return nil, err
		}
		return nil, shared.WrapError("command", "RecordCompletion", shared.ErrServiceUnavailable, "failed to store completion", err)
	}

	count, err := h.progress.CountCompleted(ctx, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("command", "RecordCompletion", shared.ErrServiceUnavailable, "failed to count completions", err)
	}

	res = &RecordCompletionResult{
		CompletionID:   c.ID,
		StudentID:      c.StudentID,
		MissionID:      c.MissionID,
		Concept:        c.Concept,
		CompletedCount: count,
		TiltDue:        profiling.RecomputeDue(count, h.tiltEvery),
		CompletedAt:    at,
	}

	h.log.Info("mission completed",
		logger.StudentID(c.StudentID),
		logger.MissionID(c.MissionID),
		logger.Concept(c.Concept),
		logger.Int("completed", count),
		logger.Bool("tilt_due", res.TiltDue),
	)

	if h.publisher == nil {
		return res, nil
	}
	ev := shared.NewMissionCompletedEvent(c.StudentID, c.MissionID, c.Concept, c.ChosenOption, count)
	if cmd.CorrelationID != "" {
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	if err := h.publisher.Publish(ctx, ev); err != nil {
		return res, err
	}

	if res.TiltDue {
		if st, err := h.students.GetByID(ctx, c.StudentID); err == nil {
			res.Tilt = st.Tilt
		}
	}
	return res, nil
}

// lookupError keeps not-found errors recoverable and flags everything else as
// an infrastructure failure.
func lookupError(op, what string, err error) error {
	if shared.IsNotFound(err) {
		return shared.WrapError("command", op, shared.ErrNotFound, what+" not found", err)
	}
	return shared.WrapError("command", op, shared.ErrServiceUnavailable, "failed to load "+what, err)
}
