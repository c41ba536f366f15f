package student

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository provides student records.
type Repository interface {
	// Create stores a new student.
	Create(ctx context.Context, st *Student) error

	// GetByID returns a student or shared.ErrStudentNotFound.
	GetByID(ctx context.Context, id string) (*Student, error)

	// UpdateTilt overwrites the advisory tilt label. Last write wins.
	UpdateTilt(ctx context.Context, id, label string, at time.Time) error
}

// ProgressStore provides a student's completed-mission history.
type ProgressStore interface {
	// CompletedIDs returns the set of completed mission IDs.
	CompletedIDs(ctx context.Context, studentID string) (map[string]struct{}, error)

	// RecentCompletions returns up to limit completions ordered oldest to newest.
	// A non-positive limit returns the whole history.
	RecentCompletions(ctx context.Context, studentID string, limit int) ([]Completion, error)

	// CountCompleted returns the number of completed missions.
	CountCompleted(ctx context.Context, studentID string) (int, error)

	// SaveCompletion stores a completion.
	// Returns shared.ErrMissionAlreadyCompleted on duplicates.
	SaveCompletion(ctx context.Context, c *Completion) error
}

// TiltCache keeps a hot copy of the current tilt label.
type TiltCache interface {
	// GetTilt returns an empty label on a cache miss.
	GetTilt(ctx context.Context, studentID string) (string, error)
	SetTilt(ctx context.Context, studentID, label string, ttl time.Duration) error
}
