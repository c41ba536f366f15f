package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements student.ProgressStore for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// CompletedIDs returns the set of completed mission ids.
func (r *ProgressRepository) CompletedIDs(ctx context.Context, studentID string) (map[string]struct{}, error) {
	rows, err := r.conn.Query(ctx, `SELECT mission_id FROM completions WHERE student_id = $1`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed missions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan mission id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// RecentCompletions returns up to limit completions, oldest first. A
// non-positive limit returns the whole history.
func (r *ProgressRepository) RecentCompletions(ctx context.Context, studentID string, limit int) ([]student.Completion, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, student_id, mission_id, concept, level, chosen_option,
		       time_spent_seconds, active_event_ids, event_viewed, quick_check_correct, completed_at
		FROM completions
		WHERE student_id = $1
		ORDER BY completed_at DESC, id DESC
		LIMIT $2
	`, studentID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var out []student.Completion
	for rows.Next() {
		var c student.Completion
		if err := rows.Scan(
			&c.ID,
			&c.StudentID,
			&c.MissionID,
			&c.Concept,
			&c.Level,
			&c.ChosenOption,
			&c.TimeSpentSeconds,
			&c.ActiveEventIDs,
			&c.Flags.EventViewed,
			&c.Flags.QuickCheckCorrect,
			&c.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// CountCompleted returns the number of completed missions.
func (r *ProgressRepository) CountCompleted(ctx context.Context, studentID string) (int, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM completions WHERE student_id = $1`, studentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return n, nil
}

// SaveCompletion inserts a completion. A second completion of the same
// mission returns shared.ErrMissionAlreadyCompleted.
func (r *ProgressRepository) SaveCompletion(ctx context.Context, c *student.Completion) error {
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}
	events := c.ActiveEventIDs
	if events == nil {
		events = []string{}
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO completions (
			id, student_id, mission_id, concept, level, chosen_option,
			time_spent_seconds, active_event_ids, event_viewed, quick_check_correct, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		c.ID,
		c.StudentID,
		c.MissionID,
		c.Concept,
		c.Level,
		c.ChosenOption,
		c.TimeSpentSeconds,
		events,
		c.Flags.EventViewed,
		c.Flags.QuickCheckCorrect,
		c.CompletedAt,
	)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			return shared.ErrMissionAlreadyCompleted
		case IsForeignKeyViolation(err):
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to save completion: %w", err)
	}
	return nil
}

// sqlLimit maps a non-positive limit to NULL, which Postgres reads as LIMIT ALL.
func sqlLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
