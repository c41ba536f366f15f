package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `id, display_name, email, role, track, tilt, tilt_updated_at, created_at, updated_at`

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	if s.Role == "" {
		s.Role = student.RoleStudent
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		s.ID,
		s.DisplayName,
		s.Email,
		string(s.Role),
		string(s.Track.Normalize()),
		s.Tilt,
		nullTime(s.TiltUpdatedAt),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("student", "Create", shared.ErrAlreadyExists, "student already exists", err)
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// GetByID returns a student or shared.ErrStudentNotFound.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

// UpdateTilt overwrites the tilt label. Last write wins.
func (r *StudentRepository) UpdateTilt(ctx context.Context, id, label string, at time.Time) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE students SET tilt = $1, tilt_updated_at = $2, updated_at = $2
		WHERE id = $3
	`, label, at, id)
	if err != nil {
		return fmt.Errorf("failed to update tilt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}
	return nil
}

func scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s             student.Student
		role, track   string
		tiltUpdatedAt *time.Time
	)
	err := row.Scan(
		&s.ID,
		&s.DisplayName,
		&s.Email,
		&role,
		&track,
		&s.Tilt,
		&tiltUpdatedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}
	s.Role = student.Role(role)
	s.Track = student.Track(track)
	if tiltUpdatedAt != nil {
		s.TiltUpdatedAt = *tiltUpdatedAt
	}
	return &s, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
