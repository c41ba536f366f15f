package student

import (
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Role tags a platform user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// IsValid reports whether the role is known.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Track is the specialization that restricts which concepts are recommended.
type Track string

const (
	TrackPortfolioManagement Track = "GESTION_PORTEFEUILLE"
	TrackFinancialAnalyst    Track = "ANALYSTE_FINANCE"
	TrackInvestmentBanker    Track = "BANQUIER_AFFAIRES"
)

// DefaultTrack is used when a student has no usable track.
const DefaultTrack = TrackPortfolioManagement

// Normalize upper-cases the track and falls back to DefaultTrack when empty.
func (t Track) Normalize() Track {
	s := strings.ToUpper(strings.TrimSpace(string(t)))
	if s == "" {
		return DefaultTrack
	}
	return Track(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is a plain user record. Teachers and students share the same shape;
// Role tells them apart.
type Student struct {
	ID          string
	DisplayName string
	Email       string
	Role        Role
	Track       Track

	// Tilt is the last computed risk-tilt label. Advisory only.
	Tilt          string
	TiltUpdatedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsStudent reports whether the record belongs to a learner.
func (s *Student) IsStudent() bool {
	return s.Role == RoleStudent
}

// SetTilt stores a freshly computed tilt label.
func (s *Student) SetTilt(label string, at time.Time) {
	s.Tilt = label
	s.TiltUpdatedAt = at
	s.UpdatedAt = at
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// LearningFlags are the per-mission learning signals captured by the client.
type LearningFlags struct {
	EventViewed       bool
	QuickCheckCorrect bool
}

// Completion is one finished mission as recorded by the platform.
type Completion struct {
	ID               string
	StudentID        string
	MissionID        string
	Concept          string
	Level            string
	ChosenOption     string
	TimeSpentSeconds float64
	ActiveEventIDs   []string
	Flags            LearningFlags
	CompletedAt      time.Time
}
