// Package memory provides process-local implementations of the student
// repositories. It backs the CLI when no database is configured and the
// application tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
)

var (
	_ student.Repository    = (*Store)(nil)
	_ student.ProgressStore = (*Store)(nil)
	_ student.TiltCache     = (*Store)(nil)
)

// Store keeps students, completions and cached tilts in maps.
type Store struct {
	mu          sync.RWMutex
	students    map[string]*student.Student
	completions map[string][]student.Completion
	tilts       map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		students:    make(map[string]*student.Student),
		completions: make(map[string][]student.Completion),
		tilts:       make(map[string]string),
	}
}

// Create stores a new student.
func (s *Store) Create(_ context.Context, st *student.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[st.ID]; ok {
		return shared.WrapError("student", "Create", shared.ErrAlreadyExists, "student already exists", nil)
	}
	cp := *st
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.students[st.ID] = &cp
	return nil
}

// GetByID returns a copy of the student.
func (s *Store) GetByID(_ context.Context, id string) (*student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	cp := *st
	return &cp, nil
}

// UpdateTilt overwrites the student's tilt.
func (s *Store) UpdateTilt(_ context.Context, id, label string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return shared.ErrStudentNotFound
	}
	st.Tilt = label
	st.TiltUpdatedAt = at
	st.UpdatedAt = at
	return nil
}

// CompletedIDs returns the set of completed mission IDs.
func (s *Store) CompletedIDs(_ context.Context, studentID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.completions[studentID]))
	for _, c := range s.completions[studentID] {
		out[c.MissionID] = struct{}{}
	}
	return out, nil
}

// RecentCompletions returns the last limit completions, oldest first.
func (s *Store) RecentCompletions(_ context.Context, studentID string, limit int) ([]student.Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.completions[studentID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]student.Completion, len(all))
	copy(out, all)
	return out, nil
}

// CountCompleted returns the number of completions.
func (s *Store) CountCompleted(_ context.Context, studentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.completions[studentID]), nil
}

// SaveCompletion appends a completion, keeping the list ordered by time.
func (s *Store) SaveCompletion(_ context.Context, c *student.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[c.StudentID]; !ok {
		return shared.ErrStudentNotFound
	}
	for _, prev := range s.completions[c.StudentID] {
		if prev.MissionID == c.MissionID {
			return shared.ErrMissionAlreadyCompleted
		}
	}
	list := append(s.completions[c.StudentID], *c)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CompletedAt.Before(list[j].CompletedAt) })
	s.completions[c.StudentID] = list
	return nil
}

// GetTilt returns the cached label or "".
func (s *Store) GetTilt(_ context.Context, studentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tilts[studentID], nil
}

// SetTilt caches a label; ttl is ignored.
func (s *Store) SetTilt(_ context.Context, studentID, label string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if label == "" {
		delete(s.tilts, studentID)
		return nil
	}
	s.tilts[studentID] = label
	return nil
}
