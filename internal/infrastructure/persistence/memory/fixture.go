package memory

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
)

// Fixture is the JSON layout accepted by LoadFixture.
type Fixture struct {
	Students []FixtureStudent `json:"students"`
}

// FixtureStudent is one student with its history, oldest completion first.
type FixtureStudent struct {
	ID          string              `json:"id"`
	DisplayName string              `json:"display_name"`
	Track       string              `json:"track"`
	Tilt        string              `json:"tilt"`
	Completions []FixtureCompletion `json:"completions"`
}

// FixtureCompletion is one completed mission.
type FixtureCompletion struct {
	MissionID         string    `json:"mission_id"`
	ChosenOption      string    `json:"chosen_option"`
	TimeSpentSeconds  float64   `json:"time_spent_seconds"`
	ActiveEventIDs    []string  `json:"active_event_ids"`
	EventViewed       bool      `json:"event_viewed"`
	QuickCheckCorrect bool      `json:"quick_check_correct"`
	CompletedAt       time.Time `json:"completed_at"`
}

// LoadFixture reads a fixture file into a new store.
func LoadFixture(ctx context.Context, path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("memory: decode fixture: %w", err)
	}
	s := NewStore()
	if err := s.Seed(ctx, f); err != nil {
		return nil, err
	}
	return s, nil
}

// Seed inserts the fixture's students and completions. Completions without
// a timestamp are spaced one minute apart in file order.
func (s *Store) Seed(ctx context.Context, f Fixture) error {
	base := time.Now().UTC().Add(-24 * time.Hour)
	for _, fs := range f.Students {
		st := &student.Student{
			ID:          fs.ID,
			DisplayName: fs.DisplayName,
			Role:        student.RoleStudent,
			Track:       student.Track(fs.Track).Normalize(),
			Tilt:        fs.Tilt,
		}
		if err := s.Create(ctx, st); err != nil {
			return fmt.Errorf("memory: seed student %q: %w", fs.ID, err)
		}
		for i, fc := range fs.Completions {
			at := fc.CompletedAt
			if at.IsZero() {
				at = base.Add(time.Duration(i) * time.Minute)
			}
			c := &student.Completion{
				ID:               uuid.NewString(),
				StudentID:        fs.ID,
				MissionID:        fc.MissionID,
				ChosenOption:     fc.ChosenOption,
				TimeSpentSeconds: fc.TimeSpentSeconds,
				ActiveEventIDs:   fc.ActiveEventIDs,
				Flags: student.LearningFlags{
					EventViewed:       fc.EventViewed,
					QuickCheckCorrect: fc.QuickCheckCorrect,
				},
				CompletedAt: at,
			}
			if err := s.SaveCompletion(ctx, c); err != nil {
				return fmt.Errorf("memory: seed completion %q/%q: %w", fs.ID, fc.MissionID, err)
			}
		}
	}
	return nil
}
