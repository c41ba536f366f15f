// Package catalog loads the mission and event catalogs from JSON or YAML
// files and serves them as an in-memory, explicitly reloadable repository.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/retry"
)

// Snapshot is one immutable view of the catalog.
type Snapshot struct {
	missions  []*mission.Mission
	byID      map[string]*mission.Mission
	byConcept map[string][]*mission.Mission
	events    map[string]*mission.Event

	// Warnings lists tolerated oddities found while mapping.
	Warnings []string
}

func newSnapshot(missions []*mission.Mission, events map[string]*mission.Event, warnings []string) *Snapshot {
	s := &Snapshot{
		missions:  missions,
		byID:      make(map[string]*mission.Mission, len(missions)),
		byConcept: make(map[string][]*mission.Mission),
		events:    events,
		Warnings:  warnings,
	}
	if s.events == nil {
		s.events = make(map[string]*mission.Event)
	}
	for _, m := range missions {
		s.byID[m.ID] = m
		s.byConcept[m.Concept] = append(s.byConcept[m.Concept], m)
	}
	return s
}

// MissionCount returns the number of missions.
func (s *Snapshot) MissionCount() int { return len(s.missions) }

// EventCount returns the number of events.
func (s *Snapshot) EventCount() int { return len(s.events) }

// Loader reads the catalog files. EventsPath may be empty.
type Loader struct {
	MissionsPath string
	EventsPath   string
}

// Load reads and maps both files concurrently. Decoding failures are marked
// retryable since a watched file may be caught mid-write.
func (l Loader) Load(ctx context.Context) (*Snapshot, error) {
	var (
		missions     []*mission.Mission
		events       map[string]*mission.Event
		missionWarns []string
		eventWarns   []string
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := readDocument(l.MissionsPath)
		if err != nil {
			return err
		}
		var mapErr error
		missions, missionWarns, mapErr = mapMissions(doc)
		if mapErr != nil {
			return invalid(l.MissionsPath, mapErr)
		}
		return nil
	})
	g.Go(func() error {
		if l.EventsPath == "" {
			return nil
		}
		doc, err := readDocument(l.EventsPath)
		if err != nil {
			return err
		}
		var mapErr error
		events, eventWarns, mapErr = mapEvents(doc)
		if mapErr != nil {
			return invalid(l.EventsPath, mapErr)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return newSnapshot(missions, events, append(missionWarns, eventWarns...)), nil
}

// Paths returns the files the loader reads.
func (l Loader) Paths() []string {
	if l.EventsPath == "" {
		return []string{l.MissionsPath}
	}
	return []string{l.MissionsPath, l.EventsPath}
}

func readDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	doc, err := decode(path, data)
	if err != nil {
		return nil, retry.Retryable(invalid(path, err))
	}
	return doc, nil
}

// decode picks the format from the file extension. Anything other than
// .yaml or .yml is read as JSON.
func decode(path string, data []byte) (any, error) {
	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func invalid(path string, err error) error {
	return shared.WrapError("catalog", "Load", shared.ErrInvalidFormat, path, fmt.Errorf("%w: %v", shared.ErrCatalogInvalid, err))
}
