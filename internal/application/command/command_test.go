package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/application/eventhandler"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/catalog"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/messaging"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/persistence/memory"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

type fixedArtifact struct{ cluster int }

func (a fixedArtifact) Scale(f []float64) ([]float64, error) { return f, nil }
func (a fixedArtifact) Predict([]float64) (int, error)       { return a.cluster, nil }

type zeroFeatures struct{}

func (zeroFeatures) Features(context.Context, string) (profiling.FeatureVector, error) {
	return profiling.FeatureVector{}, nil
}

func testCatalog() *catalog.Repository {
	var missions []*mission.Mission
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"} {
		missions = append(missions, &mission.Mission{
			ID:      id,
			Concept: "budget",
			Level:   mission.LevelBeginner,
			Options: map[string]mission.Option{
				"A": {Key: "A", Impact: mission.Impact{mission.MetricCashflow: 1}},
				"B": {Key: "B", Impact: mission.Impact{mission.MetricStress: 1}},
			},
		})
	}
	return catalog.NewStaticRepository(missions, nil)
}

type harness struct {
	store   *memory.Store
	handler *RecordCompletionHandler
	bus     *messaging.InMemoryEventBus
	events  []shared.Event
}

func newHarness(t *testing.T, artifact profiling.Artifact) *harness {
	t.Helper()
	h := &harness{store: memory.NewStore()}
	require.NoError(t, h.store.Create(context.Background(), &student.Student{ID: "s1"}))

	h.bus = messaging.NewInMemoryEventBus(messaging.DefaultConfig())
	t.Cleanup(func() { _ = h.bus.Close() })

	recompute := eventhandler.NewOnMissionCompletedHandler(h.store, h.store, zeroFeatures{},
		profiling.NewClassifier(artifact), h.bus, eventhandler.TiltRecomputeConfig{Every: 6}, logger.Nop())
	require.NoError(t, h.bus.Subscribe(shared.EventMissionCompleted, recompute.Handle))
	require.NoError(t, h.bus.SubscribeAll(func(_ context.Context, e shared.Event) error {
		h.events = append(h.events, e)
		return nil
	}))

	h.handler = NewRecordCompletionHandler(h.store, h.store, testCatalog(), h.bus, 6, logger.Nop())
	return h
}

func TestRecordCompletion_StoresAndPublishes(t *testing.T) {
	h := newHarness(t, fixedArtifact{cluster: 2})
	h.handler.newID = func() string { return "c-1" }
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	res, err := h.handler.Handle(context.Background(), RecordCompletionCommand{
		StudentID:        "s1",
		MissionID:        "m1",
		ChosenOption:     "B",
		TimeSpentSeconds: 30,
		EventViewed:      true,
		CompletedAt:      at,
	})
	require.NoError(t, err)
	assert.Equal(t, "c-1", res.CompletionID)
	assert.Equal(t, 1, res.CompletedCount)
	assert.False(t, res.TiltDue)
	assert.Equal(t, "budget", res.Concept)

	stored, err := h.store.RecentCompletions(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "beginner", stored[0].Level)
	assert.True(t, stored[0].Flags.EventViewed)
	assert.Equal(t, at, stored[0].CompletedAt)

	require.Len(t, h.events, 1)
	ev := h.events[0].(shared.MissionCompletedEvent)
	assert.Equal(t, "m1", ev.MissionID)
	assert.Equal(t, 1, ev.CompletedCount)
}

func TestRecordCompletion_SixthCompletionRecomputesTilt(t *testing.T) {
	h := newHarness(t, fixedArtifact{cluster: 2})
	ctx := context.Background()

	var res *RecordCompletionResult
	var err error
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5", "m6"} {
		res, err = h.handler.Handle(ctx, RecordCompletionCommand{StudentID: "s1", MissionID: id, ChosenOption: "A"})
		require.NoError(t, err)
	}
	assert.True(t, res.TiltDue)
	assert.Equal(t, "speculative", res.Tilt)

	var tiltEvents int
	for _, e := range h.events {
		if e.EventType() == shared.EventTiltUpdated {
			tiltEvents++
		}
	}
	assert.Equal(t, 1, tiltEvents)
}

func TestRecordCompletion_ModelUnavailableAfterSave(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		_, err := h.handler.Handle(ctx, RecordCompletionCommand{StudentID: "s1", MissionID: id, ChosenOption: "A"})
		require.NoError(t, err)
	}

	res, err := h.handler.Handle(ctx, RecordCompletionCommand{StudentID: "s1", MissionID: "m6", ChosenOption: "A"})
	require.Error(t, err)
	assert.True(t, shared.IsModelUnavailable(err))
	require.NotNil(t, res, "completion stored before the failure")
	assert.Equal(t, 6, res.CompletedCount)

	n, _ := h.store.CountCompleted(ctx, "s1")
	assert.Equal(t, 6, n)
}

func TestRecordCompletion_Rejects(t *testing.T) {
	h := newHarness(t, fixedArtifact{cluster: 1})
	ctx := context.Background()
	_, err := h.handler.Handle(ctx, RecordCompletionCommand{StudentID: "s1", MissionID: "m1", ChosenOption: "A"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		cmd   RecordCompletionCommand
		check func(error) bool
	}{
		{"missing option", RecordCompletionCommand{StudentID: "s1", MissionID: "m2"}, shared.IsValidation},
		{"negative time", RecordCompletionCommand{StudentID: "s1", MissionID: "m2", ChosenOption: "A", TimeSpentSeconds: -1}, shared.IsValidation},
		{"unknown student", RecordCompletionCommand{StudentID: "ghost", MissionID: "m2", ChosenOption: "A"}, shared.IsNotFound},
		{"unknown mission", RecordCompletionCommand{StudentID: "s1", MissionID: "nope", ChosenOption: "A"}, shared.IsNotFound},
		{"unknown option", RecordCompletionCommand{StudentID: "s1", MissionID: "m2", ChosenOption: "Z"}, func(err error) bool {
			return errors.Is(err, shared.ErrInvalidOption)
		}},
		{"duplicate", RecordCompletionCommand{StudentID: "s1", MissionID: "m1", ChosenOption: "A"}, shared.IsAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.handler.Handle(ctx, tt.cmd)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

type stubCatalog struct {
	err      error
	missions int
}

func (s *stubCatalog) Reload(context.Context) error { return s.err }
func (s *stubCatalog) Stats() (int, int)            { return s.missions, 2 }

func TestReloadCatalog(t *testing.T) {
	bus := messaging.NewInMemoryEventBus(messaging.DefaultConfig())
	defer bus.Close()
	var got []shared.Event
	require.NoError(t, bus.SubscribeAll(func(_ context.Context, e shared.Event) error {
		got = append(got, e)
		return nil
	}))

	cat := &stubCatalog{missions: 12}
	h := NewReloadCatalogHandler(cat, bus, logger.Nop())

	res, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ReloadCatalogResult{Missions: 12, Events: 2}, res)
	require.Len(t, got, 1)
	assert.Equal(t, shared.EventCatalogReloaded, got[0].EventType())

	cat.err = shared.ErrCatalogInvalid
	assert.ErrorIs(t, h.Reload(context.Background()), shared.ErrCatalogInvalid)
	assert.Len(t, got, 1)
}
