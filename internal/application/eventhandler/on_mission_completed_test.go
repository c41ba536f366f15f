package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/persistence/memory"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

type fixedArtifact struct{ cluster int }

func (a fixedArtifact) Scale(f []float64) ([]float64, error) { return f, nil }
func (a fixedArtifact) Predict([]float64) (int, error)       { return a.cluster, nil }

type staticFeatures struct {
	calls int
	err   error
}

func (s *staticFeatures) Features(context.Context, string) (profiling.FeatureVector, error) {
	s.calls++
	return profiling.FeatureVector{}, s.err
}

type recordingPublisher struct{ events []shared.Event }

func (p *recordingPublisher) Publish(_ context.Context, e shared.Event) error {
	p.events = append(p.events, e)
	return nil
}

func newFixture(t *testing.T, artifact profiling.Artifact) (*OnMissionCompletedHandler, *memory.Store, *staticFeatures, *recordingPublisher) {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Create(context.Background(), &student.Student{ID: "s1", Tilt: "balanced"}))
	features := &staticFeatures{}
	pub := &recordingPublisher{}
	h := NewOnMissionCompletedHandler(store, store, features, profiling.NewClassifier(artifact), pub,
		TiltRecomputeConfig{Every: 6}, logger.Nop())
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return h, store, features, pub
}

func TestOnMissionCompleted_SkipsOffCadence(t *testing.T) {
	h, _, features, pub := newFixture(t, fixedArtifact{cluster: 0})

	for _, n := range []int{1, 5, 7, 11} {
		err := h.Handle(context.Background(), shared.NewMissionCompletedEvent("s1", "m", "c", "A", n))
		require.NoError(t, err)
	}
	assert.Zero(t, features.calls)
	assert.Empty(t, pub.events)
}

func TestOnMissionCompleted_RecomputesAndPersists(t *testing.T) {
	h, store, _, pub := newFixture(t, fixedArtifact{cluster: 0})
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, shared.NewMissionCompletedEvent("s1", "m", "c", "A", 12)))

	st, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, string(profiling.TiltCautious), st.Tilt)
	assert.Equal(t, 2024, st.TiltUpdatedAt.Year())

	cached, err := store.GetTilt(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "cautious", cached)

	require.Len(t, pub.events, 1)
	updated, ok := pub.events[0].(shared.TiltUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, "balanced", updated.PreviousTilt)
	assert.Equal(t, "cautious", updated.NewTilt)
	assert.True(t, updated.Changed())
}

func TestOnMissionCompleted_SurfacesModelUnavailable(t *testing.T) {
	h, store, _, pub := newFixture(t, nil)
	ctx := context.Background()

	err := h.Handle(ctx, shared.NewMissionCompletedEvent("s1", "m", "c", "A", 6))
	require.Error(t, err)
	assert.True(t, shared.IsModelUnavailable(err))

	st, _ := store.GetByID(ctx, "s1")
	assert.Equal(t, "balanced", st.Tilt, "stored tilt untouched")
	assert.Empty(t, pub.events)
}

func TestOnMissionCompleted_FeatureErrorPropagates(t *testing.T) {
	h, _, features, _ := newFixture(t, fixedArtifact{cluster: 1})
	features.err = errors.New("history unavailable")

	err := h.Handle(context.Background(), shared.NewMissionCompletedEvent("s1", "m", "c", "A", 6))
	assert.ErrorIs(t, err, features.err)
}

func TestOnMissionCompleted_IgnoresOtherEvents(t *testing.T) {
	h, _, features, _ := newFixture(t, fixedArtifact{cluster: 1})
	require.NoError(t, h.Handle(context.Background(), shared.NewCatalogReloadedEvent(1, 1)))
	assert.Zero(t, features.calls)
}
