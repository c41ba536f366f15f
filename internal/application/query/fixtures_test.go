package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/guidance"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/recommendation"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/catalog"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/persistence/memory"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

const (
	conceptStocks = "Marché Boursier"
	conceptFX     = "Marché des Changes"
	conceptCorpFi = "Finance d'entreprise"
)

type fixedArtifact struct{ cluster int }

func (a fixedArtifact) Scale(f []float64) ([]float64, error) { return f, nil }
func (a fixedArtifact) Predict([]float64) (int, error)       { return a.cluster, nil }

func twoOptions() map[string]mission.Option {
	return map[string]mission.Option{
		"A": {Key: "A", Impact: mission.Impact{mission.MetricStress: -1, mission.MetricCashflow: 1}},
		"B": {Key: "B", Impact: mission.Impact{mission.MetricProfitability: 2, mission.MetricStress: 1}},
	}
}

func testCatalog() *catalog.Repository {
	m := func(id, concept string, lvl mission.Level) *mission.Mission {
		return &mission.Mission{ID: id, Title: "Mission " + id, Concept: concept, Level: lvl, Options: twoOptions()}
	}
	return catalog.NewStaticRepository([]*mission.Mission{
		m("stk-b1", conceptStocks, mission.LevelBeginner),
		m("stk-b2", conceptStocks, mission.LevelBeginner),
		m("stk-i1", conceptStocks, mission.LevelIntermediate),
		m("fx-b1", conceptFX, mission.LevelBeginner),
		m("fx-b2", conceptFX, mission.LevelBeginner),
		m("cf-b1", conceptCorpFi, mission.LevelBeginner),
	}, nil)
}

type env struct {
	store   *memory.Store
	catalog *catalog.Repository
	tuning  tuning.Tuning
	log     *logger.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:   memory.NewStore(),
		catalog: testCatalog(),
		tuning:  tuning.Default(),
		log:     logger.Nop(),
	}
	e.addStudent(t, "s1", student.TrackPortfolioManagement, "")
	return e
}

func (e *env) addStudent(t *testing.T, id string, track student.Track, tilt string) {
	t.Helper()
	require.NoError(t, e.store.Create(context.Background(), &student.Student{
		ID: id, Role: student.RoleStudent, Track: track, Tilt: tilt,
	}))
}

func (e *env) complete(t *testing.T, studentID string, missionIDs ...string) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n, err := e.store.CountCompleted(context.Background(), studentID)
	require.NoError(t, err)
	for i, id := range missionIDs {
		require.NoError(t, e.store.SaveCompletion(context.Background(), &student.Completion{
			ID:               id + "-done",
			StudentID:        studentID,
			MissionID:        id,
			ChosenOption:     "B",
			TimeSpentSeconds: 60,
			CompletedAt:      base.Add(time.Duration(n+i) * time.Minute),
		}))
	}
}

func (e *env) extractor() *profiling.Extractor {
	return profiling.NewExtractor(e.tuning.Features, e.catalog)
}

func (e *env) features() *ComputeFeaturesHandler {
	return NewComputeFeaturesHandler(e.store, e.store, e.catalog, e.extractor(), e.tuning.Features.HistoryLimit, e.log)
}

func (e *env) eligible() *GetEligibleMissionsHandler {
	return NewGetEligibleMissionsHandler(e.store, e.store, e.catalog, recommendation.NewGate(e.tuning.Gate), e.log)
}

func (e *env) suggest(artifact profiling.Artifact) *SuggestBundleHandler {
	return NewSuggestBundleHandler(e.store, e.store, e.catalog, e.extractor(),
		profiling.NewClassifier(artifact), recommendation.NewGate(e.tuning.Gate),
		recommendation.NewScorer(e.tuning.Scoring, e.catalog), e.tuning.Features.HistoryLimit, e.log)
}

func (e *env) strategic(features FeatureSource) *GetStrategicContextHandler {
	if features == nil {
		features = e.features()
	}
	return NewGetStrategicContextHandler(e.store, e.store, e.store, e.catalog, features, guidance.NewBuilder(e.tuning), e.log)
}
