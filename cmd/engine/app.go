package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ChoraichiFadwa/ECOLead-Finance/config"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/application/command"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/application/eventhandler"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/application/query"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/guidance"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/profiling"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/recommendation"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/catalog"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/messaging"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/model"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/persistence/memory"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/persistence/postgres"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/persistence/redis"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/interface/ops"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WIRING
// ══════════════════════════════════════════════════════════════════════════════

// app holds every wired component. Close releases connections in reverse
// order of creation.
type app struct {
	cfg *config.Config
	log *logger.Logger

	students student.Repository
	progress student.ProgressStore
	tilts    student.TiltCache

	loader   catalog.Loader
	catalog  *catalog.Repository
	modelErr error
	bus      *messaging.InMemoryEventBus
	health   *ops.Checker

	features  *query.ComputeFeaturesHandler
	predict   *query.PredictTiltHandler
	eligible  *query.GetEligibleMissionsHandler
	suggest   *query.SuggestBundleHandler
	strategic *query.GetStrategicContextHandler
	record    *command.RecordCompletionHandler
	reload    *command.ReloadCatalogHandler

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, historyPath string) (*app, error) {
	a := &app{cfg: cfg, log: log, health: ops.NewChecker(cfg.App.Version, 0)}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()

	if err := a.wireStorage(ctx, historyPath); err != nil {
		return nil, err
	}

	var err error
	a.loader = catalog.Loader{MissionsPath: cfg.Catalog.MissionsPath, EventsPath: cfg.Catalog.EventsPath}
	a.catalog, err = catalog.NewRepository(ctx, a.loader, log)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	a.health.AddCheck("catalog", ops.CatalogCheck(a.catalog))

	// A missing model only disables tilt-dependent operations.
	var artifact profiling.Artifact
	if m, err := model.LoadArtifact(cfg.Model.ArtifactPath); err != nil {
		a.modelErr = err
		log.Warn("tilt model unavailable", logger.String("path", cfg.Model.ArtifactPath), logger.Err(err))
	} else {
		artifact = m
		log.Info("tilt model loaded", logger.String("version", m.Version()))
	}
	a.health.AddCheck("model", ops.ModelCheck(a.modelErr))

	a.bus = messaging.NewInMemoryEventBus(messaging.Config{
		AsyncMode:      cfg.Events.Async,
		WorkerPoolSize: cfg.Events.Workers,
		HandlerTimeout: cfg.Events.HandlerTimeout,
		Logger:         log,
	})
	a.closers = append(a.closers, func() { _ = a.bus.Close() })

	t := cfg.Tuning()
	classifier := profiling.NewClassifier(artifact)
	extractor := profiling.NewExtractor(t.Features, a.catalog)
	gate := recommendation.NewGate(t.Gate)

	a.features = query.NewComputeFeaturesHandler(a.students, a.progress, a.catalog, extractor, t.Features.HistoryLimit, log)
	a.predict = query.NewPredictTiltHandler(classifier, a.features, log)
	a.eligible = query.NewGetEligibleMissionsHandler(a.students, a.progress, a.catalog, gate, log)
	a.suggest = query.NewSuggestBundleHandler(a.students, a.progress, a.catalog, extractor, classifier, gate,
		recommendation.NewScorer(t.Scoring, a.catalog), t.Features.HistoryLimit, log)
	a.strategic = query.NewGetStrategicContextHandler(a.students, a.progress, a.tilts, a.catalog, a.features,
		guidance.NewBuilder(t), log)
	a.record = command.NewRecordCompletionHandler(a.students, a.progress, a.catalog, a.bus, t.TiltRecomputeEvery, log)
	a.reload = command.NewReloadCatalogHandler(a.catalog, a.bus, log)

	recompute := eventhandler.NewOnMissionCompletedHandler(a.students, a.tilts, a.features, classifier, a.bus,
		eventhandler.TiltRecomputeConfig{Every: t.TiltRecomputeEvery, CacheTTL: cfg.Redis.TiltTTL}, log)
	if err := errors.Join(
		a.bus.Subscribe(shared.EventMissionCompleted, recompute.Handle),
		a.bus.SubscribeAll(messaging.LogEvents(log)),
	); err != nil {
		return nil, fmt.Errorf("subscribe handlers: %w", err)
	}

	ready = true
	return a, nil
}

// wireStorage picks Postgres when configured and the in-memory store
// otherwise. Redis, when enabled, replaces the store's own tilt cache.
func (a *app) wireStorage(ctx context.Context, historyPath string) error {
	cfg := a.cfg

	if cfg.Database.Enabled() {
		conn, err := postgres.NewConnection(ctx, postgresConfig(cfg.Database), a.log)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		a.health.AddCheck("postgres", ops.PingCheck(conn))

		if cfg.Database.AutoMigrate {
			n, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			a.log.Info("migrations applied", logger.Int("count", n))
		}
		a.students = postgres.NewStudentRepository(conn)
		a.progress = postgres.NewProgressRepository(conn)
		// Postgres has no tilt cache of its own; without Redis the
		// strategic context reads the stored label.
		a.tilts = nopTiltCache{}
	} else {
		store := memory.NewStore()
		if historyPath != "" {
			var err error
			if store, err = memory.LoadFixture(ctx, historyPath); err != nil {
				return err
			}
		}
		a.students, a.progress, a.tilts = store, store, store
	}

	if cfg.Redis.Enabled {
		cache, err := redis.NewCache(ctx, redisConfig(cfg.Redis), a.log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = cache.Close() })
		a.health.AddCheck("redis", ops.PingCheck(cache))
		a.tilts = redis.NewTiltCache(cache, cfg.Redis.TiltTTL, a.log)
	}
	return nil
}

func postgresConfig(d config.DatabaseConfig) postgres.Config {
	c := postgres.DefaultConfig()
	c.URL = d.URL
	if d.Host != "" {
		c.Host = d.Host
	}
	c.Port = d.Port
	c.Database = d.Name
	c.User = d.User
	c.Password = d.Password
	c.SSLMode = d.SSLMode
	c.MaxConns = d.MaxConns
	c.MinConns = d.MinConns
	c.MaxConnLifetime = d.MaxConnLifetime
	c.MaxConnIdleTime = d.MaxConnIdleTime
	c.ConnectTimeout = d.ConnectTimeout
	return c
}

func redisConfig(r config.RedisConfig) redis.Config {
	c := redis.DefaultConfig()
	c.Host = r.Host
	c.Port = r.Port
	c.Password = r.Password
	c.DB = r.DB
	c.PoolSize = r.PoolSize
	c.DialTimeout = r.DialTimeout
	c.ReadTimeout = r.ReadTimeout
	c.WriteTimeout = r.WriteTimeout
	return c
}

// nopTiltCache always misses.
type nopTiltCache struct{}

func (nopTiltCache) GetTilt(context.Context, string) (string, error) { return "", nil }

func (nopTiltCache) SetTilt(context.Context, string, string, time.Duration) error { return nil }
