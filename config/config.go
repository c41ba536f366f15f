// Package config loads engine configuration from defaults, an optional YAML
// file and ENGINE_ environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/tuning"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

const (
	// PathEnvVar overrides the config file location.
	PathEnvVar = "CONFIG_PATH"

	// EnvPrefix is stripped from environment overrides. Nested keys use a
	// double underscore: ENGINE_CATALOG__WATCH=true sets catalog.watch.
	EnvPrefix = "ENGINE_"
)

// DefaultPaths are searched in order when no path is given.
var DefaultPaths = []string{"config.yaml", "config.yml"}

// Config holds all application configuration.
type Config struct {
	App           AppConfig           `koanf:"app"`
	Database      DatabaseConfig      `koanf:"database"`
	Redis         RedisConfig         `koanf:"redis"`
	Catalog       CatalogConfig       `koanf:"catalog"`
	Model         ModelConfig         `koanf:"model"`
	Engine        EngineConfig        `koanf:"engine"`
	Events        EventsConfig        `koanf:"events"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name            string        `koanf:"name"`
	Environment     Environment   `koanf:"environment"`
	Version         string        `koanf:"version"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL settings. An empty URL and host selects
// the in-memory store.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Name            string        `koanf:"name"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"sslmode"`
	MaxConns        int32         `koanf:"max_conns"`
	MinConns        int32         `koanf:"min_conns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// Enabled reports whether a Postgres connection is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != "" || d.Host != ""
}

// RedisConfig holds the tilt cache settings.
type RedisConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	TiltTTL      time.Duration `koanf:"tilt_ttl"`
}

// CatalogConfig locates the mission and event definitions.
type CatalogConfig struct {
	MissionsPath string        `koanf:"missions_path"`
	EventsPath   string        `koanf:"events_path"`
	Watch        bool          `koanf:"watch"`
	Debounce     time.Duration `koanf:"debounce"`
	// PollInterval reloads the catalog periodically; zero disables polling.
	PollInterval time.Duration `koanf:"poll_interval"`
}

// ModelConfig locates the tilt classifier artifact.
type ModelConfig struct {
	ArtifactPath string `koanf:"artifact_path"`
}

// EngineConfig exposes the algorithm knobs operators are expected to tune.
// Anything not listed keeps its tuning.Default value.
type EngineConfig struct {
	WindowSize          int     `koanf:"window_size"`
	HalfLife            float64 `koanf:"half_life"`
	IntensityThreshold  float64 `koanf:"intensity_threshold"`
	LowTertile          float64 `koanf:"low_tertile"`
	HighTertile         float64 `koanf:"high_tertile"`
	HistoryLimit        int     `koanf:"history_limit"`
	CompletionThreshold float64 `koanf:"completion_threshold"`
	MaxBundle           int     `koanf:"max_bundle"`
	TiltRecomputeEvery  int     `koanf:"tilt_recompute_every"`
	ExperiencedAt       int     `koanf:"experienced_at"`

	Weights ScoreWeightsConfig `koanf:"weights"`

	StressGapThreshold    float64 `koanf:"stress_gap_threshold"`
	SacrificeGapThreshold float64 `koanf:"sacrifice_gap_threshold"`

	// Goals overrides per-goal metric weights; missing goals keep defaults.
	Goals map[string]GoalWeightsConfig `koanf:"goals"`
}

// ScoreWeightsConfig combines the scoring terms.
type ScoreWeightsConfig struct {
	Goal      float64 `koanf:"goal"`
	Gap       float64 `koanf:"gap"`
	Diversity float64 `koanf:"diversity"`
	Pacing    float64 `koanf:"pacing"`
	GoalGap   float64 `koanf:"goal_gap"`
}

// GoalWeightsConfig weights each metric for one goal.
type GoalWeightsConfig struct {
	Cashflow      float64 `koanf:"cashflow"`
	Control       float64 `koanf:"control"`
	Stress        float64 `koanf:"stress"`
	Profitability float64 `koanf:"profitability"`
	Reputation    float64 `koanf:"reputation"`
}

// EventsConfig drives the in-process event bus.
type EventsConfig struct {
	Async          bool          `koanf:"async"`
	Workers        int           `koanf:"workers"`
	HandlerTimeout time.Duration `koanf:"handler_timeout"`
}

// ObservabilityConfig holds logging and ops endpoint settings.
type ObservabilityConfig struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
	// OpsAddr serves /healthz, /readyz and /metrics; empty disables it.
	OpsAddr string `koanf:"ops_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	t := tuning.Default()
	s := t.Scoring.Weights
	return &Config{
		App: AppConfig{
			Name:            "ecolead-engine",
			Environment:     EnvDevelopment,
			Version:         "0.1.0",
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Port:            5432,
			Name:            "ecolead",
			User:            "postgres",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			ConnectTimeout:  10 * time.Second,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			TiltTTL:      24 * time.Hour,
		},
		Catalog: CatalogConfig{
			MissionsPath: "data/missions.json",
			EventsPath:   "data/events.json",
			Debounce:     250 * time.Millisecond,
		},
		Model: ModelConfig{
			ArtifactPath: "data/tilt_model.json",
		},
		Engine: EngineConfig{
			WindowSize:          t.Features.WindowSize,
			HalfLife:            t.Features.HalfLife,
			IntensityThreshold:  t.Features.IntensityThreshold,
			LowTertile:          t.Features.LowTertile,
			HighTertile:         t.Features.HighTertile,
			HistoryLimit:        t.Features.HistoryLimit,
			CompletionThreshold: t.Gate.CompletionThreshold,
			MaxBundle:           t.Scoring.MaxBundle,
			TiltRecomputeEvery:  t.TiltRecomputeEvery,
			ExperiencedAt:       t.Guidance.ExperiencedAt,
			Weights: ScoreWeightsConfig{
				Goal:      s.Goal,
				Gap:       s.Gap,
				Diversity: s.Diversity,
				Pacing:    s.Pacing,
				GoalGap:   s.GoalGap,
			},
			StressGapThreshold:    t.Scoring.StressGapThreshold,
			SacrificeGapThreshold: t.Scoring.SacrificeGapThreshold,
		},
		Events: EventsConfig{
			Workers:        4,
			HandlerTimeout: 30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load reads configuration from CONFIG_PATH or the first default path found.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom reads configuration with path as the YAML layer. An empty path
// skips the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envKey maps ENGINE_CATALOG__MISSIONS_PATH to catalog.missions_path.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks if the configuration is valid. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []string

	switch c.App.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Sprintf("app.environment %q is not one of development, staging, production", c.App.Environment))
	}

	if c.Catalog.MissionsPath == "" {
		errs = append(errs, "catalog.missions_path is required")
	}
	if c.Catalog.Debounce < 0 || c.Catalog.PollInterval < 0 {
		errs = append(errs, "catalog durations must not be negative")
	}
	if c.App.Environment == EnvProduction && !c.Database.Enabled() {
		errs = append(errs, "database.url or database.host is required in production")
	}
	if c.Redis.Enabled && c.Redis.TiltTTL <= 0 {
		errs = append(errs, "redis.tilt_ttl must be positive")
	}
	if c.Events.Async && c.Events.Workers < 1 {
		errs = append(errs, "events.workers must be >= 1 in async mode")
	}

	switch strings.ToLower(c.Observability.LogFormat) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("observability.log_format %q is not json or console", c.Observability.LogFormat))
	}

	if err := c.Tuning().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Tuning overlays the engine block on tuning.Default.
func (c *Config) Tuning() tuning.Tuning {
	t := tuning.Default()
	e := c.Engine

	t.Features.WindowSize = e.WindowSize
	t.Features.HalfLife = e.HalfLife
	t.Features.IntensityThreshold = e.IntensityThreshold
	t.Features.LowTertile = e.LowTertile
	t.Features.HighTertile = e.HighTertile
	t.Features.HistoryLimit = e.HistoryLimit
	t.Gate.CompletionThreshold = e.CompletionThreshold
	t.Scoring.MaxBundle = e.MaxBundle
	t.TiltRecomputeEvery = e.TiltRecomputeEvery
	t.Guidance.ExperiencedAt = e.ExperiencedAt
	t.Scoring.Weights = tuning.ScoreWeights{
		Goal:      e.Weights.Goal,
		Gap:       e.Weights.Gap,
		Diversity: e.Weights.Diversity,
		Pacing:    e.Weights.Pacing,
		GoalGap:   e.Weights.GoalGap,
	}
	t.Scoring.StressGapThreshold = e.StressGapThreshold
	t.Scoring.SacrificeGapThreshold = e.SacrificeGapThreshold

	for goal, w := range e.Goals {
		t.Scoring.Goals[goal] = tuning.GoalWeights{
			Cashflow:      w.Cashflow,
			Control:       w.Control,
			Stress:        w.Stress,
			Profitability: w.Profitability,
			Reputation:    w.Reputation,
		}
	}
	return t
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}
