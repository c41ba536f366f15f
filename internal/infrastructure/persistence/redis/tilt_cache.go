package redis

import (
	"context"
	"errors"
	"time"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/metrics"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/circuitbreaker"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// store is the subset of Cache the tilt cache needs.
type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) error
	Delete(ctx context.Context, keys ...string) error
}

type tiltEntry struct {
	Label     string    `json:"label"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TiltCache implements student.TiltCache. Calls go through a circuit breaker so
// a dead Redis costs one fast failure instead of a timeout per request.
type TiltCache struct {
	store   store
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
}

// NewTiltCache creates a tilt cache. A zero ttl uses TTLTilt.
func NewTiltCache(s store, ttl time.Duration, log *logger.Logger) *TiltCache {
	if ttl <= 0 {
		ttl = TTLTilt
	}
	breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
		metrics.CircuitBreakerState.WithLabelValues(name).Set(circuitbreaker.StateValue(to))
		log.Warn("circuit breaker state change",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})
	return &TiltCache{store: s, breaker: breaker, ttl: ttl}
}

// GetTilt returns the cached label, or "" on a miss.
func (c *TiltCache) GetTilt(ctx context.Context, studentID string) (string, error) {
	var e tiltEntry
	err := c.guard(ctx, func(ctx context.Context) error {
		err := c.store.Get(ctx, TiltKey(studentID), &e)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return e.Label, nil
}

// SetTilt caches label. An empty label clears the entry; a zero ttl uses the
// cache default.
func (c *TiltCache) SetTilt(ctx context.Context, studentID, label string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.guard(ctx, func(ctx context.Context) error {
		if label == "" {
			return c.store.Delete(ctx, TiltKey(studentID))
		}
		return c.store.Set(ctx, TiltKey(studentID), tiltEntry{Label: label, UpdatedAt: time.Now().UTC()}, ttl)
	})
}

func (c *TiltCache) guard(ctx context.Context, fn func(context.Context) error) error {
	err := c.breaker.Execute(ctx, fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(c.breaker.Name(), "success").Inc()
	case circuitbreaker.IsRejected(err):
		metrics.CircuitBreakerRequests.WithLabelValues(c.breaker.Name(), "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(c.breaker.Name(), "failure").Inc()
	}
	return err
}
