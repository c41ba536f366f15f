package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/circuitbreaker"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	b, ok := m.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *memStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestTiltCache_RoundTrip(t *testing.T) {
	s := newMemStore()
	c := NewTiltCache(s, time.Hour, logger.Nop())
	ctx := context.Background()

	label, err := c.GetTilt(ctx, "stu-1")
	require.NoError(t, err)
	assert.Empty(t, label, "miss is not an error")

	require.NoError(t, c.SetTilt(ctx, "stu-1", "cautious", 0))
	assert.Equal(t, time.Hour, s.ttls[TiltKey("stu-1")])

	label, err = c.GetTilt(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "cautious", label)

	require.NoError(t, c.SetTilt(ctx, "stu-1", "", 0))
	label, err = c.GetTilt(ctx, "stu-1")
	require.NoError(t, err)
	assert.Empty(t, label)
}

func TestTiltCache_BreakerOpensOnRepeatedFailures(t *testing.T) {
	s := newMemStore()
	s.err = errors.New("connection refused")
	c := NewTiltCache(s, 0, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GetTilt(ctx, "stu-1")
		require.Error(t, err)
		assert.False(t, circuitbreaker.IsRejected(err))
	}

	_, err := c.GetTilt(ctx, "stu-1")
	require.Error(t, err)
	assert.True(t, circuitbreaker.IsRejected(err))
}

func TestTiltKey(t *testing.T) {
	assert.Equal(t, "tilt:abc", TiltKey("abc"))
}
