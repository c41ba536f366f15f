package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

func completed() shared.Event {
	return shared.NewMissionCompletedEvent("stu-1", "m-1", "budget", "A", 6)
}

func TestSyncBus_RunsHandlersInOrderAndJoinsErrors(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	var order []string
	boom := errors.New("boom")
	require.NoError(t, bus.Subscribe(shared.EventMissionCompleted, func(context.Context, shared.Event) error {
		order = append(order, "first")
		return boom
	}))
	require.NoError(t, bus.Subscribe(shared.EventMissionCompleted, func(context.Context, shared.Event) error {
		order = append(order, "second")
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(context.Context, shared.Event) error {
		order = append(order, "all")
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventTiltUpdated, func(context.Context, shared.Event) error {
		t.Fatal("unrelated handler called")
		return nil
	}))

	err := bus.Publish(context.Background(), completed())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second", "all"}, order)
}

func TestSyncBus_PassesContext(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	type key struct{}
	var got any
	require.NoError(t, bus.SubscribeAll(func(ctx context.Context, _ shared.Event) error {
		got = ctx.Value(key{})
		return nil
	}))

	ctx := context.WithValue(context.Background(), key{}, "req-42")
	require.NoError(t, bus.Publish(ctx, completed()))
	assert.Equal(t, "req-42", got)
}

func TestSyncBus_RecoversPanics(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	require.NoError(t, bus.SubscribeAll(func(context.Context, shared.Event) error {
		panic("kaboom")
	}))

	err := bus.Publish(context.Background(), completed())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestAsyncBus_CloseWaitsForHandlers(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := DefaultConfig()
	cfg.AsyncMode = true
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var (
		calls atomic.Int32
		wg    sync.WaitGroup
	)
	wg.Add(5)
	require.NoError(t, bus.SubscribeAll(func(context.Context, shared.Event) error {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		calls.Add(1)
		return errors.New("logged, not returned")
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), completed()))
	}
	wg.Wait()
	require.NoError(t, bus.Close())
	assert.Equal(t, int32(5), calls.Load())
}

func TestBus_ClosedRejectsWork(t *testing.T) {
	bus := NewInMemoryEventBus(Config{Logger: logger.Nop()})
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), completed()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(LogEvents(logger.Nop())), ErrEventBusClosed)
	assert.Error(t, bus.Subscribe(shared.EventTiltUpdated, nil))
}

func TestTiltUpdatedEvent_Changed(t *testing.T) {
	assert.True(t, shared.NewTiltUpdatedEvent("s", "", "balanced", 6).Changed())
	assert.False(t, shared.NewTiltUpdatedEvent("s", "balanced", "balanced", 12).Changed())
}
