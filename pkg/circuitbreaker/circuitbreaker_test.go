package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("down")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestExecute_OpensAfterThreshold(t *testing.T) {
	var transitions []State
	b := New("test",
		WithFailureThreshold(2),
		WithTimeout(time.Hour),
		WithOnStateChange(func(_ string, _, to State) { transitions = append(transitions, to) }),
	)

	assert.ErrorIs(t, b.Execute(context.Background(), fail), errDown)
	assert.False(t, b.IsOpen())
	assert.ErrorIs(t, b.Execute(context.Background(), fail), errDown)
	assert.True(t, b.IsOpen())

	err := b.Execute(context.Background(), ok)
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.Equal(t, []State{StateOpen}, transitions)
}

func TestExecute_IgnoredErrorsDoNotTrip(t *testing.T) {
	b := New("test",
		WithFailureThreshold(1),
		WithIsFailure(func(err error) bool { return !errors.Is(err, errDown) }),
	)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(context.Background(), fail), errDown)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestExecute_CancelledContextSkipsCall(t *testing.T) {
	b := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := b.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStateValue(t *testing.T) {
	assert.Equal(t, 0.0, StateValue(StateClosed))
	assert.Equal(t, 1.0, StateValue(StateHalfOpen))
	assert.Equal(t, 2.0, StateValue(StateOpen))
}
