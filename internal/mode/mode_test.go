package mode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestDetermineNotConfigured(t *testing.T) {
	s := NewSelector(nil)
	assert.Equal(t, StateProbing, s.State())

	assert.Equal(t, StateOffline, s.Determine(context.Background(), nil))
	assert.False(t, s.Online())
	assert.NoError(t, s.Cause())
}

func TestDetermineReachable(t *testing.T) {
	calls := 0
	p := pingFunc(func(context.Context) error {
		calls++
		return nil
	})

	s := NewSelector(nil)
	assert.Equal(t, StateOnline, s.Determine(context.Background(), p))
	assert.True(t, s.Online())

	// Cached for the process lifetime.
	assert.Equal(t, StateOnline, s.Determine(context.Background(), p))
	assert.Equal(t, 1, calls)
}

func TestDetermineUnreachable(t *testing.T) {
	boom := errors.New("connection refused")
	s := NewSelector(nil)

	assert.Equal(t, StateOffline, s.Determine(context.Background(), pingFunc(func(context.Context) error { return boom })))
	assert.ErrorIs(t, s.Cause(), boom)
}

func TestDowngrade(t *testing.T) {
	s := NewSelector(nil)
	s.Determine(context.Background(), pingFunc(func(context.Context) error { return nil }))

	var changes []State
	s.OnChange(func(st State) { changes = append(changes, st) })

	require.True(t, s.Downgrade(errors.New("timeout")))
	assert.False(t, s.Online())
	assert.False(t, s.Downgrade(errors.New("again")), "second downgrade should be a no-op")
	assert.Equal(t, []State{StateOffline}, changes)

	// No automatic upgrade.
	assert.Equal(t, StateOffline, s.Determine(context.Background(), pingFunc(func(context.Context) error { return nil })))
}
