package governor

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(os.Stdout, "test: ", 0)
}

func TestRateFor_SelectsConfiguredRatePerMode(t *testing.T) {
	g := New(nil, testLogger(), Rates{Idle: 1, Upcoming: 2, Active: 3}, nil)
	assert.Equal(t, 1.0, g.rateFor(ModeIdle))
	assert.Equal(t, 2.0, g.rateFor(ModeUpcoming))
	assert.Equal(t, 3.0, g.rateFor(ModeActive))
}

func TestResolveMode_DefaultsToIdleWithNoProjectionOrOverride(t *testing.T) {
	g := New(nil, testLogger(), DefaultRates(), nil)
	assert.Equal(t, ModeIdle, g.resolveMode(context.Background(), 1))
}

func TestResolveMode_UsesProjectionWhenNoOverride(t *testing.T) {
	g := New(nil, testLogger(), DefaultRates(), func(tenantID int64, now time.Time) Mode {
		return ModeActive
	})
	assert.Equal(t, ModeActive, g.resolveMode(context.Background(), 1))
}

func TestSubmit_RunsTaskAndReturnsResult(t *testing.T) {
	g := New(nil, testLogger(), Rates{Idle: 1000, Upcoming: 1000, Active: 1000}, nil)

	result, err := g.Submit(context.Background(), 1, func(ctx context.Context) (interface{}, error) {
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

func TestSubmit_PropagatesContextCancellationWithoutRunningTask(t *testing.T) {
	g := New(nil, testLogger(), Rates{Idle: 0.001, Upcoming: 0.001, Active: 0.001}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ran := false
	_, err := g.Submit(ctx, 1, func(ctx context.Context) (interface{}, error) {
		ran = true
		return nil, nil
	})
	assert.Error(t, err)
	assert.False(t, ran)
}

func TestOverrideMethods_AreNoOpsWithoutRedis(t *testing.T) {
	g := New(nil, testLogger(), DefaultRates(), nil)
	require.NoError(t, g.SetOverride(context.Background(), 1, ModeActive))
	require.NoError(t, g.ClearOverride(context.Background(), 1))
	require.NoError(t, g.ActivateDevBypass(context.Background(), 1))
	require.NoError(t, g.DeactivateDevBypass(context.Background(), 1))
}

func TestLimiterFor_RebuildsLimiterWhenModeChanges(t *testing.T) {
	mode := ModeIdle
	g := New(nil, testLogger(), Rates{Idle: 1, Upcoming: 5, Active: 10}, func(tenantID int64, now time.Time) Mode {
		return mode
	})

	first := g.limiterFor(context.Background(), 1)
	mode = ModeActive
	second := g.limiterFor(context.Background(), 1)

	assert.NotSame(t, first, second)
	assert.Equal(t, float64(10), float64(second.Limit()))
}
