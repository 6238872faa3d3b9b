// Package governor implements the rate governor (C7): a per-tenant,
// per-mode token bucket regulating outbound calls to third-party APIs.
// The override/dev-bypass persistence layer is grounded on the teacher's
// CacheService (internal/services/cache_service.go) — Set/Get/Delete
// against go-redis — repurposed from a generic cache into durable
// governor-state storage so an override survives a process restart.
package governor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Mode is the governor's current operating posture.
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeUpcoming Mode = "upcoming"
	ModeActive   Mode = "active"
)

const devBypassDuration = 3 * time.Hour

// Rates maps each automatic mode to its effective requests-per-second.
type Rates struct {
	Idle     float64
	Upcoming float64
	Active   float64
}

// DefaultRates mirrors the §4.7 defaults: conservative at idle, full
// throttle while an event is actually running.
func DefaultRates() Rates {
	return Rates{Idle: 0.5, Upcoming: 2, Active: 10}
}

// overrideState is the durable record persisted to Redis per tenant.
type overrideState struct {
	Mode          Mode      `json:"mode,omitempty"`
	DevBypass     bool      `json:"dev_bypass,omitempty"`
	DevBypassUntil time.Time `json:"dev_bypass_until,omitempty"`
}

func redisKey(tenantID int64) string {
	return fmt.Sprintf("governor:override:%d", tenantID)
}

// EventProjection answers whether a tenant has an event starting soon or
// running now, for automatic mode selection.
type EventProjection func(tenantID int64, now time.Time) Mode

// Task is one unit of outbound work submitted to the governor.
type Task func(ctx context.Context) (interface{}, error)

// Governor owns one limiter per tenant plus override state.
type Governor struct {
	redis    *redis.Client
	logger   *log.Logger
	rates    Rates
	project  EventProjection

	limiters map[int64]*rate.Limiter
	modes    map[int64]Mode
}

// New creates a Governor. project may be nil, in which case automatic
// mode selection always resolves to ModeIdle.
func New(redisClient *redis.Client, logger *log.Logger, rates Rates, project EventProjection) *Governor {
	return &Governor{
		redis:    redisClient,
		logger:   logger,
		rates:    rates,
		project:  project,
		limiters: make(map[int64]*rate.Limiter),
		modes:    make(map[int64]Mode),
	}
}

// Submit enqueues a task for a tenant and blocks (respecting ctx) until
// the governor's rate budget admits it, then runs it. A task that fails
// before dispatch (ctx cancelled while waiting) never consumes budget,
// per §4.7's FIFO discipline; golang.org/x/time/rate's Wait already
// provides exactly this semantics. While the tenant's dev bypass is
// active the task runs at once, without waiting on the limiter.
func (g *Governor) Submit(ctx context.Context, tenantID int64, task Task) (interface{}, error) {
	if state, err := g.loadOverride(ctx, tenantID); err == nil && state.DevBypass && time.Now().UTC().Before(state.DevBypassUntil) {
		return task(ctx)
	}
	limiter := g.limiterFor(ctx, tenantID)
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return task(ctx)
}

func (g *Governor) limiterFor(ctx context.Context, tenantID int64) *rate.Limiter {
	mode := g.resolveMode(ctx, tenantID)
	rps := g.rateFor(mode)

	if l, ok := g.limiters[tenantID]; ok && g.modes[tenantID] == mode {
		return l
	}

	burst := 1
	if rps > 1 {
		burst = int(rps)
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	g.limiters[tenantID] = l
	g.modes[tenantID] = mode
	return l
}

func (g *Governor) rateFor(mode Mode) float64 {
	switch mode {
	case ModeUpcoming:
		return g.rates.Upcoming
	case ModeActive:
		return g.rates.Active
	default:
		return g.rates.Idle
	}
}

// resolveMode applies dev-bypass > override > automatic projection, in
// that precedence: an unexpired dev bypass resolves to ModeActive ahead
// of any manual mode override (Submit skips the limiter altogether while
// the bypass lasts), and an expired one is cleared.
func (g *Governor) resolveMode(ctx context.Context, tenantID int64) Mode {
	state, err := g.loadOverride(ctx, tenantID)
	if err != nil {
		g.logger.Printf("governor: failed to load override for tenant %d: %v", tenantID, err)
		state = overrideState{}
	}

	if state.DevBypass {
		if time.Now().UTC().Before(state.DevBypassUntil) {
			return ModeActive
		}
		state.DevBypass = false
		_ = g.saveOverride(ctx, tenantID, state)
	}

	if state.Mode != "" {
		return state.Mode
	}

	if g.project != nil {
		return g.project(tenantID, time.Now().UTC())
	}
	return ModeIdle
}

// SetOverride installs a manual mode override for a tenant, honoured
// until explicitly cleared.
func (g *Governor) SetOverride(ctx context.Context, tenantID int64, mode Mode) error {
	state, err := g.loadOverride(ctx, tenantID)
	if err != nil {
		state = overrideState{}
	}
	state.Mode = mode
	return g.saveOverride(ctx, tenantID, state)
}

// ClearOverride removes a tenant's manual mode override, reverting to
// automatic projection on the next Submit.
func (g *Governor) ClearOverride(ctx context.Context, tenantID int64) error {
	state, err := g.loadOverride(ctx, tenantID)
	if err != nil {
		state = overrideState{}
	}
	state.Mode = ""
	return g.saveOverride(ctx, tenantID, state)
}

// ActivateDevBypass disables regulation entirely for a tenant for three
// hours from now; the governor re-evaluates mode automatically when it
// expires, per §4.7.
func (g *Governor) ActivateDevBypass(ctx context.Context, tenantID int64) error {
	state, err := g.loadOverride(ctx, tenantID)
	if err != nil {
		state = overrideState{}
	}
	state.DevBypass = true
	state.DevBypassUntil = time.Now().UTC().Add(devBypassDuration)
	return g.saveOverride(ctx, tenantID, state)
}

// DeactivateDevBypass ends a tenant's dev-bypass window early.
func (g *Governor) DeactivateDevBypass(ctx context.Context, tenantID int64) error {
	state, err := g.loadOverride(ctx, tenantID)
	if err != nil {
		state = overrideState{}
	}
	state.DevBypass = false
	return g.saveOverride(ctx, tenantID, state)
}

func (g *Governor) loadOverride(ctx context.Context, tenantID int64) (overrideState, error) {
	if g.redis == nil {
		return overrideState{}, nil
	}
	data, err := g.redis.Get(ctx, redisKey(tenantID)).Bytes()
	if err == redis.Nil {
		return overrideState{}, nil
	}
	if err != nil {
		return overrideState{}, fmt.Errorf("governor: redis get: %w", err)
	}
	var state overrideState
	if err := json.Unmarshal(data, &state); err != nil {
		return overrideState{}, fmt.Errorf("governor: unmarshal override: %w", err)
	}
	return state, nil
}

func (g *Governor) saveOverride(ctx context.Context, tenantID int64, state overrideState) error {
	if g.redis == nil {
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("governor: marshal override: %w", err)
	}
	if err := g.redis.Set(ctx, redisKey(tenantID), data, 0).Err(); err != nil {
		return fmt.Errorf("governor: redis set: %w", err)
	}
	return nil
}

