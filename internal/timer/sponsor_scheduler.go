package timer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tournamentlive/internal/models"
	"tournamentlive/internal/sponsor"
)

// RotatePush emits a rotate push for one tenant+position's new current
// sponsor, with the configured transition delay.
type RotatePush func(tenantID int64, position models.SponsorPosition, item models.SponsorItem, transitionMs int)

// VisibilityPush emits a show/hide push for every active sponsor of a tenant.
type VisibilityPush func(tenantID int64, visible bool, items []models.SponsorItem)

// SponsorScheduler arms per-tenant sponsor rotation as repeating ticks on
// cron's "@every" duration syntax, since rotation is a fixed-period
// schedule, and visibility cycling as a self-rearming timer chain (see
// cycleEntry).
type SponsorScheduler struct {
	store    *sponsor.Store
	logger   *log.Logger
	rotate   RotatePush
	cycle    VisibilityPush
	randIntn func(int) int

	mu          sync.Mutex
	rotation    map[rotationKey]*cron.Cron
	cycling     map[int64]*cycleEntry
}

type rotationKey struct {
	tenantID int64
	position models.SponsorPosition
}

// cycleEntry drives show/hide alternation. Because the show and hide
// phases run for different durations, a single repeating cron schedule
// can't express the alternation; instead each phase rearms a fresh timer
// for the other phase's duration when it fires, the same self-rearming
// shape as a DQ timer's deadline chain.
type cycleEntry struct {
	mu      sync.Mutex
	timer   *time.Timer
	visible bool
	active  bool
}

// NewSponsorScheduler creates a SponsorScheduler. randIntn must be a
// caller-supplied uniform random source (tests can inject a deterministic
// one); production wiring passes math/rand/v2's IntN.
func NewSponsorScheduler(store *sponsor.Store, logger *log.Logger, rotate RotatePush, cycle VisibilityPush, randIntn func(int) int) *SponsorScheduler {
	return &SponsorScheduler{
		store:    store,
		logger:   logger,
		rotate:   rotate,
		cycle:    cycle,
		randIntn: randIntn,
		rotation: make(map[rotationKey]*cron.Cron),
		cycling:  make(map[int64]*cycleEntry),
	}
}

// ArmRotation (re)arms rotation for every position with ≥2 active
// sponsors, per §4.4. Reconfiguration calls this again, which cancels
// and re-arms from scratch.
func (s *SponsorScheduler) ArmRotation(tenantID int64, state *models.SponsorState) {
	s.DisarmRotation(tenantID)

	if !state.Config.Enabled || !state.Config.RotationEnabled {
		return
	}
	grouped := state.ActiveByPosition()

	s.mu.Lock()
	defer s.mu.Unlock()

	for position, items := range grouped {
		if len(items) < 2 {
			continue
		}
		position, items := position, items
		c := cron.New()
		spec := fmt.Sprintf("@every %ds", state.Config.RotationIntervalSec)
		_, err := c.AddFunc(spec, func() {
			s.tickRotation(tenantID, position, items, state.Config.RotationTransitionMs)
		})
		if err != nil {
			s.logger.Printf("timer: failed to arm rotation for tenant %d position %s: %v", tenantID, position, err)
			continue
		}
		c.Start()
		s.rotation[rotationKey{tenantID, position}] = c
	}
}

func (s *SponsorScheduler) tickRotation(tenantID int64, position models.SponsorPosition, items []models.SponsorItem, transitionMs int) {
	state, err := s.store.Load(tenantID)
	if err != nil {
		s.logger.Printf("timer: rotation tick failed to load sponsor state for tenant %d: %v", tenantID, err)
		return
	}
	next := sponsor.NextIndex(state, position, len(items), s.randIntn)
	if state.CurrentIndex == nil {
		state.CurrentIndex = map[models.SponsorPosition]int{}
	}
	state.CurrentIndex[position] = next
	if err := s.store.Save(state); err != nil {
		s.logger.Printf("timer: rotation tick failed to save sponsor state for tenant %d: %v", tenantID, err)
		return
	}
	if s.rotate != nil && next < len(items) {
		s.rotate(tenantID, position, items[next], transitionMs)
	}
}

// DisarmRotation cancels all rotation schedules for a tenant.
func (s *SponsorScheduler) DisarmRotation(tenantID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.rotation {
		if key.tenantID == tenantID {
			c.Stop()
			delete(s.rotation, key)
		}
	}
}

// ArmCycling (re)arms show/hide visibility cycling for a tenant, starting
// in the show phase. Reconfiguration cancels and re-arms.
func (s *SponsorScheduler) ArmCycling(tenantID int64, state *models.SponsorState) {
	s.DisarmCycling(tenantID)

	if !state.Config.Enabled || !state.Config.TimerViewEnabled {
		return
	}

	s.mu.Lock()
	entry := &cycleEntry{visible: true, active: true}
	s.cycling[tenantID] = entry
	s.mu.Unlock()

	s.emitPhase(tenantID, entry, state)
	s.armNextPhase(tenantID, entry, state)
}

func (s *SponsorScheduler) emitPhase(tenantID int64, entry *cycleEntry, state *models.SponsorState) {
	if s.cycle == nil {
		return
	}
	var items []models.SponsorItem
	for _, group := range state.ActiveByPosition() {
		items = append(items, group...)
	}
	s.cycle(tenantID, entry.visible, items)
}

func (s *SponsorScheduler) armNextPhase(tenantID int64, entry *cycleEntry, state *models.SponsorState) {
	duration := state.Config.TimerShowDuration
	if !entry.visible {
		duration = state.Config.TimerHideDuration
	}

	entry.mu.Lock()
	entry.timer = time.AfterFunc(time.Duration(duration)*time.Second, func() {
		entry.mu.Lock()
		if !entry.active {
			entry.mu.Unlock()
			return
		}
		entry.visible = !entry.visible
		entry.mu.Unlock()

		s.emitPhase(tenantID, entry, state)
		s.armNextPhase(tenantID, entry, state)
	})
	entry.mu.Unlock()
}

// DisarmCycling cancels visibility cycling for a tenant. In-flight phase
// ticks are not retried, per §4.4's prompt-cancellation requirement.
func (s *SponsorScheduler) DisarmCycling(tenantID int64) {
	s.mu.Lock()
	entry, ok := s.cycling[tenantID]
	if ok {
		delete(s.cycling, tenantID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	entry.mu.Lock()
	entry.active = false
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.mu.Unlock()
}
