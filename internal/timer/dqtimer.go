// Package timer implements the timer scheduler (C4): disqualification
// countdowns armed with time.AfterFunc, plus per-tenant sponsor rotation
// armed as repeating github.com/robfig/cron/v3 entries and sponsor
// visibility cycling armed as a self-rearming time.AfterFunc chain.
// Grounded on the teacher's absence of a scheduler package — no teacher
// file does this — so the split itself is the design decision recorded in
// DESIGN.md: one-shot deadlines use time.AfterFunc because a cron
// expression cannot express "fire once in N seconds from now";
// fixed-period rotation ticks use cron because that is exactly what it
// models.
package timer

import (
	"log"
	"sync"
	"time"

	"tournamentlive/internal/models"
)

// ForfeitRouter routes an expired DQ timer to the coordinator as an
// auto-forfeit of the target participant.
type ForfeitRouter func(tenantID int64, tournamentID, matchID, participantID string)

// NotifyRouter routes a warning or expiry-without-forfeit event onward
// (to the journal and the push fabric) without mutating match state.
type NotifyRouter func(tenantID int64, key models.DQTimerKey, event string, timer *models.DQTimer)

// AutoDQMode selects what happens when a DQ timer expires.
type AutoDQMode string

const (
	AutoDQNotify AutoDQMode = models.AutoDQActionNotify
	AutoDQForfeit AutoDQMode = models.AutoDQActionAutoDQ
)

type armedTimer struct {
	timer   *models.DQTimer
	warning *time.Timer
	expiry  *time.Timer
	mu      sync.Mutex
	fired   bool
}

// Scheduler owns every live DQ timer. DQ timers are intentionally
// non-persistent (§3 ownership: "C4 exclusively owns live Timer objects
// (non-persistent; lost on restart)").
type Scheduler struct {
	logger   *log.Logger
	forfeit  ForfeitRouter
	notify   NotifyRouter

	mu     sync.Mutex
	timers map[models.DQTimerKey]*armedTimer
}

// NewScheduler creates a DQ timer Scheduler.
func NewScheduler(logger *log.Logger, forfeit ForfeitRouter, notify NotifyRouter) *Scheduler {
	return &Scheduler{
		logger:  logger,
		forfeit: forfeit,
		notify:  notify,
		timers:  make(map[models.DQTimerKey]*armedTimer),
	}
}

// Start arms a DQ timer for a key, replacing any existing timer at that
// key (idempotent re-arm). warningThreshold ≤ 0 or ≥ durationSeconds
// skips the warning deadline entirely, per §4.4.
func (s *Scheduler) Start(tenantID int64, tournamentID, matchID, station string, durationSeconds, warningThresholdSeconds int, participantID, participantName string, mode AutoDQMode) *models.DQTimer {
	key := models.DQTimerKey{TournamentID: tournamentID, MatchID: matchID, Station: station}
	now := time.Now().UTC()

	t := &models.DQTimer{
		Key:               key,
		TenantID:          tenantID,
		TargetParticipant: participantID,
		TargetName:        participantName,
		Start:             now,
		Expiry:            now.Add(time.Duration(durationSeconds) * time.Second),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		existing.cancel()
	}

	at := &armedTimer{timer: t}
	at.expiry = time.AfterFunc(time.Duration(durationSeconds)*time.Second, func() {
		s.onExpiry(key, at, mode)
	})

	warningDelay := durationSeconds - warningThresholdSeconds
	if warningThresholdSeconds > 0 && warningDelay > 0 {
		at.warning = time.AfterFunc(time.Duration(warningDelay)*time.Second, func() {
			s.onWarning(key, at)
		})
	}

	s.timers[key] = at
	return t
}

func (at *armedTimer) cancel() {
	if at.warning != nil {
		at.warning.Stop()
	}
	if at.expiry != nil {
		at.expiry.Stop()
	}
}

func (s *Scheduler) onWarning(key models.DQTimerKey, at *armedTimer) {
	at.mu.Lock()
	if at.fired {
		at.mu.Unlock()
		return
	}
	at.timer.WarningFired = true
	at.mu.Unlock()

	if s.notify != nil {
		s.notify(at.timer.TenantID, key, "warning", at.timer)
	}
}

func (s *Scheduler) onExpiry(key models.DQTimerKey, at *armedTimer, mode AutoDQMode) {
	at.mu.Lock()
	if at.fired {
		at.mu.Unlock()
		return
	}
	at.fired = true
	at.mu.Unlock()

	s.mu.Lock()
	if current, ok := s.timers[key]; ok && current == at {
		delete(s.timers, key)
	}
	s.mu.Unlock()

	switch mode {
	case AutoDQForfeit:
		if s.forfeit != nil {
			s.forfeit(at.timer.TenantID, key.TournamentID, key.MatchID, at.timer.TargetParticipant)
		}
	default:
		if s.notify != nil {
			s.notify(at.timer.TenantID, key, "expired-notify", at.timer)
		}
	}
}

// Cancel stops a timer by key. Idempotent: cancelling an unknown or
// already-fired key is a no-op, and cancelling a timer whose deadline has
// already fired but whose side effect is mid-flight does not interrupt
// that side effect (the fired flag is set before the side effect runs).
func (s *Scheduler) Cancel(key models.DQTimerKey) {
	s.mu.Lock()
	at, ok := s.timers[key]
	if ok {
		delete(s.timers, key)
	}
	s.mu.Unlock()
	if ok {
		at.cancel()
	}
}

// List returns a copy of every live timer for a tenant. Each copy carries
// its start and expiry; the time left is read with RemainingSeconds.
func (s *Scheduler) List(tenantID int64) []*models.DQTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var out []*models.DQTimer
	for _, at := range s.timers {
		if at.timer.TenantID != tenantID {
			continue
		}
		snapshot := *at.timer
		_ = snapshot.RemainingSeconds(now)
		out = append(out, &snapshot)
	}
	return out
}

// CancelAll cancels every live timer, used on graceful shutdown.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	all := make([]*armedTimer, 0, len(s.timers))
	for _, at := range s.timers {
		all = append(all, at)
	}
	s.timers = make(map[models.DQTimerKey]*armedTimer)
	s.mu.Unlock()

	for _, at := range all {
		at.cancel()
	}
}

// CancelTenant cancels every live timer belonging to a tenant.
func (s *Scheduler) CancelTenant(tenantID int64) {
	s.mu.Lock()
	var toCancel []*armedTimer
	for key, at := range s.timers {
		if at.timer.TenantID == tenantID {
			toCancel = append(toCancel, at)
			delete(s.timers, key)
		}
	}
	s.mu.Unlock()

	for _, at := range toCancel {
		at.cancel()
	}
}
