// Package poller implements the tenant poller (C6): a periodic loop that
// snapshots each tenant's active tournament into a Push Envelope,
// persists it to the media-state cache, and submits it to the push
// fabric. Grounded on the teacher's Hub.Run() select-loop shape
// (internal/websocket/hub.go), adapted from a channel-driven registry
// to a time.Ticker-driven scan, with an immediate-poll request channel
// the coordinator uses to bypass the interval after a mutation.
package poller

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"tournamentlive/internal/cache"
	"tournamentlive/internal/models"
	"tournamentlive/internal/push"
	"tournamentlive/internal/snapshotcache"
	"tournamentlive/internal/store"
)

const defaultPollInterval = 5 * time.Second

// Fabric is the subset of push.Fabric the poller submits envelopes to.
type Fabric interface {
	Deliver(ctx context.Context, env models.PushEnvelope, kind push.DisplayKind)
}

// Poller drives the per-tenant snapshot loop.
type Poller struct {
	store       *store.Store
	snapshots   *snapshotcache.Cache
	activeCache *cache.ReadThrough
	fabric      Fabric
	logger      *log.Logger

	// legacyTournamentID, if set, switches the poller into single-tenant
	// legacy mode: only this tournament is ever snapshotted.
	legacyTournamentID string
	interval           time.Duration

	immediate chan int64
	suspended sync.Map // tenantID -> bool, set once a tournament finishes
}

// New creates a Poller. legacyTournamentID is empty in the default
// multi-tenant mode. activeCache is a read-through cache shielding the
// per-tick GetActiveTournament lookup; a nil cache degrades to always
// querying the store directly.
func New(st *store.Store, snapshots *snapshotcache.Cache, activeCache *cache.ReadThrough, fabric Fabric, logger *log.Logger, interval time.Duration, legacyTournamentID string) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		store:              st,
		snapshots:          snapshots,
		activeCache:        activeCache,
		fabric:             fabric,
		logger:             logger,
		legacyTournamentID: legacyTournamentID,
		interval:           interval,
		immediate:          make(chan int64, 64),
	}
}

// RequestImmediate asks the poller to snapshot a tenant at the next tick,
// bypassing the interval. Used by the coordinator after a mutation.
func (p *Poller) RequestImmediate(tenantID int64) {
	select {
	case p.immediate <- tenantID:
	default:
		// Channel full; a regularly scheduled tick will still pick this
		// tenant up within one interval.
	}
}

// Resume clears a tenant's suspended flag, used when a new tournament is
// activated after a previous one completed.
func (p *Poller) Resume(tenantID int64) {
	p.suspended.Delete(tenantID)
	p.activeCache.Delete(context.Background(), fmt.Sprintf("tournament:active:%d", tenantID))
}

// Run drives the poll loop until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollAll(ctx)
		case tenantID := <-p.immediate:
			p.pollTenant(ctx, tenantID)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) {
	if p.legacyTournamentID != "" {
		p.pollLegacy(ctx)
		return
	}

	tenants, err := p.store.ListActiveTenants(ctx)
	if err != nil {
		p.logger.Printf("poller: failed to list tenants: %v", err)
		return
	}
	for _, t := range tenants {
		p.pollTenant(ctx, t.ID)
	}
}

func (p *Poller) pollLegacy(ctx context.Context) {
	t, err := p.store.GetTournament(ctx, p.legacyTournamentID)
	if err != nil {
		p.logger.Printf("poller: legacy tournament lookup failed: %v", err)
		return
	}
	if _, ok := p.suspended.Load(t.TenantID); ok {
		return
	}
	p.snapshotAndPush(ctx, t)
}

func (p *Poller) pollTenant(ctx context.Context, tenantID int64) {
	if _, ok := p.suspended.Load(tenantID); ok {
		return
	}

	t, err := p.getActiveTournament(ctx, tenantID)
	if err != nil {
		return // no active tournament for this tenant; nothing to do.
	}
	if t.State != models.StateUnderway {
		return
	}
	p.snapshotAndPush(ctx, t)
}

// getActiveTournament reads the tenant's active tournament through a
// short-lived cache, since pollTenant runs this query once per tenant
// every tick (and again on every immediate-poll request), the way the
// teacher's TournamentService.GetByID cached its own repository read.
func (p *Poller) getActiveTournament(ctx context.Context, tenantID int64) (*models.Tournament, error) {
	key := fmt.Sprintf("tournament:active:%d", tenantID)
	var t models.Tournament
	if err := p.activeCache.Get(ctx, key, &t); err == nil {
		return &t, nil
	}

	fresh, err := p.store.GetActiveTournament(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	p.activeCache.Set(ctx, key, fresh, p.interval)
	return fresh, nil
}

func (p *Poller) snapshotAndPush(ctx context.Context, t *models.Tournament) {
	env, done, err := p.buildEnvelope(ctx, t)
	if err != nil {
		p.logger.Printf("poller: snapshot failed for tournament %s: %v", t.ID, err)
		return
	}

	if err := p.snapshots.Put(t.TenantID, env); err != nil {
		p.logger.Printf("poller: cache write failed for tenant %d: %v", t.TenantID, err)
	}

	for _, kind := range []push.DisplayKind{push.KindMatch, push.KindBracket, push.KindFlyer} {
		p.fabric.Deliver(ctx, env, kind)
	}

	if done {
		if err := p.store.SetTournamentState(ctx, t.ID, models.StateComplete); err != nil {
			p.logger.Printf("poller: failed to mark tournament %s complete: %v", t.ID, err)
		}
		p.activeCache.Delete(ctx, fmt.Sprintf("tournament:active:%d", t.TenantID))
		p.suspended.Store(t.TenantID, true)
		p.logger.Printf("poller: tournament %s complete, suspending polling for tenant %d", t.ID, t.TenantID)
	}
}

// buildEnvelope fetches a tournament's matches and stations and
// materialises a §3 Push Envelope. The second return reports whether
// every non-bye match has completed, meaning the tournament is finished.
func (p *Poller) buildEnvelope(ctx context.Context, t *models.Tournament) (models.PushEnvelope, bool, error) {
	matches, err := p.store.GetMatchesByTournament(ctx, t.ID, store.MatchFilter{})
	if err != nil {
		return models.PushEnvelope{}, false, err
	}
	stations, err := p.store.GetStationsByTournament(ctx, t.ID)
	if err != nil {
		return models.PushEnvelope{}, false, err
	}

	snapshots := make([]models.MatchSnapshot, 0, len(matches))
	meta := models.EnvelopeMetadata{Total: len(matches)}
	allDone := true
	var nextSuggested *string

	sort.Slice(matches, func(i, j int) bool {
		oi, oj := playOrderKey(matches[i]), playOrderKey(matches[j])
		return oi < oj
	})

	for _, m := range matches {
		snapshots = append(snapshots, models.MatchSnapshot{
			ID:         m.ID,
			Identifier: m.Identifier,
			Round:      m.Round,
			State:      m.State,
			Player1ID:  m.Player1ID,
			Player2ID:  m.Player2ID,
			WinnerID:   m.WinnerID,
			Scores:     m.Scores,
			StationID:  m.StationID,
			PlayOrder:  m.SuggestedPlayOrder,
		})

		switch m.State {
		case models.MatchOpen:
			meta.Open++
			if nextSuggested == nil {
				id := m.ID
				nextSuggested = &id
			}
		case models.MatchUnderway:
			meta.Underway++
		case models.MatchComplete:
			meta.Complete++
		default:
			meta.Pending++
		}

		if m.State != models.MatchComplete && !m.IsBye {
			allDone = false
		}
	}
	if meta.Total > 0 {
		meta.ProgressPct = float64(meta.Complete) / float64(meta.Total) * 100
	}

	var available []string
	for _, st := range stations {
		if st.Active && st.CurrentMatchID == nil {
			available = append(available, st.ID)
		}
	}

	podium := podiumFromMatches(matches)

	env := models.PushEnvelope{
		TenantID:           t.TenantID,
		TournamentSlug:     t.Slug,
		Matches:            snapshots,
		Podium:             podium,
		NextSuggestedMatch: nextSuggested,
		AvailableStations:  available,
		Metadata:           meta,
		Source:             models.SourceLocal,
		Timestamp:          time.Now().UTC(),
	}
	return env, allDone && len(matches) > 0, nil
}

func playOrderKey(m *models.Match) int {
	if m.SuggestedPlayOrder != nil {
		return *m.SuggestedPlayOrder
	}
	return m.Round*100000 + m.BracketPosition
}

// podiumFromMatches derives 1st/2nd/3rd place from the grand finals and
// third-place match, when present and complete.
func podiumFromMatches(matches []*models.Match) map[int]string {
	podium := map[int]string{}
	for _, m := range matches {
		if m.State != models.MatchComplete || m.WinnerID == nil {
			continue
		}
		if m.IsGrandFinals {
			podium[1] = *m.WinnerID
			if loser := m.Loser(); loser != nil {
				podium[2] = *loser
			}
		}
		if m.Identifier == "3P" {
			podium[3] = *m.WinnerID
		}
	}
	if len(podium) == 0 {
		return nil
	}
	return podium
}
