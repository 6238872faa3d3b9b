// Package coordinator implements the progression coordinator (C3): the
// single entry point for every state-mutating command, serialized per
// tenant so two commands for the same tenant never race. Grounded on the
// teacher's service-container wiring style (constructor injection of
// repositories/cache/notification dependencies in
// internal/services/container.go), generalized from one process-wide
// service into a per-tenant mailbox, per the redesign note that commands
// must be serialised per tenant rather than globally.
package coordinator

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tournamentlive/internal/apperrors"
	"tournamentlive/internal/bracket"
	"tournamentlive/internal/governor"
	"tournamentlive/internal/journal"
	"tournamentlive/internal/models"
	"tournamentlive/internal/sponsor"
	"tournamentlive/internal/store"
	"tournamentlive/internal/timer"
)

// PollRequester lets the coordinator ask the tenant poller for an
// immediate re-snapshot after a mutation, bypassing its interval.
type PollRequester interface {
	RequestImmediate(tenantID int64)
}

// ImpersonationClaims carries the impersonated tenant and the issuing
// superadmin in a short-lived token, mirroring the teacher's Claims
// shape (internal/utils/jwt.go) with an extra tenant field.
type ImpersonationClaims struct {
	TenantID    int64  `json:"tenant_id"`
	IssuedByID  string `json:"issued_by"`
	jwt.RegisteredClaims
}

const impersonationTokenLifetime = 30 * time.Minute

// Coordinator serializes command application per tenant.
type Coordinator struct {
	store        *store.Store
	journal      *journal.Journal
	poller       PollRequester
	timers       *timer.Scheduler
	sponsors     *sponsor.Store
	sponsorSched *timer.SponsorScheduler
	governor     *governor.Governor
	jwtSecret    []byte

	mu    sync.Mutex
	lanes map[int64]*lane
}

// lane is one tenant's serialized command queue: a mutex plus a
// quarantine flag set when a Fatal error is observed, per §7.
type lane struct {
	mu         sync.Mutex
	quarantined bool
}

// New creates a Coordinator.
func New(st *store.Store, j *journal.Journal, poller PollRequester, timers *timer.Scheduler, sponsors *sponsor.Store, sponsorSched *timer.SponsorScheduler, gov *governor.Governor, jwtSecret []byte) *Coordinator {
	return &Coordinator{
		store:        st,
		journal:      j,
		poller:       poller,
		timers:       timers,
		sponsors:     sponsors,
		sponsorSched: sponsorSched,
		governor:     gov,
		jwtSecret:    jwtSecret,
		lanes:        make(map[int64]*lane),
	}
}

// SetGovernorOverride installs a manual rate-governor mode override.
func (c *Coordinator) SetGovernorOverride(ctx context.Context, tenantID int64, actor string, mode governor.Mode) error {
	if c.governor == nil {
		return apperrors.RefusedPrecondition("rate governor is not configured")
	}
	if err := c.governor.SetOverride(ctx, tenantID, mode); err != nil {
		return apperrors.Transient("set governor override", err)
	}
	if c.journal != nil {
		c.journal.Append(ctx, tenantID, actor, "governor.override_set", map[string]interface{}{"mode": mode})
	}
	return nil
}

// ClearGovernorOverride removes a manual rate-governor mode override.
func (c *Coordinator) ClearGovernorOverride(ctx context.Context, tenantID int64, actor string) error {
	if c.governor == nil {
		return apperrors.RefusedPrecondition("rate governor is not configured")
	}
	if err := c.governor.ClearOverride(ctx, tenantID); err != nil {
		return apperrors.Transient("clear governor override", err)
	}
	if c.journal != nil {
		c.journal.Append(ctx, tenantID, actor, "governor.override_cleared", nil)
	}
	return nil
}

// ActivateGovernorDevBypass disables rate regulation for a tenant for
// the configured dev-bypass window.
func (c *Coordinator) ActivateGovernorDevBypass(ctx context.Context, tenantID int64, actor string) error {
	if c.governor == nil {
		return apperrors.RefusedPrecondition("rate governor is not configured")
	}
	if err := c.governor.ActivateDevBypass(ctx, tenantID); err != nil {
		return apperrors.Transient("activate governor dev bypass", err)
	}
	if c.journal != nil {
		c.journal.Append(ctx, tenantID, actor, "governor.dev_bypass_activated", nil)
	}
	return nil
}

// DeactivateGovernorDevBypass ends a tenant's dev-bypass window early.
func (c *Coordinator) DeactivateGovernorDevBypass(ctx context.Context, tenantID int64, actor string) error {
	if c.governor == nil {
		return apperrors.RefusedPrecondition("rate governor is not configured")
	}
	if err := c.governor.DeactivateDevBypass(ctx, tenantID); err != nil {
		return apperrors.Transient("deactivate governor dev bypass", err)
	}
	if c.journal != nil {
		c.journal.Append(ctx, tenantID, actor, "governor.dev_bypass_deactivated", nil)
	}
	return nil
}

func (c *Coordinator) laneFor(tenantID int64) *lane {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lanes[tenantID]
	if !ok {
		l = &lane{}
		c.lanes[tenantID] = l
	}
	return l
}

// withLane serializes fn against the tenant's lane, refusing to run if
// the lane is quarantined, and re-runs fn once on a Conflict error per
// §7's "re-serialised under the tenant lane and retried once".
func (c *Coordinator) withLane(ctx context.Context, tenantID int64, actor, action string, fn func() (interface{}, error)) (interface{}, error) {
	l := c.laneFor(tenantID)
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.quarantined {
		return nil, apperrors.RefusedPrecondition("tenant lane is quarantined pending operator intervention")
	}

	result, err := fn()
	if apperrors.KindOf(err) == apperrors.KindConflict {
		result, err = fn()
	}
	if apperrors.KindOf(err) == apperrors.KindFatal {
		l.quarantined = true
	}

	if err == nil && c.journal != nil {
		c.journal.Append(ctx, tenantID, actor, action, nil)
	}
	if err == nil && c.poller != nil {
		c.poller.RequestImmediate(tenantID)
	}
	return result, err
}

// ReportResult records a match's winner and advances the bracket.
func (c *Coordinator) ReportResult(ctx context.Context, tenantID int64, actor, matchID, winnerID string, scores *models.Scores) ([]*models.Match, error) {
	result, err := c.withLane(ctx, tenantID, actor, "match.report_result", func() (interface{}, error) {
		return c.store.SetWinner(ctx, matchID, winnerID, scores)
	})
	return castMatches(result), err
}

// ForfeitPlayer records a forfeit and advances the bracket.
func (c *Coordinator) ForfeitPlayer(ctx context.Context, tenantID int64, actor, matchID, forfeitedID string) ([]*models.Match, error) {
	result, err := c.withLane(ctx, tenantID, actor, "match.forfeit", func() (interface{}, error) {
		return c.store.SetForfeit(ctx, matchID, forfeitedID)
	})
	return castMatches(result), err
}

// UndoResult reopens a completed match, refusing per §3 if any direct
// child has already completed.
func (c *Coordinator) UndoResult(ctx context.Context, tenantID int64, actor, matchID string) error {
	_, err := c.withLane(ctx, tenantID, actor, "match.undo_result", func() (interface{}, error) {
		return nil, c.store.Reopen(ctx, matchID)
	})
	return err
}

// AssignStation wires a match to a station.
func (c *Coordinator) AssignStation(ctx context.Context, tenantID int64, actor, matchID, stationID string) error {
	_, err := c.withLane(ctx, tenantID, actor, "station.assign", func() (interface{}, error) {
		return nil, c.store.SetStation(ctx, matchID, stationID)
	})
	return err
}

// ReleaseStation frees a match's assigned station.
func (c *Coordinator) ReleaseStation(ctx context.Context, tenantID int64, actor, matchID string) error {
	_, err := c.withLane(ctx, tenantID, actor, "station.release", func() (interface{}, error) {
		return nil, c.store.ClearStation(ctx, matchID)
	})
	return err
}

// StartUnderway transitions a match from open to underway.
func (c *Coordinator) StartUnderway(ctx context.Context, tenantID int64, actor, matchID string) error {
	_, err := c.withLane(ctx, tenantID, actor, "match.start_underway", func() (interface{}, error) {
		return nil, c.store.MarkUnderway(ctx, matchID)
	})
	return err
}

// MarkNotUnderway transitions a match back from underway to open.
func (c *Coordinator) MarkNotUnderway(ctx context.Context, tenantID int64, actor, matchID string) error {
	_, err := c.withLane(ctx, tenantID, actor, "match.mark_not_underway", func() (interface{}, error) {
		return nil, c.store.UnmarkUnderway(ctx, matchID)
	})
	return err
}

// GenerateBracket builds the match graph for a pending tournament and
// persists it, refusing per §6 if the tournament isn't in state pending.
func (c *Coordinator) GenerateBracket(ctx context.Context, tenantID int64, actor, tournamentID string, format models.TournamentFormat, options models.FormatOptions) ([]*models.Match, error) {
	result, err := c.withLane(ctx, tenantID, actor, "tournament.generate_bracket", func() (interface{}, error) {
		t, err := c.store.GetTournament(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		if t.State != models.StatePending {
			return nil, apperrors.RefusedPrecondition("bracket can only be generated for a pending tournament")
		}

		participants, err := c.store.GetParticipantsByTournament(ctx, tournamentID)
		if err != nil {
			return nil, err
		}

		generated, err := bracket.Generate(format, participants, options)
		if err != nil {
			return nil, apperrors.BadInput(err.Error())
		}

		created, err := c.store.BulkCreateMatches(ctx, tournamentID, generated.Matches)
		if err != nil {
			return nil, err
		}

		if err := c.store.SetTournamentState(ctx, tournamentID, models.StateUnderway); err != nil {
			return nil, err
		}
		return created, nil
	})
	return castMatches(result), err
}

// AdvanceSwissRound generates the next round's pairings once every match
// in the tournament's current round has completed, refusing per §4.1 if
// the round is still in progress or the configured round count is
// already reached.
func (c *Coordinator) AdvanceSwissRound(ctx context.Context, tenantID int64, actor, tournamentID string) ([]*models.Match, error) {
	result, err := c.withLane(ctx, tenantID, actor, "tournament.advance_swiss_round", func() (interface{}, error) {
		t, err := c.store.GetTournament(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		if t.Format != models.FormatSwiss {
			return nil, apperrors.BadInput("tournament is not a swiss tournament")
		}
		if t.State != models.StateUnderway {
			return nil, apperrors.RefusedPrecondition("tournament is not underway")
		}

		participants, err := c.store.GetParticipantsByTournament(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		matches, err := c.store.GetMatchesByTournament(ctx, tournamentID, store.MatchFilter{})
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, apperrors.RefusedPrecondition("bracket has not been generated yet")
		}

		current := currentRound(matches)
		for _, m := range matches {
			if m.Round == current && m.State != models.MatchComplete {
				return nil, apperrors.RefusedPrecondition("round is not yet complete")
			}
		}
		if t.FormatOptions.Rounds > 0 && current >= t.FormatOptions.Rounds {
			return nil, apperrors.RefusedPrecondition("swiss tournament has already reached its configured round count")
		}

		generated, err := bracket.NextSwissRound(participants, matches, current+1, t.FormatOptions.WinPoints, t.FormatOptions.DrawPoints, t.FormatOptions.LossPoints)
		if err != nil {
			return nil, apperrors.BadInput(err.Error())
		}
		return c.store.BulkCreateMatches(ctx, tournamentID, generated)
	})
	return castMatches(result), err
}

// AdvanceKnockoutStage generates a two-stage tournament's knockout bracket
// once every group-stage match has completed, re-seeding the configured
// number of advancers per group.
func (c *Coordinator) AdvanceKnockoutStage(ctx context.Context, tenantID int64, actor, tournamentID string) ([]*models.Match, error) {
	result, err := c.withLane(ctx, tenantID, actor, "tournament.advance_knockout_stage", func() (interface{}, error) {
		t, err := c.store.GetTournament(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		if t.Format != models.FormatTwoStage {
			return nil, apperrors.BadInput("tournament is not a two-stage tournament")
		}
		if t.State != models.StateUnderway {
			return nil, apperrors.RefusedPrecondition("tournament is not underway")
		}

		participants, err := c.store.GetParticipantsByTournament(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		matches, err := c.store.GetMatchesByTournament(ctx, tournamentID, store.MatchFilter{})
		if err != nil {
			return nil, err
		}

		groupMatches := map[int][]*models.Match{}
		groupParticipantIDs := map[int]map[string]bool{}
		knockoutExists := false
		for _, m := range matches {
			g, ok := groupNumberFromIdentifier(m.Identifier)
			if !ok {
				knockoutExists = true
				continue
			}
			groupMatches[g] = append(groupMatches[g], m)
			if groupParticipantIDs[g] == nil {
				groupParticipantIDs[g] = map[string]bool{}
			}
			if m.Player1ID != nil {
				groupParticipantIDs[g][*m.Player1ID] = true
			}
			if m.Player2ID != nil {
				groupParticipantIDs[g][*m.Player2ID] = true
			}
			if m.State != models.MatchComplete {
				return nil, apperrors.RefusedPrecondition("group stage is not yet complete")
			}
		}
		if knockoutExists {
			return nil, apperrors.RefusedPrecondition("knockout stage has already been generated")
		}
		if len(groupMatches) == 0 {
			return nil, apperrors.RefusedPrecondition("bracket has not been generated yet")
		}

		byID := make(map[string]*models.Participant, len(participants))
		for _, p := range participants {
			byID[p.ID] = p
		}

		groupCount := 0
		for g := range groupMatches {
			if g > groupCount {
				groupCount = g
			}
		}
		groupMembers := make([][]*models.Participant, groupCount)
		groupMatchLists := make([][]*models.Match, groupCount)
		for g := 1; g <= groupCount; g++ {
			groupMatchLists[g-1] = groupMatches[g]
			for id := range groupParticipantIDs[g] {
				if p := byID[id]; p != nil {
					groupMembers[g-1] = append(groupMembers[g-1], p)
				}
			}
		}

		generated, err := bracket.GenerateTwoStageKnockout(groupMembers, groupMatchLists, t.FormatOptions.AdvancePerGroup, t.FormatOptions.KnockoutFormat, t.FormatOptions)
		if err != nil {
			return nil, apperrors.BadInput(err.Error())
		}
		return c.store.BulkCreateMatches(ctx, tournamentID, generated.Matches)
	})
	return castMatches(result), err
}

// AdvanceFreeForAllRound builds the next round's lobbies once every lobby
// in the tournament's current round has completed, reseeded by current
// standings.
func (c *Coordinator) AdvanceFreeForAllRound(ctx context.Context, tenantID int64, actor, tournamentID string) ([]*models.Match, error) {
	result, err := c.withLane(ctx, tenantID, actor, "tournament.advance_free_for_all_round", func() (interface{}, error) {
		t, err := c.store.GetTournament(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		if t.Format != models.FormatFreeForAll {
			return nil, apperrors.BadInput("tournament is not a free-for-all tournament")
		}
		if t.State != models.StateUnderway {
			return nil, apperrors.RefusedPrecondition("tournament is not underway")
		}

		participants, err := c.store.GetParticipantsByTournament(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		matches, err := c.store.GetMatchesByTournament(ctx, tournamentID, store.MatchFilter{})
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, apperrors.RefusedPrecondition("bracket has not been generated yet")
		}

		current := currentRound(matches)
		for _, m := range matches {
			if m.Round == current && m.State != models.MatchComplete {
				return nil, apperrors.RefusedPrecondition("round is not yet complete")
			}
		}

		generated, err := bracket.NextFreeForAllRound(participants, matches, current+1, t.FormatOptions)
		if err != nil {
			return nil, apperrors.BadInput(err.Error())
		}
		return c.store.BulkCreateMatches(ctx, tournamentID, generated)
	})
	return castMatches(result), err
}

// AddLeaderboardEvent records one event's finishing order as a synthetic
// completed match, the way a leaderboard tournament accrues standings
// one event at a time instead of generating a match graph up front.
func (c *Coordinator) AddLeaderboardEvent(ctx context.Context, tenantID int64, actor, tournamentID string, placements []string) (*models.Match, error) {
	result, err := c.withLane(ctx, tenantID, actor, "tournament.add_leaderboard_event", func() (interface{}, error) {
		t, err := c.store.GetTournament(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		if t.Format != models.FormatLeaderboard {
			return nil, apperrors.BadInput("tournament is not a leaderboard tournament")
		}
		if len(placements) == 0 {
			return nil, apperrors.BadInput("placements must not be empty")
		}

		seq := 0
		event := bracket.AddLeaderboardEvent(&seq, placements)
		created, err := c.store.BulkCreateMatches(ctx, tournamentID, []*models.Match{event})
		if err != nil {
			return nil, err
		}
		return created[0], nil
	})
	if err != nil {
		return nil, err
	}
	match, _ := result.(*models.Match)
	return match, nil
}

func currentRound(matches []*models.Match) int {
	current := 0
	for _, m := range matches {
		if m.Round > current {
			current = m.Round
		}
	}
	return current
}

// groupNumberFromIdentifier extracts the N in a two-stage group match's
// "GN-..." identifier (see generateTwoStageStageOne), reporting false for
// any identifier outside that scheme (i.e. a knockout-stage match).
func groupNumberFromIdentifier(identifier string) (int, bool) {
	if len(identifier) < 3 || identifier[0] != 'G' {
		return 0, false
	}
	dash := strings.IndexByte(identifier, '-')
	if dash < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(identifier[1:dash])
	if err != nil {
		return 0, false
	}
	return n, true
}

// StartDQTimer arms a disqualification countdown against a match slot.
func (c *Coordinator) StartDQTimer(ctx context.Context, tenantID int64, actor, tournamentID, matchID, station string, durationSeconds, warningThresholdSeconds int, participantID, participantName string, mode timer.AutoDQMode) (*models.DQTimer, error) {
	result, err := c.withLane(ctx, tenantID, actor, "timer.dq_started", func() (interface{}, error) {
		if c.timers == nil {
			return nil, apperrors.RefusedPrecondition("timer scheduler is not configured")
		}
		return c.timers.Start(tenantID, tournamentID, matchID, station, durationSeconds, warningThresholdSeconds, participantID, participantName, mode), nil
	})
	if err != nil {
		return nil, err
	}
	dqTimer, _ := result.(*models.DQTimer)
	return dqTimer, nil
}

// CancelDQTimer disarms a running DQ timer; it is a no-op if the key has
// no active timer.
func (c *Coordinator) CancelDQTimer(ctx context.Context, tenantID int64, actor string, key models.DQTimerKey) error {
	_, err := c.withLane(ctx, tenantID, actor, "timer.dq_cancelled", func() (interface{}, error) {
		if c.timers == nil {
			return nil, apperrors.RefusedPrecondition("timer scheduler is not configured")
		}
		c.timers.Cancel(key)
		return nil, nil
	})
	return err
}

// ListDQTimers returns every DQ timer currently armed for a tenant. This
// is a read, so it bypasses the tenant lane entirely.
func (c *Coordinator) ListDQTimers(tenantID int64) []*models.DQTimer {
	if c.timers == nil {
		return nil
	}
	return c.timers.List(tenantID)
}

// StartImpersonation mints a short-lived JWT letting a superadmin act as
// a tenant, recording the issuance in the journal per §6.
func (c *Coordinator) StartImpersonation(ctx context.Context, tenantID int64, issuingSuperadminID string) (string, error) {
	claims := ImpersonationClaims{
		TenantID:   tenantID,
		IssuedByID: issuingSuperadminID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(impersonationTokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.jwtSecret)
	if err != nil {
		return "", apperrors.Fatal("sign impersonation token", err)
	}

	if c.journal != nil {
		c.journal.Append(ctx, tenantID, issuingSuperadminID, "admin.impersonation_started", map[string]interface{}{
			"tenant_id": tenantID,
		})
	}
	return signed, nil
}

func castMatches(v interface{}) []*models.Match {
	if v == nil {
		return nil
	}
	matches, _ := v.([]*models.Match)
	return matches
}
