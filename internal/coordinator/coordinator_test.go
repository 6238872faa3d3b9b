package coordinator

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/apperrors"
	"tournamentlive/internal/governor"
	"tournamentlive/internal/journal"
	"tournamentlive/internal/models"
	"tournamentlive/internal/sponsor"
	"tournamentlive/internal/timer"
)

func testLogger() *log.Logger {
	return log.New(os.Stdout, "test: ", 0)
}

type fakePoller struct {
	requested []int64
}

func (f *fakePoller) RequestImmediate(tenantID int64) {
	f.requested = append(f.requested, tenantID)
}

func newTestCoordinator(poller PollRequester) *Coordinator {
	j := journal.New(nil, testLogger(), nil)
	return New(nil, j, poller, nil, nil, nil, nil, []byte("test-secret"))
}

func TestWithLane_RunsOnceOnSuccessAndNotifiesPoller(t *testing.T) {
	poller := &fakePoller{}
	c := newTestCoordinator(poller)

	calls := 0
	result, err := c.withLane(context.Background(), 42, "actor-1", "test.action", func() (interface{}, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []int64{42}, poller.requested)
}

func TestWithLane_RetriesOnceOnConflict(t *testing.T) {
	c := newTestCoordinator(&fakePoller{})

	calls := 0
	_, err := c.withLane(context.Background(), 1, "actor", "test.action", func() (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, apperrors.Conflict("stale version")
		}
		return "recovered", nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithLane_DoesNotRetryTwiceOnRepeatedConflict(t *testing.T) {
	c := newTestCoordinator(&fakePoller{})

	calls := 0
	_, err := c.withLane(context.Background(), 1, "actor", "test.action", func() (interface{}, error) {
		calls++
		return nil, apperrors.Conflict("still stale")
	})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithLane_QuarantinesLaneOnFatalError(t *testing.T) {
	c := newTestCoordinator(&fakePoller{})

	_, err := c.withLane(context.Background(), 9, "actor", "test.action", func() (interface{}, error) {
		return nil, apperrors.Fatal("unrecoverable", nil)
	})
	require.Error(t, err)

	calls := 0
	_, err = c.withLane(context.Background(), 9, "actor", "test.action", func() (interface{}, error) {
		calls++
		return "should not run", nil
	})

	assert.Error(t, err)
	assert.Equal(t, apperrors.KindRefusedPrecondition, apperrors.KindOf(err))
	assert.Equal(t, 0, calls)
}

func TestWithLane_DoesNotNotifyPollerOnError(t *testing.T) {
	poller := &fakePoller{}
	c := newTestCoordinator(poller)

	_, err := c.withLane(context.Background(), 5, "actor", "test.action", func() (interface{}, error) {
		return nil, apperrors.BadInput("nope")
	})

	assert.Error(t, err)
	assert.Empty(t, poller.requested)
}

func TestWithLane_IsolatesQuarantineByTenant(t *testing.T) {
	c := newTestCoordinator(&fakePoller{})

	_, err := c.withLane(context.Background(), 1, "actor", "test.action", func() (interface{}, error) {
		return nil, apperrors.Fatal("boom", nil)
	})
	require.Error(t, err)

	_, err = c.withLane(context.Background(), 2, "actor", "test.action", func() (interface{}, error) {
		return "fine", nil
	})
	assert.NoError(t, err)
}

func TestStartImpersonation_MintsVerifiableToken(t *testing.T) {
	c := newTestCoordinator(&fakePoller{})

	tokenString, err := c.StartImpersonation(context.Background(), 77, "superadmin-1")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	var claims ImpersonationClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, int64(77), claims.TenantID)
	assert.Equal(t, "superadmin-1", claims.IssuedByID)
}

func TestStartImpersonation_RejectsWrongSecret(t *testing.T) {
	c := newTestCoordinator(&fakePoller{})

	tokenString, err := c.StartImpersonation(context.Background(), 1, "admin")
	require.NoError(t, err)

	var claims ImpersonationClaims
	_, err = jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	})
	assert.Error(t, err)
}

func TestCastMatches_NilAndWrongTypeReturnNil(t *testing.T) {
	assert.Nil(t, castMatches(nil))
	assert.Nil(t, castMatches("not a match slice"))
}

func TestDQTimerCommands_StartListAndCancel(t *testing.T) {
	var forfeited, notified int
	sched := timer.NewScheduler(testLogger(),
		func(tenantID int64, tournamentID, matchID, participantID string) { forfeited++ },
		func(tenantID int64, key models.DQTimerKey, event string, t *models.DQTimer) { notified++ })

	j := journal.New(nil, testLogger(), nil)
	c := New(nil, j, &fakePoller{}, sched, nil, nil, nil, []byte("test-secret"))

	started, err := c.StartDQTimer(context.Background(), 1, "ref", "t1", "m1", "station-a", 120, 30, "p1", "Player One", timer.AutoDQNotify)
	require.NoError(t, err)
	require.NotNil(t, started)

	listed := c.ListDQTimers(1)
	require.Len(t, listed, 1)
	assert.Equal(t, "m1", listed[0].Key.MatchID)

	err = c.CancelDQTimer(context.Background(), 1, "ref", started.Key)
	require.NoError(t, err)
	assert.Empty(t, c.ListDQTimers(1))
}

func TestStartDQTimer_FailsWithoutScheduler(t *testing.T) {
	c := newTestCoordinator(&fakePoller{})
	_, err := c.StartDQTimer(context.Background(), 1, "ref", "t1", "m1", "station-a", 120, 30, "p1", "Player One", timer.AutoDQNotify)
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindRefusedPrecondition, apperrors.KindOf(err))
}

func TestUploadAndDeleteSponsorItem_RoundTrips(t *testing.T) {
	store, err := sponsor.New(t.TempDir())
	require.NoError(t, err)

	j := journal.New(nil, testLogger(), nil)
	c := New(nil, j, &fakePoller{}, nil, store, nil, nil, []byte("test-secret"))

	state, err := c.UploadSponsorItem(context.Background(), 3, "ref", models.SponsorItem{
		ID:       "s1",
		Position: models.PositionTopLeft,
		Active:   true,
	})
	require.NoError(t, err)
	require.Len(t, state.Sponsors, 1)
	assert.Equal(t, int64(3), state.Sponsors[0].TenantID)

	state, err = c.DeleteSponsorItem(context.Background(), 3, "ref", "s1")
	require.NoError(t, err)
	assert.Empty(t, state.Sponsors)
}

func TestDeleteSponsorItem_NotFound(t *testing.T) {
	store, err := sponsor.New(t.TempDir())
	require.NoError(t, err)

	j := journal.New(nil, testLogger(), nil)
	c := New(nil, j, &fakePoller{}, nil, store, nil, nil, []byte("test-secret"))

	_, err = c.DeleteSponsorItem(context.Background(), 1, "ref", "missing")
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestGovernorOverrideCommands_PassThroughWithoutRedis(t *testing.T) {
	gov := governor.New(nil, testLogger(), governor.DefaultRates(), nil)
	j := journal.New(nil, testLogger(), nil)
	c := New(nil, j, &fakePoller{}, nil, nil, nil, gov, []byte("test-secret"))

	require.NoError(t, c.SetGovernorOverride(context.Background(), 1, "ref", governor.ModeActive))
	require.NoError(t, c.ClearGovernorOverride(context.Background(), 1, "ref"))
	require.NoError(t, c.ActivateGovernorDevBypass(context.Background(), 1, "ref"))
	require.NoError(t, c.DeactivateGovernorDevBypass(context.Background(), 1, "ref"))
}

func TestGovernorOverrideCommands_FailWithoutGovernor(t *testing.T) {
	c := newTestCoordinator(&fakePoller{})
	assert.Error(t, c.SetGovernorOverride(context.Background(), 1, "ref", governor.ModeActive))
}

func TestGroupNumberFromIdentifier_ParsesGroupMatches(t *testing.T) {
	g, ok := groupNumberFromIdentifier("G1-W1-3")
	require.True(t, ok)
	assert.Equal(t, 1, g)

	g, ok = groupNumberFromIdentifier("G12-RR-1")
	require.True(t, ok)
	assert.Equal(t, 12, g)
}

func TestGroupNumberFromIdentifier_RejectsNonGroupIdentifiers(t *testing.T) {
	for _, id := range []string{"W1-3", "GF", "3P", "G", "SW1-1"} {
		_, ok := groupNumberFromIdentifier(id)
		assert.Falsef(t, ok, "expected %q to not parse as a group identifier", id)
	}
}

func TestCurrentRound_ReturnsHighestRoundSeen(t *testing.T) {
	matches := []*models.Match{{Round: 1}, {Round: 3}, {Round: 2}}
	assert.Equal(t, 3, currentRound(matches))
	assert.Equal(t, 0, currentRound(nil))
}
