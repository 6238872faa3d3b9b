package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func TestStart_ExpiryRoutesToForfeitWhenModeIsAutoDQ(t *testing.T) {
	var mu sync.Mutex
	var forfeited string
	done := make(chan struct{})

	s := NewScheduler(testLog(), func(tenantID int64, tournamentID, matchID, participantID string) {
		mu.Lock()
		forfeited = participantID
		mu.Unlock()
		close(done)
	}, nil)

	s.Start(1, "t1", "m1", "st1", 0, 0, "p1", "Player One", AutoDQForfeit)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forfeit routing")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "p1", forfeited)
}

func TestStart_ExpiryNotifiesWhenModeIsNotify(t *testing.T) {
	done := make(chan string, 1)
	s := NewScheduler(testLog(), nil, func(tenantID int64, key models.DQTimerKey, event string, timer *models.DQTimer) {
		done <- event
	})

	s.Start(1, "t1", "m1", "st1", 0, 0, "p1", "Player One", AutoDQNotify)

	select {
	case event := <-done:
		assert.Equal(t, "expired-notify", event)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notify")
	}
}

func TestCancel_IsIdempotentOnUnknownKey(t *testing.T) {
	s := NewScheduler(testLog(), nil, nil)
	require.NotPanics(t, func() {
		s.Cancel(models.DQTimerKey{MatchID: "missing"})
	})
}

func TestCancel_PreventsLaterExpiry(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := NewScheduler(testLog(), nil, func(tenantID int64, key models.DQTimerKey, event string, timer *models.DQTimer) {
		fired <- struct{}{}
	})

	timer := s.Start(1, "t1", "m1", "st1", 3600, 0, "p1", "Player One", AutoDQNotify)
	s.Cancel(timer.Key)

	select {
	case <-fired:
		t.Fatal("expiry should not fire after cancel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestList_ComputesRemainingSecondsPerTenant(t *testing.T) {
	s := NewScheduler(testLog(), nil, nil)
	s.Start(1, "t1", "m1", "st1", 3600, 0, "p1", "Player One", AutoDQNotify)
	s.Start(2, "t2", "m2", "st2", 3600, 0, "p2", "Player Two", AutoDQNotify)

	tenant1 := s.List(1)
	require.Len(t, tenant1, 1)
	assert.Greater(t, tenant1[0].RemainingSeconds(time.Now().UTC()), 3500)

	tenant2 := s.List(2)
	require.Len(t, tenant2, 1)
}

func TestCancelAll_StopsEveryTimer(t *testing.T) {
	var count int32
	var mu sync.Mutex
	s := NewScheduler(testLog(), nil, func(tenantID int64, key models.DQTimerKey, event string, timer *models.DQTimer) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	s.Start(1, "t1", "m1", "st1", 3600, 0, "p1", "Player One", AutoDQNotify)
	s.Start(1, "t1", "m2", "st2", 3600, 0, "p2", "Player Two", AutoDQNotify)
	s.CancelAll()

	assert.Empty(t, s.List(1))
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(0), count)
}

func TestStart_ReArmingReplacesExistingTimerAtSameKey(t *testing.T) {
	s := NewScheduler(testLog(), nil, nil)
	first := s.Start(1, "t1", "m1", "st1", 3600, 0, "p1", "Player One", AutoDQNotify)
	second := s.Start(1, "t1", "m1", "st1", 7200, 0, "p2", "Player Two", AutoDQNotify)

	assert.Equal(t, first.Key, second.Key)
	list := s.List(1)
	require.Len(t, list, 1)
	assert.Equal(t, "p2", list[0].TargetParticipant)
}
