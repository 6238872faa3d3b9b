package journal

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func testLogger() *log.Logger {
	return log.New(os.Stdout, "test: ", 0)
}

func TestAppend_AssignsMonotonicIDsAcrossTenants(t *testing.T) {
	j := New(nil, testLogger(), nil)
	e1 := j.Append(context.Background(), 1, "alice", "match.report_result", nil)
	e2 := j.Append(context.Background(), 2, "bob", "match.report_result", nil)
	assert.Equal(t, int64(1), e1.ID)
	assert.Equal(t, int64(2), e2.ID)
}

func TestAppend_InfersCategoryFromActionPrefix(t *testing.T) {
	j := New(nil, testLogger(), nil)
	e := j.Append(context.Background(), 1, "alice", "sponsor.rotate", nil)
	assert.Equal(t, models.CategorySponsor, e.Category)
}

func TestAppend_NotifiesCallback(t *testing.T) {
	var notified *models.ActivityEntry
	j := New(nil, testLogger(), func(e *models.ActivityEntry) { notified = e })
	j.Append(context.Background(), 1, "alice", "match.report_result", nil)
	require.NotNil(t, notified)
	assert.Equal(t, "alice", notified.Actor)
}

func TestRingBuffer_EvictsOldestBeyondCapacity(t *testing.T) {
	j := New(nil, testLogger(), nil)
	j.capacity = 3
	for i := 0; i < 5; i++ {
		j.Append(context.Background(), 1, "alice", "match.report_result", nil)
	}
	results := j.Query(1, QueryFilter{}, 0, 100)
	require.Len(t, results, 3)
	// Newest first; the two oldest (ids 1,2) were evicted.
	assert.Equal(t, int64(5), results[0].ID)
	assert.Equal(t, int64(3), results[2].ID)
}

func TestQuery_FiltersByCategoryAndSearch(t *testing.T) {
	j := New(nil, testLogger(), nil)
	j.Append(context.Background(), 1, "alice", "match.report_result", map[string]interface{}{"matchId": "m1"})
	j.Append(context.Background(), 1, "bob", "sponsor.rotate", nil)

	matches := j.Query(1, QueryFilter{Category: models.CategoryMatch}, 0, 10)
	require.Len(t, matches, 1)
	assert.Equal(t, "alice", matches[0].Actor)

	searched := j.Query(1, QueryFilter{Search: "BOB"}, 0, 10)
	require.Len(t, searched, 1)
	assert.Equal(t, "sponsor.rotate", searched[0].Action)
}

func TestQuery_DoesNotLeakOtherTenants(t *testing.T) {
	j := New(nil, testLogger(), nil)
	j.Append(context.Background(), 1, "alice", "match.report_result", nil)
	j.Append(context.Background(), 2, "bob", "match.report_result", nil)

	results := j.Query(1, QueryFilter{}, 0, 10)
	require.Len(t, results, 1)
	assert.Equal(t, "alice", results[0].Actor)
}
