package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func TestGenerateRoundRobin_EvenField(t *testing.T) {
	result, err := generateRoundRobin(participantsN(4), models.FormatOptions{})
	require.NoError(t, err)
	// 4 participants, single round robin: n*(n-1)/2 = 6 matches.
	assert.Len(t, result.Matches, 6)
	for _, m := range result.Matches {
		assert.Equal(t, models.MatchOpen, m.State)
		assert.Nil(t, m.Prereq1MatchID)
	}
}

func TestGenerateRoundRobin_OddFieldSuppressesVirtualMatches(t *testing.T) {
	result, err := generateRoundRobin(participantsN(5), models.FormatOptions{})
	require.NoError(t, err)
	// 5 participants: each round has 2 real matches (one sits out), 5 rounds.
	assert.Len(t, result.Matches, 10)
	for _, m := range result.Matches {
		require.NotNil(t, m.Player1ID)
		require.NotNil(t, m.Player2ID)
		assert.NotEqual(t, "", *m.Player1ID)
		assert.NotEqual(t, "", *m.Player2ID)
	}
}

func TestGenerateRoundRobin_Iterations(t *testing.T) {
	result, err := generateRoundRobin(participantsN(4), models.FormatOptions{Iterations: 2})
	require.NoError(t, err)
	assert.Len(t, result.Matches, 12)
}

func TestCircleMethod_EveryoneFacesEveryoneOnce(t *testing.T) {
	ids := []string{"A", "B", "C", "D"}
	schedule := circleMethod(ids)
	seen := map[string]bool{}
	for _, round := range schedule {
		roundPlayers := map[string]bool{}
		for _, pair := range round {
			assert.False(t, roundPlayers[pair[0]], "player double-booked in round")
			assert.False(t, roundPlayers[pair[1]], "player double-booked in round")
			roundPlayers[pair[0]] = true
			roundPlayers[pair[1]] = true
			seen[pairKey(pair[0], pair[1])] = true
		}
	}
	assert.Len(t, seen, 6) // 4 choose 2
}
