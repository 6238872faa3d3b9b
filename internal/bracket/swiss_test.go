package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func TestGenerateSwissFirstRound_TopHalfVsBottomHalf(t *testing.T) {
	result, err := generateSwissFirstRound(participantsN(8), models.FormatOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Matches, 4)
	for _, m := range result.Matches {
		assert.Equal(t, models.MatchOpen, m.State)
	}
}

func TestGenerateSwissFirstRound_OddFieldGetsABye(t *testing.T) {
	result, err := generateSwissFirstRound(participantsN(5), models.FormatOptions{})
	require.NoError(t, err)
	var byes int
	for _, m := range result.Matches {
		if m.IsBye {
			byes++
		}
	}
	assert.Equal(t, 1, byes)
}

func TestNextSwissRound_AvoidsRematches(t *testing.T) {
	participants := participantsN(4)
	first, err := generateSwissFirstRound(participants, models.FormatOptions{})
	require.NoError(t, err)
	for _, m := range first.Matches {
		winner := *m.Player1ID
		m.State = models.MatchComplete
		m.WinnerID = &winner
	}

	next, err := NextSwissRound(participants, first.Matches, 2, 1, 0.5, 0)
	require.NoError(t, err)
	for _, m := range next {
		require.NotNil(t, m.Player1ID)
		require.NotNil(t, m.Player2ID)
		assert.False(t, playedPairs(first.Matches)[pairKey(*m.Player1ID, *m.Player2ID)])
	}
}
