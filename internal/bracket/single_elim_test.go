package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func participantsN(n int) []*models.Participant {
	out := make([]*models.Participant, n)
	for i := 0; i < n; i++ {
		seed := i + 1
		out[i] = &models.Participant{ID: idOf(i), Name: idOf(i), Seed: &seed}
	}
	return out
}

func idOf(i int) string {
	return string(rune('A' + i))
}

func TestGenerateSingleElimination_PowerOfTwo(t *testing.T) {
	result, err := generateSingleElimination(participantsN(8), models.FormatOptions{})
	require.NoError(t, err)
	// 8 participants => 7 matches, no byes.
	assert.Len(t, result.Matches, 7)
	for _, m := range result.Matches {
		assert.False(t, m.IsBye)
	}
}

func TestGenerateSingleElimination_WithByes(t *testing.T) {
	result, err := generateSingleElimination(participantsN(5), models.FormatOptions{})
	require.NoError(t, err)
	byeCount := 0
	for _, m := range result.Matches {
		if m.IsBye {
			byeCount++
			assert.Equal(t, models.MatchComplete, m.State)
			assert.NotNil(t, m.WinnerID)
		}
	}
	// bracket size 8, 5 real participants => 3 byes.
	assert.Equal(t, 3, byeCount)
}

func TestGenerateSingleElimination_TooFewParticipants(t *testing.T) {
	_, err := generateSingleElimination(participantsN(1), models.FormatOptions{})
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestGenerateSingleElimination_ThirdPlaceMatch(t *testing.T) {
	result, err := generateSingleElimination(participantsN(4), models.FormatOptions{ThirdPlaceMatch: true})
	require.NoError(t, err)
	var found bool
	for _, m := range result.Matches {
		if m.Identifier == "3P" {
			found = true
			assert.True(t, m.Prereq1IsLoser)
			assert.True(t, m.Prereq2IsLoser)
		}
	}
	assert.True(t, found, "expected a 3P match")
}

func TestGenerateSingleElimination_CompactModeHasNoFirstRoundByes(t *testing.T) {
	result, err := generateSingleElimination(participantsN(6), models.FormatOptions{Compact: true})
	require.NoError(t, err)
	for _, m := range result.Matches {
		if m.Round == 1 {
			assert.False(t, m.IsBye, "compact mode must not leave byes in round 1")
		}
	}
	var playIns int
	for _, m := range result.Matches {
		if m.Round == 0 {
			playIns++
		}
	}
	assert.Equal(t, 2, playIns) // n=6, size=8 => playInCount = 6-4 = 2
}

func TestByeSeeds_Traditional(t *testing.T) {
	byes := byeSeeds(5, 8, models.ByeTraditional)
	assert.Len(t, byes, 3)
	assert.True(t, byes[6])
	assert.True(t, byes[7])
	assert.True(t, byes[8])
}

func TestByeSeeds_BottomHalf(t *testing.T) {
	byes := byeSeeds(6, 8, models.ByeBottomHalf)
	assert.Len(t, byes, 2)
	// bottom half is seeds 5..8; the two byes should land there.
	for s := range byes {
		assert.GreaterOrEqual(t, s, 5)
	}
}

func TestStandardSeedOrder(t *testing.T) {
	assert.Equal(t, []int{1, 2}, standardSeedOrder(2))
	assert.Equal(t, []int{1, 4, 2, 3}, standardSeedOrder(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, standardSeedOrder(8))
}
