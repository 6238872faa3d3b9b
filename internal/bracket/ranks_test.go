package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tournamentlive/internal/models"
)

func rankStrptr(s string) *string { return &s }

// TestEliminationRanks_TiedLosersShareRank is spec scenario S1: a 4-player
// single-elim bracket where A beats D and B beats C in round 1, then A
// beats B in the final. C and D both lose in round 1 and must share rank
// 3, not be split into 3 and 4.
func TestEliminationRanks_TiedLosersShareRank(t *testing.T) {
	participants := participantsN(4)

	matches := []*models.Match{
		{
			ID:        "w1-1",
			Round:     1,
			Player1ID: rankStrptr("A"),
			Player2ID: rankStrptr("D"),
			WinnerID:  rankStrptr("A"),
			State:     models.MatchComplete,
		},
		{
			ID:        "w1-2",
			Round:     1,
			Player1ID: rankStrptr("B"),
			Player2ID: rankStrptr("C"),
			WinnerID:  rankStrptr("B"),
			State:     models.MatchComplete,
		},
		{
			ID:             "final",
			Round:          2,
			Player1ID:      rankStrptr("A"),
			Player2ID:      rankStrptr("B"),
			WinnerID:       rankStrptr("A"),
			State:          models.MatchComplete,
			IsGrandFinals:  true,
			Prereq1MatchID: rankStrptr("w1-1"),
			Prereq2MatchID: rankStrptr("w1-2"),
		},
	}

	ranks := eliminationRanks(participants, matches, models.FormatSingleElimination)

	assert.Equal(t, 1, ranks["A"])
	assert.Equal(t, 2, ranks["B"])
	assert.Equal(t, 3, ranks["C"])
	assert.Equal(t, 3, ranks["D"])
}

func TestRanksFromGroups_TiesShareRankAndSkipNext(t *testing.T) {
	ranks := ranksFromGroups([]string{"A", "B", "C", "D"}, func(id string) int {
		switch id {
		case "A":
			return 3
		case "B", "C":
			return 2
		default:
			return 0
		}
	})
	assert.Equal(t, 1, ranks["A"])
	assert.Equal(t, 2, ranks["B"])
	assert.Equal(t, 2, ranks["C"])
	assert.Equal(t, 4, ranks["D"])
}
