package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func TestAdvance_OpensMatchOnceBothSlotsFilled(t *testing.T) {
	winnerID := "p1"
	loserID := "p2"
	completed := &models.Match{
		ID:        "m1",
		State:     models.MatchComplete,
		Player1ID: &winnerID,
		Player2ID: &loserID,
		WinnerID:  &winnerID,
	}
	waiting := &models.Match{
		ID:             "m2",
		State:          models.MatchPending,
		Prereq1MatchID: idPtr("m1"),
		Player2ID:      idPtr("someone-else"),
	}

	opened := Advance([]*models.Match{completed, waiting}, completed)

	require.Len(t, opened, 1)
	assert.Equal(t, "m2", opened[0].ID)
	assert.Equal(t, models.MatchOpen, waiting.State)
	require.NotNil(t, waiting.Player1ID)
	assert.Equal(t, winnerID, *waiting.Player1ID)
}

func TestAdvance_PlacesLoserWhenPrereqWantsLoser(t *testing.T) {
	winnerID := "p1"
	loserID := "p2"
	completed := &models.Match{
		ID:        "m1",
		State:     models.MatchComplete,
		Player1ID: &winnerID,
		Player2ID: &loserID,
		WinnerID:  &winnerID,
	}
	losersFeed := &models.Match{
		ID:             "m2",
		State:          models.MatchPending,
		Prereq1MatchID: idPtr("m1"),
		Prereq1IsLoser: true,
		Player2ID:      idPtr("someone-else"),
	}

	Advance([]*models.Match{completed, losersFeed}, completed)

	require.NotNil(t, losersFeed.Player1ID)
	assert.Equal(t, loserID, *losersFeed.Player1ID)
}

func TestAdvance_DoesNotOpenUntilBothSlotsFilled(t *testing.T) {
	winnerID := "p1"
	completed := &models.Match{ID: "m1", State: models.MatchComplete, WinnerID: &winnerID, Player1ID: &winnerID}
	waiting := &models.Match{ID: "m2", State: models.MatchPending, Prereq1MatchID: idPtr("m1")}

	opened := Advance([]*models.Match{completed, waiting}, completed)

	assert.Empty(t, opened)
	assert.Equal(t, models.MatchPending, waiting.State)
}

func TestGetVisualization_GroupsWinnersAndLosersRounds(t *testing.T) {
	matches := []*models.Match{
		{ID: "w1", Round: 1, BracketPosition: 0},
		{ID: "w2", Round: 1, BracketPosition: 1},
		{ID: "l1", Round: -1, BracketPosition: 0},
	}
	viz := GetVisualization(models.FormatDoubleElimination, matches)
	require.Len(t, viz.Rounds, 2)
	assert.Len(t, viz.Rounds[0], 2)
	assert.Len(t, viz.Rounds[1], 1)
}
