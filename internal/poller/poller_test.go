package poller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tournamentlive/internal/models"
)

func strptr(s string) *string { return &s }

func TestPlayOrderKey_PrefersSuggestedOrder(t *testing.T) {
	order := 3
	m := &models.Match{SuggestedPlayOrder: &order, Round: 9, BracketPosition: 9}
	assert.Equal(t, 3, playOrderKey(m))
}

func TestPlayOrderKey_FallsBackToRoundAndPosition(t *testing.T) {
	m := &models.Match{Round: 2, BracketPosition: 5}
	assert.Equal(t, 200005, playOrderKey(m))
}

func TestPodiumFromMatches_GrandFinalsAndThirdPlace(t *testing.T) {
	matches := []*models.Match{
		{
			Identifier:    "GF",
			IsGrandFinals: true,
			State:         models.MatchComplete,
			Player1ID:     strptr("alice"),
			Player2ID:     strptr("bob"),
			WinnerID:      strptr("alice"),
		},
		{
			Identifier: "3P",
			State:      models.MatchComplete,
			WinnerID:   strptr("carol"),
		},
	}
	podium := podiumFromMatches(matches)
	assert.Equal(t, "alice", podium[1])
	assert.Equal(t, "bob", podium[2])
	assert.Equal(t, "carol", podium[3])
}

func TestPodiumFromMatches_NoCompletedGrandFinalsReturnsNil(t *testing.T) {
	matches := []*models.Match{
		{Identifier: "GF", IsGrandFinals: true, State: models.MatchOpen},
	}
	assert.Nil(t, podiumFromMatches(matches))
}

func TestPodiumFromMatches_IgnoresMatchesWithoutWinner(t *testing.T) {
	matches := []*models.Match{
		{Identifier: "GF", IsGrandFinals: true, State: models.MatchComplete, WinnerID: nil},
	}
	assert.Nil(t, podiumFromMatches(matches))
}
