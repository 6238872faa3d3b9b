package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func TestGenerateDoubleElimination_TotalMatchCount(t *testing.T) {
	result, err := generateDoubleElimination(participantsN(4), models.FormatOptions{})
	require.NoError(t, err)
	// Double elim total matches: winners (n-1) + losers (n-2) + GF + GF2.
	// For n=4: winners=3, losers=2, GF=1, GF2=1 => 7.
	assert.Len(t, result.Matches, 7)
}

func TestGenerateDoubleElimination_GrandFinalsSkipsReset(t *testing.T) {
	result, err := generateDoubleElimination(participantsN(4), models.FormatOptions{GrandFinalsModifier: models.GrandFinalsSingle})
	require.NoError(t, err)
	for _, m := range result.Matches {
		assert.NotEqual(t, "GF2", m.Identifier)
	}
}

func TestGenerateDoubleElimination_GF2IsConditional(t *testing.T) {
	result, err := generateDoubleElimination(participantsN(4), models.FormatOptions{})
	require.NoError(t, err)
	for _, m := range result.Matches {
		if m.Identifier == "GF2" {
			assert.True(t, m.Conditional)
			assert.True(t, m.Prereq2IsLoser)
		}
	}
}

func TestGenerateDoubleElimination_TwoParticipantDegenerateCase(t *testing.T) {
	result, err := generateDoubleElimination(participantsN(2), models.FormatOptions{})
	require.NoError(t, err)
	var gf *models.Match
	for _, m := range result.Matches {
		if m.Identifier == "GF" {
			gf = m
		}
	}
	require.NotNil(t, gf)
	assert.True(t, gf.Prereq2IsLoser)
}
