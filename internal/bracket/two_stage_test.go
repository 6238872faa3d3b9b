package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func TestGenerateTwoStageStageOne_SplitsIntoGroups(t *testing.T) {
	result, err := generateTwoStageStageOne(participantsN(8), models.FormatOptions{NumberOfGroups: 2})
	require.NoError(t, err)
	sizes, ok := result.SeedingMeta["group_sizes"].([]int)
	require.True(t, ok)
	assert.Equal(t, []int{4, 4}, sizes)
	// Each group of 4 plays a full round robin: 6 matches, x2 groups = 12.
	assert.Len(t, result.Matches, 12)
}

func TestSnakeDraft_AlternatesDirection(t *testing.T) {
	participants := participantsN(8)
	groups := snakeDraft(participants, 2)
	require.Len(t, groups, 2)
	// Pass 1 forward: g0 gets seed1, g1 gets seed2. Pass2 reverse: g1 gets
	// seed3, g0 gets seed4. So g0 = [seed1, seed4, seed5, seed8].
	assert.Equal(t, "A", groups[0][0].ID)
	assert.Equal(t, "D", groups[0][1].ID)
}
