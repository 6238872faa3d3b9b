package sponsor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func TestLoad_MissingFileReturnsZeroState(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	state, err := s.Load(42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), state.TenantID)
	assert.Empty(t, state.Sponsors)
}

func TestSaveThenLoad_RoundTripsState(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	state := &models.SponsorState{
		TenantID: 7,
		Sponsors: []models.SponsorItem{{ID: "a", Position: models.PositionTopLeft, Active: true}},
		Config:   models.SponsorConfig{Enabled: true, RotationOrder: models.RotationSequential},
	}
	require.NoError(t, s.Save(state))

	got, err := s.Load(7)
	require.NoError(t, err)
	require.Len(t, got.Sponsors, 1)
	assert.Equal(t, "a", got.Sponsors[0].ID)
	assert.True(t, got.Config.Enabled)
	assert.False(t, got.LastUpdated.IsZero())
}

func TestLoad_FallsBackToLegacyFileForTenantOne(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	legacy := &models.SponsorState{
		TenantID: legacyTenantID,
		Sponsors: []models.SponsorItem{{ID: "legacy-sponsor"}},
	}
	require.NoError(t, s.Save(legacy))

	// Simulate a pre-multi-tenant deployment: only the untagged file exists.
	require.NoError(t, os.Rename(s.path(legacyTenantID), s.legacyPath()))

	got, err := s.Load(legacyTenantID)
	require.NoError(t, err)
	require.Len(t, got.Sponsors, 1)
	assert.Equal(t, "legacy-sponsor", got.Sponsors[0].ID)
}

func TestLoad_DoesNotFallBackToLegacyForOtherTenants(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	legacy := &models.SponsorState{TenantID: legacyTenantID, Sponsors: []models.SponsorItem{{ID: "legacy-sponsor"}}}
	require.NoError(t, s.Save(legacy))
	require.NoError(t, os.Rename(s.path(legacyTenantID), s.legacyPath()))

	got, err := s.Load(99)
	require.NoError(t, err)
	assert.Empty(t, got.Sponsors)
}

func TestImageDir_ScopedPerTenant(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sponsors", "3"), s.ImageDir(3))
}

func TestNextIndex_SequentialWraps(t *testing.T) {
	state := &models.SponsorState{CurrentIndex: map[models.SponsorPosition]int{models.PositionTopLeft: 2}}
	next := NextIndex(state, models.PositionTopLeft, 3, nil)
	assert.Equal(t, 0, next)
}

func TestNextIndex_RandomUsesProvidedFunc(t *testing.T) {
	state := &models.SponsorState{Config: models.SponsorConfig{RotationOrder: models.RotationRandom}}
	next := NextIndex(state, models.PositionTopLeft, 5, func(n int) int { return 4 })
	assert.Equal(t, 4, next)
}

