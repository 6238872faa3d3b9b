package snapshotcache

import (
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func testLogger() *log.Logger {
	return log.New(os.Stdout, "test: ", 0)
}

func TestPutThenGet_RoundTripsEnvelope(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 0, testLogger())
	require.NoError(t, err)

	env := models.PushEnvelope{TenantID: 7, TournamentSlug: "spring-open"}
	require.NoError(t, c.Put(7, env))

	got, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, "spring-open", got.TournamentSlug)
	assert.Equal(t, models.SourceCache, got.Source)
	assert.False(t, got.IsStale)
}

func TestGet_MissingTenantReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 0, testLogger())
	require.NoError(t, err)

	_, ok := c.Get(999)
	assert.False(t, ok)
}

func TestGet_MarksStaleBeyondThreshold(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 10*time.Millisecond, testLogger())
	require.NoError(t, err)

	require.NoError(t, c.Put(1, models.PushEnvelope{TenantID: 1}))
	time.Sleep(25 * time.Millisecond)

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.True(t, got.IsStale)
	assert.Greater(t, got.CacheAgeMs, int64(0))
}

func TestGet_LoadsLazilyFromDiskOnFreshInstance(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir, 0, testLogger())
	require.NoError(t, err)
	require.NoError(t, first.Put(3, models.PushEnvelope{TenantID: 3, TournamentSlug: "loaded-from-disk"}))

	second, err := New(dir, 0, testLogger())
	require.NoError(t, err)
	got, ok := second.Get(3)
	require.True(t, ok)
	assert.Equal(t, "loaded-from-disk", got.TournamentSlug)
}

func TestGet_CorruptFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "push-envelope-5.json"), []byte("not json"), 0o644))

	c, err := New(dir, 0, testLogger())
	require.NoError(t, err)
	_, ok := c.Get(5)
	assert.False(t, ok)
}
