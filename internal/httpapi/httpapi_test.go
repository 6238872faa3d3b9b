package httpapi

import (
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/coordinator"
	"tournamentlive/internal/governor"
	"tournamentlive/internal/journal"
	"tournamentlive/internal/snapshotcache"
	"tournamentlive/internal/sponsor"
	"tournamentlive/internal/timer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *log.Logger {
	return log.New(os.Stdout, "test: ", 0)
}

// newTestServer builds a Server with no match store, the same
// no-real-database precedent used by internal/coordinator's tests:
// only the handlers whose commands never touch the match store
// (sponsors, timers, governor, admin, pull) can be exercised this way.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	j := journal.New(nil, testLogger(), nil)
	timers := timer.NewScheduler(testLogger(), nil, nil)

	sponsors, err := sponsor.New(t.TempDir())
	require.NoError(t, err)
	sponsorSched := timer.NewSponsorScheduler(sponsors, testLogger(), nil, nil, func(n int) int { return 0 })

	gov := governor.New(nil, testLogger(), governor.DefaultRates(), nil)

	coord := coordinator.New(nil, j, nil, timers, sponsors, sponsorSched, gov, []byte("test-secret"))

	cache, err := snapshotcache.New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)

	return New(testLogger(), nil, coord, timers, sponsors, sponsorSched, gov, nil, cache, j)
}

func newTestRouter(s *Server) *gin.Engine {
	router := gin.New()
	s.RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTenantID_MissingReturns400OnTenantScopedRoutes(t *testing.T) {
	router := newTestRouter(newTestServer(t))
	rec := doRequest(router, http.MethodGet, "/api/timers/dq", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantID_ReadFromQueryParam(t *testing.T) {
	router := newTestRouter(newTestServer(t))
	rec := doRequest(router, http.MethodGet, "/api/timers/dq?tenant=7", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"timers":null}`, rec.Body.String())
}

func TestTenantID_ReadFromHeader(t *testing.T) {
	router := newTestRouter(newTestServer(t))
	req := httptest.NewRequest(http.MethodGet, "/api/timers/dq", nil)
	req.Header.Set("X-Tenant-ID", "7")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGetCurrentSnapshot_404sWhenNoSnapshotExists(t *testing.T) {
	router := newTestRouter(newTestServer(t))
	rec := doRequest(router, http.MethodGet, "/api/matches/current?tenant=1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStartImpersonation_ReturnsSignedToken(t *testing.T) {
	router := newTestRouter(newTestServer(t))
	rec := doRequest(router, http.MethodPost, "/api/admin/impersonate?tenant=9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"`)
}

func TestSponsorRoutes_UploadUpdateAndDelete(t *testing.T) {
	router := newTestRouter(newTestServer(t))

	rec := doRequest(router, http.MethodPut, "/api/sponsors/config?tenant=3", `{"enabled":true,"rotation_order":"sequential"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/sponsors/items?tenant=3", `{"id":"item-1","filename":"a.png","position":"top-left","active":true,"type":"image"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"item-1"`)

	rec = doRequest(router, http.MethodDelete, "/api/sponsors/items/item-1?tenant=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"item-1"`)
}

func TestSponsorRoutes_DeleteUnknownItemReturns404(t *testing.T) {
	router := newTestRouter(newTestServer(t))
	rec := doRequest(router, http.MethodDelete, "/api/sponsors/items/does-not-exist?tenant=3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGovernorRoutes_SetAndClearOverride(t *testing.T) {
	router := newTestRouter(newTestServer(t))

	rec := doRequest(router, http.MethodPut, "/api/governor/override?tenant=5", `{"mode":"active"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodDelete, "/api/governor/override?tenant=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGovernorRoutes_DevBypassActivateAndDeactivate(t *testing.T) {
	router := newTestRouter(newTestServer(t))

	rec := doRequest(router, http.MethodPost, "/api/governor/dev-bypass/activate?tenant=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodPost, "/api/governor/dev-bypass/deactivate?tenant=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTimerRoutes_StartListAndCancel(t *testing.T) {
	router := newTestRouter(newTestServer(t))

	rec := doRequest(router, http.MethodPost, "/api/timers/dq/start?tenant=2", `{
		"tournamentId":"t1","matchId":"m1","station":"s1",
		"durationSeconds":60,"participantId":"p1"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/timers/dq?tenant=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"m1"`)

	rec = doRequest(router, http.MethodPost, "/api/timers/dq/cancel?tenant=2", `{"tournamentId":"t1","matchId":"m1","station":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMatchRoutes_MissingRequiredFieldReturns400BeforeReachingCoordinator(t *testing.T) {
	router := newTestRouter(newTestServer(t))
	rec := doRequest(router, http.MethodPost, "/api/matches/report-result?tenant=1", `{"matchId":"m1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisplayUpgrade_RejectsUnknownKind(t *testing.T) {
	router := newTestRouter(newTestServer(t))
	rec := doRequest(router, http.MethodGet, "/ws/displays?tenant=1&kind=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisplayUpgrade_RequiresTenant(t *testing.T) {
	router := newTestRouter(newTestServer(t))
	rec := doRequest(router, http.MethodGet, "/ws/displays?kind=match", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
