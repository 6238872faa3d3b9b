package push

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournamentlive/internal/models"
)

func testLogger() *log.Logger {
	return log.New(os.Stdout, "test: ", 0)
}

func TestDeliver_NoDisplaysConnectedUsesFallback(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(testLogger(), 0, map[DisplayKind]string{KindMatch: srv.URL}, nil)
	f.Deliver(context.Background(), models.PushEnvelope{TenantID: 1, TournamentSlug: "a"}, KindMatch)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDeliver_SkipsUnchangedHash(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	f := New(testLogger(), 0, map[DisplayKind]string{KindMatch: srv.URL}, nil)
	env := models.PushEnvelope{TenantID: 1, TournamentSlug: "a"}
	f.Deliver(context.Background(), env, KindMatch)
	f.Deliver(context.Background(), env, KindMatch)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDeliver_ChangedPayloadRetriggersFallback(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	f := New(testLogger(), 0, map[DisplayKind]string{KindMatch: srv.URL}, nil)
	f.Deliver(context.Background(), models.PushEnvelope{TenantID: 1, TournamentSlug: "a"}, KindMatch)
	f.Deliver(context.Background(), models.PushEnvelope{TenantID: 1, TournamentSlug: "b"}, KindMatch)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestDeliver_NoFallbackURLConfiguredIsANoop(t *testing.T) {
	f := New(testLogger(), 0, map[DisplayKind]string{}, nil)
	require.NotPanics(t, func() {
		f.Deliver(context.Background(), models.PushEnvelope{TenantID: 1}, KindBracket)
	})
}

func TestDeliver_ConnectedNeverAckedDisplayGetsNoImmediateFallback(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	f := New(testLogger(), 50*time.Millisecond, map[DisplayKind]string{KindMatch: srv.URL}, nil)
	d := &Display{fabric: f, send: make(chan []byte, 32), tenantID: 1, kind: KindMatch}
	f.addDisplay(d)

	f.Deliver(context.Background(), models.PushEnvelope{TenantID: 1, TournamentSlug: "a"}, KindMatch)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "a freshly connected, never-acked display should not trigger fallback on its first push")
}

func TestDeliver_ConnectedNeverAckedDisplayFallsBackAfterDelayElapses(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	f := New(testLogger(), 50*time.Millisecond, map[DisplayKind]string{KindMatch: srv.URL}, nil)
	d := &Display{fabric: f, send: make(chan []byte, 32), tenantID: 1, kind: KindMatch}
	f.addDisplay(d)

	f.Deliver(context.Background(), models.PushEnvelope{TenantID: 1, TournamentSlug: "a"}, KindMatch)
	require.Equal(t, int32(0), atomic.LoadInt32(&hits))

	d.mu.Lock()
	d.lastPushTime = time.Now().UTC().Add(-2 * f.fallbackDelay)
	d.mu.Unlock()

	f.Deliver(context.Background(), models.PushEnvelope{TenantID: 1, TournamentSlug: "b"}, KindMatch)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "fallback should fire once the display has gone unacked for longer than fallbackDelay")
}

type fakeGovernor struct {
	calls int32
}

func (g *fakeGovernor) Submit(ctx context.Context, tenantID int64, task func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	atomic.AddInt32(&g.calls, 1)
	return task(ctx)
}

func TestDeliver_RoutesFallbackThroughGovernorWhenConfigured(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	gov := &fakeGovernor{}
	f := New(testLogger(), 0, map[DisplayKind]string{KindMatch: srv.URL}, gov)
	f.Deliver(context.Background(), models.PushEnvelope{TenantID: 1, TournamentSlug: "a"}, KindMatch)

	assert.Equal(t, int32(1), atomic.LoadInt32(&gov.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDeliver_FallbackBodyCarriesEnvelope(t *testing.T) {
	received := make(chan models.PushEnvelope, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env models.PushEnvelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		received <- env
	}))
	defer srv.Close()

	f := New(testLogger(), 0, map[DisplayKind]string{KindFlyer: srv.URL}, nil)
	f.Deliver(context.Background(), models.PushEnvelope{TenantID: 9, TournamentSlug: "flyer-test"}, KindFlyer)

	env := <-received
	assert.Equal(t, "flyer-test", env.TournamentSlug)
	assert.Equal(t, int64(9), env.TenantID)
}
