// Package push implements the push fabric (C5): fan-out of Push
// Envelopes to tenant-scoped displays over a primary WebSocket channel,
// with per-display ack tracking and an HTTP secondary-channel fallback.
// Grounded on internal/websocket/{hub,client}.go, generalized from
// per-user rooms to tenant rooms (`user:<tenantId>`) carrying a
// display-kind (match, bracket, flyer) registered at connect time.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tournamentlive/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024

	defaultFallbackDelay = 30 * time.Second
	fallbackTimeout      = 5 * time.Second
)

// DisplayKind identifies what a connected display renders.
type DisplayKind string

const (
	KindMatch   DisplayKind = "match"
	KindBracket DisplayKind = "bracket"
	KindFlyer   DisplayKind = "flyer"
)

// Envelope is the outbound wire message wrapping a Push Envelope.
type Envelope struct {
	Type string               `json:"type"`
	Data models.PushEnvelope  `json:"data"`
	Hash string               `json:"hash"`
}

// Governor is the subset of governor.Governor's behavior the push fabric
// needs to regulate its outbound HTTP fallback calls, the one concrete
// side-channel POST path in the system (spec §4.7's rate regulation
// target). Declared locally, the way poller.Fabric narrows what it needs
// from push.Fabric, so this package doesn't import internal/governor.
type Governor interface {
	Submit(ctx context.Context, tenantID int64, task func(ctx context.Context) (interface{}, error)) (interface{}, error)
}

// Fabric owns every connected display and the per-tenant last-delivered
// hash, plus the HTTP fallback client.
type Fabric struct {
	logger        *log.Logger
	fallbackDelay time.Duration
	httpClient    *http.Client
	governor      Governor

	mu          sync.RWMutex
	byTenant    map[int64]map[*Display]bool
	lastHash    map[int64]map[DisplayKind]string
	fallbackURL map[DisplayKind]string

	register   chan *Display
	unregister chan *Display
}

// Display is one connected websocket client.
type Display struct {
	fabric   *Fabric
	conn     *websocket.Conn
	send     chan []byte
	tenantID int64
	kind     DisplayKind

	mu           sync.Mutex
	lastPushTime time.Time
	lastAckTime  time.Time
	pushCount    int
	ackCount     int
}

// New creates a Fabric. fallbackURLs maps each display kind to the
// secondary-channel URL POSTed to when the primary channel falls behind.
// gov, when non-nil, gates every fallback POST through the tenant's rate
// budget; a nil governor sends fallbacks unregulated (used by tests and
// any deployment that runs without C7 configured).
func New(logger *log.Logger, fallbackDelay time.Duration, fallbackURLs map[DisplayKind]string, gov Governor) *Fabric {
	if fallbackDelay <= 0 {
		fallbackDelay = defaultFallbackDelay
	}
	return &Fabric{
		logger:        logger,
		fallbackDelay: fallbackDelay,
		httpClient:    &http.Client{Timeout: fallbackTimeout},
		governor:      gov,
		byTenant:      make(map[int64]map[*Display]bool),
		lastHash:      make(map[int64]map[DisplayKind]string),
		fallbackURL:   fallbackURLs,
		register:      make(chan *Display),
		unregister:    make(chan *Display),
	}
}

// Run drives registration bookkeeping until ctx is cancelled.
func (f *Fabric) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-f.register:
			f.addDisplay(d)
		case d := <-f.unregister:
			f.removeDisplay(d)
		}
	}
}

// Close closes every connected display's socket, for graceful shutdown's
// "close push fabric" step. Run's select loop should already have been
// stopped by cancelling its context before calling this.
func (f *Fabric) Close() {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, clients := range f.byTenant {
		for d := range clients {
			d.conn.Close()
		}
	}
}

func (f *Fabric) addDisplay(d *Display) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byTenant[d.tenantID] == nil {
		f.byTenant[d.tenantID] = make(map[*Display]bool)
	}
	f.byTenant[d.tenantID][d] = true
}

func (f *Fabric) removeDisplay(d *Display) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if clients, ok := f.byTenant[d.tenantID]; ok {
		delete(clients, d)
		if len(clients) == 0 {
			delete(f.byTenant, d.tenantID)
		}
	}
	close(d.send)
}

// Accept upgrades an HTTP connection and registers it as a tenant
// display of the given kind. Returns immediately; pumps run in their
// own goroutines.
func (f *Fabric) Accept(upgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, tenantID int64, kind DisplayKind) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	d := &Display{
		fabric:   f,
		conn:     conn,
		send:     make(chan []byte, 32),
		tenantID: tenantID,
		kind:     kind,
	}
	f.register <- d
	go d.writePump()
	go d.readPump()
	return nil
}

// Deliver runs the §4.5 delivery policy for one tenant+kind payload:
// skip if the hash is unchanged, send to every matching connected
// display over the primary channel, and fall back to the kind's HTTP
// side-channel when no display is connected or any connected display
// has fallen behind on acks.
func (f *Fabric) Deliver(ctx context.Context, env models.PushEnvelope, kind DisplayKind) {
	hash := env.Hash()

	f.mu.Lock()
	if f.lastHash[env.TenantID] == nil {
		f.lastHash[env.TenantID] = make(map[DisplayKind]string)
	}
	if f.lastHash[env.TenantID][kind] == hash {
		f.mu.Unlock()
		return
	}
	f.lastHash[env.TenantID][kind] = hash
	displays := make([]*Display, 0)
	for d := range f.byTenant[env.TenantID] {
		if d.kind == kind {
			displays = append(displays, d)
		}
	}
	f.mu.Unlock()

	msg := Envelope{Type: "snapshot", Data: env, Hash: hash}
	data, err := json.Marshal(msg)
	if err != nil {
		f.logger.Printf("push: failed to marshal envelope for tenant %d: %v", env.TenantID, err)
		return
	}

	needsFallback := len(displays) == 0
	for _, d := range displays {
		d.mu.Lock()
		previousPush := d.lastPushTime
		lastAck := d.lastAckTime
		d.lastPushTime = time.Now().UTC()
		d.pushCount++
		d.mu.Unlock()

		select {
		case d.send <- data:
		default:
			f.unregister <- d
		}

		// A display's first push has nothing to measure staleness
		// against yet; only check once there was a previous push it
		// could have acked by now.
		if !previousPush.IsZero() {
			status := models.AckStatus{LastPushTime: previousPush, LastAckTime: lastAck}
			if status.NeedsHTTPFallback(f.fallbackDelay) {
				needsFallback = true
			}
		}
	}

	if needsFallback {
		f.sendFallback(ctx, env, kind)
	}
}

func (f *Fabric) sendFallback(ctx context.Context, env models.PushEnvelope, kind DisplayKind) {
	url, ok := f.fallbackURL[kind]
	if !ok || url == "" {
		return
	}
	body, err := json.Marshal(env)
	if err != nil {
		f.logger.Printf("push: fallback marshal failed for tenant %d: %v", env.TenantID, err)
		return
	}

	post := func(ctx context.Context) (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return f.httpClient.Do(req)
	}

	var result interface{}
	if f.governor != nil {
		result, err = f.governor.Submit(ctx, env.TenantID, post)
	} else {
		result, err = post(ctx)
	}
	if err != nil {
		f.logger.Printf("push: secondary channel failed for tenant %d kind %s: %v", env.TenantID, kind, err)
		return
	}
	resp, _ := result.(*http.Response)
	if resp == nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		f.logger.Printf("push: secondary channel for tenant %d kind %s returned %d", env.TenantID, kind, resp.StatusCode)
	}
}

// ClientMessage is an inbound frame from a connected display.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (d *Display) readPump() {
	defer func() {
		d.fabric.unregister <- d
		d.conn.Close()
	}()

	d.conn.SetReadLimit(maxMessageSize)
	d.conn.SetReadDeadline(time.Now().Add(pongWait))
	d.conn.SetPongHandler(func(string) error {
		d.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := d.conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "ack" {
			var ack struct {
				Hash string `json:"hash"`
			}
			if err := json.Unmarshal(msg.Data, &ack); err == nil {
				d.mu.Lock()
				d.lastAckTime = time.Now().UTC()
				d.ackCount++
				d.mu.Unlock()
			}
		}
	}
}

func (d *Display) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		d.conn.Close()
	}()

	for {
		select {
		case message, ok := <-d.send:
			d.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				d.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := d.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			d.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := d.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
