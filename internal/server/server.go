// internal/server/server.go
// HTTP server setup with dependency injection

package server

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tournamentlive/internal/cache"
	"tournamentlive/internal/config"
	"tournamentlive/internal/coordinator"
	"tournamentlive/internal/database"
	"tournamentlive/internal/governor"
	"tournamentlive/internal/httpapi"
	"tournamentlive/internal/journal"
	"tournamentlive/internal/models"
	"tournamentlive/internal/poller"
	"tournamentlive/internal/push"
	"tournamentlive/internal/snapshotcache"
	"tournamentlive/internal/sponsor"
	"tournamentlive/internal/store"
	"tournamentlive/internal/timer"
)

// Server represents the HTTP server and every engine component wired
// under it, so Start/Shutdown can sequence their lifecycles together.
type Server struct {
	config *config.Config
	router *gin.Engine
	logger *log.Logger
	server *http.Server

	db     *database.Connections
	fabric *push.Fabric
	poller *poller.Poller
	timers *timer.Scheduler

	fabricCancel context.CancelFunc
	pollerCancel context.CancelFunc
}

// New creates a new server with all dependencies wired: the match store,
// activity journal, media-state cache, sponsor store, push fabric,
// tenant poller, timer scheduler, rate governor and per-tenant command
// coordinator, then the HTTP layer dispatching into them.
func New(cfg *config.Config, db *database.Connections, logger *log.Logger) (*Server, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	st := store.New(db.MySQL)
	j := journal.New(db.MongoDB, logger, nil)

	snapshots, err := snapshotcache.New(cfg.Engine.SnapshotCacheDir, cfg.Engine.SnapshotStaleThreshold, logger)
	if err != nil {
		return nil, fmt.Errorf("server: create snapshot cache: %w", err)
	}

	sponsors, err := sponsor.New(cfg.Engine.SponsorStateDir)
	if err != nil {
		return nil, fmt.Errorf("server: create sponsor store: %w", err)
	}

	gov := governor.New(db.Redis, logger, governor.Rates{
		Idle:     cfg.Engine.GovernorIdleRate,
		Upcoming: cfg.Engine.GovernorUpcomingRate,
		Active:   cfg.Engine.GovernorActiveRate,
	}, nil)

	fabric := push.New(logger, cfg.Engine.FallbackDelay, nil, gov)

	activeCache := cache.New(db.Redis, logger)
	tenantPoller := poller.New(st, snapshots, activeCache, fabric, logger, cfg.Engine.PollInterval, cfg.Engine.LegacyTournamentID)

	timers := timer.NewScheduler(logger,
		func(tenantID int64, tournamentID, matchID, participantID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := st.SetForfeit(ctx, matchID, participantID); err != nil {
				logger.Printf("server: auto-dq forfeit failed for match %s: %v", matchID, err)
				return
			}
			tenantPoller.RequestImmediate(tenantID)
		},
		func(tenantID int64, key models.DQTimerKey, event string, t *models.DQTimer) {
			j.Append(context.Background(), tenantID, "system", "timer."+event, map[string]interface{}{
				"matchId": key.MatchID,
			})
		},
	)

	sponsorSched := timer.NewSponsorScheduler(sponsors, logger,
		func(tenantID int64, position models.SponsorPosition, item models.SponsorItem, transitionMs int) {
			logger.Printf("server: sponsor rotation fired for tenant %d position %s", tenantID, position)
		},
		func(tenantID int64, visible bool, items []models.SponsorItem) {
			logger.Printf("server: sponsor visibility cycle fired for tenant %d visible=%v", tenantID, visible)
		},
		rand.IntN,
	)

	coord := coordinator.New(st, j, tenantPoller, timers, sponsors, sponsorSched, gov, []byte(cfg.Auth.JWTSecret))

	api := httpapi.New(logger, st, coord, timers, sponsors, sponsorSched, gov, fabric, snapshots, j)

	router := setupRouter(cfg, api, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		config: cfg,
		router: router,
		logger: logger,
		server: srv,
		db:     db,
		fabric: fabric,
		poller: tenantPoller,
		timers: timers,
	}, nil
}

// setupRouter configures all routes and middleware
func setupRouter(cfg *config.Config, api *httpapi.Server, logger *log.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID", "X-Tenant-ID", "X-Actor-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * 3600, // 12 hours
	}))

	// Maintenance mode middleware
	if cfg.Features.MaintenanceMode {
		router.Use(maintenanceMode())
	}

	// Health check (always available)
	router.GET("/health", healthCheck(cfg))

	// Engine routes, command surface plus pull/websocket endpoints
	api.RegisterRoutes(router)

	return router
}

// healthCheck reports liveness and the running environment, mirroring
// the teacher's api.HealthCheck(cfg) handler.
func healthCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	}
}

// maintenanceMode rejects every request with 503 while the flag is set,
// mirroring the teacher's middleware.MaintenanceMode().
func maintenanceMode() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service is under maintenance"})
		c.Abort()
	}
}

// Start runs the push fabric and tenant poller in the background, then
// blocks serving HTTP until the listener is closed.
func (s *Server) Start() error {
	fabricCtx, fabricCancel := context.WithCancel(context.Background())
	s.fabricCancel = fabricCancel
	go s.fabric.Run(fabricCtx)

	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	s.pollerCancel = pollerCancel
	go s.poller.Run(pollerCtx)

	return s.server.ListenAndServe()
}

// Shutdown runs the shutdown sequence: stop accepting new commands, stop
// the tenant poller, cancel all DQ timers (sponsor rotation and cycling
// schedules are not stopped), flush the journal, close the push fabric,
// close the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("server: no longer accepting new commands")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Printf("server: forced HTTP shutdown: %v", err)
	}

	s.logger.Println("server: stopping tenant poller")
	if s.pollerCancel != nil {
		s.pollerCancel()
	}

	s.logger.Println("server: cancelling all timers")
	s.timers.CancelAll()

	s.logger.Println("server: journal writes are synchronous, nothing buffered to flush")

	s.logger.Println("server: closing push fabric")
	if s.fabricCancel != nil {
		s.fabricCancel()
	}
	s.fabric.Close()

	s.logger.Println("server: closing store connections")
	s.db.Close()

	return nil
}
