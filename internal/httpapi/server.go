// Package httpapi registers the §6 external HTTP surface: the command
// endpoints the coordinator serializes, the pull endpoint for
// late-arriving displays, and the websocket upgrade endpoint for the
// primary push channel. The secondary push fallback is an outbound POST
// made by internal/push; no fallback endpoint is served here. Grounded on
// the teacher's internal/api/routes.go route-registration style (one
// RegisterXRoutes function per concern, wired against a shared
// dependency container) and gorilla/websocket's http.Handler-friendly
// upgrade pattern already used by internal/push.
package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tournamentlive/internal/apperrors"
	"tournamentlive/internal/coordinator"
	"tournamentlive/internal/governor"
	"tournamentlive/internal/journal"
	"tournamentlive/internal/push"
	"tournamentlive/internal/snapshotcache"
	"tournamentlive/internal/sponsor"
	"tournamentlive/internal/store"
	"tournamentlive/internal/timer"
)

// Server bundles every component the HTTP layer dispatches into.
type Server struct {
	logger      *log.Logger
	store       *store.Store
	coordinator *coordinator.Coordinator
	timers      *timer.Scheduler
	sponsors    *sponsor.Store
	sponsorSched *timer.SponsorScheduler
	governor    *governor.Governor
	fabric      *push.Fabric
	cache       *snapshotcache.Cache
	journal     *journal.Journal
	upgrader    websocket.Upgrader
}

// New builds a Server. Every dependency is constructed by
// internal/server.New and started by its Server.Start; Server only wires
// HTTP handlers onto them.
func New(
	logger *log.Logger,
	st *store.Store,
	coord *coordinator.Coordinator,
	timers *timer.Scheduler,
	sponsors *sponsor.Store,
	sponsorSched *timer.SponsorScheduler,
	gov *governor.Governor,
	fabric *push.Fabric,
	cache *snapshotcache.Cache,
	j *journal.Journal,
) *Server {
	return &Server{
		logger:       logger,
		store:        st,
		coordinator:  coord,
		timers:       timers,
		sponsors:     sponsors,
		sponsorSched: sponsorSched,
		governor:     gov,
		fabric:       fabric,
		cache:        cache,
		journal:      j,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes wires every route group onto router.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.Use(RequestID(), Logger(s.logger))

	api := router.Group("/api")
	{
		s.registerMatchRoutes(api)
		s.registerTimerRoutes(api)
		s.registerBracketRoutes(api)
		s.registerAdminRoutes(api)
		s.registerSponsorRoutes(api)
		s.registerGovernorRoutes(api)
		s.registerPullRoutes(api)
	}

	router.GET("/ws/displays", s.handleDisplayUpgrade)
}

func httpError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	c.JSON(apperrors.HTTPStatus(kind), gin.H{"error": err.Error()})
}
