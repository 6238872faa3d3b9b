package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerPullRoutes(api *gin.RouterGroup) {
	api.GET("/matches/current", s.handleGetCurrentSnapshot)
}

// handleGetCurrentSnapshot serves the pull surface for a late-arriving
// display: the most recent Push Envelope, straight from the media-state
// cache (§4.8, §6) rather than recomputing a fresh snapshot, since the
// cache is exactly what the primary/secondary push paths already keep
// current.
func (s *Server) handleGetCurrentSnapshot(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant id is required"})
		return
	}

	env, ok := s.cache.Get(tenant)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot available for tenant"})
		return
	}
	c.JSON(http.StatusOK, env)
}
