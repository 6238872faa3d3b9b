package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tournamentlive/internal/governor"
)

func (s *Server) registerGovernorRoutes(api *gin.RouterGroup) {
	gov := api.Group("/governor")
	gov.Use(requireTenant())
	{
		gov.PUT("/override", s.handleSetGovernorOverride)
		gov.DELETE("/override", s.handleClearGovernorOverride)
		gov.POST("/dev-bypass/activate", s.handleActivateDevBypass)
		gov.POST("/dev-bypass/deactivate", s.handleDeactivateDevBypass)
	}
}

type setGovernorOverrideRequest struct {
	Mode governor.Mode `json:"mode" binding:"required"`
}

func (s *Server) handleSetGovernorOverride(c *gin.Context) {
	var req setGovernorOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	if err := s.coordinator.SetGovernorOverride(c.Request.Context(), tenant, actor(c), req.Mode); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "override set"})
}

func (s *Server) handleClearGovernorOverride(c *gin.Context) {
	tenant, _ := tenantID(c)

	if err := s.coordinator.ClearGovernorOverride(c.Request.Context(), tenant, actor(c)); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "override cleared"})
}

func (s *Server) handleActivateDevBypass(c *gin.Context) {
	tenant, _ := tenantID(c)

	if err := s.coordinator.ActivateGovernorDevBypass(c.Request.Context(), tenant, actor(c)); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "dev bypass activated"})
}

func (s *Server) handleDeactivateDevBypass(c *gin.Context) {
	tenant, _ := tenantID(c)

	if err := s.coordinator.DeactivateGovernorDevBypass(c.Request.Context(), tenant, actor(c)); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "dev bypass deactivated"})
}
