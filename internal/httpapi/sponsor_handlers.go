package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tournamentlive/internal/models"
)

func (s *Server) registerSponsorRoutes(api *gin.RouterGroup) {
	sponsors := api.Group("/sponsors")
	sponsors.Use(requireTenant())
	{
		sponsors.PUT("/config", s.handleUpdateSponsorConfig)
		sponsors.POST("/items", s.handleUploadSponsorItem)
		sponsors.DELETE("/items/:id", s.handleDeleteSponsorItem)
	}
}

func (s *Server) handleUpdateSponsorConfig(c *gin.Context) {
	var config models.SponsorConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	state, err := s.coordinator.UpdateSponsorConfig(c.Request.Context(), tenant, actor(c), config)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sponsorState": state})
}

func (s *Server) handleUploadSponsorItem(c *gin.Context) {
	var item models.SponsorItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	state, err := s.coordinator.UploadSponsorItem(c.Request.Context(), tenant, actor(c), item)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sponsorState": state})
}

func (s *Server) handleDeleteSponsorItem(c *gin.Context) {
	itemID := c.Param("id")
	tenant, _ := tenantID(c)

	state, err := s.coordinator.DeleteSponsorItem(c.Request.Context(), tenant, actor(c), itemID)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sponsorState": state})
}
