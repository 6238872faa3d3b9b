package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tournamentlive/internal/models"
)

func (s *Server) registerMatchRoutes(api *gin.RouterGroup) {
	matches := api.Group("/matches")
	matches.Use(requireTenant())
	{
		matches.POST("/report-result", s.handleReportResult)
		matches.POST("/forfeit", s.handleForfeit)
		matches.POST("/reopen", s.handleReopen)
		matches.POST("/assign-station", s.handleAssignStation)
		matches.POST("/release-station", s.handleReleaseStation)
		matches.POST("/start-underway", s.handleStartUnderway)
		matches.POST("/mark-not-underway", s.handleMarkNotUnderway)
	}
}

type reportResultRequest struct {
	MatchID  string         `json:"matchId" binding:"required"`
	WinnerID string         `json:"winnerId" binding:"required"`
	Scores   *models.Scores `json:"scores"`
}

func (s *Server) handleReportResult(c *gin.Context) {
	var req reportResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	affected, err := s.coordinator.ReportResult(c.Request.Context(), tenant, actor(c), req.MatchID, req.WinnerID, req.Scores)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": affected})
}

type forfeitRequest struct {
	MatchID     string `json:"matchId" binding:"required"`
	ForfeitedID string `json:"forfeitedId" binding:"required"`
}

func (s *Server) handleForfeit(c *gin.Context) {
	var req forfeitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	affected, err := s.coordinator.ForfeitPlayer(c.Request.Context(), tenant, actor(c), req.MatchID, req.ForfeitedID)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": affected})
}

type matchIDRequest struct {
	MatchID string `json:"matchId" binding:"required"`
}

func (s *Server) handleReopen(c *gin.Context) {
	var req matchIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	if err := s.coordinator.UndoResult(c.Request.Context(), tenant, actor(c), req.MatchID); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match reopened"})
}

type assignStationRequest struct {
	MatchID   string `json:"matchId" binding:"required"`
	StationID string `json:"stationId" binding:"required"`
}

func (s *Server) handleAssignStation(c *gin.Context) {
	var req assignStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	if err := s.coordinator.AssignStation(c.Request.Context(), tenant, actor(c), req.MatchID, req.StationID); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "station assigned"})
}

func (s *Server) handleReleaseStation(c *gin.Context) {
	var req matchIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	if err := s.coordinator.ReleaseStation(c.Request.Context(), tenant, actor(c), req.MatchID); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "station released"})
}

func (s *Server) handleStartUnderway(c *gin.Context) {
	var req matchIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	if err := s.coordinator.StartUnderway(c.Request.Context(), tenant, actor(c), req.MatchID); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match underway"})
}

func (s *Server) handleMarkNotUnderway(c *gin.Context) {
	var req matchIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	if err := s.coordinator.MarkNotUnderway(c.Request.Context(), tenant, actor(c), req.MatchID); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match no longer underway"})
}
