package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tournamentlive/internal/models"
	"tournamentlive/internal/timer"
)

func (s *Server) registerTimerRoutes(api *gin.RouterGroup) {
	timers := api.Group("/timers")
	timers.Use(requireTenant())
	{
		timers.POST("/dq/start", s.handleStartDQTimer)
		timers.POST("/dq/cancel", s.handleCancelDQTimer)
		timers.GET("/dq", s.handleListDQTimers)
	}
}

type startDQTimerRequest struct {
	TournamentID            string `json:"tournamentId" binding:"required"`
	MatchID                 string `json:"matchId" binding:"required"`
	Station                 string `json:"station" binding:"required"`
	DurationSeconds         int    `json:"durationSeconds" binding:"required"`
	WarningThresholdSeconds int    `json:"warningThresholdSeconds"`
	ParticipantID           string `json:"participantId" binding:"required"`
	ParticipantName         string `json:"participantName"`
	AutoDQAction            string `json:"autoDqAction"`
}

func (s *Server) handleStartDQTimer(c *gin.Context) {
	var req startDQTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	mode := timer.AutoDQNotify
	if req.AutoDQAction == string(timer.AutoDQForfeit) {
		mode = timer.AutoDQForfeit
	}

	dqTimer, err := s.coordinator.StartDQTimer(c.Request.Context(), tenant, actor(c),
		req.TournamentID, req.MatchID, req.Station,
		req.DurationSeconds, req.WarningThresholdSeconds,
		req.ParticipantID, req.ParticipantName, mode)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timer": dqTimer})
}

type cancelDQTimerRequest struct {
	TournamentID string `json:"tournamentId" binding:"required"`
	MatchID      string `json:"matchId" binding:"required"`
	Station      string `json:"station" binding:"required"`
}

func (s *Server) handleCancelDQTimer(c *gin.Context) {
	var req cancelDQTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	key := models.DQTimerKey{TournamentID: req.TournamentID, MatchID: req.MatchID, Station: req.Station}
	if err := s.coordinator.CancelDQTimer(c.Request.Context(), tenant, actor(c), key); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "timer cancelled"})
}

func (s *Server) handleListDQTimers(c *gin.Context) {
	tenant, _ := tenantID(c)
	c.JSON(http.StatusOK, gin.H{"timers": s.coordinator.ListDQTimers(tenant)})
}
