package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tournamentlive/internal/models"
)

func (s *Server) registerBracketRoutes(api *gin.RouterGroup) {
	tournaments := api.Group("/tournaments")
	tournaments.Use(requireTenant())
	{
		tournaments.POST("/:id/generate-bracket", s.handleGenerateBracket)
		tournaments.POST("/:id/advance-swiss-round", s.handleAdvanceSwissRound)
		tournaments.POST("/:id/advance-knockout-stage", s.handleAdvanceKnockoutStage)
		tournaments.POST("/:id/advance-free-for-all-round", s.handleAdvanceFreeForAllRound)
		tournaments.POST("/:id/leaderboard-events", s.handleAddLeaderboardEvent)
	}
}

type generateBracketRequest struct {
	Format  models.TournamentFormat `json:"format" binding:"required"`
	Options models.FormatOptions    `json:"options"`
}

func (s *Server) handleGenerateBracket(c *gin.Context) {
	tournamentID := c.Param("id")

	var req generateBracketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	matches, err := s.coordinator.GenerateBracket(c.Request.Context(), tenant, actor(c), tournamentID, req.Format, req.Options)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (s *Server) handleAdvanceSwissRound(c *gin.Context) {
	tournamentID := c.Param("id")
	tenant, _ := tenantID(c)

	matches, err := s.coordinator.AdvanceSwissRound(c.Request.Context(), tenant, actor(c), tournamentID)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (s *Server) handleAdvanceKnockoutStage(c *gin.Context) {
	tournamentID := c.Param("id")
	tenant, _ := tenantID(c)

	matches, err := s.coordinator.AdvanceKnockoutStage(c.Request.Context(), tenant, actor(c), tournamentID)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (s *Server) handleAdvanceFreeForAllRound(c *gin.Context) {
	tournamentID := c.Param("id")
	tenant, _ := tenantID(c)

	matches, err := s.coordinator.AdvanceFreeForAllRound(c.Request.Context(), tenant, actor(c), tournamentID)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

type addLeaderboardEventRequest struct {
	Placements []string `json:"placements" binding:"required"`
}

func (s *Server) handleAddLeaderboardEvent(c *gin.Context) {
	tournamentID := c.Param("id")

	var req addLeaderboardEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant, _ := tenantID(c)

	match, err := s.coordinator.AddLeaderboardEvent(c.Request.Context(), tenant, actor(c), tournamentID, req.Placements)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": match})
}
