package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerAdminRoutes(api *gin.RouterGroup) {
	admin := api.Group("/admin")
	admin.Use(requireTenant())
	{
		admin.POST("/impersonate", s.handleStartImpersonation)
	}
}

func (s *Server) handleStartImpersonation(c *gin.Context) {
	tenant, _ := tenantID(c)
	issuer := actor(c)

	token, err := s.coordinator.StartImpersonation(c.Request.Context(), tenant, issuer)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
