package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tournamentlive/internal/push"
)

// handleDisplayUpgrade upgrades a display's connection to the primary
// push channel (§4.5). A display identifies its tenant and kind
// (match/bracket/flyer) via query parameters since it carries no
// session of its own, mirroring the teacher's websocket handler taking
// the room id off the request before calling Hub.register.
func (s *Server) handleDisplayUpgrade(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant id is required"})
		return
	}

	kind := push.DisplayKind(c.Query("kind"))
	switch kind {
	case push.KindMatch, push.KindBracket, push.KindFlyer:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be one of match, bracket, flyer"})
		return
	}

	if err := s.fabric.Accept(s.upgrader, c.Writer, c.Request, tenant, kind); err != nil {
		s.logger.Printf("httpapi: websocket upgrade failed for tenant %d: %v", tenant, err)
	}
}
