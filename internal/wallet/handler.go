package wallet

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
)

type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// RegisterRoutes registers the wallet bridge on a session-authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/wallet/connect", h.Connect)
}

// Connect handles GET /wallet/connect
func (h *Handler) Connect(c *gin.Context) {
	sess := session.FromContext(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session token is required"})
		return
	}
	if err := h.manager.HandleConnection(c.Writer, c.Request, sess); err != nil {
		h.logger.Error("Failed to open wallet bridge", zap.String("session_id", sess.ID), zap.Error(err))
	}
}
