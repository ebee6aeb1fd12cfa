package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler exposes session lifecycle endpoints.
type Handler struct {
	store  *Store
	tokens *TokenIssuer
	logger *zap.Logger
}

func NewHandler(store *Store, tokens *TokenIssuer, logger *zap.Logger) *Handler {
	return &Handler{store: store, tokens: tokens, logger: logger}
}

// RegisterRoutes registers the public create route on rg and the
// authenticated routes on authed.
func (h *Handler) RegisterRoutes(rg, authed *gin.RouterGroup) {
	rg.POST("/sessions", h.CreateSession)

	authed.GET("/session", h.GetSession)
	authed.DELETE("/session", h.EndSession)
	authed.DELETE("/session/wallet", h.DisconnectWallet)
}

type createSessionResponse struct {
	Session   Snapshot  `json:"session"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateSession handles POST /sessions
func (h *Handler) CreateSession(c *gin.Context) {
	sess := h.store.Create()
	token, exp, err := h.tokens.Issue(sess.ID)
	if err != nil {
		h.store.Delete(sess.ID)
		h.logger.Error("Failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	h.logger.Info("Session created", zap.String("session_id", sess.ID))
	c.JSON(http.StatusCreated, createSessionResponse{
		Session:   sess.Snapshot(),
		Token:     token,
		ExpiresAt: exp,
	})
}

// GetSession handles GET /session
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, FromContext(c).Snapshot())
}

// EndSession handles DELETE /session
func (h *Handler) EndSession(c *gin.Context) {
	sess := FromContext(c)
	h.store.Delete(sess.ID)
	c.Status(http.StatusNoContent)
}

// DisconnectWallet handles DELETE /session/wallet
func (h *Handler) DisconnectWallet(c *gin.Context) {
	sess := FromContext(c)
	signer, err := sess.Signer()
	if err != nil {
		c.JSON(http.StatusOK, sess.Snapshot())
		return
	}

	if err := signer.Disconnect(c.Request.Context()); err != nil {
		h.logger.Warn("Wallet disconnect failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	sess.Detach(signer)

	h.logger.Info("Wallet disconnected", zap.String("session_id", sess.ID))
	c.JSON(http.StatusOK, sess.Snapshot())
}
