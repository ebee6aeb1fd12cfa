package marketplace

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/outcome"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
)

// Handler handles HTTP requests for the marketplace
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers marketplace routes on an authenticated group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	m := router.Group("/marketplace")
	{
		m.GET("/catalog", h.getCatalog)
		m.GET("/stats", h.getStats)

		m.GET("/listings", h.listListings)
		m.POST("/listings", h.listForSale)
		m.POST("/listings/import", h.importListing)
		m.GET("/listings/:id", h.getListing)
		m.POST("/listings/:id/buy", h.buy)

		m.POST("/treasury/purchase", h.purchaseFromTreasury)

		m.GET("/projects", h.listProjects)
		m.POST("/projects", h.registerProject)

		m.GET("/wizard", h.getWizard)
		m.PATCH("/wizard", h.updateWizard)
		m.POST("/wizard/preset", h.applyPreset)
		m.POST("/wizard/next", h.nextStep)
		m.POST("/wizard/back", h.prevStep)
		m.POST("/wizard/reset", h.resetWizard)
		m.POST("/wizard/submit", h.submitWizard)
	}
}

func (h *Handler) getCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Catalog())
}

func (h *Handler) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats(session.FromContext(c)))
}

// listListings handles GET /marketplace/listings?category=
func (h *Handler) listListings(c *gin.Context) {
	listings := h.service.Listings(session.FromContext(c), c.DefaultQuery("category", CategoryAll))
	c.JSON(http.StatusOK, gin.H{"listings": listings, "total": len(listings)})
}

func (h *Handler) getListing(c *gin.Context) {
	listing, err := h.service.Listing(session.FromContext(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// buy handles POST /marketplace/listings/:id/buy
func (h *Handler) buy(c *gin.Context) {
	result, err := h.service.Buy(c.Request.Context(), session.FromContext(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// importListing handles POST /marketplace/listings/import
func (h *Handler) importListing(c *gin.Context) {
	var req ImportListingData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	listing, err := h.service.ImportListing(c.Request.Context(), session.FromContext(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// listForSale handles POST /marketplace/listings
func (h *Handler) listForSale(c *gin.Context) {
	var req ListCreditsData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.ListForSale(c.Request.Context(), session.FromContext(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// purchaseFromTreasury handles POST /marketplace/treasury/purchase
func (h *Handler) purchaseFromTreasury(c *gin.Context) {
	var req MintingData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.PurchaseFromTreasury(c.Request.Context(), session.FromContext(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) listProjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"projects": h.service.Projects(session.FromContext(c))})
}

// registerProject handles POST /marketplace/projects
func (h *Handler) registerProject(c *gin.Context) {
	var req ProjectRegistrationData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.RegisterProject(c.Request.Context(), session.FromContext(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) getWizard(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Wizard(session.FromContext(c)).View())
}

func (h *Handler) updateWizard(c *gin.Context) {
	var req WizardUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.service.Wizard(session.FromContext(c)).Update(req))
}

func (h *Handler) applyPreset(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.service.Wizard(session.FromContext(c)).ApplyPreset(req.Name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) nextStep(c *gin.Context) {
	view, err := h.service.Wizard(session.FromContext(c)).Next()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "wizard": view})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) prevStep(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Wizard(session.FromContext(c)).Back())
}

func (h *Handler) resetWizard(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Wizard(session.FromContext(c)).Reset())
}

// submitWizard handles POST /marketplace/wizard/submit
func (h *Handler) submitWizard(c *gin.Context) {
	result, err := h.service.SubmitWizard(c.Request.Context(), session.FromContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		verr    *ValidationError
		failure *outcome.Failure
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.As(err, &failure):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": failure.Notice, "kind": failure.Kind()})
	case errors.Is(err, ErrDemoListing), errors.Is(err, ErrListingInactive),
		errors.Is(err, ErrListingNotOnChain), errors.Is(err, ErrNotAtReview),
		errors.Is(err, ErrNotListingObject):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrWalletNotConnected):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Marketplace request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
