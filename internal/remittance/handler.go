package remittance

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/outcome"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/transactions"
)

// Handler handles HTTP requests for the remittance flow
type Handler struct {
	service   *Service
	logger    *zap.Logger
	exporters map[transactions.ExportFormat]func(io.Writer, []transactions.Record) error
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		exporters: map[transactions.ExportFormat]func(io.Writer, []transactions.Record) error{
			transactions.ExportCSV:  transactions.WriteCSV,
			transactions.ExportXLSX: transactions.WriteXLSX,
		},
	}
}

// RegisterRoutes registers remittance routes on an authenticated group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/balance", h.getBalance)

	remittances := router.Group("/remittances")
	{
		remittances.POST("", h.send)
		remittances.GET("", h.history)
		remittances.GET("/draft", h.draft)
		remittances.GET("/export", h.export)
		remittances.GET("/:id/receipt", h.receipt)
	}
}

// getBalance handles GET /balance
func (h *Handler) getBalance(c *gin.Context) {
	sess := session.FromContext(c)
	view, err := h.service.Balance(c.Request.Context(), sess, c.Query("refresh") == "true")
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// send handles POST /remittances
func (h *Handler) send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := session.FromContext(c)
	rec, err := h.service.Send(c.Request.Context(), sess, req)
	if err != nil {
		var failure *outcome.Failure
		if errors.As(err, &failure) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  failure.Notice,
				"kind":   failure.Kind(),
				"record": rec,
			})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": MsgSent,
		"record":  rec,
	})
}

// history handles GET /remittances
func (h *Handler) history(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	items, err := h.service.History(c.Request.Context(), session.FromContext(c), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": items, "total": len(items)})
}

// draft handles GET /remittances/draft
func (h *Handler) draft(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Draft(session.FromContext(c)))
}

// export handles GET /remittances/export?format=csv|xlsx
func (h *Handler) export(c *gin.Context) {
	format, err := transactions.ParseExportFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.service.Records(c.Request.Context(), session.FromContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Rendered before any header goes out so a failure can still be a 500.
	var buf bytes.Buffer
	if err := h.exporters[format](&buf, records); err != nil {
		h.logger.Error("Failed to export remittances", zap.String("format", string(format)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate export"})
		return
	}

	filename := fmt.Sprintf("remittances_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// receipt handles GET /remittances/:id/receipt
func (h *Handler) receipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	rec, err := h.service.Record(c.Request.Context(), session.FromContext(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := transactions.WriteReceipt(&buf, rec, time.Now()); err != nil {
		h.logger.Error("Failed to render receipt", zap.String("record_id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate receipt"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "receipt_"+rec.Digest+".pdf"))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Fields[0].Message, "fields": verr.Fields})
	case errors.Is(err, session.ErrWalletNotConnected):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, transactions.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Remittance request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
