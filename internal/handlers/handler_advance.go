package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zakeetahawi/ledgercore/internal/apperrors"
	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/core/services"
	"github.com/zakeetahawi/ledgercore/internal/dto"
	"github.com/zakeetahawi/ledgercore/internal/middleware"
)

// advanceHandler handles HTTP requests for the customer advance sub-ledger.
type advanceHandler struct {
	advanceService portssvc.AdvanceSvcFacade
}

func newAdvanceHandler(as portssvc.AdvanceSvcFacade) *advanceHandler {
	return &advanceHandler{advanceService: as}
}

// registerAdvanceRoutes registers routes related to customer advances.
func registerAdvanceRoutes(rg *gin.RouterGroup, advanceService portssvc.AdvanceSvcFacade) {
	h := newAdvanceHandler(advanceService)

	advances := rg.Group("/advances")
	{
		advances.POST("", h.issueAdvance)
		advances.GET("/:id", h.getAdvance)
		advances.GET("/:id/usages", h.getUsages)
		advances.POST("/:id/use", h.useAmount)
		advances.POST("/:id/refund", h.refundAdvance)
		advances.POST("/:id/cancel", h.cancelAdvance)
	}
}

func advanceErrorStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, services.ErrNonPositiveAmount):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientAdvance),
		errors.Is(err, services.ErrAdvanceNotConsumable),
		errors.Is(err, services.ErrAdvanceAlreadyClosed),
		errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondAdvanceError(c *gin.Context, logger *slog.Logger, action string, err error) {
	status := advanceErrorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("Advance operation failed", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": "Failed to " + action})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *advanceHandler) issueAdvance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.IssueAdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindingError(err))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	advance, err := h.advanceService.IssueAdvance(c.Request.Context(), req, actor)
	if err != nil {
		respondAdvanceError(c, logger, "issue advance", err)
		return
	}
	logger.Info("Advance issued",
		slog.String("advance_id", advance.AdvanceID),
		slog.String("customer_id", advance.CustomerID),
		slog.String("amount", advance.Amount.String()),
	)
	c.JSON(http.StatusCreated, dto.ToAdvanceResponse(advance))
}

func (h *advanceHandler) getAdvance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	advance, err := h.advanceService.GetAdvance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondAdvanceError(c, logger, "retrieve advance", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAdvanceResponse(advance))
}

func (h *advanceHandler) getUsages(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	usages, err := h.advanceService.GetUsages(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondAdvanceError(c, logger, "retrieve advance usages", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListUsageResponse(usages))
}

func (h *advanceHandler) useAmount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UseAdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindingError(err))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	remaining, err := h.advanceService.UseAmount(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondAdvanceError(c, logger, "consume advance", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advanceID": c.Param("id"), "remainingAmount": remaining})
}

func (h *advanceHandler) refundAdvance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.advanceService.RefundAdvance(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondAdvanceError(c, logger, "refund advance", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *advanceHandler) cancelAdvance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.advanceService.CancelAdvance(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondAdvanceError(c, logger, "cancel advance", err)
		return
	}
	c.Status(http.StatusNoContent)
}
