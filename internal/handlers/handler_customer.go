package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zakeetahawi/ledgercore/internal/apperrors"
	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/dto"
	"github.com/zakeetahawi/ledgercore/internal/middleware"
)

// customerHandler serves the customer-scoped views: the financial summary,
// the advance list and the receivable statement.
type customerHandler struct {
	summaryService   portssvc.SummarySvcFacade
	advanceService   portssvc.AdvanceSvcFacade
	reportingService portssvc.ReportingSvcFacade
}

// registerCustomerRoutes registers the customer-scoped routes.
func registerCustomerRoutes(rg *gin.RouterGroup, summaryService portssvc.SummarySvcFacade, advanceService portssvc.AdvanceSvcFacade, reportingService portssvc.ReportingSvcFacade) {
	h := &customerHandler{
		summaryService:   summaryService,
		advanceService:   advanceService,
		reportingService: reportingService,
	}

	customers := rg.Group("/customers")
	{
		customers.GET("/:id/summary", h.getSummary)
		customers.POST("/:id/summary/refresh", h.refreshSummary)
		customers.GET("/:id/advances", h.listAdvances)
		customers.GET("/:id/statement", h.getStatement)
	}
	rg.POST("/summaries/refresh", h.refreshAllSummaries)
}

func (h *customerHandler) getSummary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	customerID := c.Param("id")

	summary, err := h.summaryService.GetSummary(c.Request.Context(), customerID)
	if err != nil {
		logger.Error("Failed to get customer summary", slog.String("customer_id", customerID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve summary"})
		return
	}
	c.JSON(http.StatusOK, dto.ToSummaryResponse(summary))
}

func (h *customerHandler) refreshSummary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	customerID := c.Param("id")
	if _, ok := requireActor(c); !ok {
		return
	}

	summary, err := h.summaryService.Refresh(c.Request.Context(), customerID)
	if err != nil {
		logger.Error("Failed to refresh customer summary", slog.String("customer_id", customerID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh summary"})
		return
	}
	c.JSON(http.StatusOK, dto.ToSummaryResponse(summary))
}

func (h *customerHandler) refreshAllSummaries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireActor(c); !ok {
		return
	}

	refreshed, err := h.summaryService.RefreshAll(c.Request.Context())
	if err != nil {
		logger.Error("Failed to refresh summaries", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh summaries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": refreshed})
}

func (h *customerHandler) listAdvances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	customerID := c.Param("id")

	advances, err := h.advanceService.ListAdvancesByCustomer(c.Request.Context(), customerID)
	if err != nil {
		logger.Error("Failed to list customer advances", slog.String("customer_id", customerID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list advances"})
		return
	}
	c.JSON(http.StatusOK, dto.ToListAdvanceResponse(advances))
}

func (h *customerHandler) getStatement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	customerID := c.Param("id")

	var req dto.StatementRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	statement, err := h.reportingService.CustomerStatement(c.Request.Context(), customerID, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer has no receivable account"})
		} else {
			logger.Error("Failed to build customer statement", slog.String("customer_id", customerID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build statement"})
		}
		return
	}
	c.JSON(http.StatusOK, statement)
}
