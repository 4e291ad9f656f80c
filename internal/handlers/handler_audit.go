package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/middleware"
)

// auditHandler exposes the reconciliation checks over HTTP. The same checks
// back the audit CLI.
type auditHandler struct {
	auditService portssvc.AuditSvcFacade
}

// registerAuditRoutes registers the audit routes.
func registerAuditRoutes(rg *gin.RouterGroup, auditService portssvc.AuditSvcFacade) {
	h := &auditHandler{auditService: auditService}

	audit := rg.Group("/audit")
	{
		audit.GET("/unbalanced-transactions", h.unbalancedTransactions)
		audit.GET("/account-balances", h.accountBalances)
		audit.POST("/account-balances/fix", h.fixAccountBalances)
		audit.GET("/customer-balances", h.customerBalances)
		audit.POST("/customer-balances/fix", h.fixCustomerBalances)
		audit.GET("/zero-amount-lines", h.zeroAmountLines)
	}
}

func (h *auditHandler) unbalancedTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	findings, err := h.auditService.FindUnbalancedTransactions(c.Request.Context())
	if err != nil {
		logger.Error("Failed to find unbalanced transactions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run check"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(findings), "findings": findings})
}

func (h *auditHandler) accountBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	mismatches, err := h.auditService.VerifyAccountBalances(c.Request.Context(), false, "")
	if err != nil {
		logger.Error("Failed to verify account balances", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run check"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(mismatches), "mismatches": mismatches})
}

func (h *auditHandler) fixAccountBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	mismatches, err := h.auditService.VerifyAccountBalances(c.Request.Context(), true, actor)
	if err != nil {
		logger.Error("Failed to fix account balances", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fix balances"})
		return
	}
	logger.Info("Account balances fixed", slog.Int("count", len(mismatches)))
	c.JSON(http.StatusOK, gin.H{"fixed": len(mismatches), "mismatches": mismatches})
}

func (h *auditHandler) customerBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	mismatches, err := h.auditService.VerifyCustomerBalances(c.Request.Context(), false)
	if err != nil {
		logger.Error("Failed to verify customer balances", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run check"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(mismatches), "mismatches": mismatches})
}

func (h *auditHandler) fixCustomerBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireActor(c); !ok {
		return
	}

	mismatches, err := h.auditService.VerifyCustomerBalances(c.Request.Context(), true)
	if err != nil {
		logger.Error("Failed to fix customer balances", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fix balances"})
		return
	}
	logger.Info("Customer balances fixed", slog.Int("count", len(mismatches)))
	c.JSON(http.StatusOK, gin.H{"fixed": len(mismatches), "mismatches": mismatches})
}

func (h *auditHandler) zeroAmountLines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	count, err := h.auditService.CountZeroAmountLines(c.Request.Context())
	if err != nil {
		logger.Error("Failed to count zero amount lines", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run check"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
