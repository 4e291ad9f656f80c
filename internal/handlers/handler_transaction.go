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

// transactionHandler handles HTTP requests for the posting engine.
type transactionHandler struct {
	postingService portssvc.PostingSvcFacade
}

func newTransactionHandler(ps portssvc.PostingSvcFacade) *transactionHandler {
	return &transactionHandler{postingService: ps}
}

// registerTransactionRoutes registers routes related to transactions.
func registerTransactionRoutes(rg *gin.RouterGroup, postingService portssvc.PostingSvcFacade) {
	h := newTransactionHandler(postingService)

	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.createDraft)
		transactions.GET("", h.listTransactions)
		transactions.GET("/:id", h.getTransaction)
		transactions.PUT("/:id/lines", h.replaceLines)
		transactions.DELETE("/:id", h.deleteDraft)
		transactions.POST("/:id/post", h.postTransaction)
		transactions.POST("/:id/reverse", h.createReversal)
		transactions.POST("/:id/cancel", h.cancelTransaction)
	}
}

// postingErrorStatus maps posting engine failures onto HTTP statuses.
// Precondition failures on the payload are 400s; state machine violations and
// lost races are 409s.
func postingErrorStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, services.ErrUnbalanced),
		errors.Is(err, services.ErrInsufficientLines),
		errors.Is(err, services.ErrInactiveAccount),
		errors.Is(err, services.ErrPostingsNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, services.ErrAlreadyPosted),
		errors.Is(err, services.ErrTransactionCancelled),
		errors.Is(err, services.ErrNotDraft),
		errors.Is(err, services.ErrNotPosted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondPostingError(c *gin.Context, logger *slog.Logger, action string, err error) {
	status := postingErrorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("Posting operation failed", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": "Failed to " + action})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *transactionHandler) createDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindingError(err))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	txn, err := h.postingService.CreateDraft(c.Request.Context(), req, actor)
	if err != nil {
		respondPostingError(c, logger, "create draft", err)
		return
	}
	logger.Info("Draft created", slog.String("transaction_id", txn.TransactionID), slog.String("number", txn.TransactionNumber))
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

func (h *transactionHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	txns, err := h.postingService.ListTransactions(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list transactions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}
	c.JSON(http.StatusOK, dto.ToListTransactionResponse(txns))
}

func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	txn, err := h.postingService.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPostingError(c, logger, "retrieve transaction", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

func (h *transactionHandler) replaceLines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ReplaceLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindingError(err))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	txn, err := h.postingService.ReplaceDraftLines(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondPostingError(c, logger, "replace draft lines", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

func (h *transactionHandler) deleteDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireActor(c); !ok {
		return
	}

	if err := h.postingService.DeleteDraft(c.Request.Context(), c.Param("id")); err != nil {
		respondPostingError(c, logger, "delete draft", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *transactionHandler) postTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	txn, err := h.postingService.Post(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondPostingError(c, logger, "post transaction", err)
		return
	}
	logger.Info("Transaction posted", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

func (h *transactionHandler) createReversal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	reversal, err := h.postingService.CreateReversal(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondPostingError(c, logger, "create reversal", err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(reversal))
}

func (h *transactionHandler) cancelTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	reversal, err := h.postingService.Cancel(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondPostingError(c, logger, "cancel transaction", err)
		return
	}
	logger.Info("Transaction cancelled", slog.String("transaction_id", c.Param("id")),
		slog.String("reversal_id", reversal.TransactionID))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(reversal))
}
