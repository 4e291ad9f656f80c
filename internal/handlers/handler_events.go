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

// eventHandler receives the inbound domain events from order and payment
// capture. Both endpoints are idempotent: a re-delivered event returns the
// transaction recorded on first delivery with created=false.
type eventHandler struct {
	eventService portssvc.EventSvcFacade
}

// registerEventRoutes registers the inbound event routes.
func registerEventRoutes(rg *gin.RouterGroup, eventService portssvc.EventSvcFacade) {
	h := &eventHandler{eventService: eventService}

	events := rg.Group("/events")
	{
		events.POST("/order-created", h.orderCreated)
		events.POST("/payment-received", h.paymentReceived)
	}
}

func (h *eventHandler) orderCreated(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var ev dto.OrderCreatedEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, bindingError(err))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	txn, created, err := h.eventService.OrderCreated(c.Request.Context(), ev, actor)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to process order_created", slog.String("order_id", ev.OrderID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.EventResponse{Created: created, Transaction: dto.ToTransactionResponse(txn)})
}

func (h *eventHandler) paymentReceived(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var ev dto.PaymentReceivedEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, bindingError(err))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	txn, created, err := h.eventService.PaymentReceived(c.Request.Context(), ev, actor)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to process payment_received", slog.String("payment_id", ev.PaymentID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.EventResponse{Created: created, Transaction: dto.ToTransactionResponse(txn)})
}
