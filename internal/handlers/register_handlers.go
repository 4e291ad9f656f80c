package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	portssvc "github.com/zakeetahawi/ledgercore/internal/core/ports/services"
	"github.com/zakeetahawi/ledgercore/internal/middleware"
)

// RegisterRoutes sets up all application routes, injecting dependencies
// through the service facades.
func RegisterRoutes(r *gin.Engine, services *portssvc.ServiceContainer) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	v1 := r.Group("/api/v1", middleware.ActorMiddleware())

	registerAccountRoutes(v1, services.Account)
	registerTransactionRoutes(v1, services.Posting)
	registerAdvanceRoutes(v1, services.Advance)
	registerCustomerRoutes(v1, services.Summary, services.Advance, services.Reporting)
	registerEventRoutes(v1, services.Event)
	registerReportingRoutes(v1, services.Reporting)
	registerAuditRoutes(v1, services.Audit)
}

// requireActor resolves the acting user from the request. Mutating endpoints
// refuse anonymous callers.
func requireActor(c *gin.Context) (string, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing X-Actor-ID header"})
		return "", false
	}
	return actor, true
}

// bindingError turns a request binding failure into a response body, listing
// the failed validation tags per field when available.
func bindingError(err error) gin.H {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag()))
		}
		return gin.H{"error": "Invalid request format", "fields": fields}
	}
	return gin.H{"error": "Invalid request format: " + err.Error()}
}
