package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"smartwallet-gateway/internal/core/domain"
	"smartwallet-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// Handlers may set CtxResourceID to name the created resource.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method != http.MethodPost {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath())
		if action == "" {
			return
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Subject:      c.GetString(CtxSubject),
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route string) (domain.AuditAction, string) {
	switch route {
	case "/api/incoming-payment":
		return domain.AuditActionIncomingPayment, "incoming_payment"
	case "/api/quote":
		return domain.AuditActionQuote, "quote"
	case "/api/outgoing-payment/initiate":
		return domain.AuditActionOutgoingInitiate, "grant"
	case "/api/outgoing-payment/complete":
		return domain.AuditActionOutgoingComplete, "outgoing_payment"
	case "/api/transfer/simple":
		return domain.AuditActionTransferPrepare, "transfer"
	case "/api/transfer/:id/complete":
		return domain.AuditActionTransferComplete, "transfer"
	}
	return "", ""
}
