package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxAuditResourceID lets a handler name the resource it created, for routes
// whose path carries no id.
const CtxAuditResourceID = "audit_resource_id"

type auditRoute struct {
	action       domain.AuditAction
	resourceType string
}

// auditRoutes maps "METHOD route-template" to the audited action.
var auditRoutes = map[string]auditRoute{
	"POST /api/v1/auth/register/customer":          {domain.AuditActionRegister, "account"},
	"POST /api/v1/auth/register/merchant":          {domain.AuditActionRegister, "account"},
	"POST /api/v1/auth/login":                      {domain.AuditActionLogin, "session"},
	"POST /api/v1/auth/provider":                   {domain.AuditActionProviderLogin, "session"},
	"POST /api/v1/merchant/redemptions":            {domain.AuditActionRedeem, "redemption"},
	"POST /api/v1/ratings":                         {domain.AuditActionRate, "rating"},
	"DELETE /api/v1/admin/ratings/:id":             {domain.AuditActionDeleteRating, "rating"},
	"POST /api/v1/admin/accounts/:id/blacklist":    {domain.AuditActionBlacklist, "account"},
	"DELETE /api/v1/admin/accounts/:id/blacklist":  {domain.AuditActionUnblacklist, "account"},
	"POST /api/v1/admin/merchants/:id/blacklist":   {domain.AuditActionBlacklist, "merchant"},
	"DELETE /api/v1/admin/merchants/:id/blacklist": {domain.AuditActionUnblacklist, "merchant"},
	"POST /api/v1/merchant/promotions":             {domain.AuditActionPromotionWrite, "promotion"},
	"PUT /api/v1/merchant/promotions/:id":          {domain.AuditActionPromotionWrite, "promotion"},
	"DELETE /api/v1/merchant/promotions/:id":       {domain.AuditActionPromotionWrite, "promotion"},
	"DELETE /api/v1/admin/promotions/:id":          {domain.AuditActionPromotionWrite, "promotion"},
	"POST /api/v1/merchant/profile":                {domain.AuditActionMerchantProfile, "merchant"},
	"PUT /api/v1/merchant/profile":                 {domain.AuditActionMerchantProfile, "merchant"},
	"DELETE /api/v1/me":                            {domain.AuditActionDeleteAccount, "account"},
	"DELETE /api/v1/admin/accounts/:id":            {domain.AuditActionDeleteAccount, "account"},
}

// AuditLog creates an audit middleware that logs successful write operations.
// Routes are matched on their registered template, not the raw path.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		route, ok := mapRouteToAction(c.Request.Method, c.FullPath())
		if !ok {
			return
		}

		var accountID *uuid.UUID
		if id, ok := AccountID(c); ok {
			accountID = &id
		}

		resourceID := c.Param("id")
		if resourceID == "" {
			resourceID = c.GetString(CtxAuditResourceID)
		}

		details, _ := json.Marshal(map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			AccountID:    accountID,
			Action:       route.action,
			ResourceType: route.resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(method, fullPath string) (auditRoute, bool) {
	route, ok := auditRoutes[method+" "+fullPath]
	return route, ok
}
