package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxAuditResourceID lets a handler name the resource it created.
const CtxAuditResourceID = "audit_resource_id"

type auditRoute struct {
	action       domain.AuditAction
	resourceType string
}

// auditedRoutes is keyed by method and gin route template.
var auditedRoutes = map[string]auditRoute{
	"POST /api/v1/auth/register":      {domain.AuditActionRegister, "user"},
	"POST /api/v1/auth/login":         {domain.AuditActionLogin, "session"},
	"POST /api/v1/auth/logout":        {domain.AuditActionLogout, "session"},
	"POST /api/v1/nfts/:id/purchase":  {domain.AuditActionPurchaseNFT, "nft"},
	"POST /api/v1/nfts/:id/gift":      {domain.AuditActionGiftNFT, "nft"},
	"POST /api/v1/certificates":       {domain.AuditActionIssueCertificate, "certificate"},
	"POST /api/v1/wallet-keys":        {domain.AuditActionCreateWalletKey, "wallet_key"},
	"POST /api/v1/wallet-keys/export": {domain.AuditActionExportWalletKey, "wallet_key"},
	"POST /api/v1/sync":               {domain.AuditActionSync, "sync"},
}

// AuditLog records successful writes on audited routes.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}
		route, ok := auditedRoutes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		var userID *uuid.UUID
		if id, ok := UserID(c); ok {
			userID = &id
		}
		resourceID := c.GetString(CtxAuditResourceID)
		if resourceID == "" {
			resourceID = c.Param("id")
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       userID,
			Action:       route.action,
			ResourceType: route.resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}
