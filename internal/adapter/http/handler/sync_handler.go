package handler

import (
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// SyncHandler triggers an on-demand reconciliation.
type SyncHandler struct {
	sweeper ports.SyncService
}

func NewSyncHandler(sweeper ports.SyncService) *SyncHandler {
	return &SyncHandler{sweeper: sweeper}
}

// Sync handles POST /api/v1/sync. A run where any store failed answers
// 202 so clients know to retry later.
func (h *SyncHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	report := h.sweeper.SyncOnLogin(c.Request.Context(), userID)
	if !report.AllSucceeded() {
		response.Accepted(c, report)
		return
	}
	response.OK(c, report)
}
