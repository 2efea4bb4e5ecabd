package handler

import (
	"edu-ledger/internal/adapter/http/dto"
	"edu-ledger/internal/adapter/http/middleware"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"
	"edu-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletKeyHandler handles the encrypted key store endpoints.
type WalletKeyHandler struct {
	keys ports.KeyStoreService
}

func NewWalletKeyHandler(keys ports.KeyStoreService) *WalletKeyHandler {
	return &WalletKeyHandler{keys: keys}
}

// Create handles POST /api/v1/wallet-keys. The recovery phrase is in this
// response only.
func (h *WalletKeyHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.CreateWalletKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	created, err := h.keys.Create(c.Request.Context(), userID, req.Passphrase)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, created.Address)
	c.Header("Cache-Control", "no-store")
	response.Created(c, created)
}

// Get handles GET /api/v1/wallet-keys.
func (h *WalletKeyHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	key, err := h.keys.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, key)
}

// Export handles POST /api/v1/wallet-keys/export.
func (h *WalletKeyHandler) Export(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.ExportWalletKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	exported, err := h.keys.Export(c.Request.Context(), ports.ExportKeyRequest{
		UserID:     userID,
		Password:   req.Password,
		Passphrase: req.Passphrase,
		Nonce:      req.Nonce,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, exported.Address)
	c.Header("Cache-Control", "no-store")
	response.OK(c, exported)
}
