package handler

import (
	"edu-ledger/internal/adapter/http/dto"
	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"
	"edu-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// NFTHandler serves the catalog, the caller's collection and the
// purchase and gift flows.
type NFTHandler struct {
	catalog     ports.CatalogService
	ownership   ports.OwnershipService
	marketplace ports.MarketplaceService
}

func NewNFTHandler(catalog ports.CatalogService, ownership ports.OwnershipService, marketplace ports.MarketplaceService) *NFTHandler {
	return &NFTHandler{catalog: catalog, ownership: ownership, marketplace: marketplace}
}

// List handles GET /api/v1/nfts.
func (h *NFTHandler) List(c *gin.Context) {
	var q dto.NFTListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	items := h.catalog.List(ports.CatalogFilter{
		Category: domain.NFTCategory(q.Category),
		Rarity:   domain.Rarity(q.Rarity),
	})
	response.OK(c, dto.NewListResponse(items))
}

// ListOwned handles GET /api/v1/nfts/owned.
func (h *NFTHandler) ListOwned(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	response.OK(c, dto.NewListResponse(h.ownership.ListOwned(c.Request.Context(), userID)))
}

// Purchase handles POST /api/v1/nfts/:id/purchase.
func (h *NFTHandler) Purchase(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	result, err := h.marketplace.Purchase(c.Request.Context(), ports.PurchaseRequest{
		BuyerID:        userID,
		NFTID:          c.Param("id"),
		IdempotencyKey: c.GetHeader(dto.HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Gift handles POST /api/v1/nfts/:id/gift.
func (h *NFTHandler) Gift(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.GiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.marketplace.Gift(c.Request.Context(), ports.GiftRequest{
		SenderID:       userID,
		NFTID:          c.Param("id"),
		Recipient:      req.Recipient,
		Message:        req.Message,
		IdempotencyKey: c.GetHeader(dto.HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
