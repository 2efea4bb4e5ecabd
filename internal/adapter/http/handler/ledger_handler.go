package handler

import (
	"edu-ledger/internal/adapter/http/dto"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"
	"edu-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LedgerHandler serves the caller's balance, the token price and the
// transaction history.
type LedgerHandler struct {
	ledger ports.LedgerService
}

func NewLedgerHandler(ledger ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// GetBalance handles GET /api/v1/ledger/balance.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	response.OK(c, h.ledger.GetBalance(c.Request.Context(), userID))
}

// UpdateBalance handles PUT /api/v1/ledger/balance.
func (h *LedgerHandler) UpdateBalance(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.UpdateBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount := decimal.RequireFromString(req.Balance)
	usd := decimal.Zero
	if req.USDValue != "" {
		usd = decimal.RequireFromString(req.USDValue)
	}

	balance, err := h.ledger.UpdateBalance(c.Request.Context(), userID, amount, usd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, balance)
}

// GetPrice handles GET /api/v1/ledger/price.
func (h *LedgerHandler) GetPrice(c *gin.Context) {
	response.OK(c, h.ledger.GetPrice(c.Request.Context()))
}

// ListTransactions handles GET /api/v1/ledger/transactions, newest first.
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	response.OK(c, dto.NewListResponse(h.ledger.ListTransactions(c.Request.Context(), userID)))
}
