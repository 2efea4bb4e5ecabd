package handler

import (
	"net/http"

	"edu-ledger/internal/adapter/http/dto"
	"edu-ledger/internal/adapter/http/middleware"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"
	"edu-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler handles account and session endpoints.
type AuthHandler struct {
	users ports.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users ports.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	user, err := h.users.Register(c.Request.Context(), ports.RegisterRequest{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Avatar:      req.Avatar,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxUserID, user.ID)
	response.Created(c, user.Public())
}

// Login handles POST /api/v1/auth/login. The response carries the outcome
// of the login-time reconciliation.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxUserID, result.User.ID)
	response.OK(c, dto.LoginResponse{
		Token:  result.Token,
		Expiry: result.ExpiresAt.Unix(),
		User:   result.User,
		Sync:   result.Sync,
	})
}

// Logout handles POST /api/v1/auth/logout. The token stays valid until it
// expires; only the background sync loop is stopped.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	h.users.Logout(c.Request.Context(), userID)
	response.OK(c, gin.H{"logged_out": true})
}

// Search handles GET /api/v1/users/search?q=.
func (h *AuthHandler) Search(c *gin.Context) {
	var q dto.UserSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	users, err := h.users.Search(c.Request.Context(), q.Q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewListResponse(users))
}

// HealthCheck handles GET /health, a deep check of every dependency.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		// The stores are fronted by fallbacks, so a failing dependency
		// degrades the service rather than taking it down.
		status := "healthy"
		if !allHealthy {
			status = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}

// requireUser reads the authenticated caller, writing AUTH_003 if absent.
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return id, false
	}
	return id, true
}
