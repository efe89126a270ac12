package handler

import (
	"net/http"

	"qr-loyalty-backend/internal/adapter/http/dto"
	"qr-loyalty-backend/internal/adapter/http/middleware"
	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// RegisterCustomer handles POST /api/v1/auth/register/customer.
func (h *AuthHandler) RegisterCustomer(c *gin.Context) {
	var req dto.RegisterCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.RegisterCustomer(c.Request.Context(), ports.RegisterCustomerRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		City:      req.City,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, http.StatusCreated, result)
}

// RegisterMerchant handles POST /api/v1/auth/register/merchant.
func (h *AuthHandler) RegisterMerchant(c *gin.Context) {
	var req dto.RegisterMerchantRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.RegisterMerchant(c.Request.Context(), ports.RegisterMerchantRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, http.StatusCreated, result)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, http.StatusOK, result)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, tokens)
}

// ProviderLogin handles POST /api/v1/auth/provider.
func (h *AuthHandler) ProviderLogin(c *gin.Context) {
	var req dto.ProviderLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.LoginWithProvider(c.Request.Context(), ports.ProviderLoginRequest{
		Kind:       domain.ProviderKind(req.Provider),
		ProviderID: req.ProviderID,
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, http.StatusOK, result)
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), accountID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"logged_out": true})
}

// ChangePassword handles PUT /api/v1/auth/password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"password_changed": true})
}

// respond writes the auth envelope and tags the request for the audit trail.
func (h *AuthHandler) respond(c *gin.Context, status int, result *ports.AuthResult) {
	c.Set(middleware.CtxAccountID, result.Account.ID)
	c.Set(middleware.CtxAuditResourceID, result.Account.ID.String())

	body := dto.AuthResponse{Account: result.Account, Tokens: result.Tokens}
	if status == http.StatusCreated {
		response.Created(c, body)
		return
	}
	response.OK(c, body)
}
