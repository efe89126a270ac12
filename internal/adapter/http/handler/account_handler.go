package handler

import (
	"qr-loyalty-backend/internal/adapter/http/dto"
	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles account self-service and account administration.
type AccountHandler struct {
	accountSvc ports.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// GetMe handles GET /api/v1/me.
func (h *AccountHandler) GetMe(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	profile, err := h.accountSvc.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// UpdateCustomer handles PUT /api/v1/me/customer.
func (h *AccountHandler) UpdateCustomer(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.UpdateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.accountSvc.UpdateCustomerProfile(c.Request.Context(), accountID, ports.CustomerProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		City:      req.City,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// DeleteMe handles DELETE /api/v1/me.
func (h *AccountHandler) DeleteMe(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	if err := h.accountSvc.DeleteOwnAccount(c.Request.Context(), accountID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// List handles GET /api/v1/admin/accounts.
func (h *AccountHandler) List(c *gin.Context) {
	var q dto.AccountListQuery
	if !bindQuery(c, &q) {
		return
	}

	params := ports.AccountListParams{Page: q.Page, PageSize: q.PageSize}
	if q.Role != "" {
		role := domain.Role(q.Role)
		params.Role = &role
	}
	h.list(c, params)
}

// ListBlacklisted handles GET /api/v1/admin/accounts/blacklisted.
func (h *AccountHandler) ListBlacklisted(c *gin.Context) {
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}
	h.list(c, ports.AccountListParams{BlacklistedOnly: true, Page: q.Page, PageSize: q.PageSize})
}

func (h *AccountHandler) list(c *gin.Context, params ports.AccountListParams) {
	accounts, total, err := h.accountSvc.ListAccounts(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewPage(accounts, total, params.Page, params.PageSize))
}

// Get handles GET /api/v1/admin/accounts/:id.
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	account, err := h.accountSvc.GetAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, account)
}

// Blacklist handles POST /api/v1/admin/accounts/:id/blacklist.
func (h *AccountHandler) Blacklist(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.BlacklistRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accountSvc.BlacklistAccount(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, account)
}

// Unblacklist handles DELETE /api/v1/admin/accounts/:id/blacklist.
func (h *AccountHandler) Unblacklist(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	account, err := h.accountSvc.UnblacklistAccount(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, account)
}

// VerifyEmail handles POST /api/v1/admin/accounts/:id/verify-email.
func (h *AccountHandler) VerifyEmail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	account, err := h.accountSvc.VerifyEmail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, account)
}

// Delete handles DELETE /api/v1/admin/accounts/:id.
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.accountSvc.DeleteAccount(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
