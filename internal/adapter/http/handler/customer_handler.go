package handler

import (
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// CustomerHandler handles customer favorites.
type CustomerHandler struct {
	customerSvc ports.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(customerSvc ports.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerSvc: customerSvc}
}

// ListFavorites handles GET /api/v1/me/favorites.
func (h *CustomerHandler) ListFavorites(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	merchants, err := h.customerSvc.ListFavorites(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchants)
}

// AddFavorite handles POST /api/v1/me/favorites/:merchantId.
func (h *CustomerHandler) AddFavorite(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	merchantID, ok := pathID(c, "merchantId")
	if !ok {
		return
	}

	if err := h.customerSvc.AddFavorite(c.Request.Context(), accountID, merchantID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"merchant_id": merchantID, "favorite": true})
}

// RemoveFavorite handles DELETE /api/v1/me/favorites/:merchantId.
func (h *CustomerHandler) RemoveFavorite(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	merchantID, ok := pathID(c, "merchantId")
	if !ok {
		return
	}

	if err := h.customerSvc.RemoveFavorite(c.Request.Context(), accountID, merchantID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"merchant_id": merchantID, "favorite": false})
}
