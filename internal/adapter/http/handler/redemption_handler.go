package handler

import (
	"context"

	"qr-loyalty-backend/internal/adapter/http/dto"
	"qr-loyalty-backend/internal/adapter/http/middleware"
	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RedemptionHandler handles QR scans and redemption history.
type RedemptionHandler struct {
	redemptionSvc ports.RedemptionService
}

// NewRedemptionHandler creates a new RedemptionHandler.
func NewRedemptionHandler(redemptionSvc ports.RedemptionService) *RedemptionHandler {
	return &RedemptionHandler{redemptionSvc: redemptionSvc}
}

// Redeem handles POST /api/v1/merchant/redemptions.
func (h *RedemptionHandler) Redeem(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.RedeemRequest
	if !bindJSON(c, &req) {
		return
	}

	receipt, err := h.redemptionSvc.Redeem(c.Request.Context(), req.QRToken, req.PromotionID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, receipt.Redemption.ID.String())
	response.Created(c, receipt)
}

// MerchantHistory handles GET /api/v1/merchant/redemptions.
func (h *RedemptionHandler) MerchantHistory(c *gin.Context) {
	h.history(c, h.redemptionSvc.MerchantHistory)
}

// CustomerHistory handles GET /api/v1/me/redemptions.
func (h *RedemptionHandler) CustomerHistory(c *gin.Context) {
	h.history(c, h.redemptionSvc.CustomerHistory)
}

type historyFunc func(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Redemption, int64, error)

func (h *RedemptionHandler) history(c *gin.Context, fetch historyFunc) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	items, total, err := fetch(c.Request.Context(), accountID, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewPage(items, total, q.Page, q.PageSize))
}

// CustomerStats handles GET /api/v1/me/stats.
func (h *RedemptionHandler) CustomerStats(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	stats, err := h.redemptionSvc.CustomerStats(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
