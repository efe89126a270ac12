package handler

import (
	"qr-loyalty-backend/internal/adapter/http/dto"
	"qr-loyalty-backend/internal/adapter/http/middleware"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// PromotionHandler handles the promotion registry.
type PromotionHandler struct {
	promotionSvc ports.PromotionService
}

// NewPromotionHandler creates a new PromotionHandler.
func NewPromotionHandler(promotionSvc ports.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotionSvc: promotionSvc}
}

// ListValid handles GET /api/v1/promotions.
func (h *PromotionHandler) ListValid(c *gin.Context) {
	var q dto.PromotionListQuery
	if !bindQuery(c, &q) {
		return
	}

	promotions, err := h.promotionSvc.ListValid(c.Request.Context(), ports.PromotionListParams{
		City:       optionalString(q.City),
		CategoryID: optionalUUID(q.CategoryID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, promotions)
}

// Get handles GET /api/v1/promotions/:id.
func (h *PromotionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	promotion, err := h.promotionSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, promotion)
}

// ListMine handles GET /api/v1/merchant/promotions.
func (h *PromotionHandler) ListMine(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	promotions, err := h.promotionSvc.ListMine(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, promotions)
}

// Create handles POST /api/v1/merchant/promotions.
func (h *PromotionHandler) Create(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.PromotionRequest
	if !bindJSON(c, &req) {
		return
	}

	promotion, err := h.promotionSvc.Create(c.Request.Context(), accountID, req.Input())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.CtxAuditResourceID, promotion.ID.String())
	response.Created(c, promotion)
}

// Update handles PUT /api/v1/merchant/promotions/:id.
func (h *PromotionHandler) Update(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.PromotionRequest
	if !bindJSON(c, &req) {
		return
	}

	promotion, err := h.promotionSvc.Update(c.Request.Context(), accountID, id, req.Input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, promotion)
}

// Delete handles DELETE /api/v1/merchant/promotions/:id.
func (h *PromotionHandler) Delete(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.promotionSvc.Delete(c.Request.Context(), accountID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// AdminDelete handles DELETE /api/v1/admin/promotions/:id.
func (h *PromotionHandler) AdminDelete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.promotionSvc.AdminDelete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
