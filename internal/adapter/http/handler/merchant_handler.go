package handler

import (
	"strconv"

	"qr-loyalty-backend/internal/adapter/http/dto"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"
	"qr-loyalty-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler handles the merchant catalog: public discovery, merchant
// self-service and admin moderation.
type MerchantHandler struct {
	merchantSvc  ports.MerchantService
	promotionSvc ports.PromotionService
}

// NewMerchantHandler creates a new merchant handler.
func NewMerchantHandler(merchantSvc ports.MerchantService, promotionSvc ports.PromotionService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc, promotionSvc: promotionSvc}
}

// List handles GET /api/v1/merchants.
func (h *MerchantHandler) List(c *gin.Context) {
	var q dto.MerchantListQuery
	if !bindQuery(c, &q) {
		return
	}

	merchants, total, err := h.merchantSvc.List(c.Request.Context(), ports.MerchantListParams{
		City:       optionalString(q.City),
		CategoryID: optionalUUID(q.CategoryID),
		Page:       q.Page,
		PageSize:   q.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewPage(merchants, total, q.Page, q.PageSize))
}

// Nearby handles GET /api/v1/merchants/nearby.
func (h *MerchantHandler) Nearby(c *gin.Context) {
	var q dto.NearbyQuery
	if !bindQuery(c, &q) {
		return
	}

	merchants, err := h.merchantSvc.SearchNearby(c.Request.Context(), ports.NearbyQuery{
		Latitude:   *q.Latitude,
		Longitude:  *q.Longitude,
		RadiusKm:   q.RadiusKm,
		CategoryID: optionalUUID(q.CategoryID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchants)
}

// Get handles GET /api/v1/merchants/:id.
func (h *MerchantHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	merchant, err := h.merchantSvc.GetPublic(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// ActivePromotions handles GET /api/v1/merchants/:id/promotions.
func (h *MerchantHandler) ActivePromotions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	promotions, err := h.promotionSvc.ListValid(c.Request.Context(), ports.PromotionListParams{MerchantID: &id})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, promotions)
}

// CreateProfile handles POST /api/v1/merchant/profile.
func (h *MerchantHandler) CreateProfile(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.MerchantProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	if field := req.Missing(); field != "" {
		response.Error(c, apperror.Validation(field+" is required"))
		return
	}

	merchant, err := h.merchantSvc.CreateProfile(c.Request.Context(), accountID, req.Input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, merchant)
}

// GetProfile handles GET /api/v1/merchant/profile.
func (h *MerchantHandler) GetProfile(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	merchant, err := h.merchantSvc.GetMine(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// UpdateProfile handles PUT /api/v1/merchant/profile.
func (h *MerchantHandler) UpdateProfile(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.MerchantProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	merchant, err := h.merchantSvc.UpdateMine(c.Request.Context(), accountID, req.Input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// AddImage handles POST /api/v1/merchant/profile/images.
func (h *MerchantHandler) AddImage(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.ImageRequest
	if !bindJSON(c, &req) {
		return
	}

	merchant, err := h.merchantSvc.AddImage(c.Request.Context(), accountID, req.URL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, merchant)
}

// RemoveImage handles DELETE /api/v1/merchant/profile/images/:index.
func (h *MerchantHandler) RemoveImage(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, apperror.Validation("index must be an integer"))
		return
	}

	merchant, err := h.merchantSvc.RemoveImage(c.Request.Context(), accountID, index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// SetPrimaryImage handles PUT /api/v1/merchant/profile/primary-image.
func (h *MerchantHandler) SetPrimaryImage(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.ImageRequest
	if !bindJSON(c, &req) {
		return
	}

	merchant, err := h.merchantSvc.SetPrimaryImage(c.Request.Context(), accountID, req.URL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// UpdateOpeningHours handles PUT /api/v1/merchant/profile/hours.
func (h *MerchantHandler) UpdateOpeningHours(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.OpeningHoursRequest
	if !bindJSON(c, &req) {
		return
	}

	merchant, err := h.merchantSvc.UpdateOpeningHours(c.Request.Context(), accountID, req.Hours)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// Verify handles POST /api/v1/admin/merchants/:id/verify.
func (h *MerchantHandler) Verify(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	merchant, err := h.merchantSvc.Verify(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// Blacklist handles POST /api/v1/admin/merchants/:id/blacklist.
func (h *MerchantHandler) Blacklist(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.BlacklistRequest
	if !bindJSON(c, &req) {
		return
	}

	merchant, err := h.merchantSvc.Blacklist(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// Unblacklist handles DELETE /api/v1/admin/merchants/:id/blacklist.
func (h *MerchantHandler) Unblacklist(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	merchant, err := h.merchantSvc.Unblacklist(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// Delete handles DELETE /api/v1/admin/merchants/:id.
func (h *MerchantHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.merchantSvc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
