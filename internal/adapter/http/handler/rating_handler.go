package handler

import (
	"qr-loyalty-backend/internal/adapter/http/dto"
	"qr-loyalty-backend/internal/adapter/http/middleware"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// RatingHandler handles the rating ledger.
type RatingHandler struct {
	ratingSvc ports.RatingService
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(ratingSvc ports.RatingService) *RatingHandler {
	return &RatingHandler{ratingSvc: ratingSvc}
}

// Rate handles POST /api/v1/ratings.
func (h *RatingHandler) Rate(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.RateRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.ratingSvc.Rate(c.Request.Context(), accountID, req.RedemptionID, req.Score, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, result.Rating.ID.String())
	response.Created(c, dto.RatingResponse{Rating: result.Rating, Aggregate: result.Aggregate})
}

// ListMine handles GET /api/v1/me/ratings.
func (h *RatingHandler) ListMine(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	ratings, err := h.ratingSvc.ListMine(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ratings)
}

// ListForMerchant handles GET /api/v1/merchants/:id/ratings.
func (h *RatingHandler) ListForMerchant(c *gin.Context) {
	merchantID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	ratings, total, err := h.ratingSvc.ListForMerchant(c.Request.Context(), merchantID, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewPage(ratings, total, q.Page, q.PageSize))
}

// Delete handles DELETE /api/v1/admin/ratings/:id.
func (h *RatingHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	aggregate, err := h.ratingSvc.DeleteRating(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true, "merchant_rating": aggregate})
}
