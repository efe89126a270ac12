package handler

import (
	"qr-loyalty-backend/internal/adapter/http/dto"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"
	"qr-loyalty-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// CategoryHandler handles the category tree.
type CategoryHandler struct {
	categorySvc ports.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categorySvc ports.CategoryService) *CategoryHandler {
	return &CategoryHandler{categorySvc: categorySvc}
}

// List handles GET /api/v1/categories.
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categorySvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, categories)
}

// Tree handles GET /api/v1/categories/tree.
func (h *CategoryHandler) Tree(c *gin.Context) {
	tree, err := h.categorySvc.Tree(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tree)
}

// Get handles GET /api/v1/categories/:id.
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.categorySvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Create handles POST /api/v1/admin/categories.
func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name == nil {
		response.Error(c, apperror.Validation("name is required"))
		return
	}

	category, err := h.categorySvc.Create(c.Request.Context(), req.Input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update handles PUT /api/v1/admin/categories/:id.
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categorySvc.Update(c.Request.Context(), id, req.Input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, category)
}

// Delete handles DELETE /api/v1/admin/categories/:id.
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.categorySvc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
