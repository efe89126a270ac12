package handler

import (
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// DashboardHandler handles the merchant dashboard.
type DashboardHandler struct {
	reportingSvc ports.ReportingService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(reportingSvc ports.ReportingService) *DashboardHandler {
	return &DashboardHandler{reportingSvc: reportingSvc}
}

// GetStats handles GET /api/v1/merchant/stats.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	stats, err := h.reportingSvc.MerchantStats(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
