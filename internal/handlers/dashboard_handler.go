package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerledger/backend/internal/services/dashboard"
)

// DashboardHandler handles reporting requests
type DashboardHandler struct {
	dashboardService *dashboard.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *dashboard.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetPartnerDashboard returns the per-partner rollup
func (h *DashboardHandler) GetPartnerDashboard(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner ID"})
		return
	}

	d, err := h.dashboardService.GetPartnerDashboard(c.Request.Context(), partnerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// GetGlobalSummary returns the program-wide rollup
func (h *DashboardHandler) GetGlobalSummary(c *gin.Context) {
	summary, err := h.dashboardService.GetGlobalSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
