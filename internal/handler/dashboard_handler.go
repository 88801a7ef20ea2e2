package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sonic/internal/service/dashboard"
)

type DashboardHandler struct {
	dashboardService *dashboard.Service
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *dashboard.Service, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, logger: logger}
}

// Get handles GET /dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	snap, err := h.dashboardService.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build dashboard snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build dashboard"})
		return
	}

	c.JSON(http.StatusOK, snap)
}
