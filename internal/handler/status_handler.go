package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sonic/internal/uptime"
)

type StatusHandler struct {
	uptimeClient *uptime.Client
	logger       *zap.Logger
}

func NewStatusHandler(uptimeClient *uptime.Client, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{uptimeClient: uptimeClient, logger: logger}
}

// Get handles GET /status. Unreachable is a distinct state, not an error;
// the endpoint always answers 200.
func (h *StatusHandler) Get(c *gin.Context) {
	overall := h.uptimeClient.Check(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": overall})
}
