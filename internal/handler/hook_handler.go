package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sonic/internal/mq"
)

// HookHandler receives dispatch confirmations from the external scheduler
// and forwards them onto the bus. The worker marks the row COMPLETED; the
// hook itself never touches the database.
type HookHandler struct {
	publisher interface {
		Publish(routingKey string, payload any) error
	}
	logger *zap.Logger
}

func NewHookHandler(publisher *mq.Publisher, logger *zap.Logger) *HookHandler {
	return &HookHandler{publisher: publisher, logger: logger}
}

// Dispatched handles POST /hooks/dispatched
func (h *HookHandler) Dispatched(c *gin.Context) {
	var req struct {
		TriggerID string     `json:"trigger_id" binding:"required"`
		SentAt    *time.Time `json:"sent_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sentAt := time.Now()
	if req.SentAt != nil {
		sentAt = *req.SentAt
	}

	err := h.publisher.Publish(mq.RoutingKeyEmailDispatched, mq.EmailDispatchedPayload{
		EventID:   uuid.NewString(),
		TriggerID: req.TriggerID,
		SentAt:    sentAt,
	})
	if err != nil {
		h.logger.Error("Failed to publish dispatch confirmation",
			zap.String("trigger_id", req.TriggerID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record confirmation"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true})
}
