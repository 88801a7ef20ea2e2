package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sonic/internal/formflow"
	"sonic/internal/model"
	"sonic/internal/repository"
	"sonic/internal/service/email"
)

// AutomationHandler is the single action-tagged endpoint the email form
// submits to. The action field selects schedule, immediate send, edit or
// cancel; every action answers with the same success/trigger_id envelope.
// The form session admits one submission at a time; a second request while
// one is in flight is answered 409 instead of hitting the scheduler twice.
type AutomationHandler struct {
	emailService *email.Service
	flow         *formflow.Session
	logger       *zap.Logger
}

func NewAutomationHandler(emailService *email.Service, flow *formflow.Session, logger *zap.Logger) *AutomationHandler {
	return &AutomationHandler{emailService: emailService, flow: flow, logger: logger}
}

type automationRequest struct {
	Action        string     `json:"action" binding:"required"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Subject       string     `json:"subject"`
	Content       string     `json:"content"`
	SendAt        *time.Time `json:"send_at"`
	AttachmentURL string     `json:"attachment_url"`
	University    string     `json:"university"`
	LabURL        string     `json:"lab_url"`
	TriggerID     string     `json:"trigger_id"`
}

// Handle handles POST /automation
func (h *AutomationHandler) Handle(c *gin.Context) {
	var req automationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request"})
		return
	}

	token, err := h.flow.Begin()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
		return
	}
	var opErr error
	defer func() {
		if err := h.flow.Finish(token, opErr); err != nil {
			h.logger.Warn("Failed to settle form session", zap.Error(err))
		}
	}()

	ctx := c.Request.Context()
	scheduleReq := email.ScheduleRequest{
		Name:          req.Name,
		Recipient:     req.Email,
		Subject:       req.Subject,
		Body:          req.Content,
		SendAt:        req.SendAt,
		AttachmentURL: req.AttachmentURL,
		University:    model.University(req.University),
		LabURL:        req.LabURL,
	}

	switch strings.ToUpper(req.Action) {
	case "CREATE":
		var e *model.Email
		e, opErr = h.emailService.Schedule(ctx, scheduleReq)
		if opErr != nil {
			h.fail(c, req.Action, opErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "trigger_id": e.TriggerID, "id": e.ID})

	case "SEND":
		var e *model.Email
		e, opErr = h.emailService.SendNow(ctx, scheduleReq)
		if opErr != nil {
			h.fail(c, req.Action, opErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "trigger_id": e.TriggerID, "id": e.ID})

	case "UPDATE":
		if opErr = h.emailService.Update(ctx, req.TriggerID, req.Email, req.Subject, req.Content); opErr != nil {
			h.fail(c, req.Action, opErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "trigger_id": req.TriggerID})

	case "DELETE":
		if opErr = h.emailService.Cancel(ctx, req.TriggerID); opErr != nil {
			h.fail(c, req.Action, opErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "trigger_id": req.TriggerID})

	default:
		opErr = errors.New("unknown action " + req.Action)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": opErr.Error()})
	}
}

// fail maps service errors onto the response envelope. Validation failures
// are the caller's fault; trigger and store failures are not.
func (h *AutomationHandler) fail(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, email.ErrMissingField),
		errors.Is(err, email.ErrDeliveryTooSoon),
		errors.Is(err, email.ErrUnresolvedPlaceholder):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, email.ErrNotMutable), errors.Is(err, repository.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
	case repository.IsNoRows(err):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "no email found for trigger"})
	default:
		h.logger.Error("Automation action failed",
			zap.String("action", action),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "action failed"})
	}
}
