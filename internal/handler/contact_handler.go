package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sonic/internal/model"
	"sonic/internal/notion"
	"sonic/internal/service/draft"
)

type ContactHandler struct {
	contacts     *notion.Client
	draftService *draft.Service
	logger       *zap.Logger
}

func NewContactHandler(contacts *notion.Client, draftService *draft.Service, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, draftService: draftService, logger: logger}
}

// List handles GET /contacts?status=Email&status=Stalled
// Contacts carrying a stored draft are flagged so the backlog table can
// show the drafted indicator.
func (h *ContactHandler) List(c *gin.Context) {
	var statuses []model.ContactStatus
	for _, raw := range c.QueryArray("status") {
		s := model.ContactStatus(raw)
		switch s {
		case model.ContactStatusEmail, model.ContactStatusStalled, model.ContactStatusContacted:
			statuses = append(statuses, s)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + raw})
			return
		}
	}

	contacts, err := h.contacts.FetchContacts(c.Request.Context(), statuses)
	if err != nil {
		h.logger.Error("Failed to fetch contacts", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "contact source unavailable"})
		return
	}

	drafted := map[string]bool{}
	if drafts, err := h.draftService.List(c.Request.Context()); err != nil {
		h.logger.Warn("Failed to list drafts for contact flags", zap.Error(err))
	} else {
		for _, d := range drafts {
			drafted[d.Email] = true
		}
	}

	type contactRow struct {
		model.Contact
		HasDraft bool `json:"hasDraft"`
	}
	rows := make([]contactRow, 0, len(contacts))
	for _, contact := range contacts {
		rows = append(rows, contactRow{Contact: contact, HasDraft: drafted[contact.Email]})
	}

	c.JSON(http.StatusOK, gin.H{"contacts": rows})
}

// UpdateStatus handles PATCH /contacts/status
func (h *ContactHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Email  string              `json:"email" binding:"required"`
		Status model.ContactStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	switch req.Status {
	case model.ContactStatusEmail, model.ContactStatusStalled, model.ContactStatusContacted:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	err := h.contacts.UpdateStatus(c.Request.Context(), req.Email, req.Status)
	if err != nil {
		if errors.Is(err, notion.ErrNoPageFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, notion.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to update contact status",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "contact source unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
