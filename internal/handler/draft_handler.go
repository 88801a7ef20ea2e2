package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sonic/internal/repository"
	"sonic/internal/service/draft"
)

type DraftHandler struct {
	draftService *draft.Service
	sessions     *draft.SessionManager
	logger       *zap.Logger
}

func NewDraftHandler(draftService *draft.Service, sessions *draft.SessionManager, logger *zap.Logger) *DraftHandler {
	return &DraftHandler{draftService: draftService, sessions: sessions, logger: logger}
}

// List handles GET /drafts
func (h *DraftHandler) List(c *gin.Context) {
	drafts, err := h.draftService.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list drafts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list drafts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

// Get handles GET /drafts/:email
func (h *DraftHandler) Get(c *gin.Context) {
	email := c.Param("email")

	d, err := h.draftService.Load(c.Request.Context(), email)
	if err != nil {
		if repository.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no draft for contact"})
			return
		}
		h.logger.Error("Failed to load draft", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load draft"})
		return
	}

	c.JSON(http.StatusOK, d)
}

// Put handles PUT /drafts/:email
func (h *DraftHandler) Put(c *gin.Context) {
	email := c.Param("email")

	var req struct {
		Draft string `json:"draft"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.draftService.Save(c.Request.Context(), email, req.Draft); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save draft"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Keystroke handles POST /drafts/:email/keystrokes. The content lands in
// the contact's autosave buffer; the write to the store happens after the
// quiet period, not per request.
func (h *DraftHandler) Keystroke(c *gin.Context) {
	email := c.Param("email")

	var req struct {
		Draft string `json:"draft"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	h.sessions.Type(c.Request.Context(), email, req.Draft)
	c.JSON(http.StatusAccepted, gin.H{"saved": h.sessions.Saved(email)})
}

// CloseSession handles DELETE /drafts/:email/session. Content that never
// reached the store comes back in the response instead of being dropped.
func (h *DraftHandler) CloseSession(c *gin.Context) {
	email := c.Param("email")

	unsaved, dirty := h.sessions.Close(email)
	if dirty {
		h.logger.Warn("Draft session closed with unsaved content",
			zap.String("email", email),
		)
	}
	c.JSON(http.StatusOK, gin.H{"dirty": dirty, "unsaved": unsaved})
}
