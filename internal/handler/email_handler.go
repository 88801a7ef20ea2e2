package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sonic/internal/model"
	"sonic/internal/repository"
	"sonic/internal/service/email"
	"sonic/internal/storage"
)

type EmailHandler struct {
	emailService *email.Service
	emailRepo    *repository.EmailRepository
	settingsRepo *repository.SettingsRepository
	resumeStore  *storage.ResumeStore
	accountEmail string
	logger       *zap.Logger
}

func NewEmailHandler(
	emailService *email.Service,
	emailRepo *repository.EmailRepository,
	settingsRepo *repository.SettingsRepository,
	resumeStore *storage.ResumeStore,
	accountEmail string,
	logger *zap.Logger,
) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
		emailRepo:    emailRepo,
		settingsRepo: settingsRepo,
		resumeStore:  resumeStore,
		accountEmail: accountEmail,
		logger:       logger,
	}
}

// List handles GET /emails?status=PENDING
func (h *EmailHandler) List(c *gin.Context) {
	status := model.EmailStatus(c.DefaultQuery("status", string(model.EmailStatusPending)))
	switch status {
	case model.EmailStatusPending, model.EmailStatusCompleted, model.EmailStatusError:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	emails, err := h.emailRepo.ListByStatus(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("Failed to list emails", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list emails"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"emails": emails})
}

// OpenSession handles POST /schedule-sessions. It snapshots the stored
// template, subject, resume URL and the pending count the quota was
// checked against; the form submits against this snapshot.
func (h *EmailHandler) OpenSession(c *gin.Context) {
	ctx := c.Request.Context()

	settings, resumeURL, err := h.loadSetup(c)
	if err != nil {
		return
	}

	session, err := h.emailService.OpenSession(ctx, settings, resumeURL)
	if err != nil {
		switch {
		case errors.Is(err, email.ErrSetupIncomplete):
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
		case errors.Is(err, email.ErrPendingQuotaExceeded):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to open schedule session", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		}
		return
	}

	c.JSON(http.StatusOK, session)
}

// Preview handles POST /preview
func (h *EmailHandler) Preview(c *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required"`
		University string `json:"university" binding:"required"`
		Custom     string `json:"custom"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	settings, _, err := h.loadSetup(c)
	if err != nil {
		return
	}
	if settings == nil || settings.Template == "" {
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "no template configured"})
		return
	}

	body, err := h.emailService.Preview(settings, req.Name, model.University(req.University), req.Custom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"body": body, "subject": settings.Subject})
}

// loadSetup fetches the account settings and the resume URL, writing the
// error response itself on failure. Missing settings are returned as nil
// rather than an error so callers can apply their own gate.
func (h *EmailHandler) loadSetup(c *gin.Context) (*model.Settings, string, error) {
	ctx := c.Request.Context()

	settings, err := h.settingsRepo.Find(ctx, h.accountEmail)
	if err != nil && !repository.IsNoRows(err) {
		h.logger.Error("Failed to load settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return nil, "", err
	}

	resumeURL := ""
	exists, err := h.resumeStore.Exists(ctx)
	if err != nil {
		h.logger.Error("Failed to check resume", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check resume"})
		return nil, "", err
	}
	if exists {
		resumeURL = h.resumeStore.PublicURL()
	}

	return settings, resumeURL, nil
}
