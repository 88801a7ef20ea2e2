package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sonic/internal/model"
	"sonic/internal/repository"
	"sonic/internal/storage"
)

type SettingsHandler struct {
	settingsRepo *repository.SettingsRepository
	resumeStore  *storage.ResumeStore
	accountEmail string
	logger       *zap.Logger
}

func NewSettingsHandler(
	settingsRepo *repository.SettingsRepository,
	resumeStore *storage.ResumeStore,
	accountEmail string,
	logger *zap.Logger,
) *SettingsHandler {
	return &SettingsHandler{
		settingsRepo: settingsRepo,
		resumeStore:  resumeStore,
		accountEmail: accountEmail,
		logger:       logger,
	}
}

// Get handles GET /settings. The resume state rides along so the setup
// page renders from one call.
func (h *SettingsHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	settings, err := h.settingsRepo.Find(ctx, h.accountEmail)
	if err != nil {
		if !repository.IsNoRows(err) {
			h.logger.Error("Failed to load settings", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
			return
		}
		settings = &model.Settings{Email: h.accountEmail}
	}

	resumeURL := ""
	exists, err := h.resumeStore.Exists(ctx)
	if err != nil {
		h.logger.Error("Failed to check resume", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check resume"})
		return
	}
	if exists {
		resumeURL = h.resumeStore.PublicURL()
	}

	c.JSON(http.StatusOK, gin.H{
		"settings":   settings,
		"has_resume": exists,
		"resume_url": resumeURL,
	})
}

// Put handles PUT /settings
func (h *SettingsHandler) Put(c *gin.Context) {
	var req struct {
		Template string `json:"template" binding:"required"`
		Subject  string `json:"subject" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	settings := &model.Settings{
		Email:    h.accountEmail,
		Template: req.Template,
		Subject:  req.Subject,
	}
	if err := h.settingsRepo.Save(c.Request.Context(), settings); err != nil {
		h.logger.Error("Failed to save settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UploadResume handles POST /resume (multipart, field "resume")
func (h *SettingsHandler) UploadResume(c *gin.Context) {
	file, err := c.FormFile("resume")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing resume file"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable resume file"})
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	err = h.resumeStore.Upload(c.Request.Context(), src, file.Size, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrResumeTooLarge) || errors.Is(err, storage.ErrResumeNotPDF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to upload resume", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload resume"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "resume_url": h.resumeStore.PublicURL()})
}

// FetchResume handles GET /resume
func (h *SettingsHandler) FetchResume(c *gin.Context) {
	obj, err := h.resumeStore.Fetch(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to fetch resume", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "no resume stored"})
		return
	}
	defer obj.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="`+storage.ResumeObjectName+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, obj); err != nil {
		h.logger.Warn("Resume stream interrupted", zap.Error(err))
	}
}
