package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sonic/internal/handler"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	contactHandler *handler.ContactHandler,
	automationHandler *handler.AutomationHandler,
	emailHandler *handler.EmailHandler,
	draftHandler *handler.DraftHandler,
	settingsHandler *handler.SettingsHandler,
	dashboardHandler *handler.DashboardHandler,
	statusHandler *handler.StatusHandler,
	hookHandler *handler.HookHandler,
	jwtSecret string,
	db *pgxpool.Pool,
) *Router {
	r := gin.Default()
	r.Use(MetricsMiddleware())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// The scheduler's dispatch confirmation callback.
	r.POST("/hooks/dispatched", hookHandler.Dispatched)

	// Protected
	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.GET("/contacts", contactHandler.List)
		api.PATCH("/contacts/status", contactHandler.UpdateStatus)

		api.POST("/automation", automationHandler.Handle)
		api.POST("/schedule-sessions", emailHandler.OpenSession)
		api.POST("/preview", emailHandler.Preview)
		api.GET("/emails", emailHandler.List)

		api.GET("/drafts", draftHandler.List)
		api.GET("/drafts/:email", draftHandler.Get)
		api.PUT("/drafts/:email", draftHandler.Put)
		api.POST("/drafts/:email/keystrokes", draftHandler.Keystroke)
		api.DELETE("/drafts/:email/session", draftHandler.CloseSession)

		api.GET("/settings", settingsHandler.Get)
		api.PUT("/settings", settingsHandler.Put)
		api.POST("/resume", settingsHandler.UploadResume)
		api.GET("/resume", settingsHandler.FetchResume)

		api.GET("/dashboard", dashboardHandler.Get)
		api.GET("/status", statusHandler.Get)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
