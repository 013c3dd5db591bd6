package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/domain/positions"
	"github.com/remindly/geotrigger/internal/app/domain/reminder"
	"github.com/remindly/geotrigger/internal/app/engine"
	"github.com/remindly/geotrigger/internal/pkg/config"
)

type AppHandlers struct {
	Reminders *reminder.Handler
	Positions *positions.Handler
	Engine    *engine.Engine
}

// Setup builds the handler set around the running engine and registers all
// routes.
func Setup(r *gin.Engine, cfg *config.Config, eng *engine.Engine, log *zap.Logger) {
	handlers := setupDependencies(cfg, eng, log)
	setupRouter(r, handlers, log)
}

func setupDependencies(cfg *config.Config, eng *engine.Engine, log *zap.Logger) *AppHandlers {
	return &AppHandlers{
		Reminders: reminder.NewHandler(eng.Reminders, log),
		Positions: positions.NewHandler(eng.Monitor, eng.Store, cfg.Engine.StreamDistanceFilter, log),
		Engine:    eng,
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers, log *zap.Logger) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		remindersGroup := api.Group("/reminders")
		{
			remindersGroup.POST("/calendar", h.Reminders.CreateCalendar)
			remindersGroup.POST("/location", h.Reminders.CreateLocation)
			remindersGroup.GET("", h.Reminders.List)
			remindersGroup.GET("/:id", h.Reminders.Get)
			remindersGroup.POST("/:id/complete", h.Reminders.Complete)
			remindersGroup.POST("/:id/dismiss", h.Reminders.Dismiss)
			remindersGroup.POST("/:id/cancel", h.Reminders.Cancel)
			remindersGroup.DELETE("/:id", h.Reminders.Delete)
		}

		api.DELETE("/summaries/:id/reminders", h.Reminders.DeleteBySummary)

		positionsGroup := api.Group("/positions")
		{
			positionsGroup.POST("", h.Positions.Submit)
			positionsGroup.GET("/stream", h.Positions.HandleWebSocket)
		}

		api.GET("/engine/status", func(c *gin.Context) {
			status, err := h.Engine.Status(c.Request.Context())
			if err != nil {
				log.Error("failed to read engine status", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine unavailable"})
				return
			}
			c.JSON(http.StatusOK, status)
		})
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
