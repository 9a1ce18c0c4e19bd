package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pathlight/assessment-backend/internal/config"
	"github.com/pathlight/assessment-backend/internal/handler"
	"github.com/pathlight/assessment-backend/internal/middleware"
	"github.com/pathlight/assessment-backend/internal/response"
	"github.com/pathlight/assessment-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Assessment *handler.AssessmentHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/guest", handlers.Auth.GuestLogin)
	}

	// ─── 2. Assessment Group (Guest JWT) ───────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireOwnerJWT(authService))
	{
		api.GET("/tests", handlers.Assessment.ListTests)
		api.POST("/tests/:test_id/start", handlers.Assessment.StartSession)

		api.GET("/sessions/:session_id/questions", handlers.Assessment.FetchPage)
		api.POST("/sessions/:session_id/answers", handlers.Assessment.SubmitAnswers)
		api.POST("/sessions/:session_id/demographics", handlers.Assessment.AttachDemographics)
		api.POST("/sessions/:session_id/abort", handlers.Assessment.AbortSession)
		api.GET("/sessions/:session_id/result", handlers.Assessment.GetResult)
	}

	// ─── 3. WebSocket Group (Guest WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireOwnerWSAuth(authService))
	{
		ws.GET("/sessions/:session_id/countdown", handlers.WS.CountdownStream)
	}

	return router
}
