package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quizrail/quizrail-backend/internal/config"
	"github.com/quizrail/quizrail-backend/internal/handler"
	"github.com/quizrail/quizrail-backend/internal/middleware"
	"github.com/quizrail/quizrail-backend/internal/response"
	"github.com/quizrail/quizrail-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam      *handler.ExamHandler
	Session   *handler.SessionHandler
	Dashboard *handler.DashboardHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens *service.TokenService,
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

	// Rate limiter for session creation (30 requests per minute per IP).
	startLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Public Group ───────────────────────────────────────────────
	api := router.Group("/api/v1")
	{
		api.GET("/exams", middleware.CacheControl(60), handlers.Exam.ListExams)
		api.GET("/dashboard", handlers.Dashboard.GetDashboard)
		api.POST("/sessions", startLimiter.Middleware(), handlers.Session.Start)
	}

	// ─── 2. Session Group (Session Token) ──────────────────────────────
	sessionAPI := router.Group("/api/v1/sessions/me")
	sessionAPI.Use(middleware.RequireSessionToken(tokens))
	{
		sessionAPI.GET("", handlers.Session.GetSession)
		sessionAPI.POST("/answers", handlers.Session.Answer)
		sessionAPI.POST("/goto", handlers.Session.GoTo)
		sessionAPI.POST("/advance", handlers.Session.Advance)
		sessionAPI.POST("/finish", handlers.Session.Finish)
		sessionAPI.GET("/result", handlers.Session.GetResult)
	}

	// ─── 3. WebSocket Group (Session WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireSessionWSAuth(tokens))
	{
		ws.GET("/sessions/stream", handlers.WS.SessionStream)
	}

	return router
}
