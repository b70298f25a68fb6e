package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/handler"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	QuestionSet *handler.QuestionSetHandler
	Preference  *handler.PreferenceHandler
	Session     *handler.SessionHandler
	Result      *handler.ResultHandler
	WS          *handler.WSHandler
	System      *handler.SystemHandler
}

// Uploaded question sets are small JSON documents.
const maxBodyBytes = 1 << 20

// Generation calls a paid upstream API; 5 per minute per IP.
const (
	generateRate     = 5
	generateInterval = time.Minute
)

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background goroutines owned by middleware.
func SetupRouter(
	ctx context.Context,
	tokenService *service.TokenService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")
	api.Use(middleware.MaxBodySize(maxBodyBytes))
	api.GET("/health", handlers.System.Health)
	api.GET("/system/metrics", handlers.System.SystemMetricsSSE)

	// ─── 1. Question sources ───────────────────────────────────────────
	generateLimiter := middleware.NewRateLimiter(ctx, generateRate, generateInterval)

	sets := api.Group("/question-sets")
	{
		sets.GET("/sample", middleware.CacheControl(3600), handlers.QuestionSet.GetSample)
		sets.POST("/validate", handlers.QuestionSet.Validate)
		sets.POST("/upload", handlers.QuestionSet.Upload)
		sets.POST("/generate", generateLimiter.Middleware(), handlers.QuestionSet.Generate)

		sets.GET("/saved", middleware.NoStore(), handlers.QuestionSet.GetSaved)
		sets.PUT("/saved", handlers.QuestionSet.PutSaved)
		sets.DELETE("/saved", handlers.QuestionSet.DeleteSaved)
	}

	// ─── 2. Preferences ────────────────────────────────────────────────
	api.GET("/preferences", middleware.NoStore(), handlers.Preference.GetPreferences)
	api.PUT("/preferences", handlers.Preference.UpdatePreferences)

	// ─── 3. Results history (PostgreSQL only) ──────────────────────────
	api.GET("/results", middleware.NoStore(), handlers.Result.ListResults)

	// ─── 4. Sessions (session token) ───────────────────────────────────
	api.POST("/sessions", handlers.Session.CreateSession)

	session := api.Group("/sessions/:id")
	session.Use(middleware.RequireSessionToken(tokenService), middleware.NoStore())
	{
		session.GET("", handlers.Session.GetSession)
		session.POST("/answer", handlers.Session.Answer)
		session.POST("/next", handlers.Session.Next)
		session.POST("/previous", handlers.Session.Previous)
		session.POST("/goto", handlers.Session.GoTo)
		session.POST("/flag", handlers.Session.ToggleFlag)
		session.POST("/complete", handlers.Session.Complete)
		session.POST("/restart", handlers.Session.Restart)
		session.GET("/result", handlers.Session.GetResult)
		session.GET("/result/export", handlers.Session.ExportResult)
	}

	// ─── 5. WebSocket (token in query) ─────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireSessionToken(tokenService))
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionStream)
	}

	return router
}
