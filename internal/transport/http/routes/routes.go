package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/florafleet/pollination-api/internal/infra/config"
	"github.com/florafleet/pollination-api/internal/transport/http/handlers"
	"github.com/florafleet/pollination-api/internal/transport/http/middleware"
)

// Dependencies carries everything the router needs.
type Dependencies struct {
	Config  *config.AppConfig
	Logger  *zap.Logger
	Auth    *handlers.AuthHandler
	Drones  *handlers.DroneHandler
	Flowers *handlers.FlowerHandler
	Health  *handlers.HealthHandler
	Tokens  middleware.AccessTokenParser
	Limiter *middleware.RateLimiter
	Metrics *middleware.HTTPMetrics
}

// New assembles the Gin engine with middleware and every route group.
func New(deps Dependencies) *gin.Engine {
	if !deps.Config.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.EnrichContext())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Handler())
	}

	router.GET("/healthz", deps.Health.Status)
	router.GET("/readyz", deps.Health.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", deps.Auth.Register)
		auth.POST("/login", limited(deps, "login", deps.Config.RateLimit.LoginMaxAttempts), deps.Auth.Login)
		auth.POST("/reset", limited(deps, "password_reset", deps.Config.RateLimit.PasswordResetMaxAttempts), deps.Auth.RequestPasswordReset)
		auth.POST("/logout", deps.Auth.Logout)

		authed := auth.Group("")
		authed.Use(middleware.RequireAuth(deps.Tokens))
		{
			authed.GET("/me", deps.Auth.Me)
			authed.PUT("/me", deps.Auth.UpdateProfile)
			authed.PUT("/password", deps.Auth.ChangePassword)
		}
	}

	drones := v1.Group("/drones")
	drones.Use(middleware.RequireAuth(deps.Tokens))
	{
		drones.POST("", deps.Drones.Register)
		drones.GET("", deps.Drones.List)
		drones.GET("/search", deps.Drones.Search)
		drones.GET("/stats", deps.Drones.Statistics)
		drones.PUT("/status", deps.Drones.BulkUpdateStatus)
		drones.GET("/status/:status", deps.Drones.ListByStatus)
		drones.GET("/:id", deps.Drones.Get)
		drones.PUT("/:id", deps.Drones.Update)
		drones.DELETE("/:id", deps.Drones.Delete)
		drones.GET("/:id/status", deps.Drones.GetStatus)
		drones.PUT("/:id/status", deps.Drones.UpdateStatus)
		drones.POST("/:id/status/reset", deps.Drones.ResetStatus)
		drones.GET("/:id/log", deps.Drones.ActivityLog)
		drones.POST("/:id/log", deps.Drones.AppendActivity)
	}

	flowers := v1.Group("/flowers")
	flowers.Use(middleware.RequireAuth(deps.Tokens))
	{
		flowers.POST("", deps.Flowers.Create)
		flowers.GET("", deps.Flowers.List)
		flowers.GET("/top-rated", deps.Flowers.TopRated)
		flowers.GET("/species", deps.Flowers.Species)
		flowers.GET("/recent", deps.Flowers.Recent)
		flowers.GET("/stats", deps.Flowers.Statistics)
		flowers.GET("/ratings/average", deps.Flowers.AverageRating)
		flowers.GET("/:id", deps.Flowers.Get)
		flowers.PUT("/:id", deps.Flowers.Update)
		flowers.DELETE("/:id", deps.Flowers.Delete)
		flowers.POST("/:id/ratings", deps.Flowers.Rate)
		flowers.POST("/:id/image", deps.Flowers.UploadImage)
		flowers.GET("/:id/image", deps.Flowers.Image)
	}

	return router
}

func limited(deps Dependencies, name string, limit int) gin.HandlerFunc {
	if deps.Limiter == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	return deps.Limiter.RateLimit(middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	})
}
