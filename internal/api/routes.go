package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/rivalpit/backend/internal/api/handlers"
	"github.com/rivalpit/backend/internal/config"
	"github.com/rivalpit/backend/internal/matchmaking"
	"github.com/rivalpit/backend/internal/middleware"
	"github.com/rivalpit/backend/internal/roster"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client, svc *matchmaking.Service, metrics *matchmaking.Metrics, rosters *roster.Store, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	apiWindow := time.Duration(cfg.RateLimitWindowSecs) * time.Second
	authWindow := time.Duration(cfg.AuthRateLimitWindowSecs) * time.Second

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(metrics))

		// Login gets its own, much stricter window.
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, "auth", authWindow, cfg.AuthRateLimitMax))
		{
			auth.POST("/login", handlers.Login(db, cfg))
		}

		// Everything below requires a valid bearer token.
		authed := v1.Group("")
		authed.Use(middleware.RateLimit(rdb, "api", apiWindow, cfg.RateLimitMax))
		authed.Use(middleware.RequireAuth(db, cfg))
		{
			authed.GET("/teams/:id", handlers.GetTeam(db))

			mm := authed.Group("/matchmaking")
			{
				mm.GET("/status", handlers.Status(svc))
				mm.GET("/history", handlers.History(svc))

				// Queue entry is gated on a full roster; every lifecycle
				// mutation is captain-only.
				mm.POST("/queue",
					middleware.RequireCaptain(rosters),
					middleware.RequireCompleteRoster(rosters, cfg),
					handlers.Enqueue(svc))
				mm.POST("/cancel", middleware.RequireCaptain(rosters), handlers.CancelQueue(svc))
				mm.POST("/accept", middleware.RequireCaptain(rosters), handlers.Accept(svc))
				mm.POST("/decline", middleware.RequireCaptain(rosters), handlers.Decline(svc))
				mm.POST("/finish", middleware.RequireCaptain(rosters), handlers.Finish(svc))
			}
		}
	}
}
