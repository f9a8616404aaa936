package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rivalpit/backend/internal/api"
	"github.com/rivalpit/backend/internal/config"
	"github.com/rivalpit/backend/internal/database"
	"github.com/rivalpit/backend/internal/matchmaking"
	"github.com/rivalpit/backend/internal/migrations"
	"github.com/rivalpit/backend/internal/redis"
	"github.com/rivalpit/backend/internal/roster"
)

func main() {
	// Initialize configuration
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis (rate-limit counters)
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	rosters := roster.NewStore(db)
	metrics := &matchmaking.Metrics{}
	svc := matchmaking.NewService(db, rosters, logger, metrics,
		time.Duration(cfg.AcceptTimeoutSecs)*time.Second, cfg.QueueScanLimit)

	// Start the timeout sweeper (cancels pending matches past their accept
	// deadline and re-queues idle teams)
	go svc.StartTimeoutSweeper(context.Background(),
		time.Duration(cfg.SweepIntervalSecs)*time.Second,
		time.Duration(cfg.SweepLockLeaseMs)*time.Millisecond)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, db, rdb, svc, metrics, rosters, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting RivalPit server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
