package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Matchmaking
	AcceptTimeoutSecs        int
	WeeklyAllowancePerPlayer int64
	QueueScanLimit           int

	// Timeout sweeper
	SweepIntervalSecs int
	SweepLockLeaseMs  int

	// Development-only: lets incomplete rosters enter matchmaking
	DevSkipRosterGate bool

	// Rate limiting
	RateLimitWindowSecs     int
	RateLimitMax            int
	AuthRateLimitWindowSecs int
	AuthRateLimitMax        int

	// Security
	JWTSecret       string
	TokenTTLMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/rivalpit?sslmode=disable"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Matchmaking
		AcceptTimeoutSecs:        getEnvInt("MATCH_ACCEPT_TIMEOUT_SECS", 60),
		WeeklyAllowancePerPlayer: int64(getEnvInt("WEEKLY_ALLOWANCE_PER_PLAYER", 200)),
		QueueScanLimit:           getEnvInt("QUEUE_SCAN_LIMIT", 100),

		// Timeout sweeper
		SweepIntervalSecs: getEnvInt("TIMEOUT_SWEEP_SECS", 5),
		SweepLockLeaseMs:  getEnvInt("TIMEOUT_SWEEP_LOCK_MS", 0),

		// Development helpers
		DevSkipRosterGate: getEnv("DEV_SKIP_ROSTER_GATE", "false") == "true",

		// Rate limiting
		RateLimitWindowSecs:     getEnvInt("RATE_LIMIT_WINDOW_SECS", 60),
		RateLimitMax:            getEnvInt("RATE_LIMIT_MAX", 120),
		AuthRateLimitWindowSecs: getEnvInt("AUTH_RATE_LIMIT_WINDOW_SECS", 900),
		AuthRateLimitMax:        getEnvInt("AUTH_RATE_LIMIT_MAX", 20),

		// Security
		JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTLMinutes: getEnvInt("TOKEN_TTL_MINUTES", 720),
	}

	// Lease defaults to a multiple of the sweep interval so a dead holder
	// blocks peers for a bounded number of cycles.
	if cfg.SweepLockLeaseMs <= 0 {
		cfg.SweepLockLeaseMs = cfg.SweepIntervalSecs * 3 * 1000
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
