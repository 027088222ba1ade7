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
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Matchmaking
	FreshnessWindowSeconds int
	MatchWaitSeconds       int
	MinStake               int

	// Duel rules
	RoundSeconds           int
	WinScore               int
	LockedGraceMillis      int
	CorrectAdvanceMillis   int
	LivenessTimeoutSeconds int

	// Subject catalog
	RankLimit          int
	MinRankedPool      int
	CatalogBaseURL     string
	CatalogCacheTTLMin int

	// Security
	JWTSecret       string
	TokenTTLHours   int
	StartingBalance int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/coinclash?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Matchmaking
		FreshnessWindowSeconds: getEnvInt("FRESHNESS_WINDOW_SECONDS", 30),
		MatchWaitSeconds:       getEnvInt("MATCH_WAIT_SECONDS", 15),
		MinStake:               getEnvInt("MIN_STAKE", 10),

		// Duel rules
		RoundSeconds:           getEnvInt("ROUND_SECONDS", 10),
		WinScore:               getEnvInt("WIN_SCORE", 5),
		LockedGraceMillis:      getEnvInt("LOCKED_GRACE_MILLIS", 1500),
		CorrectAdvanceMillis:   getEnvInt("CORRECT_ADVANCE_MILLIS", 1000),
		LivenessTimeoutSeconds: getEnvInt("LIVENESS_TIMEOUT_SECONDS", 30),

		// Subject catalog
		RankLimit:          getEnvInt("RANK_LIMIT", 100),
		MinRankedPool:      getEnvInt("MIN_RANKED_POOL", 10),
		CatalogBaseURL:     getEnv("CATALOG_BASE_URL", ""),
		CatalogCacheTTLMin: getEnvInt("CATALOG_CACHE_TTL_MINUTES", 60),

		// Security
		JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTLHours:   getEnvInt("TOKEN_TTL_HOURS", 24),
		StartingBalance: getEnvInt("STARTING_BALANCE", 1000),
	}
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
