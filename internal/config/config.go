package config

import (
	"os"
	"strconv"
	"strings"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
)

type Config struct {
	Port        string
	Environment string
	StoreDriver string
	CORSOrigins string
	// Document store
	MongoURI          string
	MongoDatabase     string
	MongoCollection   string
	MongoTransactions bool
	// Relational store
	DatabaseURL string
	TablePrefix string
	// Auth: JWT verification is enabled when JWKSURL is set, otherwise every
	// request runs as DevUserID.
	JWKSURL   string
	DevUserID string
	// Optional log file
	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       env,
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:3000"),
		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGODB_DB_NAME", "bookmarks"),
		MongoCollection:   getEnv("MONGODB_COLLECTION", "bookmarks"),
		MongoTransactions: getEnv("MONGODB_TRANSACTIONS", "false") == "true",
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		TablePrefix:       getTablePrefix(env),
		JWKSURL:           getEnv("AUTH_JWKS_URL", ""),
		DevUserID:         getEnv("DEV_USER_ID", "local"),
		LogDir:            getEnv("LOG_DIR", ""),
		LogMaxFiles:       getEnvInt("LOG_MAX_FILES", 10),
	}
}

// AuthEnabled reports whether requests must carry a verified JWT.
func (c *Config) AuthEnabled() bool {
	return c.JWKSURL != ""
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}
