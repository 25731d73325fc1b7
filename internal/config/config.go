package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr        string
	PublicURL   string
	DatabaseURL string
	// MigrationsDir overrides the embedded migrations when set.
	MigrationsDir  string
	JWTSecret      string
	AccessTTL      time.Duration
	CORSOrigin     string
	MeiliURL       string
	MeiliMasterKey string
	// RedisURL enables the shared change channel and session store.
	RedisURL       string
	RedisChannel   string
	MaxImportBytes int64
	// SMTP Configuration
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
}

func Load() Config {
	return Config{
		Addr:           getenv("SHEETD_ADDR", ":8787"),
		PublicURL:      strings.TrimRight(getenv("SHEETD_PUBLIC_URL", "http://localhost:8787"), "/"),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		MigrationsDir:  getenv("SHEETD_MIGRATIONS_DIR", ""),
		JWTSecret:      getenv("SHEETD_JWT_SECRET", "sheetsync-dev-secret"),
		AccessTTL:      time.Duration(getenvInt("SHEETD_ACCESS_TTL_SECONDS", 86400)) * time.Second,
		CORSOrigin:     getenv("SHEETD_CORS_ORIGIN", "*"),
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		RedisURL:       getenv("REDIS_URL", ""),
		RedisChannel:   getenv("SHEETD_REDIS_CHANNEL", "sheetsync:table_data"),
		MaxImportBytes: int64(getenvInt("SHEETD_MAX_BODY_BYTES", 10<<20)),
		// SMTP - empty by default, welcome mail disabled if not configured
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPFromName: getenv("SMTP_FROM_NAME", "Sheetsync"),
	}
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
