package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	MigrationsDir     string
	JWTSecret         string
	JWTIssuer         string
	AccessTTLSeconds  int64
	RefreshTTLSeconds int64
	SystemDiskPath    string
	CorsOrigins       []string
	Port              string
	AdminUsername     string
	AdminEmail        string
	AdminPassword     string
	LogDir            string
	LogRetentionDays  int
}

func Load() Config {
	return Config{
		DatabaseURL:       mustEnv("DATABASE_URL"),
		DBMaxOpenConns:    envOrInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:    envOrInt("DB_MAX_IDLE_CONNS", 5),
		MigrationsDir:     envOr("MIGRATIONS_DIR", "migrations"),
		JWTSecret:         mustEnv("JWT_SECRET"),
		JWTIssuer:         envOr("JWT_ISSUER", "siaf"),
		AccessTTLSeconds:  int64(envOrInt("ACCESS_TTL_SECONDS", 86400)),
		RefreshTTLSeconds: int64(envOrInt("REFRESH_TTL_SECONDS", 1209600)),
		SystemDiskPath:    envOr("SYSTEM_DISK_PATH", "/"),
		CorsOrigins:       parseCSV(envOr("CORS_ORIGINS", "")),
		Port:              envOr("PORT", "8080"),
		AdminUsername:     envOr("ADMIN_USERNAME", "admin"),
		AdminEmail:        envOr("ADMIN_EMAIL", "admin@siaf.local"),
		AdminPassword:     envOr("ADMIN_PASSWORD", ""),
		LogDir:            envOr("LOG_DIR", "storage/logs"),
		LogRetentionDays:  envOrInt("LOG_RETENTION_DAYS", 7),
	}
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
