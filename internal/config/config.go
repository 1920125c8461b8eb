package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Vendor (Garmin Connect)
	GarminToken   string
	GarminBaseURL string

	// Sync
	SyncInterval      time.Duration
	SyncYesterday     bool
	FetchTimeout      time.Duration
	VendorAPIInterval time.Duration
	MaxRetries        int

	// Retention
	SyncRunRetentionDays int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// defaultGarminBaseURL はGarmin Connect APIのデフォルトエンドポイント。
const defaultGarminBaseURL = "https://connectapi.garmin.com"

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.GarminToken = os.Getenv("GARMIN_TOKEN")
	if cfg.GarminToken == "" {
		missing = append(missing, "GARMIN_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GarminBaseURL = getEnvString("GARMIN_BASE_URL", defaultGarminBaseURL)
	cfg.SyncInterval = getEnvDuration("SYNC_INTERVAL", time.Hour)
	cfg.SyncYesterday = getEnvBool("SYNC_YESTERDAY", true)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 30*time.Second)
	cfg.VendorAPIInterval = getEnvDuration("VENDOR_API_INTERVAL", 3*time.Second)
	cfg.MaxRetries = getEnvInt("MAX_RETRIES", 3)
	cfg.SyncRunRetentionDays = getEnvInt("SYNC_RUN_RETENTION_DAYS", 90)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
