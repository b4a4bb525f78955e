package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	APIBaseURL      string
	APIToken        string
	APIRateLimitRPS int
	APITimeoutMs    int

	PollIntervalSec   int
	NotifyRole        string
	NotifyDriverID    int64
	NotifyDesktop     bool
	NotifyAutoExport  bool
	NotifyExportLimit int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		APIBaseURL:      getEnv("IPS_API_BASE_URL", "http://localhost:8080"),
		APIToken:        getEnv("IPS_API_TOKEN", ""),
		APIRateLimitRPS: getEnvInt("IPS_API_RATE_LIMIT_RPS", 5),
		APITimeoutMs:    getEnvInt("IPS_API_TIMEOUT_MS", 30000),

		PollIntervalSec:   getEnvInt("NOTIFY_POLL_INTERVAL_SEC", 30),
		NotifyRole:        getEnv("NOTIFY_ROLE", ""),
		NotifyDriverID:    getEnvInt64("NOTIFY_DRIVER_ID", 0),
		NotifyDesktop:     getEnvBool("NOTIFY_DESKTOP", true),
		NotifyAutoExport:  getEnvBool("NOTIFY_AUTO_EXPORT", false),
		NotifyExportLimit: getEnvInt("NOTIFY_EXPORT_LIMIT", 200),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
