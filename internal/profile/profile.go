package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the analysis server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// Driver is the history database driver (sqlite)
	Driver string
	// DSN points to the activity-log database the companion bot maintains
	DSN string
	// Version is the current version of server
	Version string
	// Timezone is the default IANA timezone for requests that omit one
	Timezone string
	// HistoryWindow is how many recent log entries feed each analysis
	HistoryWindow int

	// AI Configuration
	AIEnabled        bool   // KIROKU_AI_ENABLED
	AIProvider       string // KIROKU_AI_PROVIDER (default: deepseek)
	AIAPIKey         string // KIROKU_AI_API_KEY
	AIBaseURL        string // KIROKU_AI_BASE_URL (default: https://api.deepseek.com)
	AIModel          string // KIROKU_AI_MODEL (default: deepseek-chat)
	AITimeoutSeconds int    // KIROKU_AI_TIMEOUT_SECONDS (default: 30)
	AIMaxRetries     int    // KIROKU_AI_MAX_RETRIES (default: 3)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key or base URL is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIAPIKey != "" || p.AIBaseURL != "")
}

// AITimeout returns the classifier call timeout as a duration.
func (p *Profile) AITimeout() time.Duration {
	return time.Duration(p.AITimeoutSeconds) * time.Second
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvOrDefault returns the environment variable parsed as int, or the default.
func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// FromEnv loads configuration from KIROKU_* environment variables.
// Empty values fall back to defaults.
func (p *Profile) FromEnv() {
	p.Timezone = getEnvOrDefault("KIROKU_TIMEZONE", "Asia/Tokyo")
	p.HistoryWindow = getIntEnvOrDefault("KIROKU_HISTORY_WINDOW", 5)

	p.AIEnabled = os.Getenv("KIROKU_AI_ENABLED") == "true"
	p.AIProvider = getEnvOrDefault("KIROKU_AI_PROVIDER", "deepseek")
	p.AIAPIKey = os.Getenv("KIROKU_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("KIROKU_AI_BASE_URL", "https://api.deepseek.com")
	p.AIModel = getEnvOrDefault("KIROKU_AI_MODEL", "deepseek-chat")
	p.AITimeoutSeconds = getIntEnvOrDefault("KIROKU_AI_TIMEOUT_SECONDS", 30)
	p.AIMaxRetries = getIntEnvOrDefault("KIROKU_AI_MAX_RETRIES", 3)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/kiroku"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("kiroku_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return errors.Wrapf(err, "invalid default timezone %q", p.Timezone)
	}

	if p.HistoryWindow < 0 {
		p.HistoryWindow = 0
	}

	return nil
}
