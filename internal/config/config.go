package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"loan-console/internal/pkg/logger"
)

// Storage backends for the session store
const (
	StorageFile   = "file"
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all configuration for the console
type Config struct {
	AppMode   string
	Port      string
	API       APIConfig
	Storage   StorageConfig
	Dashboard DashboardConfig
	Cookie    CookieConfig
	Log       logger.Config
}

// APIConfig describes the remote loan service
type APIConfig struct {
	BaseURL string
	// Timeout of zero leaves the transport default in place
	Timeout    time.Duration
	FetchLimit int
}

// StorageConfig selects where session tokens are cached
type StorageConfig struct {
	Backend  string
	Path     string
	Database DatabaseConfig
}

// DatabaseConfig holds database configuration for the mysql storage backend
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DashboardConfig holds list and workflow policy values
type DashboardConfig struct {
	AdminPageSize       int
	VerifierPageSize    int
	UserPageSize        int
	RepaymentWindowDays int
	BannerDuration      time.Duration
	PollSchedule        string
	// WorkspaceIdle is how long an unused device workspace stays in memory
	WorkspaceIdle time.Duration
}

// CookieConfig holds device cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	api, err := loadAPIConfig()
	if err != nil {
		return nil, err
	}
	storage, err := loadStorageConfig(appMode)
	if err != nil {
		return nil, err
	}
	dashboard, err := loadDashboardConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		AppMode:   appMode,
		Port:      getEnv("PORT", "3000"),
		API:       api,
		Storage:   storage,
		Dashboard: dashboard,
		Cookie:    loadCookieConfig(appMode),
		Log: logger.Config{
			Level: getEnv("LOG_LEVEL", "info"),
			Dev:   getEnv("LOG_DEV", boolString(appMode == "dev")) == "1",
		},
	}

	return config, nil
}

// loadAPIConfig loads the loan service settings
func loadAPIConfig() (APIConfig, error) {
	baseURL := strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:5000"), "/")

	timeout, err := getDuration("API_TIMEOUT", 0)
	if err != nil {
		return APIConfig{}, err
	}

	return APIConfig{
		BaseURL:    baseURL,
		Timeout:    timeout,
		FetchLimit: getInt("FETCH_LIMIT", 100),
	}, nil
}

// loadStorageConfig loads storage config based on mode
func loadStorageConfig(mode string) (StorageConfig, error) {
	backend := strings.ToLower(getEnv("STORAGE_BACKEND", StorageFile))
	switch backend {
	case StorageFile, StorageMySQL, StorageMemory:
	default:
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_BACKEND: '%s' (must be file, mysql or memory)", backend)
	}

	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return StorageConfig{
		Backend: backend,
		Path:    getEnv("STORAGE_PATH", defaultStoragePath()),
		Database: DatabaseConfig{
			Host:     getEnv(prefix+"DB_HOST", "localhost"),
			Port:     getEnv(prefix+"DB_PORT", "3306"),
			User:     getEnv(prefix+"DB_USER", "root"),
			Password: getEnv(prefix+"DB_PASS", ""),
			DBName:   getEnv(prefix+"DB_NAME", "loan_console"),
		},
	}, nil
}

// loadDashboardConfig loads page sizes and workflow policy
func loadDashboardConfig() (DashboardConfig, error) {
	banner, err := getDuration("BANNER_DURATION", 3*time.Second)
	if err != nil {
		return DashboardConfig{}, err
	}
	idle, err := getDuration("WORKSPACE_IDLE_TIMEOUT", 30*time.Minute)
	if err != nil {
		return DashboardConfig{}, err
	}

	return DashboardConfig{
		AdminPageSize:       getInt("ADMIN_PAGE_SIZE", 6),
		VerifierPageSize:    getInt("VERIFIER_PAGE_SIZE", 6),
		UserPageSize:        getInt("USER_PAGE_SIZE", 5),
		RepaymentWindowDays: getInt("REPAYMENT_WINDOW_DAYS", 30),
		BannerDuration:      banner,
		PollSchedule:        getEnv("POLL_SCHEDULE", "@every 60s"),
		WorkspaceIdle:       idle,
	}, nil
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "loan-console", "storage.json")
	}
	return filepath.Join(home, ".loan-console", "storage.json")
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost:" + c.Port
	}
	return origins
}
