package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	Paths     PathsConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Sync      SyncConfig
	Publish   PublishConfig
	Content   ContentConfig
	APIKeys   APIKeysConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	BaseDir  string
	Statics  string
	Media    string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type SchedulerConfig struct {
	TickInterval    time.Duration
	JobTickInterval time.Duration
	PublishTimeout  time.Duration
	WorkerPoolSize  int
	WorkerQueueSize int
}

type SyncConfig struct {
	Enabled           bool
	RemoteURL         string
	AuthToken         string
	HeartbeatInterval time.Duration
	RequestTimeout    time.Duration
}

type PublishConfig struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	MaxImageWidth  int
}

type ContentConfig struct {
	Provider    string // "openai" or "gemini"
	Model       string
	DefaultTone string
	MaxChars    int
	CallTimeout time.Duration
}

type APIKeysConfig struct {
	Gemini  string
	OpenAI  string
	Listing string // Fallback bearer for the listing publish API
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from a .env file (if present) and
// environment variables, falling back to defaults.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	baseDir := getEnv("APP_BASE_DIR", "storages")

	debug := getEnvBool("APP_DEBUG", false) || getEnvBool("DEBUG", false)

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.4.2",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Statics:  getEnv("PATH_STATICS", "statics"),
		Media:    getEnv("PATH_MEDIA", filepath.Join("statics", "media")),
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "postpilot.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "postpilot:"),
	}

	schedulerCfg := SchedulerConfig{
		TickInterval:    getEnvDuration("SCHEDULER_TICK_INTERVAL", time.Minute),
		JobTickInterval: getEnvDuration("SCHEDULER_JOB_TICK_INTERVAL", time.Minute),
		PublishTimeout:  getEnvDuration("SCHEDULER_PUBLISH_TIMEOUT", 30*time.Second),
		WorkerPoolSize:  getEnvInt("SCHEDULER_WORKER_POOL_SIZE", 8),
		WorkerQueueSize: getEnvInt("SCHEDULER_WORKER_QUEUE_SIZE", 256),
	}

	syncCfg := SyncConfig{
		Enabled:           getEnvBool("SYNC_ENABLED", false),
		RemoteURL:         getEnv("SYNC_REMOTE_URL", ""),
		AuthToken:         getEnv("SYNC_AUTH_TOKEN", ""),
		HeartbeatInterval: getEnvDuration("SYNC_HEARTBEAT_INTERVAL", 5*time.Minute),
		RequestTimeout:    getEnvDuration("SYNC_REQUEST_TIMEOUT", 15*time.Second),
	}

	publishCfg := PublishConfig{
		APIBaseURL:     getEnv("PUBLISH_API_BASE_URL", "https://mybusiness.googleapis.com/v4"),
		RequestTimeout: getEnvDuration("PUBLISH_REQUEST_TIMEOUT", 30*time.Second),
		MaxImageWidth:  getEnvInt("PUBLISH_MAX_IMAGE_WIDTH", 1200),
	}

	contentCfg := ContentConfig{
		Provider:    getEnv("CONTENT_PROVIDER", "openai"),
		Model:       getEnv("CONTENT_MODEL", ""),
		DefaultTone: getEnv("CONTENT_DEFAULT_TONE", "professional"),
		MaxChars:    getEnvInt("CONTENT_MAX_CHARS", 1500),
		CallTimeout: getEnvDuration("CONTENT_CALL_TIMEOUT", 60*time.Second),
	}

	cfg := &Config{
		App:       appCfg,
		Paths:     pathsCfg,
		Database:  dbCfg,
		Scheduler: schedulerCfg,
		Sync:      syncCfg,
		Publish:   publishCfg,
		Content:   contentCfg,
		APIKeys: APIKeysConfig{
			Gemini:  getEnv("GEMINI_API_KEY", ""),
			OpenAI:  getEnv("OPENAI_API_KEY", ""),
			Listing: getEnv("LISTING_API_TOKEN", ""),
		},
	}

	Global = cfg
	return cfg, nil
}
