package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	JWT      JWTConfig
	GigaChat GigaChatConfig
	Sync     SyncConfig
	Notify   NotifyConfig
	Ledger   LedgerConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StoreConfig selects the key-value store backend: "badger" (embedded,
// default) or "postgres".
type StoreConfig struct {
	Backend string
	Path    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
}

// SyncConfig drives the debounced push of profile/challenge/leaderboard
// state to a PostgREST-compatible backend. Sync is disabled when BaseURL
// is empty.
type SyncConfig struct {
	BaseURL        string
	APIKey         string
	ServiceRoleKey string
	Debounce       time.Duration
}

// NotifyConfig points notifications at a webhook. When WebhookURL is empty
// notifications are logged only.
type NotifyConfig struct {
	WebhookURL string
}

type LedgerConfig struct {
	DefaultBudget float64
	// StreakCheckInterval is how often the idle streak checker runs.
	StreakCheckInterval time.Duration
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// If no .env file found, continue with environment variables
	// (useful for Docker/K8s)

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	syncDebounceMs, _ := strconv.Atoi(getEnv("SYNC_DEBOUNCE_MS", "1500"))
	defaultBudget, _ := strconv.ParseFloat(getEnv("LEDGER_DEFAULT_BUDGET", "1500"), 64)
	streakCheckMin, _ := strconv.Atoi(getEnv("STREAK_CHECK_INTERVAL_MINUTES", "60"))
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true"

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "badger"),
			Path:    getEnv("STORE_PATH", "data/treevut"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "treevut"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: insecureSkipVerify,
		},
		Sync: SyncConfig{
			BaseURL:        getEnv("SYNC_BASE_URL", ""),
			APIKey:         getEnv("SYNC_API_KEY", ""),
			ServiceRoleKey: getEnv("SYNC_SERVICE_ROLE_KEY", ""),
			Debounce:       time.Duration(syncDebounceMs) * time.Millisecond,
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Ledger: LedgerConfig{
			DefaultBudget:       defaultBudget,
			StreakCheckInterval: time.Duration(streakCheckMin) * time.Minute,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
