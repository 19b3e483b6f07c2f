package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string       `json:"serverAddress"`
	DatabasePath  string       `json:"databasePath"`
	DatabaseURL   string       `json:"databaseUrl"`
	PhotoStorage  PhotoStorage `json:"photoStorage"`
	Blitz         Blitz        `json:"blitz"`
	Push          Push         `json:"push"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// PhotoStorage configuration
type PhotoStorage struct {
	BasePath          string   `json:"basePath"`
	MaxFileSizeMB     int64    `json:"maxFileSizeMB"`
	AllowedExtensions []string `json:"allowedExtensions"`
}

// Blitz round timing configuration
type Blitz struct {
	RoundDurationSeconds int `json:"roundDurationSeconds"`
	SweepIntervalSeconds int `json:"sweepIntervalSeconds"`
}

// RoundDuration returns how long a round stays live after its first post.
func (b Blitz) RoundDuration() time.Duration {
	return time.Duration(b.RoundDurationSeconds) * time.Second
}

// SweepInterval returns how often the expiry sweeper checks live rounds.
func (b Blitz) SweepInterval() time.Duration {
	return time.Duration(b.SweepIntervalSeconds) * time.Second
}

// Push notification configuration (Firebase Cloud Messaging)
type Push struct {
	Enabled         bool   `json:"enabled"`
	ProjectID       string `json:"projectId"`
	CredentialsFile string `json:"credentialsFile"`
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "tapin.db",
		PhotoStorage: PhotoStorage{
			BasePath:      "./photos",
			MaxFileSizeMB: 25,
			AllowedExtensions: []string{
				".jpg", ".jpeg", ".png", ".webp", ".heic", ".heif",
			},
		},
		Blitz: Blitz{
			RoundDurationSeconds: 300,
			SweepIntervalSeconds: 5,
		},
		Push: Push{
			Enabled: false,
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	// Pull in a .env file when present; real env vars win
	_ = godotenv.Load()

	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if basePath := os.Getenv("PHOTO_STORAGE_PATH"); basePath != "" {
		cfg.PhotoStorage.BasePath = basePath
	}
	if duration := os.Getenv("BLITZ_ROUND_DURATION_SECONDS"); duration != "" {
		if secs, err := strconv.Atoi(duration); err == nil && secs > 0 {
			cfg.Blitz.RoundDurationSeconds = secs
		}
	}
	if interval := os.Getenv("BLITZ_SWEEP_INTERVAL_SECONDS"); interval != "" {
		if secs, err := strconv.Atoi(interval); err == nil && secs > 0 {
			cfg.Blitz.SweepIntervalSeconds = secs
		}
	}
	if enabled := os.Getenv("PUSH_ENABLED"); enabled != "" {
		cfg.Push.Enabled = enabled == "true" || enabled == "1"
	}
	if projectID := os.Getenv("FCM_PROJECT_ID"); projectID != "" {
		cfg.Push.ProjectID = projectID
	}
	if credsFile := os.Getenv("FCM_CREDENTIALS_FILE"); credsFile != "" {
		cfg.Push.CredentialsFile = credsFile
	}

	// Ensure photo storage directory exists
	if err := os.MkdirAll(cfg.PhotoStorage.BasePath, 0755); err != nil {
		return nil, err
	}

	// Make base path absolute
	absPath, err := filepath.Abs(cfg.PhotoStorage.BasePath)
	if err != nil {
		return nil, err
	}
	cfg.PhotoStorage.BasePath = absPath

	return cfg, nil
}
