// Package config provides centralized configuration management for rtdbpush.
// It loads configuration from environment variables with sensible defaults,
// lets command-line flags override them, and validates all settings on
// startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Source   SourceConfig
	Firebase FirebaseConfig
	Upload   UploadConfig
	History  HistoryConfig
	Logging  LoggingConfig
	Emulator EmulatorConfig
}

// SourceConfig holds settings for the local JSON document.
type SourceConfig struct {
	// Path is the JSON file to upload
	Path string `env:"SOURCE_PATH"`

	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"SOURCE_MAX_FILE_SIZE" default:"104857600"`
}

// FirebaseConfig holds Realtime Database connection settings.
type FirebaseConfig struct {
	// URL is the node to overwrite, e.g. https://<db>.firebaseio.com/medical_devices.json
	URL string `env:"FIREBASE_URL"`

	// Backend selects the writer: rest or admin (default: rest)
	Backend string `env:"FIREBASE_BACKEND" default:"rest"`

	// CredentialsFile is the service account JSON used by the admin backend
	CredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE" envAlt:"GOOGLE_APPLICATION_CREDENTIALS"`

	// ProjectID is passed to the Admin SDK when set
	ProjectID string `env:"FIREBASE_PROJECT_ID"`

	// AuthToken is sent as the auth query parameter by the rest backend
	AuthToken string `env:"FIREBASE_AUTH_TOKEN"`
}

// UploadConfig holds settings for the write itself.
type UploadConfig struct {
	// Timeout bounds the write and the optional read-back (default: 60s)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"60s"`

	// Verify reads the node back after writing and compares it (default: false)
	Verify bool `env:"UPLOAD_VERIFY" default:"false"`

	// DryRun parses the document but skips the write (default: false)
	DryRun bool `env:"UPLOAD_DRY_RUN" default:"false"`
}

// HistoryConfig holds settings for the optional run history.
type HistoryConfig struct {
	// DatabaseURL is the PostgreSQL connection string; empty disables history
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Timeout bounds connecting and recording (default: 10s)
	Timeout time.Duration `env:"HISTORY_TIMEOUT" default:"10s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// EmulatorConfig holds settings for the local Realtime Database emulator.
type EmulatorConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"EMULATOR_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 9000)
	Port int `env:"EMULATOR_PORT" default:"9000"`

	// ReadOnly rejects every write with 401, like locked security rules
	ReadOnly bool `env:"EMULATOR_READ_ONLY" default:"false"`

	// AuthToken, when set, is required as the auth query parameter on every request
	AuthToken string `env:"EMULATOR_AUTH_TOKEN"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"EMULATOR_SHUTDOWN_TIMEOUT" default:"10s"`
}

// Addr returns the emulator listen address in host:port format.
func (c *EmulatorConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// HistoryEnabled reports whether runs should be recorded.
func (c *Config) HistoryEnabled() bool {
	return c.History.DatabaseURL != ""
}
