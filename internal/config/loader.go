package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadEnv() (*Config, error) {
	cfg := &Config{}
	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := os.Getenv(envName)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = os.Getenv(alt)
		}

		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Source.MaxFileSize <= 0 {
		errs = append(errs, "SOURCE_MAX_FILE_SIZE must be positive")
	}

	if c.Firebase.URL != "" {
		if u, err := url.Parse(c.Firebase.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("FIREBASE_URL (%q) must be an absolute http or https URL", c.Firebase.URL))
		}
	}
	switch strings.ToLower(c.Firebase.Backend) {
	case "rest":
	case "admin":
		if c.Firebase.CredentialsFile == "" {
			errs = append(errs, "FIREBASE_CREDENTIALS_FILE is required when FIREBASE_BACKEND is admin")
		}
	default:
		errs = append(errs, fmt.Sprintf("FIREBASE_BACKEND (%q) must be one of: rest, admin", c.Firebase.Backend))
	}

	if c.Upload.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}
	if c.History.Timeout <= 0 {
		errs = append(errs, "HISTORY_TIMEOUT must be positive")
	}

	if c.Emulator.Port <= 0 || c.Emulator.Port > 65535 {
		errs = append(errs, fmt.Sprintf("EMULATOR_PORT (%d) must be 1-65535", c.Emulator.Port))
	}
	if c.Emulator.ShutdownTimeout <= 0 {
		errs = append(errs, "EMULATOR_SHUTDOWN_TIMEOUT must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// RequireUpload checks the settings only the uploader needs.
func (c *Config) RequireUpload() error {
	var missing []string
	if c.Source.Path == "" {
		missing = append(missing, "SOURCE_PATH (--file)")
	}
	if c.Firebase.URL == "" {
		missing = append(missing, "FIREBASE_URL (--url)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials and connection strings are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Source: {Path: %q, MaxFileSize: %d}, ", c.Source.Path, c.Source.MaxFileSize))
	b.WriteString(fmt.Sprintf("Firebase: {URL: %q, Backend: %q, AuthToken: %s}, ",
		c.Firebase.URL, c.Firebase.Backend, mask(c.Firebase.AuthToken)))
	b.WriteString(fmt.Sprintf("Upload: {Timeout: %s, Verify: %v, DryRun: %v}, ",
		c.Upload.Timeout, c.Upload.Verify, c.Upload.DryRun))
	b.WriteString(fmt.Sprintf("History: {DatabaseURL: %s}, ", mask(c.History.DatabaseURL)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}, ", c.Logging.Level, c.Logging.Format))
	b.WriteString(fmt.Sprintf("Emulator: {Addr: %q, ReadOnly: %v, AuthToken: %s}",
		c.Emulator.Addr(), c.Emulator.ReadOnly, mask(c.Emulator.AuthToken)))
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
