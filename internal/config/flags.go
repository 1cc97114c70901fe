package config

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// LoadUploader loads the environment, applies rtdbpush command-line flags
// on top of it and validates the result. Flags win over environment values.
//
// When args contains -h or --help the usage is written to out and the
// returned error satisfies errors.Is(err, pflag.ErrHelp).
func LoadUploader(args []string, out io.Writer) (*Config, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet("rtdbpush", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVarP(&cfg.Source.Path, "file", "f", cfg.Source.Path, "JSON document to upload")
	fs.StringVarP(&cfg.Firebase.URL, "url", "u", cfg.Firebase.URL, "Realtime Database node URL")
	fs.StringVar(&cfg.Firebase.Backend, "backend", cfg.Firebase.Backend, "Writer backend (rest, admin)")
	fs.StringVar(&cfg.Firebase.CredentialsFile, "credentials", cfg.Firebase.CredentialsFile, "Service account file for the admin backend")
	fs.DurationVar(&cfg.Upload.Timeout, "timeout", cfg.Upload.Timeout, "Timeout for the write and read-back")
	fs.BoolVar(&cfg.Upload.Verify, "verify", cfg.Upload.Verify, "Read the node back and compare after writing")
	fs.BoolVar(&cfg.Upload.DryRun, "dry-run", cfg.Upload.DryRun, "Parse the document without writing it")
	fs.StringVar(&cfg.Firebase.AuthToken, "auth-token", cfg.Firebase.AuthToken, "Token sent as the auth query parameter (rest backend)")
	fs.StringVar(&cfg.History.DatabaseURL, "database-url", cfg.History.DatabaseURL, "PostgreSQL URL for run history")
	bindLogging(fs, cfg)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadEmulator is LoadUploader for the rtdb-emulator command.
func LoadEmulator(args []string, out io.Writer) (*Config, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet("rtdb-emulator", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.Emulator.Host, "host", cfg.Emulator.Host, "Interface to bind to")
	fs.IntVarP(&cfg.Emulator.Port, "port", "p", cfg.Emulator.Port, "Port to listen on")
	fs.BoolVar(&cfg.Emulator.ReadOnly, "read-only", cfg.Emulator.ReadOnly, "Reject every write with 401")
	fs.StringVar(&cfg.Emulator.AuthToken, "auth-token", cfg.Emulator.AuthToken, "Require this token in the auth query parameter")
	bindLogging(fs, cfg)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func bindLogging(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "Log format (text, json)")
}
