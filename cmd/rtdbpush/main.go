package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/rtdbpush/internal/config"
	"github.com/JonMunkholm/rtdbpush/internal/core"
	"github.com/JonMunkholm/rtdbpush/internal/history"
	"github.com/JonMunkholm/rtdbpush/internal/logging"
	"github.com/JonMunkholm/rtdbpush/internal/rtdb"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	// Load .env file if it exists; real environment variables take precedence
	envLoaded := godotenv.Load() == nil

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, envLoaded)
	stop()
	os.Exit(code)
}

// run executes one upload and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, envLoaded bool) int {
	cfg, err := config.LoadUploader(args, stdout)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err == nil {
		err = cfg.RequireUpload()
	}
	if err != nil {
		fmt.Fprintf(stdout, "Configuration error: %v\n", err)
		return 1
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, stderr)
	if envLoaded {
		logger.Debug("loaded .env file")
	}
	logger.Debug("configuration loaded", "config", cfg.String())

	var recorder core.Recorder = core.NopRecorder{}
	if cfg.HistoryEnabled() {
		store, err := history.Open(ctx, cfg.History.DatabaseURL, cfg.History.Timeout)
		if err != nil {
			logger.Warn("run history disabled", "error", err)
		} else {
			defer store.Close()
			recorder = store
		}
	}

	service, err := core.NewService(writerFactory(cfg), core.Options{
		MaxFileSize: cfg.Source.MaxFileSize,
		Timeout:     cfg.Upload.Timeout,
		Verify:      cfg.Upload.Verify,
		DryRun:      cfg.Upload.DryRun,
		Out:         stdout,
		Recorder:    recorder,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		return 1
	}

	if _, err := service.Run(ctx, cfg.Source.Path); err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		fmt.Fprintln(stdout, core.MapError(err))
		return 1
	}
	return 0
}

func writerFactory(cfg *config.Config) core.WriterFactory {
	return func(ctx context.Context) (rtdb.Writer, error) {
		return rtdb.New(ctx, rtdb.Options{
			Backend:         cfg.Firebase.Backend,
			URL:             cfg.Firebase.URL,
			CredentialsFile: cfg.Firebase.CredentialsFile,
			ProjectID:       cfg.Firebase.ProjectID,
			AuthToken:       cfg.Firebase.AuthToken,
		})
	}
}
