package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/mentions/internal/cli"
	"horse.fit/mentions/internal/config"
	"horse.fit/mentions/internal/logging"
)

// loadRuntime applies the env file, loads configuration, and builds the
// logger. Returns ok=false after printing the failure, so callers can bail
// with exit code 1.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, bool) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), false
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), false
	}

	return cfg, logger, true
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func consumerName(prefix, role string) string {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = "mentions"
	}
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "local"
	}
	return fmt.Sprintf("%s-%s-%s-%d", trimmed, role, host, os.Getpid())
}

func consumerBlock(cfg *config.Config) time.Duration {
	if cfg.ConsumerBlock <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.ConsumerBlock) * time.Millisecond
}
