package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/mentions/internal/ai"
	"horse.fit/mentions/internal/cli"
	"horse.fit/mentions/internal/db"
	"horse.fit/mentions/internal/httpapi"
	"horse.fit/mentions/internal/search"
	"horse.fit/mentions/internal/stream"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8090, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connectCancel()

	pool, err := db.NewPool(connectCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	// The broker and AI client are optional surfaces for the API: without
	// them POST /mentions and /semantic report 503 instead of failing boot.
	var broker stream.Broker
	redisBroker, err := stream.NewRedisBroker(connectCtx, cfg.RedisURL, cfg.StreamMaxLen, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("stream unavailable; mention submission disabled")
	} else {
		broker = redisBroker
		defer redisBroker.Close()
	}

	analyzer, err := ai.NewClient(ai.Config{
		ServerURL:      cfg.OllamaURL,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
		Dimensions:     cfg.EmbeddingDims,
		RequestTimeout: time.Duration(cfg.InferenceTimeout) * time.Second,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("ai client unavailable; semantic search disabled")
		analyzer = nil
	}

	searchClient := search.NewClient(cfg.ElasticsearchURL, cfg.SearchIndex, 10*time.Second, logger)

	ctx, cancel := signalContext()
	defer cancel()

	srv := httpapi.NewServer(pool, searchClient, analyzer, broker, logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
