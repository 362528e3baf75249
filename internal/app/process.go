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
	"horse.fit/mentions/internal/dedup"
	"horse.fit/mentions/internal/fetch"
	"horse.fit/mentions/internal/process"
	"horse.fit/mentions/internal/search"
	"horse.fit/mentions/internal/stream"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	topic := fs.String("topic", stream.TopicRaw, "Topic to consume")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer connectCancel()

	pool, err := db.NewPool(connectCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	broker, err := stream.NewRedisBroker(connectCtx, cfg.RedisURL, cfg.StreamMaxLen, logger)
	if err != nil {
		logger.Error().Err(err).Msg("stream connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to stream: %v\n", err)
		return 1
	}
	defer broker.Close()

	searchClient := search.NewClient(cfg.ElasticsearchURL, cfg.SearchIndex, 10*time.Second, logger)
	if err := searchClient.EnsureIndex(connectCtx); err != nil {
		logger.Error().Err(err).Msg("ensure search index failed")
		fmt.Fprintf(os.Stderr, "Failed to prepare search index: %v\n", err)
		return 1
	}

	analyzer, err := ai.NewClient(ai.Config{
		ServerURL:      cfg.OllamaURL,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
		Dimensions:     cfg.EmbeddingDims,
		RequestTimeout: time.Duration(cfg.InferenceTimeout) * time.Second,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("ai client initialization failed")
		fmt.Fprintf(os.Stderr, "Failed to initialize AI client: %v\n", err)
		return 1
	}

	hashes := dedup.NewRedisHashStore(broker.Client(), time.Duration(cfg.HashTTLHours)*time.Hour)
	fetcher := fetch.NewFetcher(time.Duration(cfg.FetchTimeout) * time.Second)

	processor, err := process.NewProcessor(broker, hashes, pool, searchClient, analyzer, fetcher, logger, process.Options{
		Topic:               *topic,
		Consumer:            consumerName(cfg.ConsumerPrefix, "processor"),
		BatchSize:           int64(cfg.ConsumerBatch),
		Block:               consumerBlock(cfg),
		RelevanceThreshold:  cfg.RelevanceThreshold,
		SimilarityThreshold: cfg.SimilarityThreshold,
		RecentWindow:        cfg.RecentTitleWindow,
		MinSnippetChars:     cfg.MinSnippetChars,
		Concurrency:         cfg.ProcessConcurrency,
	})
	if err != nil {
		logger.Error().Err(err).Msg("processor initialization failed")
		fmt.Fprintf(os.Stderr, "Failed to initialize processor: %v\n", err)
		return 1
	}
	defer processor.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := processor.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("processor failed")
		fmt.Fprintf(os.Stderr, "Processor failed: %v\n", err)
		return 1
	}
	return 0
}
