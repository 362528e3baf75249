package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/mentions/internal/cli"
	"horse.fit/mentions/internal/dedup"
	"horse.fit/mentions/internal/enrich"
	"horse.fit/mentions/internal/stream"
)

func runDedup(args []string) int {
	fs := flag.NewFlagSet("dedup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

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

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connectCancel()

	broker, err := stream.NewRedisBroker(connectCtx, cfg.RedisURL, cfg.StreamMaxLen, logger)
	if err != nil {
		logger.Error().Err(err).Msg("stream connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to stream: %v\n", err)
		return 1
	}
	defer broker.Close()

	hashes := dedup.NewRedisHashStore(broker.Client(), time.Duration(cfg.HashTTLHours)*time.Hour)

	worker := dedup.NewWorker(broker, hashes, logger, dedup.Options{
		InTopic:   stream.TopicRaw,
		OutTopic:  stream.TopicDeduplicated,
		Consumer:  consumerName(cfg.ConsumerPrefix, "dedup"),
		BatchSize: int64(cfg.ConsumerBatch),
		Block:     consumerBlock(cfg),
	})

	ctx, cancel := signalContext()
	defer cancel()

	if err := worker.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("dedup worker failed")
		fmt.Fprintf(os.Stderr, "Dedup worker failed: %v\n", err)
		return 1
	}
	return 0
}

func runEnrich(args []string) int {
	fs := flag.NewFlagSet("enrich", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	topic := fs.String("topic", stream.TopicRaw, "Topic to annotate in place")

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

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connectCancel()

	broker, err := stream.NewRedisBroker(connectCtx, cfg.RedisURL, cfg.StreamMaxLen, logger)
	if err != nil {
		logger.Error().Err(err).Msg("stream connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to stream: %v\n", err)
		return 1
	}
	defer broker.Close()

	worker := enrich.NewWorker(broker, logger, enrich.Options{
		Topic:     *topic,
		Consumer:  consumerName(cfg.ConsumerPrefix, "enrich"),
		BatchSize: int64(cfg.ConsumerBatch),
		Block:     consumerBlock(cfg),
	})

	ctx, cancel := signalContext()
	defer cancel()

	if err := worker.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("enrichment worker failed")
		fmt.Fprintf(os.Stderr, "Enrichment worker failed: %v\n", err)
		return 1
	}
	return 0
}
