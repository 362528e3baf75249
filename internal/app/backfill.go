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
)

func runBackfill(args []string) int {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 100, "Maximum mentions to backfill in this run")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *limit <= 0 || *limit > 10_000 {
		fmt.Fprintln(os.Stderr, "--limit must be between 1 and 10000")
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

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

	candidates, err := pool.MentionsMissingEmbedding(ctx, *limit)
	if err != nil {
		logger.Error().Err(err).Msg("list embedding candidates failed")
		fmt.Fprintf(os.Stderr, "Failed to list candidates: %v\n", err)
		return 1
	}
	if len(candidates) == 0 {
		fmt.Println("No mentions are missing embeddings")
		return 0
	}

	updated := 0
	failed := 0
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}

		content := ""
		if candidate.Content != nil {
			content = *candidate.Content
		}

		vector, err := analyzer.EmbedText(ctx, ai.PrepareEmbeddingInput(candidate.Title, content))
		if err != nil {
			logger.Warn().Err(err).Int64("mention_id", candidate.MentionID).Msg("embedding failed")
			failed++
			continue
		}

		literal, err := db.ToVectorLiteral(vector)
		if err != nil {
			logger.Warn().Err(err).Int64("mention_id", candidate.MentionID).Msg("vector literal failed")
			failed++
			continue
		}

		if err := pool.SetMentionEmbedding(ctx, candidate.MentionID, literal); err != nil {
			logger.Warn().Err(err).Int64("mention_id", candidate.MentionID).Msg("store embedding failed")
			failed++
			continue
		}
		updated++
	}

	logger.Info().Int("updated", updated).Int("failed", failed).Int("candidates", len(candidates)).Msg("embedding backfill finished")
	fmt.Printf("updated=%d failed=%d candidates=%d\n", updated, failed, len(candidates))

	if failed > 0 && updated == 0 {
		return 1
	}
	return 0
}
