package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"horse.fit/mentions/internal/cli"
	"horse.fit/mentions/internal/db"
	"horse.fit/mentions/internal/ingest"
	"horse.fit/mentions/internal/stream"
)

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	schedule := fs.String("schedule", "*/15 * * * *", "Cron schedule for ingestion passes")
	brands := fs.String("brand", "", "Comma-separated brand names (default: all brands in the database)")
	source := fs.String("source", "all", "Source to fetch: hackernews, google_news, or all")
	limit := fs.Int("limit", 20, "Maximum results per source per brand")
	passTimeout := fs.Duration("pass-timeout", 2*time.Minute, "Timeout for one ingestion pass")
	immediate := fs.Bool("immediate", true, "Run one ingestion pass on startup")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *limit <= 0 || *limit > 100 {
		fmt.Fprintln(os.Stderr, "--limit must be between 1 and 100")
		return 2
	}

	cfg, logger, ok := loadRuntime(envLoader)
	if !ok {
		return 1
	}

	sources, err := buildSources(*source, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
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

	publisher := ingest.NewPublisher(broker, logger)

	ctx, cancel := signalContext()
	defer cancel()

	pass := func() {
		passCtx, passCancel := context.WithTimeout(ctx, *passTimeout)
		defer passCancel()

		targets, err := resolveTargets(passCtx, pool, *brands)
		if err != nil {
			logger.Error().Err(err).Msg("resolve ingestion targets failed")
			return
		}
		if len(targets) == 0 {
			logger.Warn().Msg("no brands to watch; create brands or pass --brand")
			return
		}

		logIngestPass(logger, targets, sources)
		if err := ingest.Run(passCtx, sources, targets, *limit, publisher, logger); err != nil {
			logger.Error().Err(err).Msg("ingestion pass finished with errors")
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*schedule, pass); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --schedule %q: %v\n", *schedule, err)
		return 2
	}

	if *immediate {
		pass()
	}

	scheduler.Start()
	logger.Info().Str("schedule", *schedule).Msg("ingestion watch started")

	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info().Msg("ingestion watch stopped")
	return 0
}
