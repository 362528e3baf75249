package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/mentions/internal/cli"
	"horse.fit/mentions/internal/config"
	"horse.fit/mentions/internal/db"
	"horse.fit/mentions/internal/ingest"
	"horse.fit/mentions/internal/stream"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	brands := fs.String("brand", "", "Comma-separated brand names (default: all brands in the database)")
	source := fs.String("source", "all", "Source to fetch: hackernews, google_news, or all")
	limit := fs.Int("limit", 20, "Maximum results per source per brand")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")

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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	targets, err := resolveTargets(ctx, pool, *brands)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve brands: %v\n", err)
		return 1
	}
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "No brands to ingest; pass --brand or create brands first")
		return 2
	}

	broker, err := stream.NewRedisBroker(ctx, cfg.RedisURL, cfg.StreamMaxLen, logger)
	if err != nil {
		logger.Error().Err(err).Msg("stream connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to stream: %v\n", err)
		return 1
	}
	defer broker.Close()

	publisher := ingest.NewPublisher(broker, logger)
	logIngestPass(logger, targets, sources)
	if err := ingest.Run(ctx, sources, targets, *limit, publisher, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion finished with errors: %v\n", err)
		return 1
	}

	return 0
}

func buildSources(name string, cfg *config.Config) ([]ingest.Source, error) {
	fetchTimeout := time.Duration(cfg.FetchTimeout) * time.Second

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hackernews", "hn":
		return []ingest.Source{ingest.NewHackerNewsSource(fetchTimeout)}, nil
	case "google_news", "googlenews", "news":
		return []ingest.Source{ingest.NewGoogleNewsSource(fetchTimeout)}, nil
	case "", "all":
		return []ingest.Source{
			ingest.NewHackerNewsSource(fetchTimeout),
			ingest.NewGoogleNewsSource(fetchTimeout),
		}, nil
	default:
		return nil, fmt.Errorf("--source must be hackernews, google_news, or all")
	}
}

// resolveTargets maps brand names to ids, creating brands named on the
// command line that do not exist yet. With no names it falls back to every
// brand in the database.
func resolveTargets(ctx context.Context, pool *db.Pool, names string) ([]ingest.Target, error) {
	trimmed := strings.TrimSpace(names)
	if trimmed == "" {
		brands, err := pool.ListBrands(ctx)
		if err != nil {
			return nil, err
		}
		targets := make([]ingest.Target, 0, len(brands))
		for _, brand := range brands {
			targets = append(targets, ingest.Target{BrandID: brand.BrandID, BrandName: brand.Name})
		}
		return targets, nil
	}

	var targets []ingest.Target
	for _, name := range strings.Split(trimmed, ",") {
		brandName := strings.TrimSpace(name)
		if brandName == "" {
			continue
		}
		brandID, err := pool.GetOrCreateBrand(ctx, brandName)
		if err != nil {
			return nil, err
		}
		targets = append(targets, ingest.Target{BrandID: brandID, BrandName: brandName})
	}
	return targets, nil
}

func logIngestPass(logger zerolog.Logger, targets []ingest.Target, sources []ingest.Source) {
	names := make([]string, 0, len(sources))
	for _, source := range sources {
		names = append(names, source.Name())
	}
	logger.Info().Int("brands", len(targets)).Strs("sources", names).Msg("starting ingestion pass")
}
