package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/mentions/internal/cli"
	"horse.fit/mentions/internal/db"
	"horse.fit/mentions/internal/search"
	"horse.fit/mentions/internal/stream"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Health check timeout")

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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	healthy := true

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: FAIL (%v)\n", err)
		healthy = false
	} else {
		fmt.Println("database: OK")
		pool.Close()
	}

	broker, err := stream.NewRedisBroker(ctx, cfg.RedisURL, cfg.StreamMaxLen, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stream: FAIL (%v)\n", err)
		healthy = false
	} else {
		fmt.Println("stream: OK")
		_ = broker.Close()
	}

	searchClient := search.NewClient(cfg.ElasticsearchURL, cfg.SearchIndex, *timeout, logger)
	if err := searchClient.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "search: FAIL (%v)\n", err)
		healthy = false
	} else {
		fmt.Println("search: OK")
	}

	if !healthy {
		return 1
	}
	return 0
}
