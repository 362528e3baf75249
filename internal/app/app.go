package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "watch":
		return runWatch(args[1:])
	case "dedup":
		return runDedup(args[1:])
	case "enrich":
		return runEnrich(args[1:])
	case "process":
		return runProcess(args[1:])
	case "backfill":
		return runBackfill(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "mentions CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  mentions <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database, stream, and search connectivity")
	fmt.Fprintln(os.Stderr, "  ingest    Fetch brand mentions from the configured sources once")
	fmt.Fprintln(os.Stderr, "  watch     Run ingestion on a cron schedule")
	fmt.Fprintln(os.Stderr, "  dedup     Run the standalone content-hash dedup worker")
	fmt.Fprintln(os.Stderr, "  enrich    Run the standalone enrichment worker")
	fmt.Fprintln(os.Stderr, "  process   Run the analysis consumer (dedup + enrich inline)")
	fmt.Fprintln(os.Stderr, "  backfill  Generate embeddings for mentions persisted without one")
	fmt.Fprintln(os.Stderr, "  serve     Start the Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"mentions <command> -h\" for command-specific flags.")
}
