package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/fightdesk/internal/cli"
	"horse.fit/fightdesk/internal/logging"
	"horse.fit/fightdesk/internal/reconcile"
)

func runReconcile(args []string) int {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	dryRun := fs.Bool("dry-run", false, "Evaluate matches without writing links")
	limit := fs.Int("limit", 0, "Maximum records to process; 0 means all")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reconcile does not accept positional arguments")
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must not be negative")
		return 2
	}

	ctx, cancel, cfg, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	service := reconcile.New(reconcile.NewPoolDB(pool), reconcile.Config{
		MatchThreshold:          cfg.ReconcileMatchThreshold,
		HighConfidenceThreshold: cfg.ReconcileHighConfidenceThreshold,
		ChunkSize:               cfg.ReconcileChunkSize,
	}, logger)

	stats, err := service.ReconcileAll(ctx, reconcile.Options{
		DryRun: *dryRun,
		Limit:  *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reconciliation failed: %v\n", err)
		return 1
	}

	if err := printJSON(stats); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}

	if stats.Errors > 0 {
		return 1
	}
	return 0
}
