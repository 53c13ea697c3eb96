package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/fightdesk/internal/cli"
	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/logging"
	"horse.fit/fightdesk/internal/match"
	"horse.fit/fightdesk/internal/pending"
)

func runDiscover(args []string) int {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	firstName := fs.String("first", "", "First name (required)")
	lastName := fs.String("last", "", "Last name")
	nickname := fs.String("nickname", "", "Nickname")
	nationality := fs.String("nationality", "", "Nationality")
	weightClass := fs.String("weight-class", "", "Weight class")
	recordText := fs.String("record", "", "Record text, e.g. 12-2-0")
	eventName := fs.String("event", "", "Source event name")
	sourceURL := fs.String("url", "", "Source URL")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*firstName) == "" {
		fmt.Fprintln(os.Stderr, "--first is required")
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

	workflow := pending.New(
		match.New(db.NewStore(pool), logger),
		logger,
		!cfg.PendingLanguageDetectionDisabled,
	)

	discovery := pending.Discovery{
		FirstName:       *firstName,
		LastName:        *lastName,
		Nickname:        *nickname,
		Nationality:     *nationality,
		WeightClass:     *weightClass,
		RecordText:      *recordText,
		SourceKind:      db.SourceManual,
		SourceEventName: *eventName,
		SourceURL:       *sourceURL,
	}

	var staged *db.PendingFighter
	err = db.WithTx(ctx, pool, func(q db.Querier) error {
		var txErr error
		staged, txErr = workflow.CreateFromScraping(ctx, db.NewStore(q), discovery)
		return txErr
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stage pending fighter: %v\n", err)
		return 1
	}

	if err := printJSON(staged); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	return 0
}

func runApprove(args []string) int {
	return runReviewCommand("approve", args, func(ctx context.Context, w *pending.Workflow, store *db.Store, opts reviewOptions) (any, error) {
		return w.Approve(ctx, store, opts.pendingID, opts.reviewer)
	})
}

func runReject(args []string) int {
	return runReviewCommand("reject", args, func(ctx context.Context, w *pending.Workflow, store *db.Store, opts reviewOptions) (any, error) {
		return w.Reject(ctx, store, opts.pendingID, opts.reviewer)
	})
}

func runDuplicate(args []string) int {
	return runReviewCommand("duplicate", args, func(ctx context.Context, w *pending.Workflow, store *db.Store, opts reviewOptions) (any, error) {
		if opts.fighterID < 1 {
			return nil, fmt.Errorf("--fighter is required")
		}
		return w.MarkDuplicate(ctx, store, opts.pendingID, opts.reviewer, opts.fighterID)
	})
}

func runPromote(args []string) int {
	return runReviewCommand("promote", args, func(ctx context.Context, w *pending.Workflow, store *db.Store, opts reviewOptions) (any, error) {
		return w.CreateFighterFromPending(ctx, store, opts.pendingID, opts.reviewer)
	})
}

type reviewOptions struct {
	pendingID int64
	fighterID int64
	reviewer  string
}

type reviewAction func(ctx context.Context, w *pending.Workflow, store *db.Store, opts reviewOptions) (any, error)

// runReviewCommand is the shared shell for the four review transitions.
// The whole transition runs inside one transaction.
func runReviewCommand(name string, args []string, action reviewAction) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	pendingID := fs.Int64("id", 0, "Pending fighter id (required)")
	fighterID := fs.Int64("fighter", 0, "Canonical fighter id (duplicate only)")
	reviewer := fs.String("reviewer", "cli", "Reviewer name recorded on the transition")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *pendingID < 1 {
		fmt.Fprintln(os.Stderr, "--id is required")
		return 2
	}
	if strings.TrimSpace(*reviewer) == "" {
		fmt.Fprintln(os.Stderr, "--reviewer must not be empty")
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

	workflow := pending.New(
		match.New(db.NewStore(pool), logger),
		logger,
		!cfg.PendingLanguageDetectionDisabled,
	)

	opts := reviewOptions{
		pendingID: *pendingID,
		fighterID: *fighterID,
		reviewer:  strings.TrimSpace(*reviewer),
	}

	var outcome any
	err = db.WithTx(ctx, pool, func(q db.Querier) error {
		var txErr error
		outcome, txErr = action(ctx, workflow, db.NewStore(q), opts)
		return txErr
	})
	if err != nil {
		if errors.Is(err, pending.ErrInvalidState) {
			fmt.Fprintf(os.Stderr, "Illegal transition: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to %s pending fighter %d: %v\n", name, opts.pendingID, err)
		return 1
	}

	if err := printJSON(outcome); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	return 0
}
