package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/fightdesk/internal/cli"
	"horse.fit/fightdesk/internal/db"
)

func runPending(args []string) int {
	fs := flag.NewFlagSet("pending", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	status := fs.String("status", "pending", "Filter by status: pending, approved, rejected, duplicate, created")
	limit := fs.Int("limit", 50, "Maximum rows to list")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "pending does not accept positional arguments")
		return 2
	}
	if *limit < 1 {
		fmt.Fprintln(os.Stderr, "--limit must be positive")
		return 2
	}

	pendingStatus, err := parsePendingStatusFlag(*status)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid status: %v\n", err)
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	store := db.NewStore(pool)
	rows, err := store.ListPendingFighters(ctx, pendingStatus, *limit, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list pending fighters: %v\n", err)
		return 1
	}
	counts, err := store.PendingStatusCounts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load status counts: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{"items": rows, "counts": counts}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, []string{
			fmt.Sprintf("%d", row.PendingFighterID),
			strings.TrimSpace(row.FirstName + " " + row.LastName),
			string(row.SourceKind),
			string(row.Status),
			string(row.ConfidenceLevel),
			pointerStringOrEmpty(row.Nationality),
			formatUTCTimestamp(row.CreatedAt),
		})
	}
	if err := writeTable([]string{"id", "name", "source", "status", "confidence", "nationality", "created"}, tableRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	fmt.Printf("\nstatus counts:")
	for _, s := range []db.PendingStatus{
		db.PendingStatusPending, db.PendingStatusApproved, db.PendingStatusRejected,
		db.PendingStatusDuplicate, db.PendingStatusCreated,
	} {
		fmt.Printf(" %s=%d", s, counts[s])
	}
	fmt.Println()
	return 0
}

func parsePendingStatusFlag(raw string) (db.PendingStatus, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	switch status := db.PendingStatus(trimmed); status {
	case db.PendingStatusPending, db.PendingStatusApproved, db.PendingStatusRejected,
		db.PendingStatusDuplicate, db.PendingStatusCreated:
		return status, nil
	default:
		return "", fmt.Errorf("unknown status %q", trimmed)
	}
}
