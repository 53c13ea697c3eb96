package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/fightdesk/internal/cli"
	"horse.fit/fightdesk/internal/consistency"
	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/logging"
)

func runAudit(args []string) int {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "audit does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
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

	validator := consistency.New(logger)
	auditReport, err := validator.Validate(ctx, db.NewStore(pool))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Audit failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(auditReport); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	} else {
		rows := make([][]string, 0, len(auditReport.Issues))
		for _, issue := range auditReport.Issues {
			historyIDs := make([]string, 0, len(issue.HistoryIDs))
			for _, id := range issue.HistoryIDs {
				historyIDs = append(historyIDs, fmt.Sprintf("%d", id))
			}
			rows = append(rows, []string{
				string(issue.Kind),
				string(issue.Severity),
				fmt.Sprintf("%d", issue.FightID),
				fmt.Sprintf("%d", issue.FighterID),
				strings.Join(historyIDs, ","),
				issue.Description,
			})
		}
		if err := writeTable([]string{"kind", "severity", "fight", "fighter", "histories", "description"}, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
			return 1
		}
		fmt.Printf(
			"\nchecked %d links, %d issues, fight link coverage %.1f%%\n",
			auditReport.CheckedLinks,
			len(auditReport.Issues),
			auditReport.Coverage.FightLinkRatio*100,
		)
	}

	if len(auditReport.Issues) > 0 {
		return 1
	}
	return 0
}
