package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"horse.fit/fightdesk/internal/cli"
	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/logging"
	"horse.fit/fightdesk/internal/match"
	"horse.fit/fightdesk/internal/roster"
	payloadschema "horse.fit/fightdesk/schema"
)

type importResult struct {
	Scanned  int          `json:"scanned"`
	Invalid  int          `json:"invalid"`
	Resolved int          `json:"resolved"`
	Failed   int          `json:"failed"`
	Roster   roster.Stats `json:"roster"`
}

func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	dir := fs.String("dir", "", "Directory containing .json fighter mention files")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	dryRun := fs.Bool("dry-run", false, "Validate payloads without touching the database")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	files := fs.Args()
	if strings.TrimSpace(*dir) != "" {
		dirFiles, err := collectMentionFiles(strings.TrimSpace(*dir))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Import setup failed: %v\n", err)
			return 1
		}
		files = append(files, dirFiles...)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "import needs mention files: pass paths or --dir")
		return 2
	}

	if *dryRun {
		return runImportDryRun(files)
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

	matcher := match.New(db.NewStore(pool), logger)
	service := roster.New(matcher, cfg.MatchThreshold, logger)

	result := importResult{}
	for _, path := range files {
		result.Scanned++

		mention, eventDate, err := loadMention(path)
		if err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
			continue
		}

		err = db.WithTx(ctx, pool, func(q db.Querier) error {
			_, _, _, resolveErr := service.ResolveOrCreate(ctx, db.NewStore(q), *mention, eventDate)
			return resolveErr
		})
		if err != nil {
			result.Failed++
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", path, err)
			continue
		}
		result.Resolved++
	}

	result.Roster = service.Stats()
	if err := printJSON(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}

	if result.Invalid > 0 || result.Failed > 0 {
		return 1
	}
	return 0
}

func runImportDryRun(files []string) int {
	result := importResult{}
	for _, path := range files {
		result.Scanned++
		if _, _, err := loadMention(path); err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
			continue
		}
		result.Resolved++
	}

	if err := printJSON(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	if result.Invalid > 0 {
		return 1
	}
	return 0
}

// loadMention reads, validates, and converts one payload file.
func loadMention(path string) (*roster.Mention, *time.Time, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read failed: %w", err)
	}

	payload, err := payloadschema.ValidateFighterMentionPayload(json.RawMessage(raw))
	if err != nil {
		return nil, nil, err
	}

	dob, err := payload.BirthDate()
	if err != nil {
		return nil, nil, err
	}
	eventDate, err := payload.MentionEventDate()
	if err != nil {
		return nil, nil, err
	}

	mention := &roster.Mention{
		FirstName:    payload.FirstName,
		LastName:     pointerStringOrEmpty(payload.LastName),
		Nickname:     pointerStringOrEmpty(payload.Nickname),
		Nationality:  pointerStringOrEmpty(payload.Nationality),
		DateOfBirth:  dob,
		WikipediaURL: pointerStringOrEmpty(payload.WikipediaURL),
		Source:       payload.Source,
	}
	return mention, eventDate, nil
}

func collectMentionFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", root, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".json") {
			files = append(files, filepath.Join(root, name))
		}
	}
	sort.Strings(files)
	return files, nil
}
