package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCollectMentionFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.json"), `{"k":"v"}`)
	mustWriteFile(t, filepath.Join(root, "b.txt"), `x`)
	mustWriteFile(t, filepath.Join(root, ".hidden.json"), `{}`)

	files, err := collectMentionFiles(root)
	if err != nil {
		t.Fatalf("collectMentionFiles failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 json file, got %d (%v)", len(files), files)
	}
}

func TestLoadMentionValidPayload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mention.json")
	mustWriteFile(t, path, `{
		"payload_version": "v1",
		"source": "wikipedia",
		"first_name": "Jon",
		"last_name": "Jones",
		"nationality": "USA",
		"date_of_birth": "1987-07-19",
		"event_date": "2019-03-02"
	}`)

	mention, eventDate, err := loadMention(path)
	if err != nil {
		t.Fatalf("loadMention failed: %v", err)
	}
	if mention.FirstName != "Jon" || mention.LastName != "Jones" {
		t.Fatalf("unexpected mention: %+v", mention)
	}
	if mention.Source != "wikipedia" {
		t.Fatalf("unexpected source: %q", mention.Source)
	}
	if mention.DateOfBirth == nil || mention.DateOfBirth.Year() != 1987 {
		t.Fatalf("unexpected date of birth: %v", mention.DateOfBirth)
	}
	if eventDate == nil || eventDate.Year() != 2019 {
		t.Fatalf("unexpected event date: %v", eventDate)
	}
}

func TestLoadMentionRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.json")
	mustWriteFile(t, path, `{"payload_version":"v1","source":"wikipedia"}`)

	if _, _, err := loadMention(path); err == nil {
		t.Fatalf("expected missing first_name to fail validation")
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	format, err := parseOutputFormat(" JSON ", outputFormatTable)
	if err != nil {
		t.Fatalf("parseOutputFormat failed: %v", err)
	}
	if format != outputFormatJSON {
		t.Fatalf("unexpected format: %q", format)
	}

	format, err = parseOutputFormat("", outputFormatTable)
	if err != nil {
		t.Fatalf("parseOutputFormat failed: %v", err)
	}
	if format != outputFormatTable {
		t.Fatalf("unexpected default format: %q", format)
	}

	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatalf("expected unknown format to error")
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}
