package httpapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/db"
)

func TestNewServerAppliesDefaults(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, zerolog.Nop(), Options{})
	if server == nil {
		t.Fatalf("expected server")
	}
	if server.opts.Host != "0.0.0.0" {
		t.Fatalf("unexpected default host: %q", server.opts.Host)
	}
	if server.opts.Port != 8090 {
		t.Fatalf("unexpected default port: %d", server.opts.Port)
	}
	if server.opts.SessionTTL != 7*24*time.Hour {
		t.Fatalf("unexpected default session ttl: %s", server.opts.SessionTTL)
	}
	if server.opts.SessionCookie != "fightdesk_session" {
		t.Fatalf("unexpected default session cookie: %q", server.opts.SessionCookie)
	}
	if server.opts.PreviewMaxChars != 4000 {
		t.Fatalf("unexpected default preview limit: %d", server.opts.PreviewMaxChars)
	}
	if len(server.opts.CORSOrigins) != 1 || server.opts.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected default cors origins: %#v", server.opts.CORSOrigins)
	}
	if server.workflow == nil {
		t.Fatalf("expected pending workflow to be wired")
	}
}

func TestParsePendingStatus(t *testing.T) {
	t.Parallel()

	status, err := parsePendingStatus("")
	if err != nil {
		t.Fatalf("parse empty status: %v", err)
	}
	if status != db.PendingStatusPending {
		t.Fatalf("expected empty status to default to pending, got %q", status)
	}

	status, err = parsePendingStatus(" Approved ")
	if err != nil {
		t.Fatalf("parse approved status: %v", err)
	}
	if status != db.PendingStatusApproved {
		t.Fatalf("unexpected status: %q", status)
	}

	if _, err := parsePendingStatus("archived"); err == nil {
		t.Fatalf("expected unknown status to error")
	}
}

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	got, err := parsePositiveInt("", 25, 1, 200)
	if err != nil {
		t.Fatalf("parse empty value: %v", err)
	}
	if got != 25 {
		t.Fatalf("expected default, got %d", got)
	}

	got, err = parsePositiveInt(" 50 ", 25, 1, 200)
	if err != nil {
		t.Fatalf("parse value: %v", err)
	}
	if got != 50 {
		t.Fatalf("unexpected value: %d", got)
	}

	if _, err := parsePositiveInt("0", 25, 1, 200); err == nil {
		t.Fatalf("expected below-minimum value to error")
	}
	if _, err := parsePositiveInt("abc", 25, 1, 200); err == nil {
		t.Fatalf("expected non-integer value to error")
	}
}

func TestPendingResponseDecodesPotentialMatches(t *testing.T) {
	t.Parallel()

	matches, err := json.Marshal([]db.PotentialMatch{
		{FighterID: 11, Name: "Jon Jones", Confidence: 0.9, Record: "27-1-0"},
	})
	if err != nil {
		t.Fatalf("marshal matches: %v", err)
	}

	nickname := "Bones"
	p := &db.PendingFighter{
		PendingFighterID: 5,
		FirstName:        "Jon",
		LastName:         "Jones",
		Nickname:         &nickname,
		Status:           db.PendingStatusPending,
		ConfidenceLevel:  db.ConfidenceLow,
		PotentialMatches: matches,
	}

	item := pendingResponse(p)
	if item.PendingFighterID != 5 || item.FirstName != "Jon" {
		t.Fatalf("unexpected pending item: %+v", item)
	}
	if len(item.PotentialMatches) != 1 {
		t.Fatalf("expected decoded potential matches, got %#v", item.PotentialMatches)
	}
	if item.PotentialMatches[0].FighterID != 11 || item.PotentialMatches[0].Record != "27-1-0" {
		t.Fatalf("unexpected potential match: %+v", item.PotentialMatches[0])
	}
}

func TestPendingResponseIgnoresNullMatches(t *testing.T) {
	t.Parallel()

	p := &db.PendingFighter{
		PendingFighterID: 5,
		FirstName:        "Jon",
		PotentialMatches: json.RawMessage("null"),
	}

	item := pendingResponse(p)
	if item.PotentialMatches != nil {
		t.Fatalf("expected nil matches for null payload, got %#v", item.PotentialMatches)
	}
}
