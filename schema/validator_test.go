package payloadschema

import (
	"encoding/json"
	"testing"
)

func TestValidateFighterMentionPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"wikipedia",
		"source_kind":"scraper",
		"first_name":"Jon",
		"last_name":"Jones",
		"nickname":"Bones",
		"nationality":"USA",
		"date_of_birth":"1987-07-19",
		"wikipedia_url":"https://en.wikipedia.org/wiki/Jon_Jones",
		"event_date":"2019-03-02",
		"source_event_name":"UFC 235",
		"raw_metadata":{"scraper_run":"r-77"}
	}`)

	mention, err := ValidateFighterMentionPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if mention.FirstName != "Jon" || mention.Source != "wikipedia" {
		t.Fatalf("unexpected mention %+v", mention)
	}

	dob, err := mention.BirthDate()
	if err != nil {
		t.Fatalf("birth date: %v", err)
	}
	if dob == nil || dob.Year() != 1987 {
		t.Fatalf("unexpected birth date %v", dob)
	}
}

func TestValidateFighterMentionPayload_MissingFirstName(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"wikipedia"
	}`)

	if _, err := ValidateFighterMentionPayload(payload); err == nil {
		t.Fatalf("expected validation to fail without first_name")
	}
}

func TestValidateFighterMentionPayload_WhitespaceFirstName(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"wikipedia",
		"first_name":"   "
	}`)

	if _, err := ValidateFighterMentionPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for a whitespace first_name")
	}
}

func TestValidateFighterMentionPayload_BadDate(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"wikipedia",
		"first_name":"Jon",
		"date_of_birth":"July 19, 1987"
	}`)

	if _, err := ValidateFighterMentionPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for a non ISO date")
	}
}

func TestValidateFighterMentionPayload_UnknownField(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"wikipedia",
		"first_name":"Jon",
		"weight":"205"
	}`)

	if _, err := ValidateFighterMentionPayload(payload); err == nil {
		t.Fatalf("expected additional properties to be rejected")
	}
}

func TestValidateFighterMentionPayload_WrongVersion(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v2",
		"source":"wikipedia",
		"first_name":"Jon"
	}`)

	if _, err := ValidateFighterMentionPayload(payload); err == nil {
		t.Fatalf("expected unsupported payload versions to be rejected")
	}
}

func TestValidateFighterMentionPayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"payload_version":"v1","source":"wikipedia","first_name":"Jon"} {}`)

	if _, err := ValidateFighterMentionPayload(payload); err == nil {
		t.Fatalf("expected trailing content to be rejected")
	}
}
