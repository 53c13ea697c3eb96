// Package payloadschema validates incoming fighter-mention payloads. This
// is the boundary where loosely shaped scraper output becomes typed data.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed fighter_mention.schema.json
var fighterMentionSchemaJSON string

// FighterMention is a validated mention payload.
type FighterMention struct {
	PayloadVersion  string         `json:"payload_version"`
	Source          string         `json:"source"`
	SourceKind      *string        `json:"source_kind,omitempty"`
	FirstName       string         `json:"first_name"`
	LastName        *string        `json:"last_name,omitempty"`
	Nickname        *string        `json:"nickname,omitempty"`
	Nationality     *string        `json:"nationality,omitempty"`
	WeightClass     *string        `json:"weight_class,omitempty"`
	RecordText      *string        `json:"record_text,omitempty"`
	DateOfBirth     *string        `json:"date_of_birth,omitempty"`
	WikipediaURL    *string        `json:"wikipedia_url,omitempty"`
	EventDate       *string        `json:"event_date,omitempty"`
	SourceEventName *string        `json:"source_event_name,omitempty"`
	SourceURL       *string        `json:"source_url,omitempty"`
	RawMetadata     map[string]any `json:"raw_metadata,omitempty"`
}

const dateLayout = "2006-01-02"

// BirthDate parses the optional date_of_birth field.
func (m *FighterMention) BirthDate() (*time.Time, error) {
	return m.parseDate("date_of_birth", m.DateOfBirth)
}

// MentionEventDate parses the optional event_date field.
func (m *FighterMention) MentionEventDate() (*time.Time, error) {
	return m.parseDate("event_date", m.EventDate)
}

func (m *FighterMention) parseDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(*value))
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD: %w", field, err)
	}
	return &parsed, nil
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateFighterMentionPayload checks a raw payload against the embedded
// schema plus semantic rules, returning the typed mention.
func ValidateFighterMentionPayload(payload json.RawMessage) (*FighterMention, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var mention FighterMention
	if err := json.Unmarshal(normalized, &mention); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&mention); err != nil {
		return nil, err
	}

	return &mention, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("fighter_mention.schema.json", strings.NewReader(fighterMentionSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("fighter_mention.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(mention *FighterMention) error {
	if mention == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(mention.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(mention.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(mention.FirstName) == "" {
		return fmt.Errorf("first_name must not be empty")
	}

	if mention.WikipediaURL != nil {
		if err := validateURI("wikipedia_url", *mention.WikipediaURL); err != nil {
			return err
		}
	}
	if mention.SourceURL != nil {
		if err := validateURI("source_url", *mention.SourceURL); err != nil {
			return err
		}
	}

	if _, err := mention.BirthDate(); err != nil {
		return err
	}
	if _, err := mention.MentionEventDate(); err != nil {
		return err
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
