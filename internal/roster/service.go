// Package roster resolves fighter mentions against the canonical roster,
// creating new fighters only when no confident match exists.
package roster

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/globaltime"
	"horse.fit/fightdesk/internal/match"
	"horse.fit/fightdesk/internal/names"
)

// DefaultThreshold is the minimum match confidence required to attach a
// mention to an existing fighter instead of creating a new one.
const DefaultThreshold = 0.8

// Mention is a fighter reference extracted from a source document. Only
// FirstName is required.
type Mention struct {
	FirstName    string
	LastName     string
	Nickname     string
	Nationality  string
	DateOfBirth  *time.Time
	WikipediaURL string
	Source       string
}

// Store is the slice of the persistence layer the service writes through.
// Passing it per call keeps all mutations inside the caller's transaction.
type Store interface {
	FighterByWikipediaURL(ctx context.Context, url string) (*db.Fighter, error)
	UpdateFighterProfile(ctx context.Context, f *db.Fighter) error
	InsertFighter(ctx context.Context, f *db.Fighter) error
	InsertNameVariation(ctx context.Context, v *db.FighterNameVariation) (bool, error)
}

// Finder is the matcher dependency.
type Finder interface {
	Find(ctx context.Context, first, last string, mctx *match.Context) (*db.Fighter, float64, error)
}

// Stats accumulates per-service counters for import reporting.
type Stats struct {
	Created              int `json:"created"`
	Matched              int `json:"matched"`
	Updated              int `json:"updated"`
	LowConfidenceMatches int `json:"low_confidence_matches"`
	DuplicateURLsFound   int `json:"duplicate_urls_found"`
}

// Service orchestrates resolve-or-create for fighter mentions.
type Service struct {
	finder    Finder
	threshold float64
	logger    zerolog.Logger

	mu    sync.Mutex
	stats Stats
}

// New builds a Service. A non-positive threshold falls back to
// DefaultThreshold.
func New(finder Finder, threshold float64, logger zerolog.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Service{finder: finder, threshold: threshold, logger: logger}
}

// Stats returns a snapshot of the accumulated counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ResetStats zeroes the counters.
func (s *Service) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Stats{}
}

// ResolveOrCreate attaches the mention to an existing fighter when the match
// confidence clears the threshold, falls back to a Wikipedia URL equality
// check as an independent dedup key, and otherwise creates a new fighter.
// It returns the resolved fighter, whether it was created, and the
// confidence of the resolution.
func (s *Service) ResolveOrCreate(ctx context.Context, store Store, m Mention, eventDate *time.Time) (*db.Fighter, bool, float64, error) {
	first := strings.TrimSpace(m.FirstName)
	last := strings.TrimSpace(m.LastName)
	if first == "" {
		return nil, false, 0, fmt.Errorf("mention has no first name")
	}
	m.FirstName = first
	m.LastName = last

	mctx := &match.Context{Nationality: m.Nationality, EventDate: eventDate}
	found, confidence, err := s.finder.Find(ctx, first, last, mctx)
	if err != nil {
		return nil, false, 0, fmt.Errorf("match %q: %w", names.DeriveFullName(first, last), err)
	}

	if found != nil && confidence >= s.threshold {
		if err := s.adoptMention(ctx, store, found, m); err != nil {
			return nil, false, 0, err
		}
		s.count(func(st *Stats) { st.Matched++ })
		return found, false, confidence, nil
	}

	if found != nil {
		s.count(func(st *Stats) { st.LowConfidenceMatches++ })
		s.logger.Debug().
			Str("mention", names.DeriveFullName(first, last)).
			Int64("fighter_id", found.FighterID).
			Float64("confidence", confidence).
			Msg("low confidence match ignored")
	}

	// A shared Wikipedia URL identifies the same person regardless of how
	// the names scored.
	if m.WikipediaURL != "" {
		byURL, err := store.FighterByWikipediaURL(ctx, m.WikipediaURL)
		if err != nil {
			return nil, false, 0, fmt.Errorf("lookup by wikipedia url: %w", err)
		}
		if byURL != nil {
			if err := s.adoptMention(ctx, store, byURL, m); err != nil {
				return nil, false, 0, err
			}
			s.count(func(st *Stats) {
				st.DuplicateURLsFound++
				st.Matched++
			})
			return byURL, false, 1.0, nil
		}
	}

	created, err := s.createFighter(ctx, store, m)
	if err != nil {
		return nil, false, 0, err
	}
	s.count(func(st *Stats) { st.Created++ })
	return created, true, 1.0, nil
}

// adoptMention backfills empty profile fields from the mention, appends the
// provenance tag, and records an alias when the literal name differs from
// the canonical spelling. Populated fields are never overwritten.
func (s *Service) adoptMention(ctx context.Context, store Store, f *db.Fighter, m Mention) error {
	changed := false
	if f.Nickname == nil && m.Nickname != "" {
		nick := m.Nickname
		f.Nickname = &nick
		changed = true
	}
	if f.Nationality == nil && m.Nationality != "" {
		nat := m.Nationality
		f.Nationality = &nat
		changed = true
	}
	if f.DateOfBirth == nil && m.DateOfBirth != nil {
		dob := *m.DateOfBirth
		f.DateOfBirth = &dob
		changed = true
	}
	if f.WikipediaURL == nil && m.WikipediaURL != "" {
		url := m.WikipediaURL
		f.WikipediaURL = &url
		changed = true
	}
	if tagged := appendSourceTag(f.DataSource, m.Source); tagged != f.DataSource {
		f.DataSource = tagged
		changed = true
	}

	if changed {
		f.DataQualityScore = db.ComputeFighterQuality(f)
		if err := store.UpdateFighterProfile(ctx, f); err != nil {
			return fmt.Errorf("backfill fighter %d: %w", f.FighterID, err)
		}
		s.count(func(st *Stats) { st.Updated++ })
	}

	return s.recordAlias(ctx, store, f, m)
}

// recordAlias inserts a name variation when the mention's literal name
// differs from the fighter's canonical name. The unique constraint makes
// repeats a no-op.
func (s *Service) recordAlias(ctx context.Context, store Store, f *db.Fighter, m Mention) error {
	mentionFull := names.DeriveFullName(m.FirstName, m.LastName)
	canonicalFull := names.DeriveFullName(f.FirstName, f.LastName)
	if names.Equal(mentionFull, canonicalFull) {
		return nil
	}
	_, err := store.InsertNameVariation(ctx, &db.FighterNameVariation{
		FighterID:      f.FighterID,
		FirstVariation: m.FirstName,
		LastVariation:  m.LastName,
		FullVariation:  mentionFull,
		VariationType:  db.VariationAlias,
		Source:         m.Source,
	})
	if err != nil {
		return fmt.Errorf("record alias %q for fighter %d: %w", mentionFull, f.FighterID, err)
	}
	return nil
}

func (s *Service) createFighter(ctx context.Context, store Store, m Mention) (*db.Fighter, error) {
	f := &db.Fighter{
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		DataSource: m.Source,
		CreatedAt:  globaltime.UTC(),
	}
	if m.Nickname != "" {
		nick := m.Nickname
		f.Nickname = &nick
	}
	if m.Nationality != "" {
		nat := m.Nationality
		f.Nationality = &nat
	}
	if m.DateOfBirth != nil {
		dob := *m.DateOfBirth
		f.DateOfBirth = &dob
	}
	if m.WikipediaURL != "" {
		url := m.WikipediaURL
		f.WikipediaURL = &url
	}
	f.DataQualityScore = db.ComputeFighterQuality(f)

	if err := store.InsertFighter(ctx, f); err != nil {
		return nil, fmt.Errorf("create fighter %q: %w", names.DeriveFullName(m.FirstName, m.LastName), err)
	}
	s.logger.Info().
		Int64("fighter_id", f.FighterID).
		Str("name", names.DeriveFullName(f.FirstName, f.LastName)).
		Str("source", m.Source).
		Msg("fighter created")
	return f, nil
}

func (s *Service) count(apply func(*Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&s.stats)
}

// appendSourceTag adds source to a comma separated provenance list,
// skipping empties and duplicates.
func appendSourceTag(existing, source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return existing
	}
	if existing == "" {
		return source
	}
	for _, tag := range strings.Split(existing, ",") {
		if strings.EqualFold(strings.TrimSpace(tag), source) {
			return existing
		}
	}
	return existing + "," + source
}
