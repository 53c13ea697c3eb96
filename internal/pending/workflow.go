// Package pending implements the review workflow for discovered fighter
// mentions that could not be auto-resolved. Records move through a small
// state machine under human control, with matching run up front to grade
// how likely each mention is to be a duplicate.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/globaltime"
	"horse.fit/fightdesk/internal/langdetect"
	"horse.fit/fightdesk/internal/match"
	"horse.fit/fightdesk/internal/names"
)

// ErrInvalidState is returned when a transition is requested from a state
// that does not allow it.
var ErrInvalidState = errors.New("invalid pending state")

const (
	// attachThreshold is the minimum confidence for a candidate to appear
	// in potential_matches.
	attachThreshold = 0.6
	// ambiguousThreshold downgrades the confidence level to low: the
	// mention probably already exists and needs eyes.
	ambiguousThreshold = 0.85
	// autoDuplicateThreshold short-circuits review entirely.
	autoDuplicateThreshold = 0.95

	maxPotentialMatches = 5
)

// Discovery is the raw mention handed over by a scraper or manual entry.
type Discovery struct {
	FirstName       string
	LastName        string
	Nickname        string
	Nationality     string
	WeightClass     string
	RecordText      string
	SourceKind      db.SourceKind
	SourceEventName string
	SourceURL       string
	RawPayload      json.RawMessage
}

// Store is the persistence slice the workflow needs.
type Store interface {
	PendingByRawName(ctx context.Context, first, last string) (*db.PendingFighter, error)
	PendingByID(ctx context.Context, pendingID int64) (*db.PendingFighter, error)
	InsertPendingFighter(ctx context.Context, p *db.PendingFighter) error
	UpdatePendingReview(ctx context.Context, p *db.PendingFighter) error
	FighterByID(ctx context.Context, fighterID int64) (*db.Fighter, error)
	InsertFighter(ctx context.Context, f *db.Fighter) error
}

// Matcher is the duplicate-detection dependency.
type Matcher interface {
	Find(ctx context.Context, first, last string, mctx *match.Context) (*db.Fighter, float64, error)
	TopCandidates(ctx context.Context, first, last string, limit int) ([]match.Candidate, error)
}

// Workflow drives pending fighter records through review.
type Workflow struct {
	matcher       Matcher
	logger        zerolog.Logger
	detectEnabled bool
}

// New builds a Workflow. detectLanguage toggles the lingua hint on newly
// discovered records.
func New(matcher Matcher, logger zerolog.Logger, detectLanguage bool) *Workflow {
	return &Workflow{matcher: matcher, logger: logger, detectEnabled: detectLanguage}
}

// CreateFromScraping stages a discovered mention for review. Discovery is
// idempotent per raw name: a still-pending record with the same name is
// returned instead of creating a second one. Matching runs immediately on
// new records and may auto-classify obvious duplicates.
func (w *Workflow) CreateFromScraping(ctx context.Context, store Store, d Discovery) (*db.PendingFighter, error) {
	first := strings.TrimSpace(d.FirstName)
	last := strings.TrimSpace(d.LastName)
	if first == "" {
		return nil, fmt.Errorf("discovery has no first name")
	}

	existing, err := store.PendingByRawName(ctx, first, last)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	p := &db.PendingFighter{
		FirstName:       first,
		LastName:        last,
		Nickname:        optional(d.Nickname),
		Nationality:     optional(d.Nationality),
		WeightClass:     optional(d.WeightClass),
		RecordText:      optional(d.RecordText),
		SourceKind:      d.SourceKind,
		SourceEventName: optional(d.SourceEventName),
		SourceURL:       optional(d.SourceURL),
		RawPayload:      d.RawPayload,
		Status:          db.PendingStatusPending,
		ConfidenceLevel: db.ConfidenceMedium,
	}
	if p.SourceKind == "" {
		p.SourceKind = db.SourceScraper
	}
	if w.detectEnabled {
		if code := langdetect.DetectISO6391(names.DeriveFullName(first, last)); code != "" {
			p.DetectedLanguage = &code
		}
	}

	if err := store.InsertPendingFighter(ctx, p); err != nil {
		return nil, err
	}
	if err := w.RunMatching(ctx, store, p); err != nil {
		return nil, err
	}

	w.logger.Info().
		Int64("pending_id", p.PendingFighterID).
		Str("name", names.DeriveFullName(first, last)).
		Str("status", string(p.Status)).
		Str("confidence_level", string(p.ConfidenceLevel)).
		Msg("pending fighter staged")
	return p, nil
}

// RunMatching grades the record against the canonical roster. It is safe to
// re-run while the record is still pending, for example after new fighters
// are imported; reviewed records return ErrInvalidState. Gradings:
// best confidence > 0.95 auto-marks duplicate, > 0.85 downgrades the level
// to low, > 0.6 keeps medium with candidates attached, otherwise the level
// is high (likely genuinely new).
func (w *Workflow) RunMatching(ctx context.Context, store Store, p *db.PendingFighter) error {
	if p.Status != db.PendingStatusPending {
		return fmt.Errorf("pending fighter %d is %s: %w", p.PendingFighterID, p.Status, ErrInvalidState)
	}

	mctx := &match.Context{}
	if p.Nationality != nil {
		mctx.Nationality = *p.Nationality
	}

	best, confidence, err := w.matcher.Find(ctx, p.FirstName, p.LastName, mctx)
	if err != nil {
		return fmt.Errorf("match pending %d: %w", p.PendingFighterID, err)
	}

	if best == nil || confidence <= attachThreshold {
		p.ConfidenceLevel = db.ConfidenceHigh
		p.PotentialMatches = nil
		return store.UpdatePendingReview(ctx, p)
	}

	candidates, err := w.matcher.TopCandidates(ctx, p.FirstName, p.LastName, maxPotentialMatches)
	if err != nil {
		return fmt.Errorf("collect candidates for pending %d: %w", p.PendingFighterID, err)
	}
	matches := make([]db.PotentialMatch, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence <= attachThreshold {
			continue
		}
		matches = append(matches, potentialMatch(c))
	}
	blob, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("encode potential matches: %w", err)
	}
	p.PotentialMatches = blob

	switch {
	case confidence > autoDuplicateThreshold:
		p.Status = db.PendingStatusDuplicate
		p.MatchedFighterID = &best.FighterID
		p.ConfidenceLevel = db.ConfidenceLow
		now := globaltime.UTC()
		p.ReviewedAt = &now
	case confidence > ambiguousThreshold:
		p.ConfidenceLevel = db.ConfidenceLow
	default:
		p.ConfidenceLevel = db.ConfidenceMedium
	}

	return store.UpdatePendingReview(ctx, p)
}

// Approve moves a pending record to approved and stamps the reviewer.
func (w *Workflow) Approve(ctx context.Context, store Store, pendingID int64, reviewer string) (*db.PendingFighter, error) {
	return w.review(ctx, store, pendingID, reviewer, db.PendingStatusApproved, nil)
}

// Reject moves a pending record to rejected and stamps the reviewer.
func (w *Workflow) Reject(ctx context.Context, store Store, pendingID int64, reviewer string) (*db.PendingFighter, error) {
	return w.review(ctx, store, pendingID, reviewer, db.PendingStatusRejected, nil)
}

// MarkDuplicate moves a pending record to duplicate, pointing at the
// canonical fighter it duplicates.
func (w *Workflow) MarkDuplicate(ctx context.Context, store Store, pendingID int64, reviewer string, fighterID int64) (*db.PendingFighter, error) {
	fighter, err := store.FighterByID(ctx, fighterID)
	if err != nil {
		return nil, err
	}
	if fighter == nil {
		return nil, fmt.Errorf("fighter %d not found", fighterID)
	}
	return w.review(ctx, store, pendingID, reviewer, db.PendingStatusDuplicate, &fighterID)
}

// review performs a pending -> terminal-or-approved transition.
func (w *Workflow) review(ctx context.Context, store Store, pendingID int64, reviewer string, to db.PendingStatus, matchedID *int64) (*db.PendingFighter, error) {
	p, err := store.PendingByID(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("pending fighter %d not found", pendingID)
	}
	if p.Status != db.PendingStatusPending {
		return nil, fmt.Errorf("pending fighter %d is %s: %w", pendingID, p.Status, ErrInvalidState)
	}

	p.Status = to
	if matchedID != nil {
		p.MatchedFighterID = matchedID
	}
	stampReview(p, reviewer)
	if err := store.UpdatePendingReview(ctx, p); err != nil {
		return nil, err
	}

	w.logger.Info().
		Int64("pending_id", p.PendingFighterID).
		Str("status", string(p.Status)).
		Str("reviewer", reviewer).
		Msg("pending fighter reviewed")
	return p, nil
}

// CreateFighterFromPending promotes an approved record into a canonical
// fighter. Calling it again on an already created record returns the
// existing fighter. Any other state fails with ErrInvalidState.
func (w *Workflow) CreateFighterFromPending(ctx context.Context, store Store, pendingID int64, reviewer string) (*db.Fighter, error) {
	p, err := store.PendingByID(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("pending fighter %d not found", pendingID)
	}

	switch p.Status {
	case db.PendingStatusCreated:
		if p.CreatedFighterID == nil {
			return nil, fmt.Errorf("pending fighter %d is created but has no fighter reference", pendingID)
		}
		f, err := store.FighterByID(ctx, *p.CreatedFighterID)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, fmt.Errorf("created fighter %d not found", *p.CreatedFighterID)
		}
		return f, nil
	case db.PendingStatusApproved:
		// fall through to creation
	default:
		return nil, fmt.Errorf("pending fighter %d is %s: %w", pendingID, p.Status, ErrInvalidState)
	}

	f := &db.Fighter{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Nickname:    p.Nickname,
		Nationality: p.Nationality,
		DataSource:  string(p.SourceKind),
	}
	f.DataQualityScore = db.ComputeFighterQuality(f)
	if err := store.InsertFighter(ctx, f); err != nil {
		return nil, fmt.Errorf("promote pending %d: %w", pendingID, err)
	}

	p.Status = db.PendingStatusCreated
	p.CreatedFighterID = &f.FighterID
	stampReview(p, reviewer)
	if err := store.UpdatePendingReview(ctx, p); err != nil {
		return nil, err
	}

	w.logger.Info().
		Int64("pending_id", p.PendingFighterID).
		Int64("fighter_id", f.FighterID).
		Str("reviewer", reviewer).
		Msg("pending fighter promoted")
	return f, nil
}

func stampReview(p *db.PendingFighter, reviewer string) {
	now := globaltime.UTC()
	p.ReviewedAt = &now
	if reviewer = strings.TrimSpace(reviewer); reviewer != "" {
		p.ReviewedBy = &reviewer
	}
}

func potentialMatch(c match.Candidate) db.PotentialMatch {
	pm := db.PotentialMatch{
		FighterID:  c.Fighter.FighterID,
		Name:       names.DeriveFullName(c.Fighter.FirstName, c.Fighter.LastName),
		Confidence: c.Confidence,
		Record:     fmt.Sprintf("%d-%d-%d", c.Fighter.Wins, c.Fighter.Losses, c.Fighter.Draws),
	}
	if c.Fighter.Nationality != nil {
		pm.Nationality = *c.Fighter.Nationality
	}
	return pm
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
