// Package match implements the fighter identity-resolution cascade. It is a
// pure read over the fighter store: no strategy has side effects, and "no
// match" is a normal result, never an error.
package match

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/names"
)

const (
	// ConfidenceExact is awarded to a unique case-insensitive name match.
	ConfidenceExact = 1.0
	// ConfidenceExactAmbiguous is awarded when several fighters share the
	// exact name; the lowest id wins deterministically but the ambiguity is
	// reflected in the score.
	ConfidenceExactAmbiguous = 0.85
	// ConfidenceAlias is awarded to a recorded name-variation match.
	ConfidenceAlias = 0.9
	// ConfidenceFuzzyCap bounds any fuzzy-similarity match.
	ConfidenceFuzzyCap = 0.85
	// ConfidenceNickname is awarded when the first-name token matches a
	// stored nickname.
	ConfidenceNickname = 0.75

	// fuzzyFloor is the minimum raw similarity a fuzzy candidate must reach.
	fuzzyFloor = 0.6
	// shortCircuitConfidence stops the cascade early; only a unique exact
	// match clears it.
	shortCircuitConfidence = 0.95

	// Context boosts, applied once to the chosen candidate.
	nationalityBoost   = 0.05
	plausibleAgeBoost  = 0.03
	implausibleAgeCost = 0.10

	minFightingAge = 18
	maxFightingAge = 45

	defaultCandidateLimit = 50
)

// Store is the read surface the cascade needs.
type Store interface {
	FightersByExactName(ctx context.Context, first, last string) ([]db.Fighter, error)
	FightersByAlias(ctx context.Context, first, last, full string) ([]db.Fighter, error)
	FighterCandidates(ctx context.Context, first, last string, limit int) ([]db.Fighter, error)
	FightersByNickname(ctx context.Context, nickname string) ([]db.Fighter, error)
}

// Context carries optional signals used to boost a chosen candidate. Boosts
// never re-rank the strategy cascade itself.
type Context struct {
	Nationality string
	EventDate   *time.Time
}

// Strategy labels which cascade step produced a match.
type Strategy string

const (
	StrategyExact    Strategy = "exact"
	StrategyAlias    Strategy = "alias"
	StrategyFuzzy    Strategy = "fuzzy"
	StrategyNickname Strategy = "nickname"
)

// Candidate is one scored fighter from the cascade, before context boosting.
type Candidate struct {
	Fighter    db.Fighter
	Confidence float64
	Strategy   Strategy
}

type Matcher struct {
	store  Store
	logger zerolog.Logger
}

func New(store Store, logger zerolog.Logger) *Matcher {
	return &Matcher{
		store:  store,
		logger: logger,
	}
}

// Find resolves a mention to the best canonical fighter, returning the
// fighter (or nil) and a confidence in [0,1]. An empty first name is invalid
// input and resolves to (nil, 0) without touching the store.
func (m *Matcher) Find(ctx context.Context, first, last string, mctx *Context) (*db.Fighter, float64, error) {
	candidates, err := m.search(ctx, first, last)
	if err != nil {
		return nil, 0, err
	}
	if len(candidates) == 0 {
		return nil, 0, nil
	}

	best := candidates[0]
	confidence := applyContextBoost(best.Fighter, best.Confidence, mctx)

	m.logger.Debug().
		Str("query", names.DeriveFullName(first, last)).
		Int64("fighter_id", best.Fighter.FighterID).
		Str("strategy", string(best.Strategy)).
		Float64("confidence", confidence).
		Msg("fighter match")

	return &best.Fighter, confidence, nil
}

// TopCandidates returns up to limit scored candidates for review display,
// ordered by raw cascade confidence.
func (m *Matcher) TopCandidates(ctx context.Context, first, last string, limit int) ([]Candidate, error) {
	candidates, err := m.search(ctx, first, last)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// search runs the strategy cascade, keeping each fighter's best score. The
// cascade short-circuits only on a unique exact hit.
func (m *Matcher) search(ctx context.Context, first, last string) ([]Candidate, error) {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" {
		return nil, nil
	}

	byFighter := make(map[int64]Candidate)

	// Strategy 1: exact canonical name.
	exact, err := m.store.FightersByExactName(ctx, first, last)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		confidence := ConfidenceExact
		if len(exact) > 1 {
			confidence = ConfidenceExactAmbiguous
		}
		for _, f := range exact {
			keepBest(byFighter, Candidate{Fighter: f, Confidence: confidence, Strategy: StrategyExact})
		}
		if confidence >= shortCircuitConfidence {
			return rankCandidates(byFighter), nil
		}
	}

	// Strategy 2: recorded aliases.
	full := names.DeriveFullName(first, last)
	aliased, err := m.store.FightersByAlias(ctx, first, last, full)
	if err != nil {
		return nil, err
	}
	for _, f := range aliased {
		keepBest(byFighter, Candidate{Fighter: f, Confidence: ConfidenceAlias, Strategy: StrategyAlias})
	}

	// Strategy 3: fuzzy similarity over a bounded candidate pool.
	pool, err := m.store.FighterCandidates(ctx, first, last, defaultCandidateLimit)
	if err != nil {
		return nil, err
	}
	for _, f := range pool {
		similarity := mentionSimilarity(first, last, full, f)
		if similarity < fuzzyFloor {
			continue
		}
		keepBest(byFighter, Candidate{
			Fighter:    f,
			Confidence: min(similarity, ConfidenceFuzzyCap),
			Strategy:   StrategyFuzzy,
		})
	}

	// Strategy 4: the first-name token as a nickname.
	nicked, err := m.store.FightersByNickname(ctx, first)
	if err != nil {
		return nil, err
	}
	for _, f := range nicked {
		keepBest(byFighter, Candidate{Fighter: f, Confidence: ConfidenceNickname, Strategy: StrategyNickname})
	}

	return rankCandidates(byFighter), nil
}

// mentionSimilarity scores a mention against one fighter: the best of the
// full-name comparison and the averaged per-component comparison.
func mentionSimilarity(first, last, full string, f db.Fighter) float64 {
	best := names.Similarity(full, names.DeriveFullName(f.FirstName, f.LastName))
	if last != "" && f.LastName != "" {
		component := (names.Similarity(first, f.FirstName) + names.Similarity(last, f.LastName)) / 2
		if component > best {
			best = component
		}
	}
	return best
}

func applyContextBoost(f db.Fighter, confidence float64, mctx *Context) float64 {
	if mctx == nil {
		return clamp01(confidence)
	}

	if mctx.Nationality != "" && f.Nationality != nil &&
		strings.EqualFold(strings.TrimSpace(mctx.Nationality), strings.TrimSpace(*f.Nationality)) {
		confidence += nationalityBoost
	}

	if mctx.EventDate != nil && f.DateOfBirth != nil {
		age := ageAt(*f.DateOfBirth, *mctx.EventDate)
		if age >= minFightingAge && age <= maxFightingAge {
			confidence += plausibleAgeBoost
		} else {
			confidence -= implausibleAgeCost
		}
	}

	return clamp01(confidence)
}

func ageAt(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	anniversary := dob.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}

func keepBest(byFighter map[int64]Candidate, c Candidate) {
	existing, ok := byFighter[c.Fighter.FighterID]
	if !ok || c.Confidence > existing.Confidence {
		byFighter[c.Fighter.FighterID] = c
	}
}

func rankCandidates(byFighter map[int64]Candidate) []Candidate {
	candidates := make([]Candidate, 0, len(byFighter))
	for _, c := range byFighter {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Fighter.FighterID < candidates[j].Fighter.FighterID
	})
	return candidates
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
