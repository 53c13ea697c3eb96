package reconcile

import (
	"strings"
	"time"

	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/names"
)

// Composite weights for the fuzzy cross-career strategy. They sum to 1 and
// are scaled to the 0-100 confidence scale.
const (
	weightDate         = 0.3
	weightOpponentName = 0.4
	weightMethod       = 0.15
	weightEventName    = 0.1
	weightRound        = 0.05

	// fullDateScoreDays is how far apart two dates can be while still
	// scoring full marks on date proximity. Beyond it the score decays
	// linearly to zero at the edge of the search window.
	fullDateScoreDays = 30
	fuzzyWindowDays   = 365
)

// opponentNameScore compares the history's free-text opponent against a
// candidate's canonical opponent identity, on the 0-100 scale. The nickname
// is tried as an alternative spelling.
func opponentNameScore(h *db.FightHistory, c db.FightCandidate) float64 {
	full := names.DeriveFullName(c.OpponentFirst, c.OpponentLast)
	best := names.Similarity(h.OpponentName, full)
	if c.OpponentNickname != nil {
		if s := names.Similarity(h.OpponentName, *c.OpponentNickname); s > best {
			best = s
		}
	}
	return best * 100
}

// dateProximityScore scores how close the recorded date is to the
// candidate's event date, in [0,1].
func dateProximityScore(recorded, actual time.Time) float64 {
	days := recorded.Sub(actual).Hours() / 24
	if days < 0 {
		days = -days
	}
	if days <= fullDateScoreDays {
		return 1
	}
	if days >= fuzzyWindowDays {
		return 0
	}
	return 1 - (days-fullDateScoreDays)/(fuzzyWindowDays-fullDateScoreDays)
}

// methodScore compares finish methods in [0,1]. Matching parsed kinds are
// decisive; otherwise the free-text details are compared.
func methodScore(h *db.FightHistory, c db.FightCandidate) float64 {
	if h.MethodKind != db.MethodOther && h.MethodKind == c.MethodKind {
		return 1
	}
	var hd, cd string
	if h.MethodDetail != nil {
		hd = strings.TrimSpace(*h.MethodDetail)
	}
	if c.MethodDetail != nil {
		cd = strings.TrimSpace(*c.MethodDetail)
	}
	if hd == "" || cd == "" {
		return 0
	}
	return names.Similarity(hd, cd)
}

func eventNameScore(h *db.FightHistory, c db.FightCandidate) float64 {
	if h.EventName == nil || strings.TrimSpace(*h.EventName) == "" {
		return 0
	}
	return names.Similarity(*h.EventName, c.EventName)
}

func roundScore(h *db.FightHistory, c db.FightCandidate) float64 {
	if h.Round != nil && c.Round != nil && *h.Round == *c.Round {
		return 1
	}
	return 0
}

// compositeScore blends all signals for the fuzzy cross-career strategy,
// on the 0-100 scale. The history must carry a date to reach this path.
func compositeScore(h *db.FightHistory, c db.FightCandidate) float64 {
	score := weightOpponentName * opponentNameScore(h, c)
	score += weightDate * dateProximityScore(*h.EventDate, c.EventDate) * 100
	score += weightMethod * methodScore(h, c) * 100
	score += weightEventName * eventNameScore(h, c) * 100
	score += weightRound * roundScore(h, c) * 100
	return score
}

// bestCandidate returns the candidate maximizing score, with deterministic
// tie-breaking on the lower fight id.
func bestCandidate(candidates []db.FightCandidate, score func(db.FightCandidate) float64) (db.FightCandidate, float64, bool) {
	var (
		best      db.FightCandidate
		bestScore float64
		found     bool
	)
	for _, c := range candidates {
		s := score(c)
		if !found || s > bestScore || (s == bestScore && c.FightID < best.FightID) {
			best, bestScore, found = c, s, true
		}
	}
	return best, bestScore, found
}
