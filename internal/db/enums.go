package db

import "strings"

// PendingStatus is the review state of a staged fighter mention.
type PendingStatus string

const (
	PendingStatusPending   PendingStatus = "pending"
	PendingStatusApproved  PendingStatus = "approved"
	PendingStatusRejected  PendingStatus = "rejected"
	PendingStatusDuplicate PendingStatus = "duplicate"
	PendingStatusCreated   PendingStatus = "created"
)

// Terminal reports whether no further transitions are legal from the status.
func (s PendingStatus) Terminal() bool {
	switch s {
	case PendingStatusRejected, PendingStatusDuplicate, PendingStatusCreated:
		return true
	default:
		return false
	}
}

// ConfidenceLevel grades how ambiguous a pending mention is. It is the
// inverse of match confidence: a strong name match means the mention is
// probably a duplicate, so reviewers should look harder.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// SourceKind tags where a pending mention came from.
type SourceKind string

const (
	SourceScraper SourceKind = "scraper"
	SourceManual  SourceKind = "manual"
	SourceAPI     SourceKind = "api"
)

// FightResult is one perspective's outcome of a bout.
type FightResult string

const (
	ResultWin       FightResult = "win"
	ResultLoss      FightResult = "loss"
	ResultDraw      FightResult = "draw"
	ResultNoContest FightResult = "no_contest"
	ResultUnknown   FightResult = "unknown"
)

// Definitive reports whether the result decides a winner-side outcome.
func (r FightResult) Definitive() bool {
	return r == ResultWin || r == ResultLoss
}

// Opposite returns the result the other perspective must carry, or
// ResultUnknown when no complement exists.
func (r FightResult) Opposite() FightResult {
	switch r {
	case ResultWin:
		return ResultLoss
	case ResultLoss:
		return ResultWin
	case ResultDraw, ResultNoContest:
		return r
	default:
		return ResultUnknown
	}
}

// ParseFightResult maps free text onto a FightResult tag.
func ParseFightResult(raw string) FightResult {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "win", "w", "won":
		return ResultWin
	case "loss", "l", "lost", "lose":
		return ResultLoss
	case "draw", "d":
		return ResultDraw
	case "nc", "no contest", "no_contest", "overturned":
		return ResultNoContest
	default:
		return ResultUnknown
	}
}

// ResultKind is the authoritative outcome stored on a Fight.
type ResultKind string

const (
	ResultKindWin       ResultKind = "win"
	ResultKindDraw      ResultKind = "draw"
	ResultKindNoContest ResultKind = "no_contest"
)

// MethodKind is the enumerated finish method. Free text stays in
// method_detail; business logic only ever branches on this tag.
type MethodKind string

const (
	MethodKOTKO      MethodKind = "ko_tko"
	MethodSubmission MethodKind = "submission"
	MethodDecision   MethodKind = "decision"
	MethodDQ         MethodKind = "dq"
	MethodNoContest  MethodKind = "no_contest"
	MethodOther      MethodKind = "other"
)

// ParseMethodKind classifies a free-text method description once, at the
// boundary where scraped text enters the system.
func ParseMethodKind(raw string) MethodKind {
	method := strings.ToLower(strings.TrimSpace(raw))
	if method == "" {
		return MethodOther
	}

	switch {
	case strings.Contains(method, "submission"), strings.Contains(method, "sub"),
		strings.Contains(method, "tapout"), strings.Contains(method, "choke"),
		strings.Contains(method, "armbar"), strings.Contains(method, "lock"):
		return MethodSubmission
	case strings.Contains(method, "decision"), strings.Contains(method, "dec"):
		return MethodDecision
	case strings.Contains(method, "ko"), strings.Contains(method, "tko"),
		strings.Contains(method, "knockout"), strings.Contains(method, "stoppage"),
		strings.Contains(method, "punches"), strings.Contains(method, "strikes"):
		return MethodKOTKO
	case strings.Contains(method, "dq"), strings.Contains(method, "disqualification"):
		return MethodDQ
	case strings.Contains(method, "no contest"), strings.Contains(method, "overturned"):
		return MethodNoContest
	default:
		return MethodOther
	}
}

// VariationType classifies a recorded name alias.
type VariationType string

const (
	VariationAlias           VariationType = "alias"
	VariationTransliteration VariationType = "transliteration"
	VariationMisspelling     VariationType = "misspelling"
	VariationNickname        VariationType = "nickname"
)
