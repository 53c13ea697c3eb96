// Package consistency audits the linked fight network for structural
// violations. The validator only reads; repairs are a human decision.
package consistency

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/db"
)

// IssueKind classifies a structural violation.
type IssueKind string

const (
	// IssueMissingPerspective: a fight has a history link from only one
	// of its two participants.
	IssueMissingPerspective IssueKind = "missing_perspective"
	// IssueResultInconsistency: a linked history's result contradicts the
	// authoritative outcome.
	IssueResultInconsistency IssueKind = "result_inconsistency"
	// IssueDateMismatch: a linked history's date drifted from the
	// authoritative event date. Tolerance is zero since reconciliation
	// syncs dates on link.
	IssueDateMismatch IssueKind = "date_mismatch"
	// IssueDuplicatePerspective: multiple history rows claim the same
	// (fight, fighter) pair.
	IssueDuplicatePerspective IssueKind = "duplicate_perspective"
	// IssueOrphanedReference: a history points at a fight id that no
	// longer resolves.
	IssueOrphanedReference IssueKind = "orphaned_reference"
)

// Severity grades how urgent an issue is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (k IssueKind) severity() Severity {
	switch k {
	case IssueOrphanedReference:
		return SeverityCritical
	case IssueResultInconsistency, IssueDuplicatePerspective:
		return SeverityHigh
	case IssueDateMismatch:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Issue is one detected violation.
type Issue struct {
	Kind        IssueKind `json:"kind"`
	Severity    Severity  `json:"severity"`
	FightID     int64     `json:"fight_id"`
	FighterID   int64     `json:"fighter_id,omitempty"`
	HistoryIDs  []int64   `json:"history_ids,omitempty"`
	Description string    `json:"description"`
}

// Report is the full audit result.
type Report struct {
	Issues       []Issue           `json:"issues"`
	Counts       map[IssueKind]int `json:"counts"`
	CheckedLinks int               `json:"checked_links"`
	Coverage     db.CoverageStats  `json:"coverage"`
}

// Store is the read-only persistence slice the validator needs.
type Store interface {
	LinkedHistoryRows(ctx context.Context) ([]db.HistoryLinkRow, error)
	HistoryCoverage(ctx context.Context) (db.CoverageStats, error)
}

// Validator scans linked history rows for violations.
type Validator struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate runs a full audit pass. It never mutates.
func (v *Validator) Validate(ctx context.Context, store Store) (*Report, error) {
	rows, err := store.LinkedHistoryRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load linked histories: %w", err)
	}
	coverage, err := store.HistoryCoverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("load coverage: %w", err)
	}

	report := &Report{
		Counts:       make(map[IssueKind]int),
		CheckedLinks: len(rows),
		Coverage:     coverage,
	}

	byFight := make(map[int64][]db.HistoryLinkRow)
	var fightIDs []int64
	for _, r := range rows {
		if _, seen := byFight[r.FightID]; !seen {
			fightIDs = append(fightIDs, r.FightID)
		}
		byFight[r.FightID] = append(byFight[r.FightID], r)
	}
	sort.Slice(fightIDs, func(i, j int) bool { return fightIDs[i] < fightIDs[j] })

	for _, fightID := range fightIDs {
		v.checkFight(report, fightID, byFight[fightID])
	}

	v.logger.Info().
		Int("checked_links", report.CheckedLinks).
		Int("issues", len(report.Issues)).
		Msg("consistency audit complete")
	return report, nil
}

func (v *Validator) checkFight(report *Report, fightID int64, group []db.HistoryLinkRow) {
	// Orphans first: nothing else can be checked without the fight.
	if !group[0].FightFound {
		for _, r := range group {
			report.add(Issue{
				Kind:        IssueOrphanedReference,
				FightID:     fightID,
				FighterID:   r.FighterID,
				HistoryIDs:  []int64{r.HistoryID},
				Description: fmt.Sprintf("history %d references fight %d which does not exist", r.HistoryID, fightID),
			})
		}
		return
	}

	byFighter := make(map[int64][]int64)
	for _, r := range group {
		byFighter[r.FighterID] = append(byFighter[r.FighterID], r.HistoryID)
	}
	for fighterID, historyIDs := range byFighter {
		if len(historyIDs) > 1 {
			report.add(Issue{
				Kind:        IssueDuplicatePerspective,
				FightID:     fightID,
				FighterID:   fighterID,
				HistoryIDs:  historyIDs,
				Description: fmt.Sprintf("%d history rows claim fight %d for fighter %d", len(historyIDs), fightID, fighterID),
			})
		}
	}

	first := group[0]
	if first.Fighter1ID != nil && first.Fighter2ID != nil {
		for _, participant := range []int64{*first.Fighter1ID, *first.Fighter2ID} {
			if _, ok := byFighter[participant]; !ok {
				report.add(Issue{
					Kind:        IssueMissingPerspective,
					FightID:     fightID,
					FighterID:   participant,
					Description: fmt.Sprintf("fight %d has no history row for fighter %d", fightID, participant),
				})
			}
		}
	}

	var undecided []int64
	for _, r := range group {
		expected := expectedResult(r)
		if expected != db.ResultUnknown && r.Result != db.ResultUnknown && r.Result != expected {
			report.add(Issue{
				Kind:       IssueResultInconsistency,
				FightID:    fightID,
				FighterID:  r.FighterID,
				HistoryIDs: []int64{r.HistoryID},
				Description: fmt.Sprintf("history %d records %q but the authoritative result for fighter %d is %q",
					r.HistoryID, r.Result, r.FighterID, expected),
			})
		}

		if !r.Result.Definitive() {
			undecided = append(undecided, r.HistoryID)
		}

		if r.EventDate != nil && r.FightEventDate != nil && !sameDate(*r.EventDate, *r.FightEventDate) {
			report.add(Issue{
				Kind:       IssueDateMismatch,
				FightID:    fightID,
				FighterID:  r.FighterID,
				HistoryIDs: []int64{r.HistoryID},
				Description: fmt.Sprintf("history %d is dated %s but fight %d happened %s",
					r.HistoryID, r.EventDate.Format("2006-01-02"), fightID, r.FightEventDate.Format("2006-01-02")),
			})
		}
	}

	// A decided fight needs at least one perspective carrying the win or
	// the loss. When every linked row is unknown or hedged, nothing
	// corroborates the authoritative winner.
	if expectedResult(first).Definitive() && len(undecided) == len(group) {
		report.add(Issue{
			Kind:       IssueResultInconsistency,
			FightID:    fightID,
			HistoryIDs: undecided,
			Description: fmt.Sprintf("fight %d decides a winner but none of its %d linked histories records a win or loss",
				fightID, len(group)),
		})
	}
}

func (r *Report) add(issue Issue) {
	issue.Severity = issue.Kind.severity()
	r.Issues = append(r.Issues, issue)
	r.Counts[issue.Kind]++
}

// expectedResult derives one fighter's result from the authoritative
// outcome. Unknown when the fight side is incomplete.
func expectedResult(r db.HistoryLinkRow) db.FightResult {
	if r.ResultKind == nil {
		return db.ResultUnknown
	}
	switch *r.ResultKind {
	case db.ResultKindDraw:
		return db.ResultDraw
	case db.ResultKindNoContest:
		return db.ResultNoContest
	case db.ResultKindWin:
		if r.WinnerID == nil {
			return db.ResultUnknown
		}
		if *r.WinnerID == r.FighterID {
			return db.ResultWin
		}
		return db.ResultLoss
	default:
		return db.ResultUnknown
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
