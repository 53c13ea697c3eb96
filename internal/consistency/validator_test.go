package consistency

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/db"
)

type fakeAuditStore struct {
	rows     []db.HistoryLinkRow
	coverage db.CoverageStats
}

func (s *fakeAuditStore) LinkedHistoryRows(_ context.Context) ([]db.HistoryLinkRow, error) {
	return s.rows, nil
}

func (s *fakeAuditStore) HistoryCoverage(_ context.Context) (db.CoverageStats, error) {
	return s.coverage, nil
}

func i64(v int64) *int64 { return &v }

func resultKind(k db.ResultKind) *db.ResultKind { return &k }

func dateptr(t time.Time) *time.Time { return &t }

var fightDate = time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC)

// perspective builds a healthy linked row for one side of fight 55 between
// fighters 1 and 2, fighter 1 winning.
func perspective(historyID, fighterID int64, result db.FightResult) db.HistoryLinkRow {
	return db.HistoryLinkRow{
		HistoryID:      historyID,
		FighterID:      fighterID,
		FightID:        55,
		Result:         result,
		EventDate:      dateptr(fightDate),
		FightFound:     true,
		FightEventDate: dateptr(fightDate),
		Fighter1ID:     i64(1),
		Fighter2ID:     i64(2),
		ResultKind:     resultKind(db.ResultKindWin),
		WinnerID:       i64(1),
	}
}

func validate(t *testing.T, rows []db.HistoryLinkRow) *Report {
	t.Helper()
	v := New(zerolog.Nop())
	report, err := v.Validate(context.Background(), &fakeAuditStore{rows: rows})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	return report
}

func TestValidate_HealthyNetwork(t *testing.T) {
	t.Parallel()

	report := validate(t, []db.HistoryLinkRow{
		perspective(100, 1, db.ResultWin),
		perspective(101, 2, db.ResultLoss),
	})
	if len(report.Issues) != 0 {
		t.Fatalf("expected no issues, got %+v", report.Issues)
	}
	if report.CheckedLinks != 2 {
		t.Fatalf("expected 2 checked links, got %d", report.CheckedLinks)
	}
}

func TestValidate_BothSidesClaimWin(t *testing.T) {
	t.Parallel()

	report := validate(t, []db.HistoryLinkRow{
		perspective(100, 1, db.ResultWin),
		perspective(101, 2, db.ResultWin),
	})

	if report.Counts[IssueResultInconsistency] != 1 {
		t.Fatalf("expected exactly one result inconsistency, got %+v", report.Counts)
	}
	var issue Issue
	for _, i := range report.Issues {
		if i.Kind == IssueResultInconsistency {
			issue = i
		}
	}
	if issue.Severity != SeverityHigh {
		t.Fatalf("expected high severity, got %s", issue.Severity)
	}
	if issue.FighterID != 2 {
		t.Fatalf("expected the loser's row to be flagged, got fighter %d", issue.FighterID)
	}
}

func TestValidate_MissingPerspective(t *testing.T) {
	t.Parallel()

	report := validate(t, []db.HistoryLinkRow{perspective(100, 1, db.ResultWin)})
	if report.Counts[IssueMissingPerspective] != 1 {
		t.Fatalf("expected one missing perspective, got %+v", report.Counts)
	}
	issue := report.Issues[0]
	if issue.Kind != IssueMissingPerspective || issue.FighterID != 2 || issue.Severity != SeverityLow {
		t.Fatalf("unexpected issue %+v", issue)
	}
}

func TestValidate_DuplicatePerspective(t *testing.T) {
	t.Parallel()

	report := validate(t, []db.HistoryLinkRow{
		perspective(100, 1, db.ResultWin),
		perspective(102, 1, db.ResultWin),
		perspective(101, 2, db.ResultLoss),
	})
	if report.Counts[IssueDuplicatePerspective] != 1 {
		t.Fatalf("expected one duplicate perspective, got %+v", report.Counts)
	}
	for _, issue := range report.Issues {
		if issue.Kind == IssueDuplicatePerspective {
			if len(issue.HistoryIDs) != 2 || issue.Severity != SeverityHigh {
				t.Fatalf("unexpected issue %+v", issue)
			}
		}
	}
}

func TestValidate_DateMismatchZeroTolerance(t *testing.T) {
	t.Parallel()

	drifted := perspective(100, 1, db.ResultWin)
	drifted.EventDate = dateptr(fightDate.AddDate(0, 0, 1))
	report := validate(t, []db.HistoryLinkRow{
		drifted,
		perspective(101, 2, db.ResultLoss),
	})
	if report.Counts[IssueDateMismatch] != 1 {
		t.Fatalf("expected one date mismatch, got %+v", report.Counts)
	}
	for _, issue := range report.Issues {
		if issue.Kind == IssueDateMismatch && issue.Severity != SeverityMedium {
			t.Fatalf("expected medium severity, got %s", issue.Severity)
		}
	}
}

func TestValidate_OrphanedReference(t *testing.T) {
	t.Parallel()

	orphan := db.HistoryLinkRow{
		HistoryID:  100,
		FighterID:  1,
		FightID:    999,
		Result:     db.ResultWin,
		FightFound: false,
	}
	report := validate(t, []db.HistoryLinkRow{orphan})
	if report.Counts[IssueOrphanedReference] != 1 {
		t.Fatalf("expected one orphaned reference, got %+v", report.Counts)
	}
	if report.Issues[0].Severity != SeverityCritical {
		t.Fatalf("expected critical severity, got %s", report.Issues[0].Severity)
	}
}

func TestValidate_OneUnknownSideTolerated(t *testing.T) {
	t.Parallel()

	report := validate(t, []db.HistoryLinkRow{
		perspective(100, 1, db.ResultUnknown),
		perspective(101, 2, db.ResultLoss),
	})
	if report.Counts[IssueResultInconsistency] != 0 {
		t.Fatalf("one unknown side with a definitive counterpart is missing data, not an inconsistency: %+v", report.Counts)
	}
}

func TestValidate_DecidedFightWithNoDefinitiveSide(t *testing.T) {
	t.Parallel()

	report := validate(t, []db.HistoryLinkRow{
		perspective(100, 1, db.ResultUnknown),
		perspective(101, 2, db.ResultUnknown),
	})
	if report.Counts[IssueResultInconsistency] != 1 {
		t.Fatalf("expected one result inconsistency, got %+v", report.Counts)
	}
	var issue Issue
	for _, i := range report.Issues {
		if i.Kind == IssueResultInconsistency {
			issue = i
		}
	}
	if issue.Severity != SeverityHigh || issue.FightID != 55 {
		t.Fatalf("unexpected issue %+v", issue)
	}
	if len(issue.HistoryIDs) != 2 {
		t.Fatalf("expected both histories flagged, got %+v", issue.HistoryIDs)
	}
}

func TestValidate_UndecidedFightNotFlagged(t *testing.T) {
	t.Parallel()

	open := func(historyID, fighterID int64) db.HistoryLinkRow {
		r := perspective(historyID, fighterID, db.ResultUnknown)
		r.ResultKind = nil
		r.WinnerID = nil
		return r
	}
	report := validate(t, []db.HistoryLinkRow{open(100, 1), open(101, 2)})
	if report.Counts[IssueResultInconsistency] != 0 {
		t.Fatalf("a fight without an authoritative winner has nothing to contradict: %+v", report.Counts)
	}
}

func TestValidate_CoveragePassedThrough(t *testing.T) {
	t.Parallel()

	v := New(zerolog.Nop())
	report, err := v.Validate(context.Background(), &fakeAuditStore{
		coverage: db.CoverageStats{TotalHistories: 10, WithFightLink: 4, FightLinkRatio: 0.4},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Coverage.FightLinkRatio != 0.4 {
		t.Fatalf("expected coverage to pass through, got %+v", report.Coverage)
	}
}
