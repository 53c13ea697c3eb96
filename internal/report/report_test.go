package report

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/globaltime"
)

type fakeReportStore struct{}

func (fakeReportStore) FighterCount(_ context.Context) (int64, error) { return 42, nil }

func (fakeReportStore) HistoryCoverage(_ context.Context) (db.CoverageStats, error) {
	return db.CoverageStats{TotalHistories: 100, WithFightLink: 60, FightLinkRatio: 0.6}, nil
}

func (fakeReportStore) HistoryCountsByDataSource(_ context.Context) (map[string]db.SourceBreakdown, error) {
	return map[string]db.SourceBreakdown{
		"reconciled": {Histories: 60, Linked: 60, AvgQuality: 0.9},
		"wikipedia":  {Histories: 40, Linked: 0, AvgQuality: 0.4},
	}, nil
}

func (fakeReportStore) HistoryQualityHistogram(_ context.Context) (map[string]int64, error) {
	return map[string]int64{"0.00-0.25": 5, "0.25-0.50": 35, "0.50-0.75": 20, "0.75-1.00": 40}, nil
}

func (fakeReportStore) PendingStatusCounts(_ context.Context) (map[db.PendingStatus]int64, error) {
	return map[db.PendingStatus]int64{db.PendingStatusPending: 3, db.PendingStatusCreated: 7}, nil
}

func TestBuild(t *testing.T) {
	globaltime.SetMockTime(globaltime.Now())
	defer globaltime.ResetTime()

	r, err := Build(context.Background(), fakeReportStore{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.Summary.Fighters != 42 || r.Summary.Coverage.FightLinkRatio != 0.6 {
		t.Fatalf("unexpected summary %+v", r.Summary)
	}
	if r.ByDataSource["reconciled"].Histories != 60 {
		t.Fatalf("unexpected source breakdown %+v", r.ByDataSource)
	}
	if r.DataQualityDistribution["0.75-1.00"] != 40 {
		t.Fatalf("unexpected distribution %+v", r.DataQualityDistribution)
	}

	blob, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"summary"`, `"by_data_source"`, `"data_quality_distribution"`} {
		if !strings.Contains(string(blob), key) {
			t.Fatalf("artifact missing %s: %s", key, blob)
		}
	}
}
