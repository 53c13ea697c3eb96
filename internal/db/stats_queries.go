package db

import (
	"context"
	"fmt"
	"time"
)

// HistoryLinkRow is one linked fight-history perspective joined with the
// fight it claims, for consistency auditing. Fight fields are nil when the
// reference does not resolve.
type HistoryLinkRow struct {
	HistoryID      int64
	FighterID      int64
	FightID        int64
	Result         FightResult
	EventDate      *time.Time
	FightFound     bool
	FightEventDate *time.Time
	Fighter1ID     *int64
	Fighter2ID     *int64
	ResultKind     *ResultKind
	WinnerID       *int64
}

// LinkedHistoryRows loads every history row that claims a fight link,
// ordered by fight so perspectives group together.
func (s *Store) LinkedHistoryRows(ctx context.Context) ([]HistoryLinkRow, error) {
	q := `
SELECT
	h.fight_history_id,
	h.fighter_id,
	h.fight_id,
	h.result,
	h.event_date,
	ft.fight_id IS NOT NULL,
	ev.event_date,
	ft.fighter1_id,
	ft.fighter2_id,
	ft.result_kind,
	ft.winner_id
FROM mma.fight_histories h
LEFT JOIN mma.fights ft ON ft.fight_id = h.fight_id
LEFT JOIN mma.events ev ON ev.event_id = ft.event_id
WHERE h.fight_id IS NOT NULL
ORDER BY h.fight_id, h.fighter_id, h.fight_history_id
`
	rows, err := s.q.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []HistoryLinkRow
	for rows.Next() {
		var r HistoryLinkRow
		if err := rows.Scan(
			&r.HistoryID,
			&r.FighterID,
			&r.FightID,
			&r.Result,
			&r.EventDate,
			&r.FightFound,
			&r.FightEventDate,
			&r.Fighter1ID,
			&r.Fighter2ID,
			&r.ResultKind,
			&r.WinnerID,
		); err != nil {
			return nil, fmt.Errorf("scan history link row: %w", err)
		}
		links = append(links, r)
	}
	return links, rows.Err()
}

// CoverageStats tracks reconciliation progress across the history table.
type CoverageStats struct {
	TotalHistories    int64   `json:"total_histories"`
	WithOpponentLink  int64   `json:"with_opponent_link"`
	WithFightLink     int64   `json:"with_fight_link"`
	OpponentLinkRatio float64 `json:"opponent_link_ratio"`
	FightLinkRatio    float64 `json:"fight_link_ratio"`
}

// HistoryCoverage computes link percentages over all fight histories.
func (s *Store) HistoryCoverage(ctx context.Context) (CoverageStats, error) {
	q := `
SELECT
	count(*),
	count(opponent_fighter_id),
	count(fight_id)
FROM mma.fight_histories
`
	var stats CoverageStats
	if err := s.q.QueryRow(ctx, q).Scan(&stats.TotalHistories, &stats.WithOpponentLink, &stats.WithFightLink); err != nil {
		return CoverageStats{}, fmt.Errorf("history coverage: %w", err)
	}
	if stats.TotalHistories > 0 {
		stats.OpponentLinkRatio = float64(stats.WithOpponentLink) / float64(stats.TotalHistories)
		stats.FightLinkRatio = float64(stats.WithFightLink) / float64(stats.TotalHistories)
	}
	return stats, nil
}

// SourceBreakdown summarizes history rows sharing one data_source tag.
type SourceBreakdown struct {
	Histories  int64   `json:"histories"`
	Linked     int64   `json:"linked"`
	AvgQuality float64 `json:"avg_quality"`
}

// HistoryCountsByDataSource groups histories by provenance tag.
func (s *Store) HistoryCountsByDataSource(ctx context.Context) (map[string]SourceBreakdown, error) {
	q := `
SELECT
	data_source,
	count(*),
	count(fight_id),
	coalesce(avg(data_quality_score), 0)
FROM mma.fight_histories
GROUP BY data_source
`
	rows, err := s.q.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := make(map[string]SourceBreakdown)
	for rows.Next() {
		var source string
		var b SourceBreakdown
		if err := rows.Scan(&source, &b.Histories, &b.Linked, &b.AvgQuality); err != nil {
			return nil, fmt.Errorf("scan data source breakdown: %w", err)
		}
		breakdown[source] = b
	}
	return breakdown, rows.Err()
}

// HistoryQualityHistogram buckets history quality scores into quartile-width
// bins keyed "0.00-0.25" through "0.75-1.00".
func (s *Store) HistoryQualityHistogram(ctx context.Context) (map[string]int64, error) {
	q := `
SELECT
	CASE
		WHEN data_quality_score < 0.25 THEN '0.00-0.25'
		WHEN data_quality_score < 0.50 THEN '0.25-0.50'
		WHEN data_quality_score < 0.75 THEN '0.50-0.75'
		ELSE '0.75-1.00'
	END AS bucket,
	count(*)
FROM mma.fight_histories
GROUP BY bucket
`
	rows, err := s.q.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	histogram := map[string]int64{
		"0.00-0.25": 0,
		"0.25-0.50": 0,
		"0.50-0.75": 0,
		"0.75-1.00": 0,
	}
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan quality bucket: %w", err)
		}
		histogram[bucket] = count
	}
	return histogram, rows.Err()
}

// FighterCount returns the canonical roster size.
func (s *Store) FighterCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.q.QueryRow(ctx, `SELECT count(*) FROM mma.fighters`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count fighters: %w", err)
	}
	return count, nil
}
