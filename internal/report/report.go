// Package report assembles the reconciliation progress artifact emitted by
// the report subcommand and the review API.
package report

import (
	"context"
	"fmt"
	"time"

	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/globaltime"
)

// Store is the read-only aggregate query surface the report needs.
type Store interface {
	FighterCount(ctx context.Context) (int64, error)
	HistoryCoverage(ctx context.Context) (db.CoverageStats, error)
	HistoryCountsByDataSource(ctx context.Context) (map[string]db.SourceBreakdown, error)
	HistoryQualityHistogram(ctx context.Context) (map[string]int64, error)
	PendingStatusCounts(ctx context.Context) (map[db.PendingStatus]int64, error)
}

// Summary is the headline block of the report.
type Summary struct {
	GeneratedAt     time.Time                `json:"generated_at"`
	Fighters        int64                    `json:"fighters"`
	Coverage        db.CoverageStats         `json:"coverage"`
	PendingByStatus map[db.PendingStatus]int64 `json:"pending_by_status"`
}

// Report is the full JSON artifact.
type Report struct {
	Summary                 Summary                       `json:"summary"`
	ByDataSource            map[string]db.SourceBreakdown `json:"by_data_source"`
	DataQualityDistribution map[string]int64              `json:"data_quality_distribution"`
}

// Build gathers all aggregates into one artifact.
func Build(ctx context.Context, store Store) (*Report, error) {
	fighters, err := store.FighterCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("fighter count: %w", err)
	}
	coverage, err := store.HistoryCoverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("history coverage: %w", err)
	}
	pending, err := store.PendingStatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending counts: %w", err)
	}
	bySource, err := store.HistoryCountsByDataSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("source breakdown: %w", err)
	}
	histogram, err := store.HistoryQualityHistogram(ctx)
	if err != nil {
		return nil, fmt.Errorf("quality histogram: %w", err)
	}

	return &Report{
		Summary: Summary{
			GeneratedAt:     globaltime.UTC(),
			Fighters:        fighters,
			Coverage:        coverage,
			PendingByStatus: pending,
		},
		ByDataSource:            bySource,
		DataQualityDistribution: histogram,
	}, nil
}
