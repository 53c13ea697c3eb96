// Package reconcile links free-text fight-history rows to authoritative
// fight records, promoting them into the cross-referenced network. Matching
// runs a three-strategy cascade per record; every accepted link overwrites
// the history's denormalized fields from the authoritative side.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/fightdesk/internal/db"
	"horse.fit/fightdesk/internal/globaltime"
	"horse.fit/fightdesk/internal/names"
)

const (
	// DefaultMatchThreshold is the bar, on a 0-100 scale, for the event
	// and exact-date strategies.
	DefaultMatchThreshold = 80.0
	// DefaultOpponentNameBar gates the event+participant strategy on the
	// opponent's name alone.
	DefaultOpponentNameBar = 85.0
	// DefaultHighConfidenceThreshold is the stricter bar for the fuzzy
	// cross-career strategy.
	DefaultHighConfidenceThreshold = 95.0

	DefaultChunkSize = 200

	// ReconciledDataSource marks rows whose fields are synced from an
	// authoritative fight.
	ReconciledDataSource = "reconciled"
)

// Strategy names recorded in the audit blob and batch stats.
const (
	StrategyEventParticipant = "event_participant"
	StrategyDateName         = "date_name"
	StrategyFuzzyCareer      = "fuzzy_career"
)

// Store is the persistence slice reconciliation reads and writes.
// *db.Store satisfies it.
type Store interface {
	HistoryByID(ctx context.Context, historyID int64) (*db.FightHistory, error)
	UnlinkedHistoryIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	FightsAtEventForFighter(ctx context.Context, fighterID, eventID int64) ([]db.FightCandidate, error)
	FightsOnDateForFighter(ctx context.Context, fighterID int64, date time.Time) ([]db.FightCandidate, error)
	FightsNearDateForFighter(ctx context.Context, fighterID int64, from, to time.Time) ([]db.FightCandidate, error)
	HistoryLinkExists(ctx context.Context, fightID, fighterID, excludeHistoryID int64) (bool, error)
	UpdateHistoryLink(ctx context.Context, h *db.FightHistory) error
}

// DB provides plain reads and per-record transactions. One record's failed
// transaction must not abort the rest of a batch.
type DB interface {
	Store() Store
	WithTx(ctx context.Context, fn func(store Store) error) error
}

// PoolDB adapts *db.Pool to the DB interface.
type PoolDB struct {
	pool *db.Pool
}

func NewPoolDB(pool *db.Pool) *PoolDB { return &PoolDB{pool: pool} }

func (p *PoolDB) Store() Store { return db.NewStore(p.pool) }

func (p *PoolDB) WithTx(ctx context.Context, fn func(store Store) error) error {
	return db.WithTx(ctx, p.pool, func(q db.Querier) error {
		return fn(db.NewStore(q))
	})
}

// Config carries the tunable thresholds. Zero values fall back to defaults.
type Config struct {
	MatchThreshold          float64
	HighConfidenceThreshold float64
	ChunkSize               int
}

func (c Config) withDefaults() Config {
	if c.MatchThreshold <= 0 {
		c.MatchThreshold = DefaultMatchThreshold
	}
	if c.HighConfidenceThreshold <= 0 {
		c.HighConfidenceThreshold = DefaultHighConfidenceThreshold
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	return c
}

// Stats aggregates one batch run.
type Stats struct {
	RunID      string         `json:"run_id"`
	Processed  int            `json:"processed"`
	Linked     int            `json:"linked"`
	Unmatched  int            `json:"unmatched"`
	Skipped    int            `json:"skipped"`
	Errors     int            `json:"errors"`
	ByStrategy map[string]int `json:"by_strategy"`
	Stopped    bool           `json:"stopped"`
	DryRun     bool           `json:"dry_run"`
}

// Options controls one batch run.
type Options struct {
	// DryRun evaluates matches without writing.
	DryRun bool
	// Limit caps the number of records processed; zero means all.
	Limit int
}

// Outcome describes what happened to a single record.
type Outcome struct {
	HistoryID  int64   `json:"history_id"`
	Linked     bool    `json:"linked"`
	FightID    int64   `json:"fight_id,omitempty"`
	Strategy   string  `json:"strategy,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// linkAudit is the blob stamped into fight_histories.reconciliation.
type linkAudit struct {
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Strategy   string    `json:"strategy"`
	RunID      string    `json:"run_id"`
}

// Service drives reconciliation.
type Service struct {
	db     DB
	config Config
	logger zerolog.Logger
}

func New(database DB, config Config, logger zerolog.Logger) *Service {
	return &Service{db: database, config: config.withDefaults(), logger: logger}
}

// ReconcileAll processes every unlinked history row in id-ordered chunks.
// It is safe to re-run: linked rows never come back from the paging query,
// and rows linked mid-run are re-checked inside their transaction. Context
// cancellation stops the batch between records without error.
func (s *Service) ReconcileAll(ctx context.Context, opts Options) (Stats, error) {
	stats := Stats{
		RunID:      uuid.NewString(),
		ByStrategy: make(map[string]int),
		DryRun:     opts.DryRun,
	}
	reader := s.db.Store()

	var afterID int64
	for {
		chunk := s.config.ChunkSize
		if opts.Limit > 0 && opts.Limit-stats.Processed < chunk {
			chunk = opts.Limit - stats.Processed
		}
		if chunk <= 0 {
			break
		}

		ids, err := reader.UnlinkedHistoryIDs(ctx, afterID, chunk)
		if err != nil {
			return stats, fmt.Errorf("page unlinked histories: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			if ctx.Err() != nil {
				stats.Stopped = true
				s.logger.Warn().
					Str("run_id", stats.RunID).
					Int("processed", stats.Processed).
					Msg("reconciliation stopped early")
				return stats, nil
			}
			afterID = id

			outcome, err := s.reconcileRecord(ctx, id, opts.DryRun, stats.RunID)
			stats.Processed++
			switch {
			case err != nil:
				stats.Errors++
				s.logger.Error().Err(err).
					Int64("history_id", id).
					Str("run_id", stats.RunID).
					Msg("reconcile record failed")
			case outcome == nil:
				stats.Skipped++
			case outcome.Linked:
				stats.Linked++
				stats.ByStrategy[outcome.Strategy]++
			default:
				stats.Unmatched++
			}
		}
	}

	s.logger.Info().
		Str("run_id", stats.RunID).
		Int("processed", stats.Processed).
		Int("linked", stats.Linked).
		Int("unmatched", stats.Unmatched).
		Int("errors", stats.Errors).
		Bool("dry_run", stats.DryRun).
		Msg("reconciliation batch finished")
	return stats, nil
}

// ReconcileOne runs the cascade for a single history row.
func (s *Service) ReconcileOne(ctx context.Context, historyID int64, dryRun bool) (*Outcome, error) {
	outcome, err := s.reconcileRecord(ctx, historyID, dryRun, uuid.NewString())
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return &Outcome{HistoryID: historyID}, nil
	}
	return outcome, nil
}

// reconcileRecord runs one record inside its own transaction. A nil outcome
// with nil error means the record was already linked or gone.
func (s *Service) reconcileRecord(ctx context.Context, historyID int64, dryRun bool, runID string) (*Outcome, error) {
	if dryRun {
		return s.evaluateRecord(ctx, s.db.Store(), historyID, dryRun, runID)
	}

	var outcome *Outcome
	err := s.db.WithTx(ctx, func(store Store) error {
		var err error
		outcome, err = s.evaluateRecord(ctx, store, historyID, dryRun, runID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *Service) evaluateRecord(ctx context.Context, store Store, historyID int64, dryRun bool, runID string) (*Outcome, error) {
	h, err := store.HistoryByID(ctx, historyID)
	if err != nil {
		return nil, err
	}
	if h == nil || h.FightID != nil {
		return nil, nil
	}

	candidate, confidence, strategy, err := s.matchRecord(ctx, store, h)
	if err != nil {
		return nil, err
	}
	if strategy == "" {
		return &Outcome{HistoryID: historyID}, nil
	}

	// Another history row may already hold this perspective.
	claimed, err := store.HistoryLinkExists(ctx, candidate.FightID, h.FighterID, h.FightHistoryID)
	if err != nil {
		return nil, err
	}
	if claimed {
		s.logger.Debug().
			Int64("history_id", historyID).
			Int64("fight_id", candidate.FightID).
			Msg("perspective already claimed")
		return &Outcome{HistoryID: historyID}, nil
	}

	outcome := &Outcome{
		HistoryID:  historyID,
		Linked:     true,
		FightID:    candidate.FightID,
		Strategy:   strategy,
		Confidence: confidence,
	}
	if dryRun {
		return outcome, nil
	}
	if err := s.linkHistory(ctx, store, h, candidate, confidence, strategy, runID); err != nil {
		return nil, err
	}
	return outcome, nil
}

// matchRecord runs the strategy cascade. The first strategy to produce an
// acceptable candidate wins. An empty strategy means no match, which is a
// normal outcome.
func (s *Service) matchRecord(ctx context.Context, store Store, h *db.FightHistory) (db.FightCandidate, float64, string, error) {
	// Strategy 1: the record already references a known event.
	if h.EventID != nil {
		candidates, err := store.FightsAtEventForFighter(ctx, h.FighterID, *h.EventID)
		if err != nil {
			return db.FightCandidate{}, 0, "", err
		}
		best, score, ok := bestCandidate(candidates, func(c db.FightCandidate) float64 {
			return opponentNameScore(h, c)
		})
		if ok && score >= DefaultOpponentNameBar {
			return best, score, StrategyEventParticipant, nil
		}
	}

	if h.EventDate == nil {
		return db.FightCandidate{}, 0, "", nil
	}

	// Strategy 2: exact date, scored on the opponent's name. Reserved for
	// records with no event link; a linked event that missed the bar above
	// falls through to the stricter fuzzy pass instead.
	if h.EventID == nil {
		candidates, err := store.FightsOnDateForFighter(ctx, h.FighterID, *h.EventDate)
		if err != nil {
			return db.FightCandidate{}, 0, "", err
		}
		best, score, ok := bestCandidate(candidates, func(c db.FightCandidate) float64 {
			return opponentNameScore(h, c)
		})
		if ok && score >= s.config.MatchThreshold {
			return best, score, StrategyDateName, nil
		}
	}

	// Strategy 3: fuzzy window across the career, weighted composite with
	// a stricter bar.
	from := h.EventDate.AddDate(-1, 0, 0)
	to := h.EventDate.AddDate(1, 0, 0)
	candidates, err := store.FightsNearDateForFighter(ctx, h.FighterID, from, to)
	if err != nil {
		return db.FightCandidate{}, 0, "", err
	}
	best, score, ok := bestCandidate(candidates, func(c db.FightCandidate) float64 {
		return compositeScore(h, c)
	})
	if ok && score >= s.config.HighConfidenceThreshold {
		return best, score, StrategyFuzzyCareer, nil
	}

	return db.FightCandidate{}, 0, "", nil
}

// linkHistory writes the accepted link. The authoritative fight always wins
// on conflicting denormalized fields.
func (s *Service) linkHistory(ctx context.Context, store Store, h *db.FightHistory, c db.FightCandidate, confidence float64, strategy, runID string) error {
	audit, err := json.Marshal(linkAudit{
		Timestamp:  globaltime.UTC(),
		Confidence: confidence,
		Strategy:   strategy,
		RunID:      runID,
	})
	if err != nil {
		return fmt.Errorf("encode reconciliation audit: %w", err)
	}

	fightID := c.FightID
	eventID := c.EventID
	opponentID := c.OpponentID
	eventName := c.EventName
	eventDate := c.EventDate

	h.FightID = &fightID
	h.EventID = &eventID
	h.OpponentFighterID = &opponentID
	h.OpponentName = names.DeriveFullName(c.OpponentFirst, c.OpponentLast)
	h.Result = c.ResultFor(h.FighterID)
	h.MethodKind = c.MethodKind
	h.MethodDetail = c.MethodDetail
	h.EventName = &eventName
	h.EventDate = &eventDate
	h.Location = c.EventLocation
	h.Round = c.Round
	h.TimeStr = c.TimeStr
	h.WeightClass = c.WeightClass
	h.IsTitleFight = c.IsTitleFight
	h.DataSource = ReconciledDataSource
	h.Reconciliation = audit
	h.DataQualityScore = db.ComputeHistoryQuality(h)

	if err := store.UpdateHistoryLink(ctx, h); err != nil {
		return err
	}

	s.logger.Info().
		Int64("history_id", h.FightHistoryID).
		Int64("fight_id", c.FightID).
		Str("strategy", strategy).
		Float64("confidence", confidence).
		Msg("fight history linked")
	return nil
}
