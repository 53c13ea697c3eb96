package db

import (
	"context"
	"fmt"
	"time"

	"horse.fit/fightdesk/internal/globaltime"
)

// FightCandidate is a fight row joined with its event and the opponent's
// identity, as seen from one fighter's perspective. Reconciliation scores
// these against a free-text history row.
type FightCandidate struct {
	FightID          int64
	EventID          int64
	EventName        string
	EventDate        time.Time
	EventLocation    *string
	OpponentID       int64
	OpponentFirst    string
	OpponentLast     string
	OpponentNickname *string
	ResultKind       ResultKind
	WinnerID         *int64
	MethodKind       MethodKind
	MethodDetail     *string
	Round            *int
	TimeStr          *string
	WeightClass      *string
	IsTitleFight     bool
}

// ResultFor translates the authoritative outcome into the given fighter's
// one-sided result.
func (c FightCandidate) ResultFor(fighterID int64) FightResult {
	switch c.ResultKind {
	case ResultKindDraw:
		return ResultDraw
	case ResultKindNoContest:
		return ResultNoContest
	case ResultKindWin:
		if c.WinnerID == nil {
			return ResultUnknown
		}
		if *c.WinnerID == fighterID {
			return ResultWin
		}
		return ResultLoss
	default:
		return ResultUnknown
	}
}

const fightCandidateQuery = `
SELECT
	ft.fight_id,
	ft.event_id,
	ev.name,
	ev.event_date,
	ev.location,
	opp.fighter_id,
	opp.first_name,
	opp.last_name,
	opp.nickname,
	ft.result_kind,
	ft.winner_id,
	ft.method_kind,
	ft.method_detail,
	ft.round,
	ft.time_str,
	ft.weight_class,
	ft.is_title_fight
FROM mma.fights ft
JOIN mma.events ev ON ev.event_id = ft.event_id
JOIN mma.fighters opp
	ON opp.fighter_id = CASE WHEN ft.fighter1_id = $1 THEN ft.fighter2_id ELSE ft.fighter1_id END
WHERE (ft.fighter1_id = $1 OR ft.fighter2_id = $1)
`

func (s *Store) collectFightCandidates(ctx context.Context, query string, args ...any) ([]FightCandidate, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []FightCandidate
	for rows.Next() {
		var c FightCandidate
		if err := rows.Scan(
			&c.FightID,
			&c.EventID,
			&c.EventName,
			&c.EventDate,
			&c.EventLocation,
			&c.OpponentID,
			&c.OpponentFirst,
			&c.OpponentLast,
			&c.OpponentNickname,
			&c.ResultKind,
			&c.WinnerID,
			&c.MethodKind,
			&c.MethodDetail,
			&c.Round,
			&c.TimeStr,
			&c.WeightClass,
			&c.IsTitleFight,
		); err != nil {
			return nil, fmt.Errorf("scan fight candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// FightsAtEventForFighter lists a fighter's bouts at one event.
func (s *Store) FightsAtEventForFighter(ctx context.Context, fighterID, eventID int64) ([]FightCandidate, error) {
	q := fightCandidateQuery + `  AND ft.event_id = $2
ORDER BY ft.fight_id
`
	return s.collectFightCandidates(ctx, q, fighterID, eventID)
}

// FightsOnDateForFighter lists a fighter's bouts on an exact event date.
func (s *Store) FightsOnDateForFighter(ctx context.Context, fighterID int64, date time.Time) ([]FightCandidate, error) {
	q := fightCandidateQuery + `  AND ev.event_date = $2
ORDER BY ft.fight_id
`
	return s.collectFightCandidates(ctx, q, fighterID, date)
}

// FightsNearDateForFighter lists a fighter's bouts in a date window.
func (s *Store) FightsNearDateForFighter(ctx context.Context, fighterID int64, from, to time.Time) ([]FightCandidate, error) {
	q := fightCandidateQuery + `  AND ev.event_date BETWEEN $2 AND $3
ORDER BY ev.event_date, ft.fight_id
`
	return s.collectFightCandidates(ctx, q, fighterID, from, to)
}

const historyColumns = `
	fight_history_id,
	history_uuid,
	fighter_id,
	fight_order,
	result,
	opponent_name,
	opponent_fighter_id,
	method_kind,
	method_detail,
	event_name,
	event_date,
	location,
	event_id,
	fight_id,
	round,
	time_str,
	weight_class,
	is_title_fight,
	data_source,
	data_quality_score,
	reconciliation,
	created_at,
	updated_at
`

func scanFightHistory(s scanner) (FightHistory, error) {
	var h FightHistory
	err := s.Scan(
		&h.FightHistoryID,
		&h.HistoryUUID,
		&h.FighterID,
		&h.FightOrder,
		&h.Result,
		&h.OpponentName,
		&h.OpponentFighterID,
		&h.MethodKind,
		&h.MethodDetail,
		&h.EventName,
		&h.EventDate,
		&h.Location,
		&h.EventID,
		&h.FightID,
		&h.Round,
		&h.TimeStr,
		&h.WeightClass,
		&h.IsTitleFight,
		&h.DataSource,
		&h.DataQualityScore,
		&h.Reconciliation,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	return h, err
}

// UnlinkedHistoryIDs pages over histories with no fight link, in id order so
// batches resume cleanly after a soft stop.
func (s *Store) UnlinkedHistoryIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 200
	}
	q := `
SELECT fight_history_id
FROM mma.fight_histories
WHERE fight_id IS NULL
  AND fight_history_id > $1
ORDER BY fight_history_id
LIMIT $2
`
	rows, err := s.q.Query(ctx, q, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan history id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HistoryByID loads one fight-history row. Returns (nil, nil) when missing.
func (s *Store) HistoryByID(ctx context.Context, historyID int64) (*FightHistory, error) {
	q := `
SELECT ` + historyColumns + `
FROM mma.fight_histories
WHERE fight_history_id = $1
`
	h, err := scanFightHistory(s.q.QueryRow(ctx, q, historyID))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load fight history %d: %w", historyID, err)
	}
	return &h, nil
}

// HistoriesForFighter lists a fighter's narrative record in fight order.
func (s *Store) HistoriesForFighter(ctx context.Context, fighterID int64) ([]FightHistory, error) {
	q := `
SELECT ` + historyColumns + `
FROM mma.fight_histories
WHERE fighter_id = $1
ORDER BY fight_order
`
	rows, err := s.q.Query(ctx, q, fighterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var histories []FightHistory
	for rows.Next() {
		h, err := scanFightHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fight history: %w", err)
		}
		histories = append(histories, h)
	}
	return histories, rows.Err()
}

// HistoryLinkExists reports whether some other history row already claims
// the (fight, fighter) perspective.
func (s *Store) HistoryLinkExists(ctx context.Context, fightID, fighterID, excludeHistoryID int64) (bool, error) {
	q := `
SELECT EXISTS (
	SELECT 1
	FROM mma.fight_histories
	WHERE fight_id = $1
	  AND fighter_id = $2
	  AND fight_history_id <> $3
)
`
	var exists bool
	if err := s.q.QueryRow(ctx, q, fightID, fighterID, excludeHistoryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check history link: %w", err)
	}
	return exists, nil
}

// UpdateHistoryLink writes the reconciled state of a history row: the fight
// link, every synced denormalized field, and the audit blob.
func (s *Store) UpdateHistoryLink(ctx context.Context, h *FightHistory) error {
	if h == nil || h.FightHistoryID == 0 {
		return fmt.Errorf("fight history id is required")
	}
	q := `
UPDATE mma.fight_histories
SET result = $2,
	opponent_name = $3,
	opponent_fighter_id = $4,
	method_kind = $5,
	method_detail = $6,
	event_name = $7,
	event_date = $8,
	location = $9,
	event_id = $10,
	fight_id = $11,
	round = $12,
	time_str = $13,
	weight_class = $14,
	is_title_fight = $15,
	data_source = $16,
	data_quality_score = $17,
	reconciliation = $18,
	updated_at = $19
WHERE fight_history_id = $1
`
	tag, err := s.q.Exec(
		ctx,
		q,
		h.FightHistoryID,
		h.Result,
		h.OpponentName,
		h.OpponentFighterID,
		h.MethodKind,
		h.MethodDetail,
		h.EventName,
		h.EventDate,
		h.Location,
		h.EventID,
		h.FightID,
		h.Round,
		h.TimeStr,
		h.WeightClass,
		h.IsTitleFight,
		h.DataSource,
		h.DataQualityScore,
		h.Reconciliation,
		globaltime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("update fight history %d: %w", h.FightHistoryID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update fight history %d: %w", h.FightHistoryID, ErrNoRows)
	}
	return nil
}

// EventByID loads one event. Returns (nil, nil) when missing.
func (s *Store) EventByID(ctx context.Context, eventID int64) (*Event, error) {
	q := `
SELECT event_id, event_uuid, name, event_date, location, promotion, wikipedia_url, created_at, updated_at
FROM mma.events
WHERE event_id = $1
`
	var ev Event
	err := s.q.QueryRow(ctx, q, eventID).Scan(
		&ev.EventID,
		&ev.EventUUID,
		&ev.Name,
		&ev.EventDate,
		&ev.Location,
		&ev.Promotion,
		&ev.WikipediaURL,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load event %d: %w", eventID, err)
	}
	return &ev, nil
}
