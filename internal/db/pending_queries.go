package db

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/fightdesk/internal/globaltime"
)

const pendingColumns = `
	pending_fighter_id,
	pending_uuid,
	first_name,
	last_name,
	nickname,
	nationality,
	weight_class,
	record_text,
	source_kind,
	source_event_name,
	source_url,
	raw_payload,
	detected_language,
	status,
	confidence_level,
	potential_matches,
	matched_fighter_id,
	created_fighter_id,
	reviewed_by,
	reviewed_at,
	created_at,
	updated_at
`

func scanPendingFighter(s scanner) (PendingFighter, error) {
	var p PendingFighter
	err := s.Scan(
		&p.PendingFighterID,
		&p.PendingUUID,
		&p.FirstName,
		&p.LastName,
		&p.Nickname,
		&p.Nationality,
		&p.WeightClass,
		&p.RecordText,
		&p.SourceKind,
		&p.SourceEventName,
		&p.SourceURL,
		&p.RawPayload,
		&p.DetectedLanguage,
		&p.Status,
		&p.ConfidenceLevel,
		&p.PotentialMatches,
		&p.MatchedFighterID,
		&p.CreatedFighterID,
		&p.ReviewedBy,
		&p.ReviewedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// PendingByRawName returns the still-pending record for the same raw name,
// if any. Discovery dedupes against this before creating a second row.
func (s *Store) PendingByRawName(ctx context.Context, first, last string) (*PendingFighter, error) {
	q := `
SELECT ` + pendingColumns + `
FROM mma.pending_fighters
WHERE status = 'pending'
  AND lower(first_name) = lower($1)
  AND lower(last_name) = lower($2)
ORDER BY pending_fighter_id
LIMIT 1
`
	p, err := scanPendingFighter(s.q.QueryRow(ctx, q, strings.TrimSpace(first), strings.TrimSpace(last)))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load pending by raw name: %w", err)
	}
	return &p, nil
}

// PendingByID loads one pending fighter. Returns (nil, nil) when missing.
func (s *Store) PendingByID(ctx context.Context, pendingID int64) (*PendingFighter, error) {
	q := `
SELECT ` + pendingColumns + `
FROM mma.pending_fighters
WHERE pending_fighter_id = $1
`
	p, err := scanPendingFighter(s.q.QueryRow(ctx, q, pendingID))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load pending fighter %d: %w", pendingID, err)
	}
	return &p, nil
}

// InsertPendingFighter persists a newly discovered mention.
func (s *Store) InsertPendingFighter(ctx context.Context, p *PendingFighter) error {
	if p == nil {
		return fmt.Errorf("pending fighter is nil")
	}
	q := `
INSERT INTO mma.pending_fighters (
	first_name,
	last_name,
	nickname,
	nationality,
	weight_class,
	record_text,
	source_kind,
	source_event_name,
	source_url,
	raw_payload,
	detected_language,
	status,
	confidence_level,
	potential_matches,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
RETURNING pending_fighter_id, pending_uuid, created_at, updated_at
`
	now := globaltime.UTC()
	err := s.q.QueryRow(
		ctx,
		q,
		p.FirstName,
		p.LastName,
		p.Nickname,
		p.Nationality,
		p.WeightClass,
		p.RecordText,
		p.SourceKind,
		p.SourceEventName,
		p.SourceURL,
		p.RawPayload,
		p.DetectedLanguage,
		p.Status,
		p.ConfidenceLevel,
		p.PotentialMatches,
		now,
	).Scan(&p.PendingFighterID, &p.PendingUUID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert pending fighter: %w", err)
	}
	return nil
}

// UpdatePendingReview writes the reviewable state of a pending fighter:
// status, confidence grading, candidate matches, and the review audit stamp.
func (s *Store) UpdatePendingReview(ctx context.Context, p *PendingFighter) error {
	if p == nil || p.PendingFighterID == 0 {
		return fmt.Errorf("pending fighter id is required")
	}
	q := `
UPDATE mma.pending_fighters
SET status = $2,
	confidence_level = $3,
	potential_matches = $4,
	matched_fighter_id = $5,
	created_fighter_id = $6,
	reviewed_by = $7,
	reviewed_at = $8,
	detected_language = $9,
	updated_at = $10
WHERE pending_fighter_id = $1
`
	tag, err := s.q.Exec(
		ctx,
		q,
		p.PendingFighterID,
		p.Status,
		p.ConfidenceLevel,
		p.PotentialMatches,
		p.MatchedFighterID,
		p.CreatedFighterID,
		p.ReviewedBy,
		p.ReviewedAt,
		p.DetectedLanguage,
		globaltime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("update pending fighter %d: %w", p.PendingFighterID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update pending fighter %d: %w", p.PendingFighterID, ErrNoRows)
	}
	return nil
}

// ListPendingFighters pages through the queue, optionally filtered by status.
func (s *Store) ListPendingFighters(ctx context.Context, status PendingStatus, limit, offset int) ([]PendingFighter, error) {
	if limit <= 0 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	q := `
SELECT ` + pendingColumns + `
FROM mma.pending_fighters
WHERE ($1 = '' OR status = $1)
ORDER BY pending_fighter_id DESC
LIMIT $2 OFFSET $3
`
	rows, err := s.q.Query(ctx, q, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingFighter
	for rows.Next() {
		p, err := scanPendingFighter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending fighter: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// PendingStatusCounts reports queue sizes per status.
func (s *Store) PendingStatusCounts(ctx context.Context) (map[PendingStatus]int64, error) {
	q := `
SELECT status, count(*)
FROM mma.pending_fighters
GROUP BY status
`
	rows, err := s.q.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[PendingStatus]int64)
	for rows.Next() {
		var status PendingStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan pending status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
