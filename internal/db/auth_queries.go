package db

import (
	"context"
	"fmt"
	"time"

	"horse.fit/fightdesk/internal/globaltime"
)

// ReviewerByUsername loads one reviewer account. Returns (nil, nil) when missing.
func (s *Store) ReviewerByUsername(ctx context.Context, username string) (*Reviewer, error) {
	q := `
SELECT reviewer_id, reviewer_uuid, username, password_hash, created_at
FROM mma.reviewers
WHERE username = $1
`
	var r Reviewer
	err := s.q.QueryRow(ctx, q, username).Scan(
		&r.ReviewerID,
		&r.ReviewerUUID,
		&r.Username,
		&r.PasswordHash,
		&r.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load reviewer %q: %w", username, err)
	}
	return &r, nil
}

// InsertReviewer creates a reviewer account if the username is free.
// Returns false when the username already exists.
func (s *Store) InsertReviewer(ctx context.Context, username, passwordHash string) (bool, error) {
	q := `
INSERT INTO mma.reviewers (username, password_hash, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO NOTHING
`
	tag, err := s.q.Exec(ctx, q, username, passwordHash, globaltime.UTC())
	if err != nil {
		return false, fmt.Errorf("insert reviewer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertSession stores a login session token.
func (s *Store) InsertSession(ctx context.Context, token string, reviewerID int64, expiresAt time.Time) error {
	q := `
INSERT INTO mma.reviewer_sessions (token, reviewer_id, expires_at, created_at)
VALUES ($1, $2, $3, $4)
`
	if _, err := s.q.Exec(ctx, q, token, reviewerID, expiresAt, globaltime.UTC()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ReviewerBySessionToken resolves an unexpired session to its reviewer.
// Returns (nil, nil) for unknown or expired tokens.
func (s *Store) ReviewerBySessionToken(ctx context.Context, token string) (*Reviewer, error) {
	q := `
SELECT r.reviewer_id, r.reviewer_uuid, r.username, r.password_hash, r.created_at
FROM mma.reviewer_sessions sess
JOIN mma.reviewers r ON r.reviewer_id = sess.reviewer_id
WHERE sess.token = $1
  AND sess.expires_at > $2
`
	var r Reviewer
	err := s.q.QueryRow(ctx, q, token, globaltime.UTC()).Scan(
		&r.ReviewerID,
		&r.ReviewerUUID,
		&r.Username,
		&r.PasswordHash,
		&r.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &r, nil
}

// DeleteSession removes one session token (logout).
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM mma.reviewer_sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions clears stale sessions and returns how many were removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM mma.reviewer_sessions WHERE expires_at <= $1`, globaltime.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
