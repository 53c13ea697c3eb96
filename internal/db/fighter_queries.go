package db

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/fightdesk/internal/globaltime"
)

const fighterColumns = `
	fighter_id,
	fighter_uuid,
	first_name,
	last_name,
	nickname,
	nationality,
	date_of_birth,
	wins,
	losses,
	draws,
	no_contests,
	wins_by_ko,
	wins_by_submission,
	wins_by_decision,
	wikipedia_url,
	data_source,
	data_quality_score,
	created_at,
	updated_at
`

func scanFighter(s scanner) (Fighter, error) {
	var f Fighter
	err := s.Scan(
		&f.FighterID,
		&f.FighterUUID,
		&f.FirstName,
		&f.LastName,
		&f.Nickname,
		&f.Nationality,
		&f.DateOfBirth,
		&f.Wins,
		&f.Losses,
		&f.Draws,
		&f.NoContests,
		&f.WinsByKO,
		&f.WinsBySubmission,
		&f.WinsByDecision,
		&f.WikipediaURL,
		&f.DataSource,
		&f.DataQualityScore,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, err
}

func (s *Store) collectFighters(ctx context.Context, query string, args ...any) ([]Fighter, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fighters []Fighter
	for rows.Next() {
		f, err := scanFighter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fighter: %w", err)
		}
		fighters = append(fighters, f)
	}
	return fighters, rows.Err()
}

// FightersByExactName returns all fighters whose canonical name matches
// case-insensitively, ordered by id so ambiguity resolves deterministically.
func (s *Store) FightersByExactName(ctx context.Context, first, last string) ([]Fighter, error) {
	q := `
SELECT ` + fighterColumns + `
FROM mma.fighters
WHERE lower(first_name) = lower($1)
  AND lower(last_name) = lower($2)
ORDER BY fighter_id
`
	return s.collectFighters(ctx, q, strings.TrimSpace(first), strings.TrimSpace(last))
}

// FightersByAlias matches recorded name variations, either the full string
// or the first/last components.
func (s *Store) FightersByAlias(ctx context.Context, first, last, full string) ([]Fighter, error) {
	q := `
SELECT DISTINCT ON (f.fighter_id) ` + prefixedFighterColumns("f") + `
FROM mma.fighters f
JOIN mma.fighter_name_variations v ON v.fighter_id = f.fighter_id
WHERE lower(v.full_variation) = lower($3)
   OR (lower(v.first_variation) = lower($1) AND lower(v.last_variation) = lower($2))
ORDER BY f.fighter_id
`
	return s.collectFighters(ctx, q, strings.TrimSpace(first), strings.TrimSpace(last), strings.TrimSpace(full))
}

// FighterCandidates returns a bounded pool of fighters whose first or last
// name overlaps the query tokens as a substring in either direction. Final
// similarity ranking happens in the matcher.
func (s *Store) FighterCandidates(ctx context.Context, first, last string, limit int) ([]Fighter, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
SELECT ` + fighterColumns + `
FROM mma.fighters
WHERE ($1 <> '' AND (lower(first_name) LIKE '%' || $1 || '%' OR $1 LIKE '%' || lower(first_name) || '%'))
   OR ($2 <> '' AND (lower(last_name) LIKE '%' || $2 || '%' OR $2 LIKE '%' || lower(last_name) || '%'))
ORDER BY fighter_id
LIMIT $3
`
	return s.collectFighters(ctx, q, strings.ToLower(strings.TrimSpace(first)), strings.ToLower(strings.TrimSpace(last)), limit)
}

// FightersByNickname matches the supplied token against stored nicknames.
func (s *Store) FightersByNickname(ctx context.Context, nickname string) ([]Fighter, error) {
	q := `
SELECT ` + fighterColumns + `
FROM mma.fighters
WHERE nickname IS NOT NULL
  AND lower(nickname) = lower($1)
ORDER BY fighter_id
`
	return s.collectFighters(ctx, q, strings.TrimSpace(nickname))
}

// FighterByID loads one fighter. Returns (nil, nil) when the id does not resolve.
func (s *Store) FighterByID(ctx context.Context, fighterID int64) (*Fighter, error) {
	q := `
SELECT ` + fighterColumns + `
FROM mma.fighters
WHERE fighter_id = $1
`
	f, err := scanFighter(s.q.QueryRow(ctx, q, fighterID))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load fighter %d: %w", fighterID, err)
	}
	return &f, nil
}

// FighterByWikipediaURL is the URL-equality dedup key. Returns (nil, nil)
// when no fighter owns the URL.
func (s *Store) FighterByWikipediaURL(ctx context.Context, url string) (*Fighter, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, nil
	}
	q := `
SELECT ` + fighterColumns + `
FROM mma.fighters
WHERE wikipedia_url = $1
ORDER BY fighter_id
LIMIT 1
`
	f, err := scanFighter(s.q.QueryRow(ctx, q, trimmed))
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load fighter by url: %w", err)
	}
	return &f, nil
}

// InsertFighter persists a new fighter and fills the generated identifiers.
func (s *Store) InsertFighter(ctx context.Context, f *Fighter) error {
	if f == nil {
		return fmt.Errorf("fighter is nil")
	}
	q := `
INSERT INTO mma.fighters (
	first_name,
	last_name,
	nickname,
	nationality,
	date_of_birth,
	wins,
	losses,
	draws,
	no_contests,
	wins_by_ko,
	wins_by_submission,
	wins_by_decision,
	wikipedia_url,
	data_source,
	data_quality_score,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
RETURNING fighter_id, fighter_uuid, created_at, updated_at
`
	now := globaltime.UTC()
	err := s.q.QueryRow(
		ctx,
		q,
		f.FirstName,
		f.LastName,
		f.Nickname,
		f.Nationality,
		f.DateOfBirth,
		f.Wins,
		f.Losses,
		f.Draws,
		f.NoContests,
		f.WinsByKO,
		f.WinsBySubmission,
		f.WinsByDecision,
		f.WikipediaURL,
		f.DataSource,
		f.DataQualityScore,
		now,
	).Scan(&f.FighterID, &f.FighterUUID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert fighter: %w", err)
	}
	return nil
}

// UpdateFighterProfile writes the mutable profile fields of an existing
// fighter. Record statistics are updated separately.
func (s *Store) UpdateFighterProfile(ctx context.Context, f *Fighter) error {
	if f == nil || f.FighterID == 0 {
		return fmt.Errorf("fighter id is required")
	}
	q := `
UPDATE mma.fighters
SET nickname = $2,
	nationality = $3,
	date_of_birth = $4,
	wikipedia_url = $5,
	data_source = $6,
	data_quality_score = $7,
	updated_at = $8
WHERE fighter_id = $1
`
	tag, err := s.q.Exec(
		ctx,
		q,
		f.FighterID,
		f.Nickname,
		f.Nationality,
		f.DateOfBirth,
		f.WikipediaURL,
		f.DataSource,
		f.DataQualityScore,
		globaltime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("update fighter %d: %w", f.FighterID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update fighter %d: %w", f.FighterID, ErrNoRows)
	}
	return nil
}

// InsertNameVariation records an alias edge. Returns false when the
// (fighter, full_variation) pair already exists.
func (s *Store) InsertNameVariation(ctx context.Context, v *FighterNameVariation) (bool, error) {
	if v == nil {
		return false, fmt.Errorf("name variation is nil")
	}
	q := `
INSERT INTO mma.fighter_name_variations (
	fighter_id,
	first_variation,
	last_variation,
	full_variation,
	variation_type,
	source,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (fighter_id, full_variation) DO NOTHING
`
	tag, err := s.q.Exec(
		ctx,
		q,
		v.FighterID,
		v.FirstVariation,
		v.LastVariation,
		v.FullVariation,
		v.VariationType,
		v.Source,
		globaltime.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert name variation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// NameVariationsForFighter lists recorded aliases, newest first.
func (s *Store) NameVariationsForFighter(ctx context.Context, fighterID int64) ([]FighterNameVariation, error) {
	q := `
SELECT
	variation_id,
	variation_uuid,
	fighter_id,
	first_variation,
	last_variation,
	full_variation,
	variation_type,
	source,
	created_at
FROM mma.fighter_name_variations
WHERE fighter_id = $1
ORDER BY created_at DESC, variation_id DESC
`
	rows, err := s.q.Query(ctx, q, fighterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variations []FighterNameVariation
	for rows.Next() {
		var v FighterNameVariation
		if err := rows.Scan(
			&v.VariationID,
			&v.VariationUUID,
			&v.FighterID,
			&v.FirstVariation,
			&v.LastVariation,
			&v.FullVariation,
			&v.VariationType,
			&v.Source,
			&v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan name variation: %w", err)
		}
		variations = append(variations, v)
	}
	return variations, rows.Err()
}

func prefixedFighterColumns(alias string) string {
	cols := strings.Split(fighterColumns, ",")
	prefixed := make([]string, 0, len(cols))
	for _, col := range cols {
		prefixed = append(prefixed, alias+"."+strings.TrimSpace(col))
	}
	return strings.Join(prefixed, ", ")
}
