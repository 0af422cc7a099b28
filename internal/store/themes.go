package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetTheme retrieves a theme by its normalized name. Returns nil when
// the theme does not exist.
func (s *SQLiteStore) GetTheme(ctx context.Context, name string) (*Theme, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, total_count, weekly_count, last_emerging_at FROM themes WHERE name = ?`, name,
	)
	theme, err := scanTheme(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting theme %q: %w", name, err)
	}
	return theme, nil
}

// ListThemes returns all themes, highest total count first.
func (s *SQLiteStore) ListThemes(ctx context.Context) ([]*Theme, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, total_count, weekly_count, last_emerging_at
		 FROM themes ORDER BY total_count DESC, name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing themes: %w", err)
	}
	defer rows.Close()

	var themes []*Theme
	for rows.Next() {
		theme, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		themes = append(themes, theme)
	}
	return themes, rows.Err()
}

// BumpTheme increments the total and weekly counters for a theme,
// creating the row on first use. Concurrent bumps for the same tag are
// tolerated; counters are heuristics, not audited metrics.
func (s *SQLiteStore) BumpTheme(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("theme name is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO themes (name, total_count, weekly_count) VALUES (?, 1, 1)
		 ON CONFLICT(name) DO UPDATE SET
		   total_count = total_count + 1,
		   weekly_count = weekly_count + 1`,
		name,
	)
	if err != nil {
		return fmt.Errorf("bumping theme %q: %w", name, err)
	}
	return nil
}

// MarkThemeEmerging records when a theme was last flagged emerging,
// starting its cooldown window.
func (s *SQLiteStore) MarkThemeEmerging(ctx context.Context, name string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE themes SET last_emerging_at = ? WHERE name = ?`, at.UTC(), name,
	)
	if err != nil {
		return fmt.Errorf("marking theme %q emerging: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("theme %q not found", name)
	}
	return nil
}

// ResetWeeklyCounts zeroes weekly counters. Callers invoke this on a
// weekly cadence; before is accepted for symmetry with schedulers that
// track the last reset.
func (s *SQLiteStore) ResetWeeklyCounts(ctx context.Context, before time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE themes SET weekly_count = 0`)
	if err != nil {
		return fmt.Errorf("resetting weekly counts: %w", err)
	}
	return nil
}

func scanTheme(row rowScanner) (*Theme, error) {
	theme := &Theme{}
	var emergingAt sql.NullTime
	if err := row.Scan(&theme.Name, &theme.TotalCount, &theme.WeeklyCount, &emergingAt); err != nil {
		return nil, err
	}
	if emergingAt.Valid {
		t := emergingAt.Time
		theme.LastEmergingAt = &t
	}
	return theme, nil
}
