package store

import (
	"database/sql"
	"fmt"
)

// migrate creates all tables if they don't exist and seeds metadata.
func (s *SQLiteStore) migrate() error {
	bootstrapDone, err := s.isMetaFlagEnabled("schema_bootstrap_complete")
	if err != nil {
		return fmt.Errorf("checking bootstrap state: %w", err)
	}

	if !bootstrapDone {
		if err := s.runBootstrapDDL(); err != nil {
			return err
		}
	}

	// Seed metadata (outside bootstrap transaction — meta table now exists)
	if err := s.seedMeta(); err != nil {
		return fmt.Errorf("seeding metadata: %w", err)
	}

	if !bootstrapDone {
		if err := s.setMetaFlag("schema_bootstrap_complete"); err != nil {
			return fmt.Errorf("marking bootstrap complete: %w", err)
		}
	}

	// Schema evolution: add has_reminder column.
	// Uses ALTER TABLE which can't be inside CREATE TABLE IF NOT EXISTS;
	// column existence is checked first to keep this idempotent.
	if err := s.migrateReminderColumn(); err != nil {
		return fmt.Errorf("migrating has_reminder column: %w", err)
	}

	return nil
}

func (s *SQLiteStore) runBootstrapDDL() error {
	statements := []string{
		// Captured ideas with derived features inline.
		// keywords/tags/lexical_vector are JSON-encoded text columns.
		`CREATE TABLE IF NOT EXISTS ideas (
			id             TEXT PRIMARY KEY,
			content        TEXT NOT NULL,
			created_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
			status         TEXT NOT NULL DEFAULT 'active',
			keywords       TEXT NOT NULL DEFAULT '[]',
			tags           TEXT NOT NULL DEFAULT '[]',
			lexical_vector TEXT NOT NULL DEFAULT '{}'
		)`,

		// Dense embedding vectors, one per idea, little-endian float32 blobs.
		`CREATE TABLE IF NOT EXISTS idea_embeddings (
			idea_id    TEXT PRIMARY KEY REFERENCES ideas(id) ON DELETE CASCADE,
			vector     BLOB NOT NULL,
			dimensions INTEGER NOT NULL
		)`,

		// Theme frequency counters.
		`CREATE TABLE IF NOT EXISTS themes (
			name             TEXT PRIMARY KEY,
			total_count      INTEGER NOT NULL DEFAULT 0,
			weekly_count     INTEGER NOT NULL DEFAULT 0,
			last_emerging_at DATETIME
		)`,

		// Similarity edges. Stored directed; consumers symmetrize and
		// dedupe through per-node neighbor sets at read time.
		`CREATE TABLE IF NOT EXISTS edges (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id  TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
			target_id  TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
			score      REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Key-value metadata
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_ideas_created_at ON ideas(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ideas_status ON ideas(status)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap DDL failed: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

func (s *SQLiteStore) seedMeta() error {
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', '1')
		 ON CONFLICT(key) DO NOTHING`,
	)
	return err
}

func (s *SQLiteStore) isMetaFlagEnabled(key string) (bool, error) {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='meta'`,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}

	var value string
	err = s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

func (s *SQLiteStore) setMetaFlag(key string) error {
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES (?, '1')
		 ON CONFLICT(key) DO UPDATE SET value = '1'`, key,
	)
	return err
}

func (s *SQLiteStore) migrateReminderColumn() error {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('ideas') WHERE name='has_reminder'`,
	).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = s.db.Exec(`ALTER TABLE ideas ADD COLUMN has_reminder INTEGER NOT NULL DEFAULT 0`)
	return err
}
