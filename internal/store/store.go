// Package store provides the SQLite storage layer for ThinkTank.
//
// All durable data lives in a single SQLite database file:
// - Captured ideas with their derived lexical features and tags
// - Themes (tag frequency counters used for momentum and TF-IDF)
// - Similarity edges between ideas
// - Dense embedding vectors
//
// Everything the analytics engine computes on top of these tables
// (adjacency, clusters, centrality, layout) is a cache that can be
// rebuilt from here at any time.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.thinktank/thinktank.db"

// DefaultBatchSize is the default batch size for bulk operations.
const DefaultBatchSize = 200

// DefaultEmbeddingDimensions is the default embedding vector size (MiniLM).
const DefaultEmbeddingDimensions = 384

// Idea lifecycle statuses.
const (
	StatusActive   = "active"
	StatusResolved = "resolved"
	StatusArchived = "archived"
)

// MaxTags caps how many theme tags a single idea can carry.
const MaxTags = 5

// Idea represents a single captured note and its derived features.
type Idea struct {
	ID            string
	Content       string
	CreatedAt     time.Time
	Status        string
	Keywords      []string
	Tags          []string
	LexicalVector map[string]float64
	Embedding     []float32 // nil when no embedding could be generated
	HasReminder   bool
}

// Theme represents a recurring tag with corpus-wide frequency counters.
// Counters are monotonic heuristics, never decremented outside a full
// reprocess.
type Theme struct {
	Name           string
	TotalCount     int
	WeeklyCount    int
	LastEmergingAt *time.Time
}

// Edge represents a persisted similarity relationship between two ideas.
// Logically undirected; consumers symmetrize when building adjacency.
type Edge struct {
	ID        int64
	SourceID  string
	TargetID  string
	Score     float64
	CreatedAt time.Time
}

// Stats holds aggregate counts for observability.
type Stats struct {
	IdeaCount     int64
	ActiveCount   int64
	ResolvedCount int64
	ArchivedCount int64
	ThemeCount    int64
	EdgeCount     int64
	EmbeddedCount int64
	DBSizeBytes   int64
}

// Config holds configuration for Open.
type Config struct {
	DBPath              string
	BatchSize           int
	EmbeddingDimensions int
}

// Store defines the persistence contract the engine depends on.
type Store interface {
	// Ideas
	AddIdea(ctx context.Context, idea *Idea) error
	GetIdea(ctx context.Context, id string) (*Idea, error)
	ListIdeas(ctx context.Context) ([]*Idea, error)
	RecentIdeas(ctx context.Context, limit int) ([]*Idea, error)
	IdeasByTag(ctx context.Context, tag string) ([]*Idea, error)
	IdeasCreatedBetween(ctx context.Context, from, to time.Time) ([]*Idea, error)
	CountIdeas(ctx context.Context) (int, error)
	UpdateIdeaDerived(ctx context.Context, id string, keywords []string, vector map[string]float64, tags []string) error
	UpdateIdeaStatus(ctx context.Context, id string, status string) error
	SetReminder(ctx context.Context, id string, hasReminder bool) error
	DeleteIdea(ctx context.Context, id string) error

	// Embeddings
	AddEmbedding(ctx context.Context, ideaID string, vector []float32) error
	GetEmbedding(ctx context.Context, ideaID string) ([]float32, error)

	// Themes
	GetTheme(ctx context.Context, name string) (*Theme, error)
	ListThemes(ctx context.Context) ([]*Theme, error)
	BumpTheme(ctx context.Context, name string) error
	MarkThemeEmerging(ctx context.Context, name string, at time.Time) error
	ResetWeeklyCounts(ctx context.Context, before time.Time) error

	// Edges
	AddEdge(ctx context.Context, e *Edge) (int64, error)
	ListEdges(ctx context.Context) ([]*Edge, error)
	EdgesForIdea(ctx context.Context, ideaID string) ([]*Edge, error)

	// Derived-data reset, used by full reprocess
	ClearDerived(ctx context.Context) error

	// Observability
	Stats(ctx context.Context) (*Stats, error)

	// Maintenance
	Vacuum(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	dbPath    string
	batchSize int
	embDims   int
}

// Open creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func Open(cfg Config) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = DefaultEmbeddingDimensions
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{
		db:        db,
		dbPath:    cfg.DBPath,
		batchSize: cfg.BatchSize,
		embDims:   cfg.EmbeddingDimensions,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// GetDB exposes the underlying handle for read-only diagnostics.
func (s *SQLiteStore) GetDB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Vacuum runs VACUUM on the database. Manual only — never auto-vacuum.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Stats returns aggregate counts for observability surfaces.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM ideas", &st.IdeaCount},
		{"SELECT COUNT(*) FROM ideas WHERE status = 'active'", &st.ActiveCount},
		{"SELECT COUNT(*) FROM ideas WHERE status = 'resolved'", &st.ResolvedCount},
		{"SELECT COUNT(*) FROM ideas WHERE status = 'archived'", &st.ArchivedCount},
		{"SELECT COUNT(*) FROM themes", &st.ThemeCount},
		{"SELECT COUNT(*) FROM edges", &st.EdgeCount},
		{"SELECT COUNT(*) FROM idea_embeddings", &st.EmbeddedCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting: %w", err)
		}
	}

	if s.dbPath != ":memory:" {
		if info, err := os.Stat(s.dbPath); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}

	return st, nil
}

// expandPath expands a leading ~ to the user home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
