package store

import (
	"context"
	"fmt"
	"time"
)

// AddEdge persists a similarity edge. No uniqueness constraint is
// enforced beyond "don't edge yourself"; adjacency consumers dedupe
// through neighbor sets.
func (s *SQLiteStore) AddEdge(ctx context.Context, e *Edge) (int64, error) {
	if e.SourceID == "" || e.TargetID == "" {
		return 0, fmt.Errorf("edge endpoints are required")
	}
	if e.SourceID == e.TargetID {
		return 0, fmt.Errorf("self edge on %s", e.SourceID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (source_id, target_id, score, created_at) VALUES (?, ?, ?, ?)`,
		e.SourceID, e.TargetID, e.Score, e.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting edge %s -> %s: %w", e.SourceID, e.TargetID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	e.ID = id
	return id, nil
}

// ListEdges returns all edges in insertion order.
func (s *SQLiteStore) ListEdges(ctx context.Context) ([]*Edge, error) {
	return s.queryEdges(ctx,
		`SELECT id, source_id, target_id, score, created_at FROM edges ORDER BY id ASC`)
}

// EdgesForIdea returns edges incident to the given idea, either direction.
func (s *SQLiteStore) EdgesForIdea(ctx context.Context, ideaID string) ([]*Edge, error) {
	return s.queryEdges(ctx,
		`SELECT id, source_id, target_id, score, created_at
		 FROM edges WHERE source_id = ? OR target_id = ? ORDER BY id ASC`,
		ideaID, ideaID)
}

// ClearDerived removes all edges and theme counters in one transaction.
// The full-reprocess path calls this before rebuilding, so stale
// monotonic counters can never be incremented into.
func (s *SQLiteStore) ClearDerived(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting clear transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return fmt.Errorf("clearing edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM themes`); err != nil {
		return fmt.Errorf("clearing themes: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) queryEdges(ctx context.Context, query string, args ...interface{}) ([]*Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var edges []*Edge
	for rows.Next() {
		e := &Edge{}
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Score, &e.CreatedAt); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
