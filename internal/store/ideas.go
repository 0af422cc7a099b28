package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// AddIdea persists a newly captured idea. Derived fields may be empty;
// the capture path stores the raw idea first and enriches later.
func (s *SQLiteStore) AddIdea(ctx context.Context, idea *Idea) error {
	if idea.ID == "" {
		return fmt.Errorf("idea id is required")
	}
	if strings.TrimSpace(idea.Content) == "" {
		return fmt.Errorf("idea content is empty")
	}
	if idea.Status == "" {
		idea.Status = StatusActive
	}
	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = time.Now().UTC()
	}

	keywords, err := encodeStrings(idea.Keywords)
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}
	tags, err := encodeStrings(idea.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	vector, err := EncodeVector(idea.LexicalVector)
	if err != nil {
		return fmt.Errorf("encoding lexical vector: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ideas (id, content, created_at, status, keywords, tags, lexical_vector, has_reminder)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		idea.ID, idea.Content, idea.CreatedAt, idea.Status, keywords, tags, vector, boolToInt(idea.HasReminder),
	)
	if err != nil {
		return fmt.Errorf("inserting idea: %w", err)
	}

	if len(idea.Embedding) > 0 {
		if err := s.AddEmbedding(ctx, idea.ID, idea.Embedding); err != nil {
			return err
		}
	}
	return nil
}

// GetIdea retrieves an idea by id, including its embedding if present.
func (s *SQLiteStore) GetIdea(ctx context.Context, id string) (*Idea, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, created_at, status, keywords, tags, lexical_vector, has_reminder
		 FROM ideas WHERE id = ?`, id,
	)
	idea, err := scanIdea(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting idea %s: %w", id, err)
	}

	emb, err := s.GetEmbedding(ctx, id)
	if err != nil {
		return nil, err
	}
	idea.Embedding = emb
	return idea, nil
}

// ListIdeas returns all ideas in ascending creation order, embeddings
// attached. Ascending order matters to reprocess: theme counters must
// accumulate in the same order incremental capture would have produced.
func (s *SQLiteStore) ListIdeas(ctx context.Context) ([]*Idea, error) {
	return s.queryIdeas(ctx,
		`SELECT id, content, created_at, status, keywords, tags, lexical_vector, has_reminder
		 FROM ideas ORDER BY created_at ASC, id ASC`)
}

// RecentIdeas returns the most recent limit ideas by creation time,
// newest first. This backs the pipeline's candidate pool.
func (s *SQLiteStore) RecentIdeas(ctx context.Context, limit int) ([]*Idea, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	return s.queryIdeas(ctx,
		`SELECT id, content, created_at, status, keywords, tags, lexical_vector, has_reminder
		 FROM ideas ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// IdeasByTag returns all ideas carrying the given theme tag.
// Tags are stored as a JSON array; the match uses the JSON1 each() table
// so partial-string false positives can't occur.
func (s *SQLiteStore) IdeasByTag(ctx context.Context, tag string) ([]*Idea, error) {
	return s.queryIdeas(ctx,
		`SELECT i.id, i.content, i.created_at, i.status, i.keywords, i.tags, i.lexical_vector, i.has_reminder
		 FROM ideas i, json_each(i.tags) t
		 WHERE t.value = ?
		 ORDER BY i.created_at ASC, i.id ASC`, tag)
}

// IdeasCreatedBetween returns ideas with from <= created_at < to.
func (s *SQLiteStore) IdeasCreatedBetween(ctx context.Context, from, to time.Time) ([]*Idea, error) {
	return s.queryIdeas(ctx,
		`SELECT id, content, created_at, status, keywords, tags, lexical_vector, has_reminder
		 FROM ideas WHERE created_at >= ? AND created_at < ?
		 ORDER BY created_at ASC, id ASC`, from, to)
}

// CountIdeas returns the total number of ideas.
func (s *SQLiteStore) CountIdeas(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ideas`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting ideas: %w", err)
	}
	return n, nil
}

// UpdateIdeaDerived stores the enrichment results for an idea.
func (s *SQLiteStore) UpdateIdeaDerived(ctx context.Context, id string, keywords []string, vector map[string]float64, tags []string) error {
	kw, err := encodeStrings(keywords)
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}
	tg, err := encodeStrings(tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	vec, err := EncodeVector(vector)
	if err != nil {
		return fmt.Errorf("encoding lexical vector: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE ideas SET keywords = ?, lexical_vector = ?, tags = ? WHERE id = ?`,
		kw, vec, tg, id,
	)
	if err != nil {
		return fmt.Errorf("updating idea %s: %w", id, err)
	}
	return requireRow(res, id)
}

// UpdateIdeaStatus moves an idea through its lifecycle.
func (s *SQLiteStore) UpdateIdeaStatus(ctx context.Context, id string, status string) error {
	switch status {
	case StatusActive, StatusResolved, StatusArchived:
	default:
		return fmt.Errorf("invalid status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE ideas SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating status for %s: %w", id, err)
	}
	return requireRow(res, id)
}

// SetReminder toggles the reminder flag on an idea.
func (s *SQLiteStore) SetReminder(ctx context.Context, id string, hasReminder bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE ideas SET has_reminder = ? WHERE id = ?`, boolToInt(hasReminder), id)
	if err != nil {
		return fmt.Errorf("setting reminder for %s: %w", id, err)
	}
	return requireRow(res, id)
}

// DeleteIdea removes an idea together with its incident edges and its
// embedding, in one transaction.
func (s *SQLiteStore) DeleteIdea(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return fmt.Errorf("deleting edges for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM idea_embeddings WHERE idea_id = ?`, id); err != nil {
		return fmt.Errorf("deleting embedding for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ideas WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting idea %s: %w", id, err)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIdea(row rowScanner) (*Idea, error) {
	idea := &Idea{}
	var keywords, tags, vector string
	var reminder int

	if err := row.Scan(&idea.ID, &idea.Content, &idea.CreatedAt, &idea.Status,
		&keywords, &tags, &vector, &reminder); err != nil {
		return nil, err
	}

	var err error
	if idea.Keywords, err = decodeStrings(keywords); err != nil {
		return nil, fmt.Errorf("decoding keywords: %w", err)
	}
	if idea.Tags, err = decodeStrings(tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if idea.LexicalVector, err = DecodeVector(vector); err != nil {
		return nil, fmt.Errorf("decoding lexical vector: %w", err)
	}
	idea.HasReminder = reminder != 0
	return idea, nil
}

func (s *SQLiteStore) queryIdeas(ctx context.Context, query string, args ...interface{}) ([]*Idea, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ideas: %w", err)
	}
	defer rows.Close()

	var ideas []*Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachEmbeddings(ctx, ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("idea %s not found", id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
