package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// EncodeVector serializes a sparse lexical weight map to JSON text.
// An empty or nil map encodes to "{}" so the round trip is lossless.
func EncodeVector(v map[string]float64) (string, error) {
	if len(v) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeVector parses a JSON sparse weight map produced by EncodeVector.
func DecodeVector(text string) (map[string]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "{}" {
		return map[string]float64{}, nil
	}
	v := map[string]float64{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// encodeStrings serializes a string slice to a JSON array. Nil and
// empty slices both encode to "[]".
func encodeStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeStrings parses a JSON string array produced by encodeStrings.
func decodeStrings(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "[]" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// AddEmbedding stores an embedding vector for an idea.
// Replaces any existing embedding for the same idea.
func (s *SQLiteStore) AddEmbedding(ctx context.Context, ideaID string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty embedding for idea %s", ideaID)
	}
	blob := float32ToBytes(vector)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO idea_embeddings (idea_id, vector, dimensions) VALUES (?, ?, ?)
		 ON CONFLICT(idea_id) DO UPDATE SET vector = excluded.vector, dimensions = excluded.dimensions`,
		ideaID, blob, len(vector),
	)
	if err != nil {
		return fmt.Errorf("storing embedding for idea %s: %w", ideaID, err)
	}
	return nil
}

// GetEmbedding retrieves the embedding vector for an idea.
// Returns nil (not an error) when no embedding is stored.
func (s *SQLiteStore) GetEmbedding(ctx context.Context, ideaID string) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT vector FROM idea_embeddings WHERE idea_id = ?`, ideaID,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting embedding for idea %s: %w", ideaID, err)
	}
	return bytesToFloat32(blob), nil
}

// attachEmbeddings loads embeddings for a batch of ideas in one query.
func (s *SQLiteStore) attachEmbeddings(ctx context.Context, ideas []*Idea) error {
	if len(ideas) == 0 {
		return nil
	}

	byID := make(map[string]*Idea, len(ideas))
	placeholders := make([]string, 0, len(ideas))
	args := make([]interface{}, 0, len(ideas))
	for _, idea := range ideas {
		byID[idea.ID] = idea
		placeholders = append(placeholders, "?")
		args = append(args, idea.ID)
	}

	query := fmt.Sprintf(
		`SELECT idea_id, vector FROM idea_embeddings WHERE idea_id IN (%s)`,
		strings.Join(placeholders, ","),
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return err
		}
		if idea, ok := byID[id]; ok {
			idea.Embedding = bytesToFloat32(blob)
		}
	}
	return rows.Err()
}

// float32ToBytes encodes a vector as little-endian float32 bytes.
func float32ToBytes(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, f := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32 decodes little-endian float32 bytes back to a vector.
func bytesToFloat32(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
