package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Node kinds stored in the structural graph.
const (
	NodeTypeConcept = "concept"
	NodeTypeFile    = "file"
)

// EdgeTypeImports marks a woven dependency between two file nodes.
const EdgeTypeImports = "imports"

// ConfigPreferredModel is the system_config key for the agent model chosen
// at ingestion time.
const ConfigPreferredModel = "preferred_agent_model"

// Node is a vertex in the structural graph.
type Node struct {
	ID         int64     `json:"id"`
	Label      string    `json:"label"`
	Type       string    `json:"type"`
	Properties string    `json:"properties,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Edge is a typed, weighted relationship between two nodes.
type Edge struct {
	SourceID         int64   `json:"source_id"`
	TargetID         int64   `json:"target_id"`
	RelationshipType string  `json:"relationship_type"`
	Weight           float64 `json:"weight"`
}

// Chunk is one stored window of source text.
type Chunk struct {
	ID         int64  `json:"id"`
	Content    string `json:"content"`
	FilePath   string `json:"file_path"`
	SourceType string `json:"source_type"`
}

// InsertNode adds a graph node and returns its id.
func (s *session) InsertNode(ctx context.Context, label, nodeType, properties string) (int64, error) {
	var props interface{}
	if properties != "" {
		props = properties
	}
	var id int64
	err := s.q.QueryRowContext(ctx,
		"INSERT INTO nodes (label, type, properties) VALUES (?, ?, ?) RETURNING id",
		label, nodeType, props).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert node: %w", err)
	}
	return id, nil
}

// InsertEdge adds a relationship. Re-weaving the same relationship is a
// no-op because of the composite primary key.
func (s *session) InsertEdge(ctx context.Context, edge Edge) error {
	weight := edge.Weight
	if weight == 0 {
		weight = 1.0
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT OR IGNORE INTO edges (source_id, target_id, relationship_type, weight) VALUES (?, ?, ?, ?)",
		edge.SourceID, edge.TargetID, edge.RelationshipType, weight)
	if err != nil {
		return fmt.Errorf("failed to insert edge: %w", err)
	}
	return nil
}

// InsertChunk stores a content window and returns the chunk id shared by
// the lexical and semantic records for the same window.
func (s *session) InsertChunk(ctx context.Context, content, filePath, sourceType string) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx,
		"INSERT INTO knowledge_chunks (content, file_path, source_type) VALUES (?, ?, ?) RETURNING id",
		content, filePath, sourceType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chunk: %w", err)
	}
	return id, nil
}

// InsertLexical adds the full-text record for a chunk. The FTS rowid is
// set to the chunk id so search results join straight back to the chunk.
func (s *session) InsertLexical(ctx context.Context, chunkID int64, content, filePath string) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO documents_fts (rowid, content, file_path) VALUES (?, ?, ?)",
		chunkID, content, filePath)
	if err != nil {
		return fmt.Errorf("failed to insert lexical record: %w", err)
	}
	return nil
}

// InsertVector stores a chunk's embedding. The vector length must match
// the schema dimension.
func (s *session) InsertVector(ctx context.Context, chunkID int64, vector []float32) error {
	if len(vector) != VectorDim {
		return fmt.Errorf("vector dimension %d, want %d", len(vector), VectorDim)
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO knowledge_vectors (chunk_id, embedding) VALUES (?, ?)",
		chunkID, serializeVector(vector))
	if err != nil {
		return fmt.Errorf("failed to insert vector: %w", err)
	}
	return nil
}

// SetConfig upserts a system_config entry.
func (s *session) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT OR REPLACE INTO system_config (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set config %s: %w", key, err)
	}
	return nil
}

// GetConfig reads a system_config entry. Missing keys return an empty
// string, not an error.
func (s *session) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.q.QueryRowContext(ctx,
		"SELECT value FROM system_config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read config %s: %w", key, err)
	}
	return value, nil
}

// ListNodes returns every node in the structural graph.
func (s *session) ListNodes(ctx context.Context) ([]Node, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, label, type, COALESCE(properties, ''), created_at FROM nodes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	nodes := make([]Node, 0)
	for rows.Next() {
		var node Node
		if err := rows.Scan(&node.ID, &node.Label, &node.Type, &node.Properties, &node.CreatedAt); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// ListEdges returns every relationship in the structural graph.
func (s *session) ListEdges(ctx context.Context) ([]Edge, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT source_id, target_id, relationship_type, weight FROM edges ORDER BY source_id, target_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	edges := make([]Edge, 0)
	for rows.Next() {
		var edge Edge
		if err := rows.Scan(&edge.SourceID, &edge.TargetID, &edge.RelationshipType, &edge.Weight); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

// GetChunks fetches chunk rows for a set of ids, keyed by id. Unknown ids
// are simply absent from the result.
func (s *session) GetChunks(ctx context.Context, ids []int64) (map[int64]Chunk, error) {
	if len(ids) == 0 {
		return map[int64]Chunk{}, nil
	}

	query := "SELECT id, content, file_path, source_type FROM knowledge_chunks WHERE id IN ("
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chunks := make(map[int64]Chunk, len(ids))
	for rows.Next() {
		var chunk Chunk
		var sourceType sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.Content, &chunk.FilePath, &sourceType); err != nil {
			return nil, err
		}
		chunk.SourceType = sourceType.String
		chunks[chunk.ID] = chunk
	}
	return chunks, rows.Err()
}

// CountChunks returns the number of stored chunks.
func (s *session) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM knowledge_chunks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
