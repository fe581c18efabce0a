package storage

import (
	"context"
	"fmt"
	"strings"
)

// TextResult is one hit from a full-text search. Rank is the FTS5 bm25
// rank, where lower means more relevant.
type TextResult struct {
	ChunkID int64
	Rank    float64
}

// PhraseQuery wraps user input as an FTS5 phrase. Embedded double quotes
// are doubled per FTS5 quoting rules, which also neutralizes MATCH
// operators in the input.
func PhraseQuery(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}

// SearchText returns up to k chunks matching the query as an exact
// phrase, ordered by ascending bm25 rank. The FTS rowid is the chunk id.
func (s *session) SearchText(ctx context.Context, query string, k int) ([]TextResult, error) {
	if query == "" {
		return []TextResult{}, nil
	}
	if k <= 0 {
		return []TextResult{}, nil
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT rowid, rank
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?`,
		PhraseQuery(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, k)
	for rows.Next() {
		var result TextResult
		if err := rows.Scan(&result.ChunkID, &result.Rank); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
