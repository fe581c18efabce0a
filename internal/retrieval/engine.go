// Package retrieval fuses semantic and lexical search over a knowledge
// base using Reciprocal Rank Fusion.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jacobmentalconstruct/neocortex/internal/embedder"
	"github.com/jacobmentalconstruct/neocortex/internal/storage"
)

const (
	// subQueryLimit is the candidate depth of each underlying search.
	subQueryLimit = 50

	// rrfConstant is the standard k in 1/(k+rank).
	rrfConstant = 60

	// snippetLength caps the snippet at this many runes.
	snippetLength = 200

	// defaultLimit applies when the caller doesn't specify one.
	defaultLimit = 10
)

// Result is one fused search hit.
type Result struct {
	ID             int64   `json:"id"`
	Path           string  `json:"path"`
	ContentSnippet string  `json:"content_snippet"`
	Score          float64 `json:"score"`
}

// Engine runs hybrid searches against knowledge bases.
type Engine struct {
	manager  *storage.Manager
	embedder embedder.Embedder
	logger   *slog.Logger
}

// NewEngine creates a retrieval engine.
func NewEngine(manager *storage.Manager, emb embedder.Embedder, logger *slog.Logger) *Engine {
	return &Engine{manager: manager, embedder: emb, logger: logger}
}

// Search runs the vector and phrase sub-queries in parallel, fuses their
// rankings, and returns the top results. A failing sub-query degrades to
// an empty contribution; only a missing knowledge base is an error.
func (e *Engine) Search(ctx context.Context, dbName, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	db, err := e.manager.Open(ctx, dbName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	var vectorResults []storage.VectorResult
	var textResults []storage.TextResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		queryVector, err := e.embedder.Embed(gctx, query)
		if err != nil {
			e.logger.Warn("query embedding failed, skipping vector search", "error", err)
			return nil
		}
		vectorResults, err = db.SearchVector(gctx, queryVector, subQueryLimit)
		if err != nil {
			e.logger.Warn("vector search failed", "error", err)
			vectorResults = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		textResults, err = db.SearchText(gctx, query, subQueryLimit)
		if err != nil {
			e.logger.Warn("text search failed", "error", err)
			textResults = nil
		}
		return nil
	})
	// Sub-query errors are swallowed above; only context failure surfaces.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := applyRRF(vectorResults, textResults)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	return e.buildResults(ctx, db, fused)
}

// rankedResult is a chunk with its fused score.
type rankedResult struct {
	chunkID int64
	score   float64
}

// applyRRF combines the two rankings: each list contributes 1/(k+rank)
// with 1-based ranks, and a chunk absent from a list gets nothing from
// it. Ties break toward the lower chunk id.
func applyRRF(vectorResults []storage.VectorResult, textResults []storage.TextResult) []rankedResult {
	scores := make(map[int64]float64)

	for rank, vr := range vectorResults {
		scores[vr.ChunkID] += 1.0 / (rrfConstant + float64(rank+1))
	}
	for rank, tr := range textResults {
		scores[tr.ChunkID] += 1.0 / (rrfConstant + float64(rank+1))
	}

	results := make([]rankedResult, 0, len(scores))
	for chunkID, score := range scores {
		results = append(results, rankedResult{chunkID: chunkID, score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunkID < results[j].chunkID
	})

	return results
}

// buildResults resolves fused rankings to chunk rows with snippets.
func (e *Engine) buildResults(ctx context.Context, db *storage.DB, fused []rankedResult) ([]Result, error) {
	ids := make([]int64, len(fused))
	for i, r := range fused {
		ids[i] = r.chunkID
	}

	chunks, err := db.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch result chunks: %w", err)
	}

	results := make([]Result, 0, len(fused))
	for _, r := range fused {
		chunk, ok := chunks[r.chunkID]
		if !ok {
			continue
		}
		results = append(results, Result{
			ID:             chunk.ID,
			Path:           chunk.FilePath,
			ContentSnippet: snippet(chunk.Content),
			Score:          roundScore(r.score),
		})
	}
	return results, nil
}

// snippet returns the first snippetLength runes with a trailing ellipsis.
func snippet(content string) string {
	runes := []rune(content)
	if len(runes) > snippetLength {
		runes = runes[:snippetLength]
	}
	return string(runes) + "..."
}

// roundScore rounds to four decimal places for stable presentation.
func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
