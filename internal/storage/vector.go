package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// VectorDim is the embedding length fixed by the knowledge base schema.
const VectorDim = 384

// VectorResult is one hit from a nearest-neighbor search. Distance is
// cosine distance, so lower is closer.
type VectorResult struct {
	ChunkID  int64
	Distance float64
}

// SearchVector returns the k nearest chunks to the query vector, ordered
// by ascending cosine distance.
func (s *session) SearchVector(ctx context.Context, queryVector []float32, k int) ([]VectorResult, error) {
	if len(queryVector) != VectorDim {
		return nil, fmt.Errorf("query vector dimension %d, want %d", len(queryVector), VectorDim)
	}
	if k <= 0 {
		return []VectorResult{}, nil
	}

	if VectorExtensionAvailable {
		return s.searchVectorOptimized(ctx, queryVector, k)
	}
	return s.searchVectorFallback(ctx, queryVector, k)
}

// searchVectorOptimized computes cosine distance inside SQLite via the
// sqlite-vec extension.
func (s *session) searchVectorOptimized(ctx context.Context, queryVector []float32, k int) ([]VectorResult, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT chunk_id, vec_distance_cosine(embedding, ?) AS distance
		FROM knowledge_vectors
		ORDER BY distance
		LIMIT ?`,
		serializeVector(queryVector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, k)
	for rows.Next() {
		var result VectorResult
		if err := rows.Scan(&result.ChunkID, &result.Distance); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// searchVectorFallback scans every embedding and ranks in Go. Used on
// purego builds where the extension is unavailable.
func (s *session) searchVectorFallback(ctx context.Context, queryVector []float32, k int) ([]VectorResult, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT chunk_id, embedding FROM knowledge_vectors")
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, 256)
	for rows.Next() {
		var chunkID int64
		var blob []byte
		if err := rows.Scan(&chunkID, &blob); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		distance := 1.0 - cosineSimilarity(queryVector, vector)
		results = append(results, VectorResult{ChunkID: chunkID, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
