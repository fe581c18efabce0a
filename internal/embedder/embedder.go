package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Common errors
var (
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported provider")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Dimension is the fixed vector length shared by every knowledge base.
// Inserting a vector of any other length fails at the storage layer.
const Dimension = 384

// Embedder encodes text into fixed-length float vectors. Implementations
// must be deterministic for identical input within a model version.
type Embedder interface {
	// Embed generates the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Ping verifies the backend is reachable before an ingestion job starts.
	Ping(ctx context.Context) error

	// Dimension returns the vector length this provider produces.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// ComputeHash computes the SHA-256 content hash used as the cache key.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func validateText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	return nil
}
