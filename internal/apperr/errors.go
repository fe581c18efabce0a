// Package apperr defines sentinel errors shared across the service layers.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a knowledge base or record doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an ingestion job is already running.
	ErrConflict = errors.New("conflict")
	// ErrEmbedderUnavailable is returned when the embedding backend cannot be
	// reached; it aborts an ingestion job before any writes happen.
	ErrEmbedderUnavailable = errors.New("embedder unavailable")
)
